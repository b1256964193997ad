package mqtt

import (
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

const (
	// DefaultBacklog holds about a day of readings at the reference cadence.
	DefaultBacklog = 256
	publishTimeout = 5 * time.Second
)

// client is the subset of paho.Client used by RealPublisher.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to a broker, queueing messages while the
// connection is down and replaying them once it returns.
type RealPublisher struct {
	client client
	log    *slog.Logger
	now    func() time.Time

	// sendMu orders direct publishes and backlog replays.
	sendMu sync.Mutex

	mu        sync.Mutex
	backlog   *backlog
	connected bool
	// everConnected distinguishes the first connect from a reconnect.
	everConnected bool
}

// NewRealPublisher starts connecting to broker in the background and returns
// immediately. A retained SHUTDOWN last will is registered with the broker.
func NewRealPublisher(broker, clientID string, log *slog.Logger) *RealPublisher {
	p := newPublisher(nil, log, time.Now)

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(60 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOrderMatters(false).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.handleConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.handleConnectionLost(err) })

	c := paho.NewClient(opts)
	p.client = c
	c.Connect()
	return p
}

func newPublisher(c client, log *slog.Logger, now func() time.Time) *RealPublisher {
	return &RealPublisher{
		client:  c,
		log:     log,
		now:     now,
		backlog: newBacklog(DefaultBacklog),
	}
}

// Publish sends a reading at QoS 1. While disconnected the reading is queued
// and nil is returned.
func (p *RealPublisher) Publish(r logic.Reading) error {
	payload, err := FormatPayload(r, p.now())
	if err != nil {
		return errors.Wrap(err, "format payload")
	}
	return p.send(queuedMsg{topic: TopicReadings, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}
	return p.send(queuedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports the broker connection state.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Queued returns the number of messages waiting for a connection.
func (p *RealPublisher) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000)
	return nil
}

func (p *RealPublisher) send(msg queuedMsg) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	if !p.connected {
		p.queue(msg)
		p.mu.Unlock()
		return nil
	}
	pending := append(p.backlog.takeAll(), msg)
	p.mu.Unlock()

	return p.flush(pending)
}

// queue must be called with mu held.
func (p *RealPublisher) queue(msg queuedMsg) {
	if p.backlog.add(msg) {
		p.log.Warn("mqtt backlog full, dropping oldest", "size", DefaultBacklog, "dropped", p.backlog.dropped)
	}
}

// flush publishes msgs oldest first. On failure the unsent messages go back
// to the backlog in order. A timed-out message is not queued again: paho's
// store keeps retrying QoS 1 deliveries on its own.
// Callers hold sendMu.
func (p *RealPublisher) flush(msgs []queuedMsg) error {
	for i, msg := range msgs {
		err := p.publish(msg)
		if err == nil {
			continue
		}
		rest := msgs[i:]
		if errors.Is(err, errPublishTimeout) {
			rest = msgs[i+1:]
		}
		p.mu.Lock()
		for _, m := range rest {
			p.queue(m)
		}
		p.mu.Unlock()
		return err
	}
	return nil
}

var errPublishTimeout = errors.New("timeout")

func (p *RealPublisher) publish(msg queuedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Wrapf(errPublishTimeout, "publish to %s", msg.topic)
	}
	return errors.Wrapf(token.Error(), "publish to %s", msg.topic)
}

func (p *RealPublisher) handleConnect() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	p.mu.Lock()
	p.connected = true
	reconnect := p.everConnected
	p.everConnected = true
	pending := p.backlog.takeAll()
	p.mu.Unlock()

	p.log.Info("mqtt connected", "replaying", len(pending))

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		pending = append([]queuedMsg{{topic: TopicSystem, payload: payload, qos: 1}}, pending...)
	}
	if err := p.flush(pending); err != nil {
		p.log.Warn("mqtt replay error", "error", err)
	}
}

func (p *RealPublisher) handleConnectionLost(err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.log.Warn("mqtt connection lost", "error", err)
}
