package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/enviro-sensor/internal/logging"
)

type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sent struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	sent         []sent
	err          error
	timeout      bool
	disconnected bool
}

func (c *fakeClient) IsConnected() bool { return true }

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil && !c.timeout {
		c.sent = append(c.sent, sent{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	}
	return &fakeToken{err: c.err, timeout: c.timeout}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func newTestPublisher() (*RealPublisher, *fakeClient) {
	c := &fakeClient{}
	now := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return newPublisher(c, logging.Discard(), now), c
}

func TestRealPublisherQueuesUntilConnected(t *testing.T) {
	p, c := newTestPublisher()

	require.NoError(t, p.Publish(testReading))
	require.NoError(t, p.PublishSystem(SystemEvent{Event: "STARTUP", Retained: true, RawPayload: []byte(`{}`)}))
	assert.Empty(t, c.sent)
	assert.Equal(t, 2, p.Queued())
	assert.False(t, p.IsConnected())

	p.handleConnect()
	assert.True(t, p.IsConnected())
	assert.Equal(t, 0, p.Queued())
	require.Len(t, c.sent, 2)
	assert.Equal(t, TopicReadings, c.sent[0].topic)
	assert.Equal(t, byte(1), c.sent[0].qos)
	assert.False(t, c.sent[0].retained)
	assert.Equal(t, TopicSystem, c.sent[1].topic)
	assert.True(t, c.sent[1].retained)
}

func TestRealPublisherPublishesWhenConnected(t *testing.T) {
	p, c := newTestPublisher()
	p.handleConnect()

	require.NoError(t, p.Publish(testReading))
	require.Len(t, c.sent, 1)

	var parsed Payload
	require.NoError(t, json.Unmarshal(c.sent[0].payload, &parsed))
	assert.Equal(t, "2026-03-01T12:00:00Z", parsed.Reading.Timestamp)
	assert.Equal(t, 101.0, parsed.Reading.VOC)
}

func TestRealPublisherReconnectReplaysAfterEvent(t *testing.T) {
	p, c := newTestPublisher()
	p.handleConnect()
	p.handleConnectionLost(errors.New("network down"))
	assert.False(t, p.IsConnected())

	require.NoError(t, p.Publish(testReading))
	assert.Empty(t, c.sent)

	p.handleConnect()
	require.Len(t, c.sent, 2)
	assert.Equal(t, TopicSystem, c.sent[0].topic)
	assert.Contains(t, string(c.sent[0].payload), `"event":"RECONNECTED"`)
	assert.Equal(t, TopicReadings, c.sent[1].topic)
}

func TestRealPublisherFailedPublishIsQueued(t *testing.T) {
	p, c := newTestPublisher()
	p.handleConnect()
	c.err = errors.New("not authorised")

	err := p.Publish(testReading)
	assert.ErrorContains(t, err, "publish to environment/sensor/readings: not authorised")
	assert.Equal(t, 1, p.Queued())
}

func TestRealPublisherDrainsBacklogOnNextPublish(t *testing.T) {
	p, c := newTestPublisher()
	p.handleConnect()

	first := testReading
	first.ID = 1
	c.err = errors.New("not authorised")
	require.Error(t, p.Publish(first))
	require.Equal(t, 1, p.Queued())

	c.err = nil
	for id := 2; id <= 4; id++ {
		r := testReading
		r.ID = id
		require.NoError(t, p.Publish(r))
	}

	assert.Equal(t, 0, p.Queued())
	require.Len(t, c.sent, 4)
	for i, s := range c.sent {
		var parsed Payload
		require.NoError(t, json.Unmarshal(s.payload, &parsed))
		assert.Equal(t, i+1, parsed.Reading.ID, "message %d out of order", i)
	}
}

func TestRealPublisherTimeoutIsNotQueued(t *testing.T) {
	p, c := newTestPublisher()
	p.handleConnect()
	c.timeout = true

	err := p.Publish(testReading)
	assert.ErrorContains(t, err, "timeout")
	assert.Equal(t, 0, p.Queued())
}

func TestRealPublisherTimeoutKeepsLaterMessages(t *testing.T) {
	p, c := newTestPublisher()
	p.Publish(testReading)
	p.Publish(testReading)
	c.timeout = true

	p.handleConnect()
	// The first replayed message timed out; the second waits for the next send.
	assert.Equal(t, 1, p.Queued())
}

func TestRealPublisherReplayStopsOnError(t *testing.T) {
	p, c := newTestPublisher()
	p.Publish(testReading)
	p.Publish(testReading)
	c.err = errors.New("broken pipe")

	p.handleConnect()
	assert.Equal(t, 2, p.Queued())
}

func TestRealPublisherBacklogBounded(t *testing.T) {
	p, _ := newTestPublisher()
	for i := 0; i < DefaultBacklog+10; i++ {
		require.NoError(t, p.Publish(testReading))
	}
	assert.Equal(t, DefaultBacklog, p.Queued())
}

func TestRealPublisherClose(t *testing.T) {
	p, c := newTestPublisher()
	assert.NoError(t, p.Close())
	assert.True(t, c.disconnected)
}
