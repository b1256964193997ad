// Package status provides a thread-safe status tracker for the enviro-sensor daemon.
// The sampling cycle writes to it; HTTP handlers and MQTT lifecycle events read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/enviro-sensor/internal/cycle"
	"github.com/sweeney/enviro-sensor/internal/logic"
)

// NetworkInfo contains network state reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceID         int
	Samples          int
	Trim             int
	SampleIntervalMs int64
	WarmUpMs         int64
	DisplayTicks     int
	DisplayMs        int64
	Endpoint         string
	PublishRetries   int
	Broker           string
	HTTPPort         string
}

// Counts are cumulative since startup.
type Counts struct {
	Cycles        int
	PublishOK     int
	PublishFailed int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type: safe to use after the lock is released.
type Snapshot struct {
	Phase            cycle.Phase
	LastReading      *logic.Reading
	LastReadingAt    time.Time
	LastPublishError string
	SensorError      string
	Counts           Counts
	Sensors          map[string]bool
	StartTime        time.Time
	Now              time.Time
	MQTTConnected    bool
	Network          *NetworkInfo
	Config           Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Ready reports whether at least one reading has been produced.
func (s Snapshot) Ready() bool {
	return s.LastReading != nil
}

// Tracker holds mutable daemon state behind an RWMutex.
// It implements cycle.Observer.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

var _ cycle.Observer = (*Tracker)(nil)

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// PhaseChanged records the phase the cycle has entered.
func (t *Tracker) PhaseChanged(p cycle.Phase) {
	t.mu.Lock()
	t.snap.Phase = p
	t.mu.Unlock()
}

// CycleCompleted records a finished reading and the outcome of its publish.
func (t *Tracker) CycleCompleted(r logic.Reading, publishErr error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastReading = &r
	t.snap.LastReadingAt = t.now()
	t.snap.Counts.Cycles++
	if publishErr != nil {
		t.snap.Counts.PublishFailed++
		t.snap.LastPublishError = publishErr.Error()
		return
	}
	t.snap.Counts.PublishOK++
	t.snap.LastPublishError = ""
}

// SensorFailed records the transport error that stopped the cycle.
func (t *Tracker) SensorFailed(err error) {
	t.mu.Lock()
	t.snap.SensorError = err.Error()
	t.mu.Unlock()
}

// SetSensors records the result of the startup bus scan.
func (t *Tracker) SetSensors(found map[string]bool) {
	cp := make(map[string]bool, len(found))
	for k, v := range found {
		cp[k] = v
	}
	t.mu.Lock()
	t.snap.Sensors = cp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastReading != nil {
		r := *s.LastReading
		s.LastReading = &r
	}
	if s.Sensors != nil {
		cp := make(map[string]bool, len(s.Sensors))
		for k, v := range s.Sensors {
			cp[k] = v
		}
		s.Sensors = cp
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
