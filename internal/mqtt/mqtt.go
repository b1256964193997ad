// Package mqtt mirrors readings and daemon lifecycle events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

// TopicReadings receives one message per completed cycle.
const TopicReadings = "environment/sensor/readings"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "environment/sensor/system"

// Publisher publishes to MQTT.
type Publisher interface {
	// Publish sends a reading to the broker.
	// An error never stops the sampling cycle.
	Publish(r logic.Reading) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (startup, shutdown, reconnect).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "RECONNECTED"
	Reason     string // e.g. "SIGTERM", "SENSOR_ERROR" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the MQTT message body for a reading.
type Payload struct {
	Reading ReadingPayload `json:"reading"`
}

// ReadingPayload carries the reading with the time it was published.
type ReadingPayload struct {
	Timestamp   string  `json:"timestamp"`
	ID          int     `json:"id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	VOC         float64 `json:"voc"`
	UV          float64 `json:"uv"`
	Light       float64 `json:"light"`
}

// FormatPayload creates the JSON payload for a reading taken at ts.
func FormatPayload(r logic.Reading, ts time.Time) ([]byte, error) {
	return json.Marshal(Payload{
		Reading: ReadingPayload{
			Timestamp:   ts.UTC().Format(time.RFC3339),
			ID:          r.ID,
			Temperature: logic.Round(r.Temperature),
			Humidity:    logic.Round(r.Humidity),
			Pressure:    logic.Round(r.Pressure),
			VOC:         logic.Round(r.VOC),
			UV:          logic.Round(r.UV),
			Light:       logic.Round(r.Light),
		},
	})
}

// SystemPayload is the payload for events that carry no status snapshot
// (last will, RECONNECTED).
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
