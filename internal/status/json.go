package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event            string          `json:"event,omitempty"`
	Reason           string          `json:"reason,omitempty"`
	Phase            string          `json:"phase"`
	Ready            bool            `json:"ready"`
	Reading          *ReadingJSON    `json:"reading,omitempty"`
	LastPublishError string          `json:"last_publish_error,omitempty"`
	SensorError      string          `json:"sensor_error,omitempty"`
	Counts           CountsJSON      `json:"counts"`
	Sensors          map[string]bool `json:"sensors,omitempty"`
	UptimeSeconds    int64           `json:"uptime_seconds"`
	StartTime        string          `json:"start_time"`
	Timestamp        string          `json:"timestamp"`
	MQTT             MQTTStatus      `json:"mqtt"`
	Network          *NetworkJSON    `json:"network,omitempty"`
	Config           *ConfigJSON     `json:"config,omitempty"`
}

// ReadingJSON is the last reading with the time it was produced.
type ReadingJSON struct {
	Timestamp   string  `json:"timestamp"`
	ID          int     `json:"id"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	VOC         float64 `json:"voc"`
	UV          float64 `json:"uv"`
	Light       float64 `json:"light"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of cycle counters.
type CountsJSON struct {
	Cycles        int `json:"cycles"`
	PublishOK     int `json:"publish_ok"`
	PublishFailed int `json:"publish_failed"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DeviceID         int    `json:"device_id"`
	Samples          int    `json:"samples"`
	Trim             int    `json:"trim"`
	SampleIntervalMs int64  `json:"sample_interval_ms"`
	WarmUpMs         int64  `json:"warmup_ms"`
	DisplayTicks     int    `json:"display_ticks"`
	DisplayMs        int64  `json:"display_ms"`
	Endpoint         string `json:"endpoint"`
	PublishRetries   int    `json:"publish_retries"`
	Broker           string `json:"broker"`
	HTTPPort         string `json:"http_port"`
}

func buildInner(snap Snapshot) StatusInner {
	phase := string(snap.Phase)
	if phase == "" {
		phase = "UNKNOWN"
	}

	inner := StatusInner{
		Phase:            phase,
		Ready:            snap.Ready(),
		LastPublishError: snap.LastPublishError,
		SensorError:      snap.SensorError,
		Counts: CountsJSON{
			Cycles:        snap.Counts.Cycles,
			PublishOK:     snap.Counts.PublishOK,
			PublishFailed: snap.Counts.PublishFailed,
		},
		Sensors:       snap.Sensors,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
	}

	if r := snap.LastReading; r != nil {
		inner.Reading = &ReadingJSON{
			Timestamp:   snap.LastReadingAt.UTC().Format(time.RFC3339),
			ID:          r.ID,
			Temperature: r.Temperature,
			Humidity:    r.Humidity,
			Pressure:    r.Pressure,
			VOC:         r.VOC,
			UV:          r.UV,
			Light:       r.Light,
		}
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

func buildConfig(cfg Config) *ConfigJSON {
	return &ConfigJSON{
		DeviceID:         cfg.DeviceID,
		Samples:          cfg.Samples,
		Trim:             cfg.Trim,
		SampleIntervalMs: cfg.SampleIntervalMs,
		WarmUpMs:         cfg.WarmUpMs,
		DisplayTicks:     cfg.DisplayTicks,
		DisplayMs:        cfg.DisplayMs,
		Endpoint:         cfg.Endpoint,
		PublishRetries:   cfg.PublishRetries,
		Broker:           cfg.Broker,
		HTTPPort:         cfg.HTTPPort,
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	inner.Config = buildConfig(snap.Config)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
// Config is included only at STARTUP.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	if event == "STARTUP" {
		inner.Config = buildConfig(snap.Config)
	}

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
