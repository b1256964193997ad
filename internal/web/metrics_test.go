package web

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/enviro-sensor/internal/logic"
	"github.com/sweeney/enviro-sensor/internal/status"
)

type staticSnapshot status.Snapshot

func (s staticSnapshot) Snapshot() status.Snapshot { return status.Snapshot(s) }

func TestCollectorReadingGauges(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := staticSnapshot{
		LastReading:   &logic.Reading{ID: 7, Temperature: 19.25, Humidity: 55.5, Pressure: 998.1, VOC: 87, UV: 1.2, Light: 40},
		LastReadingAt: at,
		StartTime:     at.Add(-time.Minute),
		Now:           at,
	}

	expected := `
# HELP enviro_temperature_celsius Air temperature of the last reading (units: degrees Celsius)
# TYPE enviro_temperature_celsius gauge
enviro_temperature_celsius{device_id="7"} 19.25
# HELP enviro_voc_index VOC index of the last reading (1-500, 100 is the average)
# TYPE enviro_voc_index gauge
enviro_voc_index{device_id="7"} 87
`
	err := testutil.CollectAndCompare(NewCollector(snap), strings.NewReader(expected),
		"enviro_temperature_celsius", "enviro_voc_index")
	require.NoError(t, err)
}

func TestCollectorCounters(t *testing.T) {
	snap := staticSnapshot{
		Counts: status.Counts{Cycles: 5, PublishOK: 4, PublishFailed: 1},
	}

	expected := `
# HELP enviro_cycles_total Completed sampling cycles.
# TYPE enviro_cycles_total counter
enviro_cycles_total 5
# HELP enviro_publish_total Reading publish attempts by result.
# TYPE enviro_publish_total counter
enviro_publish_total{result="failed"} 1
enviro_publish_total{result="ok"} 4
`
	err := testutil.CollectAndCompare(NewCollector(snap), strings.NewReader(expected),
		"enviro_cycles_total", "enviro_publish_total")
	require.NoError(t, err)
}

func TestCollectorNoReadingOmitsGauges(t *testing.T) {
	c := NewCollector(staticSnapshot{})
	// cycles, publish ok/failed, mqtt, uptime
	assert.Equal(t, 5, testutil.CollectAndCount(c))
	assert.Equal(t, 0, testutil.CollectAndCount(c, "enviro_temperature_celsius"))
}

func TestCollectorSensorUp(t *testing.T) {
	snap := staticSnapshot{
		Sensors:       map[string]bool{"bme280": true, "ltr390": false},
		MQTTConnected: true,
	}
	c := NewCollector(snap)

	assert.Equal(t, 2, testutil.CollectAndCount(c, "enviro_sensor_up"))
	expected := `
# HELP enviro_mqtt_connected Whether the MQTT mirror is connected.
# TYPE enviro_mqtt_connected gauge
enviro_mqtt_connected 1
# HELP enviro_sensor_up Whether the sensor acknowledged the startup bus scan.
# TYPE enviro_sensor_up gauge
enviro_sensor_up{sensor="bme280"} 1
enviro_sensor_up{sensor="ltr390"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"enviro_mqtt_connected", "enviro_sensor_up"))
}

func TestNewRegistryGathers(t *testing.T) {
	reg := NewRegistry(staticSnapshot{})
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["enviro_cycles_total"])
	assert.True(t, names["go_build_info"])
}
