package web

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/enviro-sensor/internal/status"
)

const namespace = "enviro"

// snapshotter is the read side of status.Tracker.
type snapshotter interface {
	Snapshot() status.Snapshot
}

// Collector exports the tracker's state at scrape time.
type Collector struct {
	src snapshotter

	temperature *prometheus.Desc
	humidity    *prometheus.Desc
	pressure    *prometheus.Desc
	voc         *prometheus.Desc
	uv          *prometheus.Desc
	light       *prometheus.Desc
	readingTime *prometheus.Desc
	cycles      *prometheus.Desc
	publishes   *prometheus.Desc
	mqtt        *prometheus.Desc
	sensorUp    *prometheus.Desc
	uptime      *prometheus.Desc
}

// NewCollector creates a Collector reading from src.
func NewCollector(src snapshotter) *Collector {
	reading := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, []string{"device_id"}, nil)
	}
	return &Collector{
		src:         src,
		temperature: reading("temperature_celsius", "Air temperature of the last reading (units: degrees Celsius)"),
		humidity:    reading("humidity_percent", "Relative humidity of the last reading (units: %RH)"),
		pressure:    reading("pressure_hpa", "Atmospheric pressure of the last reading (units: hPa)"),
		voc:         reading("voc_index", "VOC index of the last reading (1-500, 100 is the average)"),
		uv:          reading("uv_index", "UV index of the last reading"),
		light:       reading("light_lux", "Ambient light of the last reading (units: lux)"),
		readingTime: reading("last_reading_timestamp_seconds", "Unix time the last reading was produced"),
		cycles: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "cycles_total"),
			"Completed sampling cycles.", nil, nil),
		publishes: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "publish_total"),
			"Reading publish attempts by result.", []string{"result"}, nil),
		mqtt: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "mqtt_connected"),
			"Whether the MQTT mirror is connected.", nil, nil),
		sensorUp: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "sensor_up"),
			"Whether the sensor acknowledged the startup bus scan.", []string{"sensor"}, nil),
		uptime: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "uptime_seconds"),
			"Seconds since the daemon started.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.temperature, c.humidity, c.pressure, c.voc, c.uv, c.light, c.readingTime,
		c.cycles, c.publishes, c.mqtt, c.sensorUp, c.uptime,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.src.Snapshot()

	if r := snap.LastReading; r != nil {
		id := strconv.Itoa(r.ID)
		for _, g := range []struct {
			desc *prometheus.Desc
			v    float64
		}{
			{c.temperature, r.Temperature},
			{c.humidity, r.Humidity},
			{c.pressure, r.Pressure},
			{c.voc, r.VOC},
			{c.uv, r.UV},
			{c.light, r.Light},
			{c.readingTime, float64(snap.LastReadingAt.Unix())},
		} {
			ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.v, id)
		}
	}

	ch <- prometheus.MustNewConstMetric(c.cycles, prometheus.CounterValue, float64(snap.Counts.Cycles))
	ch <- prometheus.MustNewConstMetric(c.publishes, prometheus.CounterValue, float64(snap.Counts.PublishOK), "ok")
	ch <- prometheus.MustNewConstMetric(c.publishes, prometheus.CounterValue, float64(snap.Counts.PublishFailed), "failed")
	ch <- prometheus.MustNewConstMetric(c.mqtt, prometheus.GaugeValue, boolFloat(snap.MQTTConnected))
	for name, up := range snap.Sensors {
		ch <- prometheus.MustNewConstMetric(c.sensorUp, prometheus.GaugeValue, boolFloat(up), name)
	}
	ch <- prometheus.MustNewConstMetric(c.uptime, prometheus.GaugeValue, snap.Uptime().Seconds())
}

// NewRegistry returns a registry with the tracker collector and Go build info.
func NewRegistry(src snapshotter) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(src))
	reg.MustRegister(collectors.NewBuildInfoCollector())
	return reg
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
