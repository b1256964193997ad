package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/enviro-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"ms": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Enviro Sensor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; }
.err { color: red; }
.unknown { color: orange; }
</style>
</head>
<body>
<h1>Enviro Sensor #{{.Config.DeviceID}}</h1>

<h2>Last Reading</h2>
{{with .LastReading}}<table>
<tr><th>Temperature</th><td id="temperature">{{.Temperature}} &deg;C</td></tr>
<tr><th>Humidity</th><td id="humidity">{{.Humidity}} %</td></tr>
<tr><th>Pressure</th><td id="pressure">{{.Pressure}} hPa</td></tr>
<tr><th>VOC index</th><td id="voc">{{.VOC}}</td></tr>
<tr><th>UV index</th><td id="uv">{{.UV}}</td></tr>
<tr><th>Light</th><td id="light">{{.Light}} lx</td></tr>
<tr><th>Taken</th><td>{{$.LastReadingAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
</table>{{else}}<p class="unknown">No reading yet</p>{{end}}

<h2>Cycle</h2>
<table>
<tr><th>Phase</th><td id="phase">{{if .Phase}}{{.Phase}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Published</th><td>{{.Counts.PublishOK}}</td></tr>
<tr><th>Publish failures</th><td>{{.Counts.PublishFailed}}</td></tr>
{{if .LastPublishError}}<tr><th>Last publish error</th><td class="err">{{.LastPublishError}}</td></tr>{{end}}
{{if .SensorError}}<tr><th>Sensor error</th><td class="err">{{.SensorError}}</td></tr>{{end}}
</table>

{{if .SensorNames}}<h2>Sensors</h2>
<table>
{{range .SensorNames}}<tr><th>{{.}}</th><td class="{{if index $.Sensors .}}ok{{else}}err{{end}}">{{if index $.Sensors .}}found{{else}}missing{{end}}</td></tr>
{{end}}</table>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>API</th><td>{{.Config.Endpoint}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}ok{{else}}err{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Samples</th><td>{{.Config.Samples}} (trim {{.Config.Trim}})</td></tr>
<tr><th>Sample interval</th><td>{{ms .Config.SampleIntervalMs}}</td></tr>
<tr><th>Warm-up</th><td>{{ms .Config.WarmUpMs}}</td></tr>
<tr><th>Display</th><td>{{.Config.DisplayTicks}} x {{ms .Config.DisplayMs}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	names := make([]string, 0, len(snap.Sensors))
	for name := range snap.Sensors {
		names = append(names, name)
	}
	sort.Strings(names)

	data := struct {
		status.Snapshot
		Uptime      time.Duration
		SensorNames []string
	}{
		Snapshot:    snap,
		Uptime:      snap.Uptime(),
		SensorNames: names,
	}
	indexTmpl.Execute(w, data)
}
