package internal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/enviro-sensor/internal/cycle"
	"github.com/sweeney/enviro-sensor/internal/display"
	"github.com/sweeney/enviro-sensor/internal/logging"
	"github.com/sweeney/enviro-sensor/internal/logic"
	"github.com/sweeney/enviro-sensor/internal/mqtt"
	"github.com/sweeney/enviro-sensor/internal/publish"
	"github.com/sweeney/enviro-sensor/internal/sensor"
	"github.com/sweeney/enviro-sensor/internal/status"
	"github.com/sweeney/enviro-sensor/internal/web"
)

// apiRecorder is a stand-in collection API that records POSTed bodies.
type apiRecorder struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]float64
	status int
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var m map[string]float64
	json.Unmarshal(body, &m)

	a.mu.Lock()
	a.paths = append(a.paths, r.URL.Path)
	a.bodies = append(a.bodies, m)
	code := a.status
	a.mu.Unlock()

	if code == 0 {
		code = http.StatusCreated
	}
	w.WriteHeader(code)
}

func integrationPolicy() cycle.Policy {
	return cycle.Policy{
		Samples:         5,
		Trim:            1,
		SampleInterval:  4 * time.Second,
		WarmUp:          3 * time.Second,
		WarmUpInterval:  time.Second,
		DisplayTicks:    2,
		DisplayInterval: 5 * time.Second,
		SentPause:       5 * time.Second,
		SetupPause:      time.Second,
		DeviceID:        9,
	}
}

type node struct {
	api     *apiRecorder
	mirror  *mqtt.FakePublisher
	tracker *status.Tracker
	disp    *display.FakePresenter
	clock   *cycle.FakeClock
	runner  *cycle.Runner
	sensors cycle.Sensors
}

func newNode(t *testing.T) *node {
	t.Helper()
	n := &node{
		api:     &apiRecorder{},
		mirror:  mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), status.Config{DeviceID: 9}),
		disp:    display.NewFakePresenter(),
		clock:   cycle.NewFakeClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
	}
	ts := httptest.NewServer(n.api)
	t.Cleanup(ts.Close)

	log := logging.Discard()
	primary, err := publish.NewHTTPPublisher(ts.URL, time.Second, 0, log)
	if err != nil {
		t.Fatalf("NewHTTPPublisher: %v", err)
	}

	n.sensors = cycle.Sensors{
		Weather: sensor.NewFakeWeather(sensor.Weather{Pressure: 1013.25, Temperature: 21.5, Humidity: 45.5}),
		Light:   sensor.NewFakeSource(300),
		UV:      sensor.NewFakeSource(1.25),
		VOC:     sensor.NewFakeSource(30000),
	}
	n.runner, err = cycle.NewRunner(integrationPolicy(), n.sensors, publish.NewTee(primary, log, n.mirror), n.disp, n.clock, log)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	n.runner.Observe(n.tracker)
	return n
}

// runCycles runs the node until the first Sampling sleep of cycle n+1.
func (n *node) runCycles(t *testing.T, cycles int) cycle.Result {
	t.Helper()
	p := integrationPolicy()
	perCycle := p.Samples + 1 + p.DisplayTicks
	warm := int(p.WarmUp / p.WarmUpInterval)
	stopAt := 1 + warm + cycles*perCycle + 1

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	n.clock.OnSleep = func(k int) {
		if k == stopAt {
			cancel()
		}
	}
	return n.runner.Run(ctx)
}

func TestIntegrationFullFlow(t *testing.T) {
	n := newNode(t)
	res := n.runCycles(t, 2)

	if res.Signal != cycle.Terminate || res.Reason != cycle.ErrInterrupted {
		t.Fatalf("result: got %v %v, want Terminate interrupted", res.Signal, res.Reason)
	}

	if len(n.api.bodies) != 2 {
		t.Fatalf("expected 2 API posts, got %d", len(n.api.bodies))
	}
	for i, path := range n.api.paths {
		if path != publish.ReadingPath {
			t.Errorf("post %d path: got %q, want %q", i, path, publish.ReadingPath)
		}
	}
	want := map[string]float64{
		"id":          9,
		"temperature": 21.5,
		"humidity":    45.5,
		"pressure":    1013.25,
		"voc":         0, // still inside the filter blackout
		"uv":          1.25,
		"light":       300,
	}
	got := n.api.bodies[0]
	if len(got) != len(want) {
		t.Errorf("payload keys: got %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("payload %s: got %v, want %v", k, got[k], v)
		}
	}

	if len(n.mirror.Readings) != 2 {
		t.Errorf("expected 2 mirrored readings, got %d", len(n.mirror.Readings))
	}
}

func TestIntegrationStatusTracksCycles(t *testing.T) {
	n := newNode(t)
	n.runCycles(t, 2)

	snap := n.tracker.Snapshot()
	if snap.Phase != cycle.PhaseStopped {
		t.Errorf("Phase: got %q, want STOPPED", snap.Phase)
	}
	if snap.Counts.Cycles != 2 || snap.Counts.PublishOK != 2 || snap.Counts.PublishFailed != 0 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
	if snap.LastReading == nil || snap.LastReading.Temperature != 21.5 {
		t.Errorf("LastReading: got %+v", snap.LastReading)
	}
}

func TestIntegrationPublishFailureKeepsCycling(t *testing.T) {
	n := newNode(t)
	n.api.status = http.StatusServiceUnavailable
	res := n.runCycles(t, 2)

	if res.Reason != cycle.ErrInterrupted {
		t.Fatalf("expected interruption, got %v", res.Reason)
	}
	snap := n.tracker.Snapshot()
	if snap.Counts.PublishFailed != 2 {
		t.Errorf("PublishFailed: got %d, want 2", snap.Counts.PublishFailed)
	}
	if snap.LastPublishError == "" {
		t.Error("expected LastPublishError to be recorded")
	}
	// The mirror still sees each reading.
	if len(n.mirror.Readings) != 2 {
		t.Errorf("mirror readings: got %d, want 2", len(n.mirror.Readings))
	}
}

func TestIntegrationSensorErrorStops(t *testing.T) {
	n := newNode(t)
	// Fail on the third Sampling tick of the first cycle.
	n.sensors.Light.(*sensor.FakeSource).FailOnRead = 3
	n.sensors.Light.(*sensor.FakeSource).FailError = io.ErrUnexpectedEOF

	res := n.runner.Run(context.Background())

	if res.Signal != cycle.Terminate {
		t.Fatalf("Signal: got %v, want Terminate", res.Signal)
	}
	var te *logic.TransportError
	if !errors.As(res.Reason, &te) || te.Op != "read light" {
		t.Fatalf("Reason: got %v, want read light transport error", res.Reason)
	}
	if len(n.api.bodies) != 0 {
		t.Errorf("expected no posts, got %d", len(n.api.bodies))
	}
	if got := n.disp.Last(); len(got) == 0 || got[0] != "Sensor error" {
		t.Errorf("last frame: got %v, want Sensor error", got)
	}
	if n.tracker.Snapshot().SensorError == "" {
		t.Error("expected tracker to record the sensor error")
	}
}

func TestIntegrationStatusServer(t *testing.T) {
	n := newNode(t)
	n.runCycles(t, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := web.New("", n.tracker)
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })

	resp, err := http.Get("http://" + ln.Addr().String() + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready after one cycle")
	}
	if sj.Status.Reading == nil || sj.Status.Reading.ID != 9 || sj.Status.Reading.Light != 300 {
		t.Errorf("Reading: got %+v", sj.Status.Reading)
	}
}
