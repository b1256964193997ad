package cycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sweeney/enviro-sensor/internal/display"
	"github.com/sweeney/enviro-sensor/internal/logic"
	"github.com/sweeney/enviro-sensor/internal/sensor"
)

// Policy is the fixed sampling cadence of the node.
type Policy struct {
	Samples         int
	Trim            int
	SampleInterval  time.Duration
	WarmUp          time.Duration
	WarmUpInterval  time.Duration
	DisplayTicks    int
	DisplayInterval time.Duration
	SentPause       time.Duration
	SetupPause      time.Duration
	DeviceID        int
	// Compensate forwards each tick's humidity and temperature to a VOC
	// source that implements sensor.Compensator.
	Compensate bool
}

func (p Policy) validate() error {
	if err := logic.ValidateTrim(p.Samples, p.Trim); err != nil {
		return err
	}
	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"sample-interval", p.SampleInterval},
		{"warmup-interval", p.WarmUpInterval},
		{"display-interval", p.DisplayInterval},
	} {
		if d.v <= 0 {
			return &logic.ConfigError{Field: d.field, Reason: "must be positive"}
		}
	}
	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"warmup", p.WarmUp},
		{"sent-pause", p.SentPause},
		{"setup-pause", p.SetupPause},
	} {
		if d.v < 0 {
			return &logic.ConfigError{Field: d.field, Reason: "must not be negative"}
		}
	}
	if p.DisplayTicks < 0 {
		return &logic.ConfigError{Field: "display-ticks", Reason: "must not be negative"}
	}
	return nil
}

// Sensors are the raw sources read on every Sampling tick.
type Sensors struct {
	Weather sensor.WeatherSource
	Light   sensor.Source
	UV      sensor.Source
	VOC     sensor.Source
}

// Display texts.
const (
	msgSetupDone     = "Setup done"
	msgHeating       = "Heating SGP40..."
	msgGathering     = "Data gathering"
	msgGathered      = "Data gathered"
	msgSent          = "Data sent to API"
	msgSendFailed    = "Send failed"
	msgSensorError   = "Sensor error"
	progressDotCycle = 3
)

// Runner drives the sampling state machine.
type Runner struct {
	policy   Policy
	sensors  Sensors
	pub      Publisher
	disp     display.Presenter
	clock    Clock
	log      *slog.Logger
	observer Observer

	filter *logic.VocFilterState
	// reduce aggregates one channel buffer; replaced in tests to count calls.
	reduce func([]float64, int) float64
}

// NewRunner checks the policy and constructs the VOC filter state.
// A *logic.ConfigError is returned when the buffer cannot survive trimming
// or a cadence would make a phase spin without waiting.
func NewRunner(p Policy, s Sensors, pub Publisher, disp display.Presenter, clock Clock, log *slog.Logger) (*Runner, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if s.Weather == nil || s.Light == nil || s.UV == nil || s.VOC == nil {
		return nil, errors.New("cycle: all sensors are required")
	}
	if pub == nil || disp == nil || clock == nil {
		return nil, errors.New("cycle: publisher, display and clock are required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		policy:   p,
		sensors:  s,
		pub:      pub,
		disp:     disp,
		clock:    clock,
		log:      log,
		observer: nopObserver{},
		filter:   logic.NewVocFilter(),
		reduce:   logic.TrimmedMean,
	}, nil
}

// Observe registers o for progress notifications. Call before Run.
func (r *Runner) Observe(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	r.observer = o
}

// Run shows the setup screen, warms up the VOC sensor once, then loops
// cycles until one returns Terminate.
func (r *Runner) Run(ctx context.Context) Result {
	r.enter(PhaseSetup)
	r.disp.Show(msgSetupDone)
	if err := r.clock.Sleep(ctx, r.policy.SetupPause); err != nil {
		return r.interrupted(nil)
	}

	if err := r.WarmUp(ctx); err != nil {
		if errors.Is(err, ErrInterrupted) {
			return r.interrupted(nil)
		}
		return r.sensorFailure(err)
	}

	for {
		res := r.RunCycle(ctx)
		if res.Signal == Terminate {
			return res
		}
	}
}

// WarmUp feeds the VOC filter at WarmUpInterval for the WarmUp duration,
// discarding every index. It returns ErrInterrupted or a
// *logic.TransportError.
func (r *Runner) WarmUp(ctx context.Context) error {
	r.enter(PhaseWarmUp)
	start := r.clock.Now()
	reads := 0

	for {
		if ctx.Err() != nil {
			return ErrInterrupted
		}
		elapsed := r.clock.Now().Sub(start)
		if elapsed >= r.policy.WarmUp {
			break
		}
		left := int(math.Ceil((r.policy.WarmUp - elapsed).Seconds()))
		r.disp.Show(msgHeating, fmt.Sprintf("%ds left", left))

		raw, err := r.sensors.VOC.Read()
		if err != nil {
			return &logic.TransportError{Op: "read " + string(logic.ChannelVOC), Err: err}
		}
		r.filter.Process(logic.Round(raw))
		reads++

		if err := r.clock.Sleep(ctx, r.policy.WarmUpInterval); err != nil {
			return ErrInterrupted
		}
	}

	r.log.Info("warm-up complete", "reads", reads, "duration", r.policy.WarmUp)
	return nil
}

// RunCycle performs one Sampling, Aggregation and PublishAndDisplay pass.
// A publish failure never terminates the cycle.
func (r *Runner) RunCycle(ctx context.Context) Result {
	r.enter(PhaseSampling)
	buf := logic.NewBuffers(r.policy.Samples)

	for i := 0; i < r.policy.Samples; i++ {
		if ctx.Err() != nil {
			return r.interrupted(nil)
		}
		s, err := r.sample()
		if err != nil {
			return r.sensorFailure(err)
		}
		buf.Append(s)
		r.filter.Process(s.VOCRaw)

		r.disp.Show(msgGathering + strings.Repeat(".", i%progressDotCycle))
		if err := r.clock.Sleep(ctx, r.policy.SampleInterval); err != nil {
			return r.interrupted(nil)
		}
	}

	r.enter(PhaseAggregation)
	agg := logic.Aggregate(buf, r.policy.Trim, r.reduce)
	reading := logic.NewReading(r.policy.DeviceID, agg, r.filter.Process(agg.VOCRaw))
	r.log.Debug("aggregated",
		"samples", buf.Len(),
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"pressure", reading.Pressure,
		"voc", reading.VOC,
		"uv", reading.UV,
		"light", reading.Light,
	)
	r.disp.Show(msgGathered)

	r.enter(PhasePublish)
	r.publish(ctx, reading)
	if err := r.clock.Sleep(ctx, r.policy.SentPause); err != nil {
		return r.interrupted(&reading)
	}

	for tick := 0; tick < r.policy.DisplayTicks; tick++ {
		r.disp.Show(reading.Lines(logic.LayoutForTick(tick))...)
		if err := r.clock.Sleep(ctx, r.policy.DisplayInterval); err != nil {
			return r.interrupted(&reading)
		}
	}

	return Result{Signal: Continue, Reading: &reading}
}

func (r *Runner) publish(ctx context.Context, reading logic.Reading) {
	err := r.pub.Publish(ctx, reading)
	r.observer.CycleCompleted(reading, err)
	if err != nil {
		r.log.Warn("publish error", "error", err)
		r.disp.Show(msgSendFailed)
		return
	}
	r.log.Info("published reading",
		"id", reading.ID,
		"temperature", reading.Temperature,
		"humidity", reading.Humidity,
		"pressure", reading.Pressure,
		"voc", reading.VOC,
		"uv", reading.UV,
		"light", reading.Light,
	)
	r.disp.Show(msgSent)
}

// sample reads every source once in the fixed order weather, light, UV, VOC.
func (r *Runner) sample() (logic.Sample, error) {
	w, err := r.sensors.Weather.ReadWeather()
	if err != nil {
		return logic.Sample{}, &logic.TransportError{Op: "read weather", Err: err}
	}
	light, err := r.sensors.Light.Read()
	if err != nil {
		return logic.Sample{}, &logic.TransportError{Op: "read " + string(logic.ChannelLight), Err: err}
	}
	uv, err := r.sensors.UV.Read()
	if err != nil {
		return logic.Sample{}, &logic.TransportError{Op: "read " + string(logic.ChannelUV), Err: err}
	}
	if r.policy.Compensate {
		if c, ok := r.sensors.VOC.(sensor.Compensator); ok {
			c.SetCompensation(w.Humidity, w.Temperature)
		}
	}
	voc, err := r.sensors.VOC.Read()
	if err != nil {
		return logic.Sample{}, &logic.TransportError{Op: "read " + string(logic.ChannelVOC), Err: err}
	}

	return logic.Sample{
		Pressure:    logic.Round(w.Pressure),
		Temperature: logic.Round(w.Temperature),
		Humidity:    logic.Round(w.Humidity),
		Light:       logic.Round(light),
		UV:          logic.Round(uv),
		VOCRaw:      logic.Round(voc),
	}, nil
}

func (r *Runner) enter(p Phase) {
	r.log.Debug("phase", "phase", string(p))
	r.observer.PhaseChanged(p)
}

func (r *Runner) interrupted(reading *logic.Reading) Result {
	r.log.Info("cycle interrupted")
	r.enter(PhaseStopped)
	return Result{Signal: Terminate, Reason: ErrInterrupted, Reading: reading}
}

func (r *Runner) sensorFailure(err error) Result {
	r.log.Error("sensor error", "error", err)
	r.disp.Show(msgSensorError)
	r.observer.SensorFailed(err)
	r.enter(PhaseStopped)
	return Result{Signal: Terminate, Reason: err}
}
