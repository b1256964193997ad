// Command enviro-sensor samples the environment sensor HAT, publishes one
// trimmed-mean reading per cycle to the collection API and shows it on the OLED.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sweeney/enviro-sensor/internal/config"
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

const (
	mqttClientID  = "enviro-sensor"
	statusRefresh = 30 * time.Second
)

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:], os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(2)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	log := logging.New(os.Stderr, level, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	devs, found, err := sensor.Open(cfg.Bus)
	logScan(log, found)
	if err != nil {
		return fmt.Errorf("open sensors: %w", err)
	}
	defer devs.Close()

	sensors := cycle.Sensors{Weather: devs.Weather, Light: devs.Light, UV: devs.UV, VOC: devs.VOC}

	if cfg.PrintReading {
		return printReading(os.Stdout, sensors)
	}

	presenter, closeDisplay := openPresenter(cfg, log)
	defer closeDisplay()

	api, err := publish.NewHTTPPublisher(cfg.Endpoint, cfg.PublishTimeout, cfg.PublishRetries, log)
	if err != nil {
		return fmt.Errorf("init publisher: %w", err)
	}

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	tracker.SetSensors(found)
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	var mirrors []publish.Mirror
	var broker *mqtt.RealPublisher
	if cfg.Broker != "" {
		broker = mqtt.NewRealPublisher(cfg.Broker, mqttClientID, log)
		defer broker.Close()
		mirrors = append(mirrors, broker)
		publishSystem(log, broker, tracker, "STARTUP", "")
	}

	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("http server error", "error", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("http status server listening", "addr", cfg.HTTPAddr)
	}

	runner, err := cycle.NewRunner(policyFromConfig(cfg), sensors, publish.NewTee(api, log, mirrors...),
		presenter, cycle.RealClock(), log)
	if err != nil {
		return err
	}
	runner.Observe(tracker)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	ctx, received := watchSignals(context.Background(), sigCh)

	var conn mqtt.ConnectionStatus
	if broker != nil {
		conn = broker
	}
	go refreshStatus(ctx, tracker, conn, statusRefresh)

	log.Info("started",
		"id", cfg.DeviceID,
		"endpoint", api.URL(),
		"samples", cfg.Samples,
		"trim", cfg.Trim,
		"sample_interval", cfg.SampleInterval,
		"broker", cfg.Broker)

	res := runner.Run(ctx)
	reason := shutdownReason(res, received())
	log.Info("stopped", "reason", reason)

	if broker != nil {
		tracker.SetMQTTConnected(broker.IsConnected())
		publishSystem(log, broker, tracker, "SHUTDOWN", reason)
	}

	if errors.Is(res.Reason, cycle.ErrInterrupted) {
		return nil
	}
	return res.Reason
}

// watchSignals returns a context cancelled by the first signal on sig, and a
// func reporting which signal that was (nil if none arrived).
func watchSignals(parent context.Context, sig <-chan os.Signal) (context.Context, func() os.Signal) {
	ctx, cancel := context.WithCancel(parent)
	var (
		mu  sync.Mutex
		got os.Signal
	)
	go func() {
		select {
		case s := <-sig:
			mu.Lock()
			got = s
			mu.Unlock()
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() os.Signal {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
}

// shutdownReason names why the runner stopped for the SHUTDOWN event.
func shutdownReason(res cycle.Result, sig os.Signal) string {
	var te *logic.TransportError
	if errors.As(res.Reason, &te) {
		return "SENSOR_ERROR"
	}
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func publishSystem(log *slog.Logger, pub mqtt.Publisher, tracker *status.Tracker, event, reason string) {
	snap := tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := pub.PublishSystem(ev); err != nil {
		log.Warn("failed to publish system event", "event", event, "error", err)
		return
	}
	log.Info("published system event", "event", event)
}

// refreshStatus keeps the tracker's connectivity fields current until ctx is done.
func refreshStatus(ctx context.Context, tracker *status.Tracker, conn mqtt.ConnectionStatus, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if conn != nil {
			tracker.SetMQTTConnected(conn.IsConnected())
		}
		if net := readNetworkInfo(); net != nil {
			tracker.SetNetwork(net)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func openPresenter(cfg config.Config, log *slog.Logger) (display.Presenter, func()) {
	fallback := display.NewLogPresenter(log)
	if !cfg.OLED {
		return fallback, func() {}
	}
	oled, err := display.OpenOLED(display.OLEDConfig{
		SPIPort: cfg.SPIPort,
		PinDC:   cfg.PinDC,
		PinRST:  cfg.PinRST,
	}, log)
	if err != nil {
		log.Warn("oled unavailable, logging display frames", "error", err)
		return fallback, func() {}
	}
	return oled, func() {
		if err := oled.Close(); err != nil {
			log.Warn("close oled", "error", err)
		}
	}
}

func logScan(log *slog.Logger, found map[string]bool) {
	for name, ok := range found {
		if ok {
			log.Info("sensor found", "sensor", name)
		} else {
			log.Warn("sensor missing", "sensor", name)
		}
	}
}

// printReading takes one raw measurement from every sensor.
func printReading(w io.Writer, s cycle.Sensors) error {
	weather, err := s.Weather.ReadWeather()
	if err != nil {
		return fmt.Errorf("read weather: %w", err)
	}
	light, err := s.Light.Read()
	if err != nil {
		return fmt.Errorf("read light: %w", err)
	}
	uv, err := s.UV.Read()
	if err != nil {
		return fmt.Errorf("read uv: %w", err)
	}
	voc, err := s.VOC.Read()
	if err != nil {
		return fmt.Errorf("read voc: %w", err)
	}
	fmt.Fprintf(w, "Temp: %.2f C, Hum: %.2f %%, Pres: %.2f hPa, Light: %.2f lx, UV: %.2f, VOC raw: %.0f\n",
		weather.Temperature, weather.Humidity, weather.Pressure, light, uv, voc)
	return nil
}

func policyFromConfig(cfg config.Config) cycle.Policy {
	return cycle.Policy{
		Samples:         cfg.Samples,
		Trim:            cfg.Trim,
		SampleInterval:  cfg.SampleInterval,
		WarmUp:          cfg.WarmUp,
		WarmUpInterval:  cfg.WarmUpInterval,
		DisplayTicks:    cfg.DisplayTicks,
		DisplayInterval: cfg.DisplayInterval,
		SentPause:       cfg.SentPause,
		SetupPause:      cfg.SetupPause,
		DeviceID:        cfg.DeviceID,
		Compensate:      cfg.VOCCompensation,
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		DeviceID:         cfg.DeviceID,
		Samples:          cfg.Samples,
		Trim:             cfg.Trim,
		SampleIntervalMs: cfg.SampleInterval.Milliseconds(),
		WarmUpMs:         cfg.WarmUp.Milliseconds(),
		DisplayTicks:     cfg.DisplayTicks,
		DisplayMs:        cfg.DisplayInterval.Milliseconds(),
		Endpoint:         cfg.Endpoint,
		PublishRetries:   cfg.PublishRetries,
		Broker:           cfg.Broker,
		HTTPPort:         cfg.HTTPAddr,
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
