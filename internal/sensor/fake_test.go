package sensor

import (
	"errors"
	"testing"
)

func TestFakeSourceRead(t *testing.T) {
	f := NewFakeSource(1.5, 2.5, 3.5)

	for i, want := range []float64{1.5, 2.5, 3.5, 3.5} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: unexpected error: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %v, want %v", i, got, want)
		}
	}
	if f.Reads != 4 {
		t.Errorf("expected 4 reads, got %d", f.Reads)
	}
}

func TestFakeSourceNoValues(t *testing.T) {
	f := NewFakeSource()
	if _, err := f.Read(); err == nil {
		t.Error("expected error with no values")
	}
}

func TestFakeSourceError(t *testing.T) {
	f := NewFakeSource(1)
	f.ReadError = errors.New("simulated error")
	_, err := f.Read()
	if err == nil || err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeSourceFailOnRead(t *testing.T) {
	f := NewFakeSource(7)
	f.FailOnRead = 3
	f.FailError = errors.New("bus stuck")

	for i := 1; i <= 4; i++ {
		_, err := f.Read()
		if i == 3 && err == nil {
			t.Errorf("read %d: expected failure", i)
		}
		if i != 3 && err != nil {
			t.Errorf("read %d: unexpected error: %v", i, err)
		}
	}
}

func TestFakeSourceReset(t *testing.T) {
	f := NewFakeSource(1, 2)
	f.Read()
	f.Reset()
	if got, _ := f.Read(); got != 1 {
		t.Errorf("after reset: expected 1, got %v", got)
	}
	if f.Reads != 1 {
		t.Errorf("after reset: expected 1 read, got %d", f.Reads)
	}
}

func TestFakeWeatherRead(t *testing.T) {
	f := NewFakeWeather(
		Weather{Pressure: 1013.1, Temperature: 21.0, Humidity: 40.0},
		Weather{Pressure: 1013.2, Temperature: 21.1, Humidity: 40.5},
	)

	w, err := f.ReadWeather()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Pressure != 1013.1 {
		t.Errorf("first sample: got pressure %v", w.Pressure)
	}
	f.ReadWeather()
	w, _ = f.ReadWeather()
	if w.Humidity != 40.5 {
		t.Errorf("repeat sample: got humidity %v, want 40.5", w.Humidity)
	}
}

func TestFakeWeatherError(t *testing.T) {
	f := NewFakeWeather(Weather{})
	f.ReadError = errors.New("simulated error")
	if _, err := f.ReadWeather(); err == nil {
		t.Error("expected error to be returned")
	}
}
