// Package logic contains the pure sampling and aggregation logic of the node.
// This package has NO external dependencies (no I2C, SPI, HTTP, MQTT, OS, or time.Sleep).
// Everything here is a function of its inputs or of explicitly threaded state.
package logic

import (
	"fmt"
	"strconv"
)

// Channel names one physical quantity that is buffered and aggregated.
type Channel string

const (
	ChannelPressure    Channel = "pressure"
	ChannelTemperature Channel = "temperature"
	ChannelHumidity    Channel = "humidity"
	ChannelLight       Channel = "light"
	ChannelUV          Channel = "uv"
	ChannelVOC         Channel = "voc"
)

// Sample is one tick's worth of raw scalars, already rounded to 2 decimals.
type Sample struct {
	Pressure    float64
	Temperature float64
	Humidity    float64
	Light       float64
	UV          float64
	VOCRaw      float64
}

// Buffers holds the per-channel raw samples of a single cycle.
// Buffers are append-only and are discarded after one aggregation.
type Buffers struct {
	Pressure    []float64
	Temperature []float64
	Humidity    []float64
	Light       []float64
	UV          []float64
	VOCRaw      []float64
}

// NewBuffers allocates buffers with capacity for n samples per channel.
func NewBuffers(n int) *Buffers {
	return &Buffers{
		Pressure:    make([]float64, 0, n),
		Temperature: make([]float64, 0, n),
		Humidity:    make([]float64, 0, n),
		Light:       make([]float64, 0, n),
		UV:          make([]float64, 0, n),
		VOCRaw:      make([]float64, 0, n),
	}
}

// Append adds one sample to every channel.
func (b *Buffers) Append(s Sample) {
	b.Pressure = append(b.Pressure, s.Pressure)
	b.Temperature = append(b.Temperature, s.Temperature)
	b.Humidity = append(b.Humidity, s.Humidity)
	b.Light = append(b.Light, s.Light)
	b.UV = append(b.UV, s.UV)
	b.VOCRaw = append(b.VOCRaw, s.VOCRaw)
}

// Values returns the buffer of channel c, or nil for an unknown channel.
func (b *Buffers) Values(c Channel) []float64 {
	switch c {
	case ChannelPressure:
		return b.Pressure
	case ChannelTemperature:
		return b.Temperature
	case ChannelHumidity:
		return b.Humidity
	case ChannelLight:
		return b.Light
	case ChannelUV:
		return b.UV
	case ChannelVOC:
		return b.VOCRaw
	}
	return nil
}

// Len returns the number of samples appended so far.
func (b *Buffers) Len() int {
	return len(b.Pressure)
}

// Reading is the immutable result of one cycle.
type Reading struct {
	ID          int
	Temperature float64
	Humidity    float64
	Pressure    float64
	VOC         float64
	UV          float64
	Light       float64
}

// Layout selects which half of a Reading is rendered on the display.
type Layout int

const (
	// LayoutVOC shows VOC, UV and light (even display ticks).
	LayoutVOC Layout = iota
	// LayoutClimate shows temperature, humidity and pressure (odd display ticks).
	LayoutClimate
)

// LayoutForTick returns the display layout used on the given display tick.
func LayoutForTick(tick int) Layout {
	if tick%2 == 1 {
		return LayoutClimate
	}
	return LayoutVOC
}

// Lines renders the reading as three short display lines.
func (r Reading) Lines(layout Layout) []string {
	if layout == LayoutClimate {
		return []string{
			fmt.Sprintf("Temp: %s", formatScalar(r.Temperature)),
			fmt.Sprintf("Hum: %s", formatScalar(r.Humidity)),
			fmt.Sprintf("Pres: %s", formatScalar(r.Pressure)),
		}
	}
	return []string{
		fmt.Sprintf("VOC: %s", formatScalar(r.VOC)),
		fmt.Sprintf("UV: %s", formatScalar(r.UV)),
		fmt.Sprintf("Light: %s", formatScalar(r.Light)),
	}
}

// formatScalar prints at most 2 decimals without trailing zeros.
func formatScalar(v float64) string {
	return strconv.FormatFloat(Round(v), 'f', -1, 64)
}
