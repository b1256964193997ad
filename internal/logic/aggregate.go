package logic

import (
	"math"
	"sort"
)

// Round rounds v half away from zero to 2 decimal places.
func Round(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidateTrim checks that a buffer of n samples survives trimming trim
// values from each end. It must hold before any cycle is run.
func ValidateTrim(n, trim int) error {
	if trim < 0 {
		return &ConfigError{Field: "trim", Reason: "must not be negative"}
	}
	if n <= 2*trim {
		return &ConfigError{Field: "samples", Reason: "must exceed twice the trim count"}
	}
	return nil
}

// TrimmedMean sorts a copy of buf, discards trim values from each end and
// returns the mean of the remainder rounded to 2 decimals.
// The caller guarantees len(buf) > 2*trim (see ValidateTrim).
func TrimmedMean(buf []float64, trim int) float64 {
	sorted := make([]float64, len(buf))
	copy(sorted, buf)
	sort.Float64s(sorted)

	kept := sorted[trim : len(sorted)-trim]
	var sum float64
	for _, v := range kept {
		sum += v
	}
	return Round(sum / float64(len(kept)))
}

// Aggregates holds the trimmed mean of every buffered channel.
type Aggregates struct {
	Pressure    float64
	Temperature float64
	Humidity    float64
	Light       float64
	UV          float64
	VOCRaw      float64
}

// Aggregate reduces each channel of b with the given reducer.
func Aggregate(b *Buffers, trim int, reduce func([]float64, int) float64) Aggregates {
	return Aggregates{
		Pressure:    reduce(b.Values(ChannelPressure), trim),
		Temperature: reduce(b.Values(ChannelTemperature), trim),
		Humidity:    reduce(b.Values(ChannelHumidity), trim),
		Light:       reduce(b.Values(ChannelLight), trim),
		UV:          reduce(b.Values(ChannelUV), trim),
		VOCRaw:      reduce(b.Values(ChannelVOC), trim),
	}
}

// NewReading builds the published record from the aggregates and the VOC index.
func NewReading(id int, agg Aggregates, vocIndex int32) Reading {
	return Reading{
		ID:          id,
		Temperature: agg.Temperature,
		Humidity:    agg.Humidity,
		Pressure:    agg.Pressure,
		VOC:         float64(vocIndex),
		UV:          agg.UV,
		Light:       agg.Light,
	}
}
