package sensor

import "errors"

// FakeSource is a test double that returns scripted values.
type FakeSource struct {
	// Values contains scripted readings. Each call to Read() consumes the
	// next value; once exhausted the last value is returned repeatedly.
	Values []float64
	// index tracks current position in Values
	index int
	// Reads counts calls to Read, including failed ones.
	Reads int
	// ReadError, if set, will be returned by Read()
	ReadError error
	// FailOnRead, if > 0, makes the n-th call (1-based) return FailError.
	FailOnRead int
	// FailError is returned by the FailOnRead-th call.
	FailError error
}

// NewFakeSource creates a FakeSource with the given values.
func NewFakeSource(values ...float64) *FakeSource {
	return &FakeSource{Values: values}
}

// Read returns the next scripted value.
func (f *FakeSource) Read() (float64, error) {
	f.Reads++
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if f.FailOnRead > 0 && f.Reads == f.FailOnRead {
		return 0, f.FailError
	}
	if len(f.Values) == 0 {
		return 0, errors.New("no values configured")
	}
	v := f.Values[f.index]
	if f.index < len(f.Values)-1 {
		f.index++
	}
	return v, nil
}

// Reset rewinds the source to its first value and clears the call count.
func (f *FakeSource) Reset() {
	f.index = 0
	f.Reads = 0
}

// FakeWeather is a test double for WeatherSource.
type FakeWeather struct {
	Samples    []Weather
	index      int
	Reads      int
	ReadError  error
	FailOnRead int
	FailError  error
}

// NewFakeWeather creates a FakeWeather with the given samples.
func NewFakeWeather(samples ...Weather) *FakeWeather {
	return &FakeWeather{Samples: samples}
}

// ReadWeather returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeWeather) ReadWeather() (Weather, error) {
	f.Reads++
	if f.ReadError != nil {
		return Weather{}, f.ReadError
	}
	if f.FailOnRead > 0 && f.Reads == f.FailOnRead {
		return Weather{}, f.FailError
	}
	if len(f.Samples) == 0 {
		return Weather{}, errors.New("no samples configured")
	}
	w := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return w, nil
}

// FakeCompensatedSource records compensation updates.
type FakeCompensatedSource struct {
	*FakeSource
	Humidity    []float64
	Temperature []float64
}

// SetCompensation records the values it was called with.
func (f *FakeCompensatedSource) SetCompensation(humidity, temperature float64) {
	f.Humidity = append(f.Humidity, humidity)
	f.Temperature = append(f.Temperature, temperature)
}
