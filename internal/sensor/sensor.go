// Package sensor provides raw environmental readings with hardware abstraction.
// The real implementation talks to the sensor HAT over Linux I2C via periph.io.
// The fake implementation allows testing without hardware.
package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
)

// Source returns one raw scalar per call.
type Source interface {
	// Read performs one measurement. A non-nil error means the bus
	// exchange failed and no value is available.
	Read() (float64, error)
}

// Weather is one BME280 conversion.
type Weather struct {
	Pressure    float64 // hPa
	Temperature float64 // °C
	Humidity    float64 // %RH
}

// WeatherSource returns pressure, temperature and humidity from a single
// conversion.
type WeatherSource interface {
	ReadWeather() (Weather, error)
}

// Compensator is implemented by sources whose raw signal depends on ambient
// humidity and temperature.
type Compensator interface {
	SetCompensation(humidity, temperature float64)
}

// Default I2C addresses on the environment sensor HAT.
const (
	AddrTSL2591 = 0x29
	AddrLTR390  = 0x53
	AddrSGP40   = 0x59
	AddrBME280  = 0x76
)

// BusConfig selects the I2C bus and device addresses.
type BusConfig struct {
	Bus     string // empty selects the first bus
	BME280  uint16
	TSL2591 uint16
	LTR390  uint16
	SGP40   uint16
}

// DefaultBusConfig returns the HAT's factory addresses on the default bus.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		BME280:  AddrBME280,
		TSL2591: AddrTSL2591,
		LTR390:  AddrLTR390,
		SGP40:   AddrSGP40,
	}
}

// Addresses returns the configured device addresses keyed by part name.
func (c BusConfig) Addresses() map[string]uint16 {
	return map[string]uint16{
		"bme280":  c.BME280,
		"tsl2591": c.TSL2591,
		"ltr390":  c.LTR390,
		"sgp40":   c.SGP40,
	}
}

// Devices bundles the opened sensors of one node.
type Devices struct {
	Weather WeatherSource
	Light   Source
	UV      Source
	VOC     Source

	closers []func() error
}

// Close halts the sensors and releases the bus.
func (d *Devices) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}

// Probe reports whether a device acknowledges a one byte read at addr.
func Probe(bus i2c.Bus, addr uint16) bool {
	return bus.Tx(addr, nil, make([]byte, 1)) == nil
}

// Scan probes every configured address and returns which ones answered.
func Scan(bus i2c.Bus, cfg BusConfig) map[string]bool {
	found := make(map[string]bool)
	for name, addr := range cfg.Addresses() {
		found[name] = Probe(bus, addr)
	}
	return found
}
