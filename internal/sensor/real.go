//go:build linux

package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// Open initialises the host drivers and opens every sensor on the HAT.
// Found reports which configured addresses acknowledged a probe.
func Open(cfg BusConfig) (devs *Devices, found map[string]bool, err error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, errors.Wrap(err, "host init")
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open i2c bus %q", cfg.Bus)
	}
	devs = &Devices{closers: []func() error{bus.Close}}
	defer func() {
		if err != nil {
			devs.Close()
			devs = nil
		}
	}()

	found = Scan(bus, cfg)

	bme, err := bmxx80.NewI2C(bus, cfg.BME280, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, found, errors.Wrapf(err, "bme280 at 0x%02x", cfg.BME280)
	}
	devs.closers = append(devs.closers, bme.Halt)
	devs.Weather = NewBME280(bme)

	light, err := NewTSL2591(&i2c.Dev{Bus: bus, Addr: cfg.TSL2591})
	if err != nil {
		return nil, found, errors.Wrapf(err, "tsl2591 at 0x%02x", cfg.TSL2591)
	}
	devs.closers = append(devs.closers, light.Halt)
	devs.Light = light

	uv, err := NewLTR390(&i2c.Dev{Bus: bus, Addr: cfg.LTR390})
	if err != nil {
		return nil, found, errors.Wrapf(err, "ltr390 at 0x%02x", cfg.LTR390)
	}
	devs.closers = append(devs.closers, uv.Halt)
	devs.UV = uv

	voc := NewSGP40(&i2c.Dev{Bus: bus, Addr: cfg.SGP40})
	devs.closers = append(devs.closers, voc.Halt)
	devs.VOC = voc

	return devs, found, nil
}
