package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
)

// TSL2591 registers. Every register access is prefixed by the command bit.
const (
	tslCommand    = 0xA0
	tslRegEnable  = 0x00
	tslRegControl = 0x01
	tslRegID      = 0x12
	tslRegC0DataL = 0x14

	tslEnablePowerOn = 0x01
	tslEnableALS     = 0x02
	tslGainMedium    = 0x10 // 25x
	tslIntegration   = 0x01 // 200 ms
	tslPartID        = 0x50

	tslGainFactor      = 25.0
	tslIntegrationMs   = 200.0
	tslLuxCoefficient  = 408.0
	tslChannelSaturate = 0xFFFF
)

// TSL2591 reads ambient light in lux.
type TSL2591 struct {
	dev conn.Conn
}

// NewTSL2591 checks the part id and enables the ALS at medium gain.
func NewTSL2591(dev conn.Conn) (*TSL2591, error) {
	id := make([]byte, 1)
	if err := dev.Tx([]byte{tslCommand | tslRegID}, id); err != nil {
		return nil, errors.Wrap(err, "tsl2591: read id")
	}
	if id[0] != tslPartID {
		return nil, errors.Errorf("tsl2591: unexpected part id 0x%02x", id[0])
	}
	if err := dev.Tx([]byte{tslCommand | tslRegEnable, tslEnablePowerOn | tslEnableALS}, nil); err != nil {
		return nil, errors.Wrap(err, "tsl2591: enable")
	}
	if err := dev.Tx([]byte{tslCommand | tslRegControl, tslGainMedium | tslIntegration}, nil); err != nil {
		return nil, errors.Wrap(err, "tsl2591: set gain")
	}
	return &TSL2591{dev: dev}, nil
}

// Read returns the latest ALS conversion in lux.
func (t *TSL2591) Read() (float64, error) {
	buf := make([]byte, 4)
	if err := t.dev.Tx([]byte{tslCommand | tslRegC0DataL}, buf); err != nil {
		return 0, errors.Wrap(err, "tsl2591: read channels")
	}
	ch0 := uint16(buf[0]) | uint16(buf[1])<<8
	ch1 := uint16(buf[2]) | uint16(buf[3])<<8
	return tslLux(ch0, ch1), nil
}

// Halt powers the ALS down.
func (t *TSL2591) Halt() error {
	return errors.Wrap(t.dev.Tx([]byte{tslCommand | tslRegEnable, 0x00}, nil), "tsl2591: disable")
}

// tslLux converts full-spectrum (ch0) and infrared (ch1) counts to lux.
// A saturated channel is reported at the saturation point; readings where
// infrared meets or exceeds full spectrum are treated as darkness.
func tslLux(ch0, ch1 uint16) float64 {
	if ch0 == tslChannelSaturate || ch1 == tslChannelSaturate {
		ch1 = 0
	}
	if ch0 == 0 || ch1 >= ch0 {
		return 0
	}
	cpl := (tslIntegrationMs * tslGainFactor) / tslLuxCoefficient
	full := float64(ch0)
	ir := float64(ch1)
	return (full - ir) * (1 - ir/full) / cpl
}
