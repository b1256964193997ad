package sensor

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
)

// LTR390 registers.
const (
	ltrRegMainCtrl = 0x00
	ltrRegMeasRate = 0x04
	ltrRegGain     = 0x05
	ltrRegPartID   = 0x06
	ltrRegUVSData  = 0x10

	ltrMainCtrlEnable = 0x02
	ltrMainCtrlUVS    = 0x08
	ltrMeasRate       = 0x04 // 20-bit resolution, 500 ms rate
	ltrGain18         = 0x04
	ltrPartID         = 0x0B

	// UV sensitivity in counts per UV index at gain 18 and 20-bit resolution.
	ltrUVSensitivity = 2300.0
)

// LTR390 reads the UV index.
type LTR390 struct {
	dev conn.Conn
}

// NewLTR390 checks the part id and starts continuous UVS measurement.
func NewLTR390(dev conn.Conn) (*LTR390, error) {
	id := make([]byte, 1)
	if err := dev.Tx([]byte{ltrRegPartID}, id); err != nil {
		return nil, errors.Wrap(err, "ltr390: read id")
	}
	if id[0]>>4 != ltrPartID {
		return nil, errors.Errorf("ltr390: unexpected part id 0x%02x", id[0])
	}
	if err := dev.Tx([]byte{ltrRegMeasRate, ltrMeasRate}, nil); err != nil {
		return nil, errors.Wrap(err, "ltr390: set rate")
	}
	if err := dev.Tx([]byte{ltrRegGain, ltrGain18}, nil); err != nil {
		return nil, errors.Wrap(err, "ltr390: set gain")
	}
	if err := dev.Tx([]byte{ltrRegMainCtrl, ltrMainCtrlEnable | ltrMainCtrlUVS}, nil); err != nil {
		return nil, errors.Wrap(err, "ltr390: enable")
	}
	return &LTR390{dev: dev}, nil
}

// Read returns the latest UVS conversion as a UV index.
func (l *LTR390) Read() (float64, error) {
	buf := make([]byte, 3)
	if err := l.dev.Tx([]byte{ltrRegUVSData}, buf); err != nil {
		return 0, errors.Wrap(err, "ltr390: read uvs")
	}
	return ltrUVIndex(ltrCounts(buf)), nil
}

// Halt puts the sensor in standby.
func (l *LTR390) Halt() error {
	return errors.Wrap(l.dev.Tx([]byte{ltrRegMainCtrl, 0x00}, nil), "ltr390: standby")
}

// ltrCounts assembles the little-endian 20-bit UVS count.
func ltrCounts(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2]&0x0F)<<16
}

func ltrUVIndex(counts uint32) float64 {
	return float64(counts) / ltrUVSensitivity
}
