package sensor

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3"
)

const (
	sgpMeasureRawHi = 0x26
	sgpMeasureRawLo = 0x0F
	sgpHeaterOffHi  = 0x36
	sgpHeaterOffLo  = 0x15

	// 50 %RH and 25 °C, the datasheet's uncompensated defaults.
	sgpDefaultHumidityTicks    = 0x8000
	sgpDefaultTemperatureTicks = 0x6666

	sgpMeasureDelay = 30 * time.Millisecond
)

// SGP40 reads the raw MOX signal (SRAW ticks) used by the VOC index filter.
type SGP40 struct {
	dev conn.Conn
	// delay between the measure command and the result read
	delay time.Duration

	mu    sync.Mutex
	rhT   uint16
	tempT uint16
}

// NewSGP40 returns a driver using uncompensated measurements.
func NewSGP40(dev conn.Conn) *SGP40 {
	return &SGP40{
		dev:   dev,
		delay: sgpMeasureDelay,
		rhT:   sgpDefaultHumidityTicks,
		tempT: sgpDefaultTemperatureTicks,
	}
}

// SetCompensation sets the ambient conditions sent with each measurement.
func (s *SGP40) SetCompensation(humidity, temperature float64) {
	s.mu.Lock()
	s.rhT = humidityTicks(humidity)
	s.tempT = temperatureTicks(temperature)
	s.mu.Unlock()
}

// Read triggers one raw measurement and returns SRAW ticks.
func (s *SGP40) Read() (float64, error) {
	s.mu.Lock()
	cmd := measureRawCommand(s.rhT, s.tempT)
	s.mu.Unlock()

	if err := s.dev.Tx(cmd, nil); err != nil {
		return 0, errors.Wrap(err, "sgp40: measure")
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	resp := make([]byte, 3)
	if err := s.dev.Tx(nil, resp); err != nil {
		return 0, errors.Wrap(err, "sgp40: read result")
	}
	if crc := sgpCRC(resp[:2]); crc != resp[2] {
		return 0, errors.Errorf("sgp40: crc mismatch: got 0x%02x, want 0x%02x", resp[2], crc)
	}
	return float64(uint16(resp[0])<<8 | uint16(resp[1])), nil
}

// Halt switches the hotplate off.
func (s *SGP40) Halt() error {
	return errors.Wrap(s.dev.Tx([]byte{sgpHeaterOffHi, sgpHeaterOffLo}, nil), "sgp40: heater off")
}

func measureRawCommand(rhTicks, tempTicks uint16) []byte {
	rh := []byte{byte(rhTicks >> 8), byte(rhTicks)}
	t := []byte{byte(tempTicks >> 8), byte(tempTicks)}
	return []byte{
		sgpMeasureRawHi, sgpMeasureRawLo,
		rh[0], rh[1], sgpCRC(rh),
		t[0], t[1], sgpCRC(t),
	}
}

// sgpCRC is CRC-8 with polynomial 0x31 and init 0xFF.
func sgpCRC(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func humidityTicks(rh float64) uint16 {
	rh = clamp(rh, 0, 100)
	return uint16(rh * 65535 / 100)
}

func temperatureTicks(c float64) uint16 {
	c = clamp(c, -45, 130)
	return uint16((c + 45) * 65535 / 175)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
