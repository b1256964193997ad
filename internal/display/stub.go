//go:build !linux

package display

import (
	"log/slog"

	"github.com/pkg/errors"
)

// Default wiring of the OLED HAT (BCM numbering).
const (
	DefaultPinDC  = 24
	DefaultPinRST = 25
)

// OLEDConfig selects the SPI port and control pins.
type OLEDConfig struct {
	SPIPort string
	PinDC   int
	PinRST  int
}

// OLED is not available on non-Linux platforms.
type OLED struct {
	*SSD1305
}

// OpenOLED returns an error on non-Linux platforms.
func OpenOLED(cfg OLEDConfig, log *slog.Logger) (*OLED, error) {
	return nil, errors.New("display: not supported on this platform (requires Linux)")
}

// Close is not implemented on non-Linux platforms.
func (o *OLED) Close() error {
	return nil
}
