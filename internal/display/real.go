//go:build linux

package display

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/warthog618/go-gpiocdev"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Default wiring of the OLED HAT (BCM numbering).
const (
	DefaultPinDC  = 24
	DefaultPinRST = 25
)

// OLEDConfig selects the SPI port and control pins.
type OLEDConfig struct {
	SPIPort string // empty selects the first port
	PinDC   int
	PinRST  int
}

// OLED is an SSD1305 panel attached through Linux spidev and GPIO character device.
type OLED struct {
	*SSD1305

	port spi.PortCloser
	chip *gpiocdev.Chip
	dc   *gpiocdev.Line
	rst  *gpiocdev.Line
}

// OpenOLED opens the SPI port and control lines and initialises the panel.
func OpenOLED(cfg OLEDConfig, log *slog.Logger) (*OLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "host init")
	}

	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, errors.Wrapf(err, "open spi port %q", cfg.SPIPort)
	}
	conn, err := port.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, errors.Wrap(err, "connect spi")
	}

	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		port.Close()
		return nil, errors.Wrap(err, "open gpio chip")
	}

	dc, err := chip.RequestLine(cfg.PinDC, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		port.Close()
		return nil, errors.Wrapf(err, "request DC pin %d", cfg.PinDC)
	}

	rst, err := chip.RequestLine(cfg.PinRST, gpiocdev.AsOutput(1))
	if err != nil {
		dc.Close()
		chip.Close()
		port.Close()
		return nil, errors.Wrapf(err, "request RST pin %d", cfg.PinRST)
	}

	o := &OLED{
		SSD1305: NewSSD1305(conn, dc, rst, log),
		port:    port,
		chip:    chip,
		dc:      dc,
		rst:     rst,
	}
	if err := o.Init(); err != nil {
		o.Close()
		return nil, errors.Wrap(err, "init panel")
	}
	return o, nil
}

// Close blanks the panel and releases SPI and GPIO resources.
// Control pins are returned to input with pull-down, matching Pi boot defaults.
func (o *OLED) Close() error {
	var errs []error

	if err := o.Halt(); err != nil {
		errs = append(errs, err)
	}
	for name, line := range map[string]*gpiocdev.Line{"DC": o.dc, "RST": o.rst} {
		if line == nil {
			continue
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, errors.Wrapf(err, "reconfigure %s pin", name))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s pin", name))
		}
	}
	if o.chip != nil {
		if err := o.chip.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close chip"))
		}
	}
	if o.port != nil {
		if err := o.port.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "close spi port"))
		}
	}

	if len(errs) > 0 {
		return errors.Errorf("close errors: %v", errs)
	}
	return nil
}
