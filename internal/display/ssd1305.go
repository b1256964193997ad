package display

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Conn is the SPI data path to the panel.
type Conn interface {
	Tx(w, r []byte) error
}

// Line is one GPIO output (data/command select or reset).
type Line interface {
	SetValue(value int) error
}

// initSequence configures a 128x32 SSD1305 panel and switches it on.
var initSequence = []byte{
	0xAE,       // display off
	0x04, 0x10, // column address
	0x40,       // start line 0
	0x81, 0x80, // contrast
	0xA1,       // segment remap
	0xA6,       // normal (not inverted)
	0xA8, 0x1F, // multiplex 1/32
	0xC8,       // COM scan direction remapped
	0xD3, 0x00, // display offset
	0xD5, 0xF0, // clock divide / oscillator
	0xD8, 0x05, // area colour mode off, low power
	0xD9, 0xC2, // pre-charge period
	0xDA, 0x12, // COM pins
	0xDB, 0x08, // VCOMH deselect level
	0xAF,       // display on
}

const (
	pageCount      = Height / 8
	cmdPageAddress = 0xB0
	cmdColumnLow   = 0x04
	cmdColumnHigh  = 0x10
	cmdDisplayOff  = 0xAE
)

// SSD1305 drives the OLED panel. Show is safe to call from one goroutine
// while Halt runs on another.
type SSD1305 struct {
	conn Conn
	dc   Line
	rst  Line
	log  *slog.Logger

	// sleep is replaced in tests
	sleep func(time.Duration)

	mu sync.Mutex
}

// NewSSD1305 binds a panel to its SPI connection and control lines.
// Call Init before the first Show.
func NewSSD1305(conn Conn, dc, rst Line, log *slog.Logger) *SSD1305 {
	return &SSD1305{
		conn:  conn,
		dc:    dc,
		rst:   rst,
		log:   log,
		sleep: time.Sleep,
	}
}

// Init pulses reset and sends the configuration sequence.
func (d *SSD1305) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, step := range []struct {
		v    int
		wait time.Duration
	}{
		{1, time.Millisecond},
		{0, 10 * time.Millisecond},
		{1, 0},
	} {
		if err := d.rst.SetValue(step.v); err != nil {
			return errors.Wrap(err, "ssd1305: reset")
		}
		if step.wait > 0 {
			d.sleep(step.wait)
		}
	}
	return d.command(initSequence...)
}

// Show renders lines and pushes the frame. Failures are logged, not returned.
func (d *SSD1305) Show(lines ...string) {
	if err := d.Draw(Render(lines).Pix); err != nil {
		d.log.Warn("display update failed", "error", err)
	}
}

// Draw pushes a full frame of pageCount*Width bytes.
func (d *SSD1305) Draw(frame []byte) error {
	if len(frame) != pageCount*Width {
		return errors.Errorf("ssd1305: frame is %d bytes, want %d", len(frame), pageCount*Width)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	for page := 0; page < pageCount; page++ {
		if err := d.command(cmdPageAddress+byte(page), cmdColumnLow, cmdColumnHigh); err != nil {
			return err
		}
		if err := d.data(frame[page*Width : (page+1)*Width]); err != nil {
			return err
		}
	}
	return nil
}

// Halt blanks the panel.
func (d *SSD1305) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.command(cmdDisplayOff)
}

func (d *SSD1305) command(cmds ...byte) error {
	if err := d.dc.SetValue(0); err != nil {
		return errors.Wrap(err, "ssd1305: select command")
	}
	return errors.Wrap(d.conn.Tx(cmds, nil), "ssd1305: write command")
}

func (d *SSD1305) data(b []byte) error {
	if err := d.dc.SetValue(1); err != nil {
		return errors.Wrap(err, "ssd1305: select data")
	}
	return errors.Wrap(d.conn.Tx(b, nil), "ssd1305: write data")
}
