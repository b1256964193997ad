package display

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tx struct {
	dc   int
	data []byte
}

// fakeBus records every SPI write together with the DC level at that moment.
type fakeBus struct {
	dc     fakeLine
	rst    fakeLine
	writes []tx
	err    error
}

type fakeLine struct {
	values []int
	err    error
}

func (l *fakeLine) SetValue(v int) error {
	if l.err != nil {
		return l.err
	}
	l.values = append(l.values, v)
	return nil
}

func (l *fakeLine) last() int {
	if len(l.values) == 0 {
		return -1
	}
	return l.values[len(l.values)-1]
}

func (b *fakeBus) Tx(w, r []byte) error {
	if b.err != nil {
		return b.err
	}
	buf := make([]byte, len(w))
	copy(buf, w)
	b.writes = append(b.writes, tx{dc: b.dc.last(), data: buf})
	return nil
}

func newTestPanel() (*SSD1305, *fakeBus) {
	bus := &fakeBus{}
	d := NewSSD1305(bus, &bus.dc, &bus.rst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.sleep = func(time.Duration) {}
	return d, bus
}

func TestSSD1305Init(t *testing.T) {
	d, bus := newTestPanel()
	require.NoError(t, d.Init())

	assert.Equal(t, []int{1, 0, 1}, bus.rst.values)
	require.Len(t, bus.writes, 1)
	assert.Equal(t, 0, bus.writes[0].dc)
	assert.Equal(t, initSequence, bus.writes[0].data)
	assert.Equal(t, byte(0xAF), bus.writes[0].data[len(bus.writes[0].data)-1])
}

func TestSSD1305InitResetFailure(t *testing.T) {
	d, bus := newTestPanel()
	bus.rst.err = errors.New("line busy")
	err := d.Init()
	assert.ErrorContains(t, err, "ssd1305: reset: line busy")
	assert.Empty(t, bus.writes)
}

func TestSSD1305DrawWritesPages(t *testing.T) {
	d, bus := newTestPanel()
	frame := make([]byte, Width*Height/8)
	for i := range frame {
		frame[i] = byte(i / Width)
	}

	require.NoError(t, d.Draw(frame))
	require.Len(t, bus.writes, 2*pageCount)

	for page := 0; page < pageCount; page++ {
		cmd := bus.writes[2*page]
		assert.Equal(t, 0, cmd.dc)
		assert.Equal(t, []byte{0xB0 + byte(page), 0x04, 0x10}, cmd.data)

		data := bus.writes[2*page+1]
		assert.Equal(t, 1, data.dc)
		require.Len(t, data.data, Width)
		assert.Equal(t, byte(page), data.data[0])
		assert.Equal(t, byte(page), data.data[Width-1])
	}
}

func TestSSD1305DrawRejectsWrongSize(t *testing.T) {
	d, bus := newTestPanel()
	err := d.Draw(make([]byte, 100))
	assert.ErrorContains(t, err, "frame is 100 bytes, want 512")
	assert.Empty(t, bus.writes)
}

func TestSSD1305DrawBusError(t *testing.T) {
	d, bus := newTestPanel()
	bus.err = errors.New("spi timeout")
	err := d.Draw(make([]byte, Width*Height/8))
	assert.ErrorContains(t, err, "ssd1305: write command: spi timeout")
}

func TestSSD1305ShowSwallowsErrors(t *testing.T) {
	d, bus := newTestPanel()
	bus.err = errors.New("spi timeout")
	assert.NotPanics(t, func() { d.Show("hello") })
}

func TestSSD1305ShowDrawsFrame(t *testing.T) {
	d, bus := newTestPanel()
	d.Show("Data gathered")
	require.Len(t, bus.writes, 2*pageCount)

	lit := 0
	for i := 1; i < len(bus.writes); i += 2 {
		for _, b := range bus.writes[i].data {
			if b != 0 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0)
}

func TestSSD1305Halt(t *testing.T) {
	d, bus := newTestPanel()
	require.NoError(t, d.Halt())
	require.Len(t, bus.writes, 1)
	assert.Equal(t, tx{dc: 0, data: []byte{0xAE}}, bus.writes[0])
}
