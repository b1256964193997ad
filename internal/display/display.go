// Package display renders short status text for the node.
// The OLED implementation drives an SSD1305 panel over SPI; the log and fake
// implementations stand in when no panel is attached and in tests.
package display

import "log/slog"

// MaxLines is the number of text lines that fit on the panel.
const MaxLines = 3

// Presenter shows up to MaxLines short lines. It never reports failure.
type Presenter interface {
	Show(lines ...string)
}

// LogPresenter writes every frame to a logger at debug level.
type LogPresenter struct {
	log *slog.Logger
}

// NewLogPresenter returns a Presenter backed by log.
func NewLogPresenter(log *slog.Logger) *LogPresenter {
	return &LogPresenter{log: log}
}

// Show logs the lines.
func (p *LogPresenter) Show(lines ...string) {
	p.log.Debug("display", "lines", clip(lines))
}

func clip(lines []string) []string {
	if len(lines) > MaxLines {
		return lines[:MaxLines]
	}
	return lines
}
