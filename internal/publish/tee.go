package publish

import (
	"context"
	"log/slog"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

// Publisher is the primary destination of a reading.
type Publisher interface {
	Publish(ctx context.Context, r logic.Reading) error
}

// Mirror is a best-effort secondary destination such as the MQTT broker.
type Mirror interface {
	Publish(r logic.Reading) error
}

// Tee sends each reading to a primary publisher and any mirrors.
// Only the primary's outcome is reported; mirror failures are logged.
type Tee struct {
	primary Publisher
	mirrors []Mirror
	log     *slog.Logger
}

// NewTee creates a Tee. Nil mirrors are skipped.
func NewTee(primary Publisher, log *slog.Logger, mirrors ...Mirror) *Tee {
	t := &Tee{primary: primary, log: log}
	for _, m := range mirrors {
		if m != nil {
			t.mirrors = append(t.mirrors, m)
		}
	}
	return t
}

// Publish sends r to the primary, then to the mirrors. The primary's error
// is returned after every mirror has been tried.
func (t *Tee) Publish(ctx context.Context, r logic.Reading) error {
	err := t.primary.Publish(ctx, r)
	for _, m := range t.mirrors {
		if merr := m.Publish(r); merr != nil {
			t.log.Warn("mirror publish error", "error", merr)
		}
	}
	return err
}
