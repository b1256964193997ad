// Package cycle runs the node's sampling state machine:
// WarmUp, then repeated Sampling, Aggregation and PublishAndDisplay.
//
// A Runner owns the VOC filter state for the life of the process and is
// driven by exactly one goroutine. All waits go through a Clock so that
// tests can run whole cycles instantly.
package cycle

import (
	"context"
	"errors"

	"github.com/sweeney/enviro-sensor/internal/logic"
)

// Phase names a state of the sampling state machine.
type Phase string

const (
	PhaseSetup       Phase = "SETUP"
	PhaseWarmUp      Phase = "WARM_UP"
	PhaseSampling    Phase = "SAMPLING"
	PhaseAggregation Phase = "AGGREGATION"
	PhasePublish     Phase = "PUBLISH_AND_DISPLAY"
	PhaseStopped     Phase = "STOPPED"
)

// Signal tells the outer driver whether to keep looping.
type Signal int

const (
	Continue Signal = iota
	Terminate
)

func (s Signal) String() string {
	if s == Terminate {
		return "terminate"
	}
	return "continue"
}

// Result is the outcome of one cycle (or of a whole Run).
type Result struct {
	Signal Signal
	// Reason is set when Signal is Terminate: ErrInterrupted or a
	// *logic.TransportError from a sensor.
	Reason error
	// Reading is the cycle's output, nil if the cycle aborted before Aggregation.
	Reading *logic.Reading
}

// ErrInterrupted reports termination by context cancellation.
var ErrInterrupted = errors.New("interrupted")

// Publisher hands a finished Reading to the network.
type Publisher interface {
	Publish(ctx context.Context, r logic.Reading) error
}

// Observer is notified of progress. Implementations must not block.
type Observer interface {
	PhaseChanged(p Phase)
	CycleCompleted(r logic.Reading, publishErr error)
	SensorFailed(err error)
}

type nopObserver struct{}

func (nopObserver) PhaseChanged(Phase)                  {}
func (nopObserver) CycleCompleted(logic.Reading, error) {}
func (nopObserver) SensorFailed(error)                  {}
