// Package telemetry exports focus and coach metrics to an OTEL collector.
package telemetry

import (
	"context"

	"github.com/ashureev/focusbooster/internal/domain"
)

// Coach request outcomes not derived from a failure notice.
const (
	OutcomeOK        = "ok"
	OutcomeDiscarded = "discarded"
)

// Recorder receives session events worth counting.
type Recorder interface {
	// FocusCompleted records one finished focus phase of the given length.
	FocusCompleted(ctx context.Context, minutes int)
	// CoachRequest records the outcome of one relay call.
	CoachRequest(ctx context.Context, kind domain.RequestKind, outcome string)
	// Close shuts down the recorder and flushes any pending metrics.
	Close(ctx context.Context) error
}

var (
	_ Recorder = (*Exporter)(nil)
	_ Recorder = (*NoOpRecorder)(nil)
)

// NoOpRecorder is a Recorder that does nothing.
type NoOpRecorder struct{}

// NewNoOpRecorder creates a recorder for when metrics are disabled.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}

func (NoOpRecorder) FocusCompleted(context.Context, int)                      {}
func (NoOpRecorder) CoachRequest(context.Context, domain.RequestKind, string) {}
func (NoOpRecorder) Close(context.Context) error                              { return nil }
