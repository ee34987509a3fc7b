// Package sink delivers completed submissions to their destinations.
//
// A form session hands its final answer set to exactly one Sink. Sinks
// compose with Fanout, so one completion can be stored and published.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/formstep/internal/store"
)

// Sink receives completed submissions.
type Sink interface {
	Deliver(ctx context.Context, sub store.Submission) error
}

// Func adapts a function to the Sink interface.
type Func func(ctx context.Context, sub store.Submission) error

// Deliver calls f.
func (f Func) Deliver(ctx context.Context, sub store.Submission) error {
	return f(ctx, sub)
}

// StoreSink appends submissions to the store.
type StoreSink struct {
	store *store.Store
}

// NewStoreSink creates a sink writing to s.
func NewStoreSink(s *store.Store) *StoreSink {
	return &StoreSink{store: s}
}

// Deliver writes the submission. Re-delivering the same id is a no-op.
func (s *StoreSink) Deliver(ctx context.Context, sub store.Submission) error {
	stored, err := s.store.WriteSubmission(ctx, sub)
	if err != nil {
		return fmt.Errorf("store sink: %w", err)
	}
	slog.Debug("submission stored", "submission", stored.ID, "form", stored.FormID, "seq", stored.Seq)
	return nil
}

// Fanout delivers to every sink in order. A failing sink does not stop
// the others; all errors are joined.
type Fanout []Sink

// Deliver implements Sink.
func (f Fanout) Deliver(ctx context.Context, sub store.Submission) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Deliver(ctx, sub); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every submission.
var Discard Sink = Func(func(context.Context, store.Submission) error { return nil })
