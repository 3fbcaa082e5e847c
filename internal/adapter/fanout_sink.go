package adapter

import (
	"context"
	"errors"

	"slide-capture/internal/domain"

	"golang.org/x/sync/errgroup"
)

// FanoutSink emits every response to all of its sinks concurrently. A failing
// sink does not stop the others; their errors are joined.
type FanoutSink struct {
	sinks []domain.ResponseSink
}

func NewFanoutSink(sinks ...domain.ResponseSink) *FanoutSink {
	kept := make([]domain.ResponseSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &FanoutSink{sinks: kept}
}

func (f *FanoutSink) Emit(ctx context.Context, response *domain.InteractionResponse) error {
	errs := make([]error, len(f.sinks))
	var g errgroup.Group
	for i, sink := range f.sinks {
		g.Go(func() error {
			errs[i] = sink.Emit(ctx, response)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (f *FanoutSink) Len() int {
	return len(f.sinks)
}

var _ domain.ResponseSink = (*FanoutSink)(nil)
