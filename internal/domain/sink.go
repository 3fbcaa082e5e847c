package domain

import "context"

// ResponseSink receives every accepted response. Keying by (slide, interaction)
// and persistence belong to the implementation.
type ResponseSink interface {
	Emit(ctx context.Context, response *InteractionResponse) error
}

// SinkFunc adapts a plain function to ResponseSink.
type SinkFunc func(ctx context.Context, response *InteractionResponse) error

func (f SinkFunc) Emit(ctx context.Context, response *InteractionResponse) error {
	return f(ctx, response)
}
