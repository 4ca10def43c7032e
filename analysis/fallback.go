package analysis

import (
	"context"

	"github.com/use-agent/fraudlens/models"
)

// WithFallback runs primary and, when it fails, returns the fallback value
// built for the classified failure. It never returns an error.
func WithFallback[T any](
	ctx context.Context,
	primary func(context.Context) (T, error),
	fallback func(reason models.DegradationReason, err error) T,
	classify func(error) models.DegradationReason,
) T {
	v, err := primary(ctx)
	if err == nil {
		return v
	}
	return fallback(classify(err), err)
}
