// Package logctx carries a request- or event-scoped logger in a context.
package logctx

import (
	"context"

	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type loggerKey struct{}

func With(ctx context.Context, logger observability.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// From returns the context logger, or a no-op logger when none is set.
func From(ctx context.Context) observability.Logger {
	return FromOr(ctx, observability.NopLogger())
}

func FromOr(ctx context.Context, fallback observability.Logger) observability.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(observability.Logger); ok {
			return logger
		}
	}
	return fallback
}

// Enrich binds fields onto the context logger. It is a no-op when ctx has no logger.
func Enrich(ctx context.Context, fields ...observability.Field) context.Context {
	logger, ok := ctx.Value(loggerKey{}).(observability.Logger)
	if !ok || len(fields) == 0 {
		return ctx
	}
	return With(ctx, logger.With(fields...))
}
