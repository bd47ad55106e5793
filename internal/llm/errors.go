package llm

import (
	"context"
	"errors"

	errx "github.com/zenai/agentcore/internal/core/error"
)

// classify maps a raw call failure onto the error taxonomy. parent is the caller's
// context and call the derived context carrying the per-call deadline.
func classify(parent, call context.Context, provider Provider, err error) error {
	var appErr *errx.AppError
	if errors.As(err, &appErr) && appErr.Kind != errx.KindUnknown {
		return err
	}
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return errx.Canceled(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(call.Err(), context.DeadlineExceeded):
		return errx.Timeout(string(provider), err)
	case errors.Is(err, context.Canceled):
		return errx.Canceled(err)
	}
	return errx.Provider(string(provider), err)
}
