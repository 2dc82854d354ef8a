package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// Run issues req as a dry run and only commits it when the provider answers
// ErrDryRunOK. Any other dry-run outcome is returned unchanged and the real
// request is never sent. The committing call is not retried.
func Run[T any](ctx context.Context, logger *log.Logger, op string, req Request[T]) (T, error) {
	var zero T

	logger.Debug("dry run", "op", op)
	_, err := req(ctx, true)
	switch {
	case errors.Is(err, ErrDryRunOK):
		logger.Debug("dry run validated", "op", op)
	case err != nil:
		logger.Debug("dry run rejected", "op", op, "err", err)
		return zero, err
	default:
		// A dry run must never report success
		return zero, fmt.Errorf("%s: provider ignored dry run", op)
	}

	logger.Debug("committing", "op", op)
	return req(ctx, false)
}
