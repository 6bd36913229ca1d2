package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidPageCount is returned when fewer than one page is requested.
var ErrInvalidPageCount = errors.New("page count must be at least 1")

// wrapErr makes err match kind with errors.Is while keeping its message.
func wrapErr(kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
