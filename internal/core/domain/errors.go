package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
	ErrNotConfigured    = errors.New("not configured")
	ErrIndexNotFound    = errors.New("persisted index not found")
	ErrIndexUnavailable = errors.New("knowledge index unavailable")
	ErrIndexCorrupt     = errors.New("persisted index inconsistent")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
