package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCategory     = errors.New("unknown category")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrUnsupportedCategory = errors.New("unsupported category")
	ErrMixedCategories     = errors.New("mixed categories in batch")
	ErrNoStorableMapping   = errors.New("no storable mapping for section type")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context. A nil
// cause still yields the kind so classification sites can use a single form.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", operation, kind)
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
