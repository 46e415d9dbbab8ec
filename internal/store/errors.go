package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("topic not found in record store")
	ErrStoreAccess = errors.New("record store access failed")
)

// NotFoundError means the manifest advertised a topic the store doesn't have,
// usually a mismatched manifest/database pair.
type NotFoundError struct {
	Topic string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNotFound, err.Topic)
}

func (err *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AccessError wraps failures to open or query the store.
type AccessError struct {
	Path string
	Op   string
	Err  error
}

func (err *AccessError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrStoreAccess, err.Op, err.Path, err.Err)
}

func (err *AccessError) Unwrap() []error {
	return []error{ErrStoreAccess, err.Err}
}
