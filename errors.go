package rosbag2

import (
	"errors"
	"fmt"
)

var errUnknownType = errors.New("no decoder registered for message type")

// UnknownTypeError is returned when the registry has no decoder for a type id.
type UnknownTypeError struct {
	Type string
}

func (err *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: %s", errUnknownType, err.Type)
}

func (err *UnknownTypeError) Unwrap() error {
	return errUnknownType
}

// DecodeError is returned when a payload does not conform to its type.
type DecodeError struct {
	Type string
	Err  error
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", err.Type, err.Err)
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}
