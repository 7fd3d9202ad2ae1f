package errdefs

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"go.uber.org/multierr"
)

// EncodingError reports a command that cannot be encoded into a descriptor.
// It is a programming error and is never retried.
type EncodingError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding %s=%v: %s", e.Field, e.Value, e.Reason)
}

// DeviceError reports a failure to open the device node or to complete the control call.
type DeviceError struct {
	Op   string
	Path string
	// Errno is the OS-level error code
	Errno syscall.Errno
	// Status is the NVMe completion status when the controller rejected the command, 0 otherwise
	Status uint32
}

func (e *DeviceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: nvme status %#x", e.Op, e.Path, e.Status)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Errno)
}

func (e *DeviceError) Unwrap() error {
	return e.Errno
}

// Timeout reports whether the exchange ran past the descriptor's timeout
func (e *DeviceError) Timeout() bool {
	return e.Errno == syscall.ETIMEDOUT || e.Errno == syscall.EINTR
}

// FormatError reports a buffer handed to a decoder with a wrong size or shape.
type FormatError struct {
	Decoder string
	Want    string
	Got     int
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: expected %s bytes, got %d", e.Decoder, e.Want, e.Got)
}

// NotFoundError reports a device identity that matched no attached controller.
type NotFoundError struct {
	Serial string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no nvme controller with serial %q", e.Serial)
}

// ValidationError is a single failed check of a test run.
type ValidationError struct {
	Check    string
	Expected interface{}
	Actual   interface{}
	Message  string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Check, e.Message)
	}
	return fmt.Sprintf("%s: expected %v, got %v", e.Check, e.Expected, e.Actual)
}

// AbortedError carries every violation collected by a run, in the order found.
type AbortedError struct {
	Violations []*ValidationError
}

func (e *AbortedError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Error())
	}
	return fmt.Sprintf("run aborted with %d violation(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Errors flattens the violations into a multierr so callers can range over them
func (e *AbortedError) Errors() []error {
	var err error
	for _, v := range e.Violations {
		err = multierr.Append(err, v)
	}
	return multierr.Errors(err)
}

func IsEncoding(err error) bool {
	var target *EncodingError
	return errors.As(err, &target)
}

func IsDevice(err error) bool {
	var target *DeviceError
	return errors.As(err, &target)
}

func IsFormat(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAborted(err error) bool {
	var target *AbortedError
	return errors.As(err, &target)
}
