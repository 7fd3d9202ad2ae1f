package errdefs

import (
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindsSurviveWrapping(t *testing.T) {
	testCases := []struct {
		Description string
		Err         error
		Is          func(error) bool
	}{
		{
			Description: "encoding error wrapped once",
			Err:         errors.Wrap(&EncodingError{Field: "opcode", Value: 300, Reason: "exceeds one byte"}, "build"),
			Is:          IsEncoding,
		},
		{
			Description: "device error wrapped twice",
			Err:         errors.Wrap(errors.Wrap(&DeviceError{Op: "open", Path: "/dev/nvme0", Errno: syscall.EACCES}, "smart-log"), "precheck"),
			Is:          IsDevice,
		},
		{
			Description: "format error",
			Err:         &FormatError{Decoder: "smart", Want: "512", Got: 511},
			Is:          IsFormat,
		},
		{
			Description: "not found error",
			Err:         errors.Wrapf(&NotFoundError{Serial: "S1"}, "init"),
			Is:          IsNotFound,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Description, func(t *testing.T) {
			assert.True(t, testCase.Is(testCase.Err))
			assert.False(t, IsValidation(testCase.Err))
		})
	}
}

func TestDeviceErrorUnwrapsToErrno(t *testing.T) {
	err := errors.Wrap(&DeviceError{Op: "ioctl", Path: "/dev/nvme0", Errno: syscall.ENOENT}, "identify")
	assert.True(t, errors.Is(err, syscall.ENOENT))
	assert.False(t, (&DeviceError{Errno: syscall.ENOENT}).Timeout())
	assert.True(t, (&DeviceError{Errno: syscall.ETIMEDOUT}).Timeout())
}

func TestDeviceErrorWithStatus(t *testing.T) {
	err := &DeviceError{Op: "ioctl", Path: "/dev/nvme0", Errno: syscall.EIO, Status: 0x2}
	assert.Contains(t, err.Error(), "nvme status 0x2")
}

func TestAbortedErrorKeepsEveryViolation(t *testing.T) {
	aborted := &AbortedError{Violations: []*ValidationError{
		{Check: "media-errors", Expected: 0, Actual: 3},
		{Check: "read-commands-delta", Expected: 10, Actual: 9},
	}}

	assert.Len(t, aborted.Errors(), 2)
	assert.Contains(t, aborted.Error(), "media-errors")
	assert.Contains(t, aborted.Error(), "read-commands-delta")
	assert.True(t, IsAborted(errors.Wrap(aborted, "run")))
}
