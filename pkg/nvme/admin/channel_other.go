//go:build !linux

package admin

import (
	"syscall"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

// Channel is unavailable outside linux; every call fails with ENOTSUP
type Channel struct {
	path string
}

func NewAdminChannel(path string) *Channel {
	return &Channel{path: path}
}

func NewIOChannel(path string) *Channel {
	return &Channel{path: path}
}

func (c *Channel) Path() string {
	return c.path
}

func (c *Channel) Exchange(_ *Request) (Response, error) {
	return Response{}, &errdefs.DeviceError{Op: "ioctl", Path: c.path, Errno: syscall.ENOTSUP}
}

func (c *Channel) Reset() error {
	return &errdefs.DeviceError{Op: "reset", Path: c.path, Errno: syscall.ENOTSUP}
}

func (c *Channel) Rescan() error {
	return &errdefs.DeviceError{Op: "rescan", Path: c.path, Errno: syscall.ENOTSUP}
}
