//go:build linux

package admin

import (
	"runtime"
	"syscall"
	"unsafe"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

// Channel sends passthrough commands to one device node.
// It never holds the node open between exchanges.
type Channel struct {
	path    string
	request uintptr
	logger  *log.Entry
}

// NewAdminChannel returns a channel for admin commands on a controller node, e.g. /dev/nvme0
func NewAdminChannel(path string) *Channel {
	return &Channel{
		path:    path,
		request: ioctlAdminCmd,
		logger:  log.WithFields(log.Fields{"Module": "AdminChannel", "device": path}),
	}
}

// NewIOChannel returns a channel for NVM commands on a namespace node, e.g. /dev/nvme0n1
func NewIOChannel(path string) *Channel {
	return &Channel{
		path:    path,
		request: ioctlIOCmd,
		logger:  log.WithFields(log.Fields{"Module": "IOChannel", "device": path}),
	}
}

func (c *Channel) Path() string {
	return c.path
}

// Exchange issues req and returns the response buffer with the result word
func (c *Channel) Exchange(req *Request) (Response, error) {
	var resp Response

	c.logger.WithField("command", req.Command.String()).Debug("Sending passthrough command")
	err := c.withDevice(func(fd int) error {
		status, errno := ioctl(fd, c.request, uintptr(unsafe.Pointer(&req.Command)))
		// the kernel writes into req.Data through the raw address in the descriptor
		runtime.KeepAlive(req.Data)
		if errno != 0 {
			return &errdefs.DeviceError{Op: "ioctl", Path: c.path, Errno: errno}
		}
		if status != 0 {
			return &errdefs.DeviceError{Op: "ioctl", Path: c.path, Errno: syscall.EIO, Status: uint32(status)}
		}
		return nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("opcode", req.Command.Opcode).Error("Failed to send passthrough command")
		return resp, err
	}

	resp.Data = req.Data[:req.Command.DataLen]
	resp.Result = req.Command.Result
	return resp, nil
}

// Reset issues a controller reset
func (c *Channel) Reset() error {
	return c.simpleIoctl("reset", ioctlReset)
}

// Rescan asks the driver to rescan namespaces so new block nodes appear
func (c *Channel) Rescan() error {
	return c.simpleIoctl("rescan", ioctlRescan)
}

func (c *Channel) simpleIoctl(op string, request uintptr) error {
	return c.withDevice(func(fd int) error {
		status, errno := ioctl(fd, request, 0)
		if errno != 0 {
			return &errdefs.DeviceError{Op: op, Path: c.path, Errno: errno}
		}
		if status != 0 {
			return &errdefs.DeviceError{Op: op, Path: c.path, Errno: syscall.EIO, Status: uint32(status)}
		}
		return nil
	})
}

// withDevice opens the node, runs fn and closes the node on every path out
func (c *Channel) withDevice(fn func(fd int) error) (err error) {
	fd, err := unix.Open(c.path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return &errdefs.DeviceError{Op: "open", Path: c.path, Errno: toErrno(err)}
	}
	defer func() {
		if cerr := unix.Close(fd); cerr != nil {
			c.logger.WithError(cerr).Warn("Failed to close device")
			if err == nil {
				err = &errdefs.DeviceError{Op: "close", Path: c.path, Errno: toErrno(cerr)}
			}
		}
	}()

	return fn(fd)
}

func ioctl(fd int, request, arg uintptr) (uintptr, syscall.Errno) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), request, arg)
	return r, errno
}

func toErrno(err error) syscall.Errno {
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}
