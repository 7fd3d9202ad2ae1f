package controller

import (
	"github.com/hwameistor/nvmectl/pkg/nvme/admin"
	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

// Interface is the set of typed NVMe operations available on one controller
type Interface interface {
	Path() string

	IdentifyController() ([]byte, error)
	IdentifyNamespace(nsid uint32) (namespace.Record, error)
	SmartLog() (smart.HealthLog, error)

	TemperatureThreshold() (uint16, error)
	SetTemperatureThreshold(kelvin uint16) error

	DeleteNamespace(nsid uint32) error
	CreateNamespace(geometry namespace.Geometry) (uint32, error)
	AttachNamespace(nsid uint32, controllerID uint16) error
	Format(nsid uint32, lbaFormat uint8, secureErase uint8) error

	ReadBlock(nsid uint32, lba uint64, blockSize int) ([]byte, error)
	WriteBlock(nsid uint32, lba uint64, data []byte) error

	Reset() error
	Rescan() error

	// Passthru sends an arbitrary admin command
	Passthru(params admin.Params) (admin.Response, error)
}

// Option configures a Controller
type Option func(*Controller)

// WithAdminExchanger replaces the admin channel, e.g. with a fake in tests
func WithAdminExchanger(exchanger admin.Exchanger) Option {
	return func(c *Controller) {
		c.admin = exchanger
	}
}

// WithIOExchanger replaces how the namespace channels are opened
func WithIOExchanger(ioFor func(nsid uint32) admin.Exchanger) Option {
	return func(c *Controller) {
		c.ioFor = ioFor
	}
}

func WithResetter(resetter admin.Resetter) Option {
	return func(c *Controller) {
		c.resetter = resetter
	}
}

// WithTimeouts sets the descriptor timeouts in milliseconds; 0 keeps the driver default
func WithTimeouts(commandMs, formatMs uint32) Option {
	return func(c *Controller) {
		c.commandTimeoutMs = commandMs
		c.formatTimeoutMs = formatMs
	}
}
