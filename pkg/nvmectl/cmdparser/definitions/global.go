package definitions

import (
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/hwameistor/nvmectl/pkg/exechelper/basicexecutor"
	"github.com/hwameistor/nvmectl/pkg/nvme/controller"
	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvme/lifecycle"
)

// Global settings, Read from nvmectl flags
var (
	Debug          bool
	LogFile        string
	Discovery      string
	CommandTimeout time.Duration
)

// NewEnumerator returns the enumerator selected by --discovery
func NewEnumerator() (discovery.Enumerator, error) {
	return NewEnumeratorFor(Discovery)
}

// NewEnumeratorFor returns the enumerator for a discovery kind, udev or nvme-cli
func NewEnumeratorFor(kind string) (discovery.Enumerator, error) {
	switch kind {
	case lifecycle.DiscoveryUdev:
		return discovery.NewUdevEnumerator(), nil
	case lifecycle.DiscoveryNVMeCLI:
		return discovery.NewCLIEnumerator(basicexecutor.New()), nil
	}
	return nil, errors.Errorf("unknown discovery %q", kind)
}

// OpenController returns a passthrough client for dev using the global command timeout
func OpenController(dev discovery.Device) controller.Interface {
	return controller.New(dev.Path, controller.WithTimeouts(uint32(CommandTimeout/time.Millisecond), 0))
}

// SelectDevice picks the controller named by --device, or resolves --serial
func SelectDevice(serial, path string) (discovery.Device, error) {
	if path != "" {
		return discovery.Device{Name: filepath.Base(path), Path: path}, nil
	}
	if serial == "" {
		return discovery.Device{}, errors.New("either --serial or --device is required")
	}

	enum, err := NewEnumerator()
	if err != nil {
		return discovery.Device{}, err
	}
	return discovery.Resolve(enum, serial)
}
