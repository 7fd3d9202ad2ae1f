package discovery

import (
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

// Device is one attached NVMe controller
type Device struct {
	// Name is the kernel name, e.g. nvme0
	Name string `json:"name"`
	// Path is the controller character node, e.g. /dev/nvme0
	Path string `json:"path"`
	// SysPath is the controller directory under /sys, empty when unknown
	SysPath  string `json:"syspath,omitempty"`
	Serial   string `json:"serial"`
	Model    string `json:"model"`
	Firmware string `json:"firmware"`
}

// Enumerator lists the controllers attached to this host
type Enumerator interface {
	List() ([]Device, error)
}

// Resolve scans the attached controllers once and returns the one whose serial is serial
func Resolve(enum Enumerator, serial string) (Device, error) {
	want := strings.TrimSpace(serial)
	devices, err := enum.List()
	if err != nil {
		return Device{}, errors.Wrap(err, "list nvme controllers")
	}

	for _, dev := range devices {
		if strings.TrimSpace(dev.Serial) == want {
			log.WithFields(log.Fields{"Module": "Discovery", "serial": want, "device": dev.Path}).Debug("Resolved controller")
			return dev, nil
		}
	}
	return Device{}, &errdefs.NotFoundError{Serial: want}
}
