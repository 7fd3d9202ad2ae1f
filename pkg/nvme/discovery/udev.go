package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"
	log "github.com/sirupsen/logrus"
)

const defaultSysRoot = "/sys"

var controllerName = regexp.MustCompile(`^nvme\d+$`)

// UdevEnumerator crawls udev for nvme class devices and reads their identity from sysfs
type UdevEnumerator struct {
	sysRoot string
	devRoot string
	logger  *log.Entry
}

func NewUdevEnumerator() *UdevEnumerator {
	return &UdevEnumerator{
		sysRoot: defaultSysRoot,
		devRoot: "/dev",
		logger:  log.WithField("Module", "UdevEnumerator"),
	}
}

// ruleForController matches controller nodes only; namespaces live in the block subsystem
func ruleForController() netlink.Matcher {
	return &netlink.RuleDefinitions{
		Rules: []netlink.RuleDefinition{
			{
				Env: map[string]string{
					"SUBSYSTEM": "nvme",
				},
			},
		},
	}
}

func (e *UdevEnumerator) List() ([]Device, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error)
	crawler.ExistingDevices(queue, errs, ruleForController())

	var devices []Device
	for {
		select {
		case device, ok := <-queue:
			if !ok {
				sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
				e.logger.WithField("count", len(devices)).Debug("Finished crawling nvme controllers")
				return devices, nil
			}
			dev, keep := e.deviceFromUevent(device.KObj, device.Env)
			if !keep {
				e.logger.Debugf("Device:%+v is drop", device)
				continue
			}
			devices = append(devices, dev)

		case err := <-errs:
			e.logger.WithError(err).Error("Failed to crawl nvme controllers")
			return nil, err
		}
	}
}

// deviceFromUevent builds a Device out of one crawled uevent, reading identity attributes under kobj
func (e *UdevEnumerator) deviceFromUevent(kobj string, env map[string]string) (Device, bool) {
	name := env["DEVNAME"]
	if name == "" {
		name = filepath.Base(kobj)
	}
	name = strings.TrimPrefix(name, "/dev/")
	// fabrics and per-namespace char nodes share the subsystem
	if !controllerName.MatchString(name) {
		return Device{}, false
	}

	sysPath := addSysPrefix(e.sysRoot, kobj)
	return Device{
		Name:     name,
		Path:     filepath.Join(e.devRoot, name),
		SysPath:  sysPath,
		Serial:   readAttribute(sysPath, "serial"),
		Model:    readAttribute(sysPath, "model"),
		Firmware: readAttribute(sysPath, "firmware_rev"),
	}, true
}

func addSysPrefix(sysRoot, kobj string) string {
	if strings.HasPrefix(kobj, sysRoot+"/") {
		return kobj
	}
	return filepath.Join(sysRoot, kobj)
}

// readAttribute returns the trimmed content of a sysfs attribute, empty when missing
func readAttribute(sysPath, attr string) string {
	b, err := os.ReadFile(filepath.Join(sysPath, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
