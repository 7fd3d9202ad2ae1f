package controller

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/hwameistor/nvmectl/pkg/nvme/admin"
	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

const (
	identifyCNSNamespace  = 0x00
	identifyCNSController = 0x01

	// number of dwords minus one for a 512 byte log page
	smartLogNumDwords = (smart.LogSize / 4) - 1

	selCreate = 0
	selDelete = 1
	selAttach = 0

	nsManagementDataLen = admin.IdentifyDataLen
	controllerListLen   = admin.IdentifyDataLen

	thresholdDataLen = 4
)

// Controller issues typed admin and NVM commands to one controller, e.g. /dev/nvme0
type Controller struct {
	path             string
	admin            admin.Exchanger
	resetter         admin.Resetter
	ioFor            func(nsid uint32) admin.Exchanger
	commandTimeoutMs uint32
	formatTimeoutMs  uint32
	logger           *log.Entry
}

var _ Interface = (*Controller)(nil)

// New returns a controller backed by passthrough channels on path unless options replace them
func New(path string, opts ...Option) *Controller {
	channel := admin.NewAdminChannel(path)
	c := &Controller{
		path:     path,
		admin:    channel,
		resetter: channel,
		logger:   log.WithFields(log.Fields{"Module": "Controller", "device": path}),
	}
	c.ioFor = func(nsid uint32) admin.Exchanger {
		return admin.NewIOChannel(NamespacePath(c.path, nsid))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NamespacePath returns the block node of nsid on the controller node path
func NamespacePath(controllerPath string, nsid uint32) string {
	return fmt.Sprintf("%sn%d", controllerPath, nsid)
}

func (c *Controller) Path() string {
	return c.path
}

func (c *Controller) IdentifyController() ([]byte, error) {
	resp, err := c.exchange("identify controller", c.admin, admin.Params{
		Opcode:    admin.OpIdentify,
		DataLen:   admin.IdentifyDataLen,
		Cdw10:     identifyCNSController,
		TimeoutMs: c.commandTimeoutMs,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Controller) IdentifyNamespace(nsid uint32) (namespace.Record, error) {
	resp, err := c.exchange("identify namespace", c.admin, admin.Params{
		Opcode:      admin.OpIdentify,
		NamespaceID: nsid,
		DataLen:     admin.IdentifyDataLen,
		Cdw10:       identifyCNSNamespace,
		TimeoutMs:   c.commandTimeoutMs,
	})
	if err != nil {
		return namespace.Record{}, err
	}
	record, err := namespace.Decode(resp.Data)
	if err != nil {
		return record, errors.Wrapf(err, "identify namespace %d on %s", nsid, c.path)
	}
	return record, nil
}

func (c *Controller) SmartLog() (smart.HealthLog, error) {
	resp, err := c.exchange("get smart log", c.admin, admin.Params{
		Opcode:      admin.OpGetLogPage,
		NamespaceID: admin.NamespaceAll,
		DataLen:     admin.SmartLogDataLen,
		Cdw10:       admin.LogPageSmartHealth | smartLogNumDwords<<16,
		TimeoutMs:   c.commandTimeoutMs,
	})
	if err != nil {
		return smart.HealthLog{}, err
	}
	l, err := smart.Decode(resp.Data)
	if err != nil {
		return l, errors.Wrapf(err, "smart log on %s", c.path)
	}
	return l, nil
}

// TemperatureThreshold returns the current composite over-temperature threshold in Kelvin
func (c *Controller) TemperatureThreshold() (uint16, error) {
	resp, err := c.exchange("get temperature threshold", c.admin, admin.Params{
		Opcode:    admin.OpGetFeatures,
		DataLen:   thresholdDataLen,
		Cdw10:     admin.FeatureTempThreshold,
		TimeoutMs: c.commandTimeoutMs,
	})
	if err != nil {
		return 0, err
	}
	if kelvin := uint16(resp.Result & 0xFFFF); kelvin != 0 {
		return kelvin, nil
	}
	if len(resp.Data) < thresholdDataLen {
		return 0, &errdefs.FormatError{Decoder: "temperature threshold", Want: "4", Got: len(resp.Data)}
	}
	return uint16(binary.LittleEndian.Uint32(resp.Data) & 0xFFFF), nil
}

func (c *Controller) SetTemperatureThreshold(kelvin uint16) error {
	payload := make([]byte, thresholdDataLen)
	binary.LittleEndian.PutUint32(payload, uint32(kelvin))
	_, err := c.exchange("set temperature threshold", c.admin, admin.Params{
		Opcode:    admin.OpSetFeatures,
		DataLen:   thresholdDataLen,
		Cdw10:     admin.FeatureTempThreshold,
		Cdw11:     uint32(kelvin),
		TimeoutMs: c.commandTimeoutMs,
		Payload:   payload,
	})
	return err
}

// DeleteNamespace deletes nsid, admin.NamespaceAll deletes every namespace
func (c *Controller) DeleteNamespace(nsid uint32) error {
	_, err := c.exchange("delete namespace", c.admin, admin.Params{
		Opcode:      admin.OpNamespaceManage,
		NamespaceID: nsid,
		Cdw10:       selDelete,
		TimeoutMs:   c.commandTimeoutMs,
	})
	return err
}

// CreateNamespace creates a namespace shaped like geometry and returns its id
func (c *Controller) CreateNamespace(geometry namespace.Geometry) (uint32, error) {
	payload := make([]byte, nsManagementDataLen)
	binary.LittleEndian.PutUint64(payload[0:], geometry.SizeBlocks)
	binary.LittleEndian.PutUint64(payload[8:], geometry.CapacityBlocks)
	payload[26] = geometry.FormatIndex & 0x0F
	payload[29] = geometry.ProtectionType

	resp, err := c.exchange("create namespace", c.admin, admin.Params{
		Opcode:    admin.OpNamespaceManage,
		DataLen:   nsManagementDataLen,
		Cdw10:     selCreate,
		TimeoutMs: c.commandTimeoutMs,
		Payload:   payload,
	})
	if err != nil {
		return 0, err
	}
	c.logger.WithField("nsid", resp.Result).Info("Namespace created")
	return resp.Result, nil
}

// AttachNamespace attaches nsid to a single controller
func (c *Controller) AttachNamespace(nsid uint32, controllerID uint16) error {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:], 1)
	binary.LittleEndian.PutUint16(payload[2:], controllerID)

	_, err := c.exchange("attach namespace", c.admin, admin.Params{
		Opcode:      admin.OpNamespaceAttach,
		NamespaceID: nsid,
		DataLen:     controllerListLen,
		Cdw10:       selAttach,
		TimeoutMs:   c.commandTimeoutMs,
		Payload:     payload,
	})
	return err
}

func (c *Controller) Format(nsid uint32, lbaFormat uint8, secureErase uint8) error {
	_, err := c.exchange("format", c.admin, admin.Params{
		Opcode:      admin.OpFormatNVM,
		NamespaceID: nsid,
		Cdw10:       uint32(lbaFormat&0x0F) | uint32(secureErase&0x07)<<9,
		TimeoutMs:   c.formatTimeoutMs,
	})
	return err
}

// ReadBlock reads one logical block of nsid
func (c *Controller) ReadBlock(nsid uint32, lba uint64, blockSize int) ([]byte, error) {
	resp, err := c.exchange("read", c.ioFor(nsid), admin.Params{
		Opcode:      admin.OpIORead,
		NamespaceID: nsid,
		DataLen:     blockSize,
		Cdw10:       uint32(lba),
		Cdw11:       uint32(lba >> 32),
		TimeoutMs:   c.commandTimeoutMs,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// WriteBlock writes data as one logical block of nsid
func (c *Controller) WriteBlock(nsid uint32, lba uint64, data []byte) error {
	_, err := c.exchange("write", c.ioFor(nsid), admin.Params{
		Opcode:      admin.OpIOWrite,
		NamespaceID: nsid,
		DataLen:     len(data),
		Cdw10:       uint32(lba),
		Cdw11:       uint32(lba >> 32),
		TimeoutMs:   c.commandTimeoutMs,
		Payload:     data,
	})
	return err
}

func (c *Controller) Reset() error {
	if err := c.resetter.Reset(); err != nil {
		return errors.Wrapf(err, "reset %s", c.path)
	}
	return nil
}

func (c *Controller) Rescan() error {
	if err := c.resetter.Rescan(); err != nil {
		return errors.Wrapf(err, "rescan %s", c.path)
	}
	return nil
}

func (c *Controller) Passthru(params admin.Params) (admin.Response, error) {
	return c.exchange("admin passthru", c.admin, params)
}

func (c *Controller) exchange(op string, exchanger admin.Exchanger, params admin.Params) (admin.Response, error) {
	req, err := admin.Build(params)
	if err != nil {
		return admin.Response{}, errors.Wrapf(err, "%s on %s", op, c.path)
	}

	resp, err := exchanger.Exchange(req)
	if err != nil {
		logger := c.logger.WithError(err).WithField("op", op)
		if errdefs.IsDevice(err) {
			logger.Debug("Command rejected by device")
		} else {
			logger.Error("Command failed")
		}
		return resp, errors.Wrapf(err, "%s on %s", op, c.path)
	}
	return resp, nil
}
