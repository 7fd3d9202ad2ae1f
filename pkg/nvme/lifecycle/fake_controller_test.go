package lifecycle

import (
	"errors"

	"github.com/hwameistor/nvmectl/pkg/nvme/admin"
	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

// fakeController keeps SMART counters in step with the commands it receives
type fakeController struct {
	health     smart.HealthLog
	namespaces map[uint32]namespace.Record
	threshold  uint16
	nextNSID   uint32

	// extraReadsPerRead is added to the read counter on every read
	extraReadsPerRead uint64
	// reactToThreshold raises the temperature warning when the threshold drops below the temperature
	reactToThreshold bool

	smartErr        error
	thresholdErr    error
	setThresholdErr error
	createErr       error
	// identifyData is returned by IdentifyController, zeros when nil
	identifyData []byte
	// readPanic is raised from ReadBlock when set
	readPanic interface{}

	thresholdSets []uint16
	calls         []string
	lbas          []uint64
}

func newFakeController() *fakeController {
	return &fakeController{
		health: smart.HealthLog{
			CompositeTemperatureKelvin: 310,
			AvailableSparePercent:      100,
			SpareThresholdPercent:      10,
			PowerOnHours:               12,
			HostReadCommands:           1000,
			HostWriteCommands:          2000,
		},
		namespaces:       map[uint32]namespace.Record{1: {SizeBlocks: 1 << 20, CapacityBlocks: 1 << 20, LBADataSize: 512}},
		threshold:        358,
		nextNSID:         1,
		reactToThreshold: true,
	}
}

func (f *fakeController) Path() string { return "/dev/nvme0" }

func (f *fakeController) IdentifyController() ([]byte, error) {
	f.calls = append(f.calls, "id-ctrl")
	if f.identifyData != nil {
		return f.identifyData, nil
	}
	return make([]byte, admin.IdentifyDataLen), nil
}

func (f *fakeController) IdentifyNamespace(nsid uint32) (namespace.Record, error) {
	f.calls = append(f.calls, "identify")
	record, ok := f.namespaces[nsid]
	if !ok {
		return record, errors.New("invalid namespace")
	}
	return record, nil
}

func (f *fakeController) SmartLog() (smart.HealthLog, error) {
	f.calls = append(f.calls, "smart")
	if f.smartErr != nil {
		return smart.HealthLog{}, f.smartErr
	}
	return f.health, nil
}

func (f *fakeController) TemperatureThreshold() (uint16, error) {
	if f.thresholdErr != nil {
		return 0, f.thresholdErr
	}
	return f.threshold, nil
}

func (f *fakeController) SetTemperatureThreshold(kelvin uint16) error {
	f.calls = append(f.calls, "set threshold")
	f.thresholdSets = append(f.thresholdSets, kelvin)
	if f.setThresholdErr != nil {
		return f.setThresholdErr
	}
	f.threshold = kelvin
	if f.reactToThreshold {
		if kelvin <= f.health.CompositeTemperatureKelvin {
			f.health.CriticalWarning |= smart.WarnTemperatureThreshold
		} else {
			f.health.CriticalWarning &^= smart.WarnTemperatureThreshold
		}
	}
	return nil
}

func (f *fakeController) DeleteNamespace(nsid uint32) error {
	f.calls = append(f.calls, "delete")
	delete(f.namespaces, nsid)
	return nil
}

func (f *fakeController) CreateNamespace(geometry namespace.Geometry) (uint32, error) {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return 0, f.createErr
	}
	nsid := f.nextNSID
	f.namespaces[nsid] = namespace.Record{
		SizeBlocks:     geometry.SizeBlocks,
		CapacityBlocks: geometry.CapacityBlocks,
		FormatIndex:    geometry.FormatIndex,
		ProtectionType: geometry.ProtectionType,
		LBADataSize:    4096,
	}
	return nsid, nil
}

func (f *fakeController) AttachNamespace(_ uint32, _ uint16) error {
	f.calls = append(f.calls, "attach")
	return nil
}

func (f *fakeController) Format(_ uint32, _ uint8, _ uint8) error {
	f.calls = append(f.calls, "format")
	return nil
}

func (f *fakeController) ReadBlock(_ uint32, lba uint64, blockSize int) ([]byte, error) {
	if f.readPanic != nil {
		panic(f.readPanic)
	}
	f.lbas = append(f.lbas, lba)
	f.health.HostReadCommands += 1 + f.extraReadsPerRead
	return make([]byte, blockSize), nil
}

func (f *fakeController) WriteBlock(_ uint32, lba uint64, _ []byte) error {
	f.lbas = append(f.lbas, lba)
	f.health.HostWriteCommands++
	return nil
}

func (f *fakeController) Reset() error { return nil }

func (f *fakeController) Rescan() error {
	f.calls = append(f.calls, "rescan")
	// the kernel partition scan reads the new namespace
	f.health.HostReadCommands += 3
	return nil
}

func (f *fakeController) Passthru(_ admin.Params) (admin.Response, error) {
	return admin.Response{}, nil
}
