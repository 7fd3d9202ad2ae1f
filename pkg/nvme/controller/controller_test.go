package controller

import (
	"encoding/binary"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hwameistor/nvmectl/pkg/nvme/admin"
	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

// fakeExchanger records every request and answers with a canned result
type fakeExchanger struct {
	requests []*admin.Request
	payloads [][]byte
	fill     func(data []byte)
	result   uint32
	err      error
}

func (f *fakeExchanger) Exchange(req *admin.Request) (admin.Response, error) {
	f.requests = append(f.requests, req)
	f.payloads = append(f.payloads, append([]byte(nil), req.Data...))
	if f.err != nil {
		return admin.Response{}, f.err
	}
	if f.fill != nil {
		f.fill(req.Data)
	}
	return admin.Response{Data: req.Data, Result: f.result}, nil
}

func (f *fakeExchanger) last() admin.Command {
	return f.requests[len(f.requests)-1].Command
}

type fakeResetter struct {
	resets, rescans int
}

func (f *fakeResetter) Reset() error  { f.resets++; return nil }
func (f *fakeResetter) Rescan() error { f.rescans++; return nil }

func newTestController(ex *fakeExchanger, io map[uint32]*fakeExchanger) (*Controller, *fakeResetter) {
	resetter := &fakeResetter{}
	c := New("/dev/nvme0",
		WithAdminExchanger(ex),
		WithResetter(resetter),
		WithIOExchanger(func(nsid uint32) admin.Exchanger {
			if io[nsid] == nil {
				io[nsid] = &fakeExchanger{}
			}
			return io[nsid]
		}),
		WithTimeouts(1000, 60000),
	)
	return c, resetter
}

func TestSmartLog(t *testing.T) {
	ex := &fakeExchanger{fill: func(data []byte) {
		data[0] = 0x02
		binary.LittleEndian.PutUint64(data[160:], 3)
	}}
	c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

	l, err := c.SmartLog()
	assert.NoError(t, err)
	assert.True(t, l.CriticalWarning.TemperatureThreshold())
	assert.Equal(t, uint64(3), l.MediaErrors)

	cmd := ex.last()
	assert.Equal(t, admin.OpGetLogPage, cmd.Opcode)
	assert.Equal(t, admin.NamespaceAll, cmd.NamespaceID)
	assert.Equal(t, uint32(smart.LogSize), cmd.DataLen)
	assert.Equal(t, uint32(0x007F0002), cmd.Cdw10)
	assert.Equal(t, uint32(1000), cmd.TimeoutMs)
}

func TestIdentify(t *testing.T) {
	ex := &fakeExchanger{fill: func(data []byte) {
		binary.LittleEndian.PutUint64(data[0:], 4096)
		binary.LittleEndian.PutUint64(data[8:], 4096)
		data[128+2] = 9
	}}
	c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

	record, err := c.IdentifyNamespace(1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(4096), record.SizeBlocks)
	assert.Equal(t, uint32(512), record.LBADataSize)
	assert.Equal(t, admin.OpIdentify, ex.last().Opcode)
	assert.Equal(t, uint32(1), ex.last().NamespaceID)
	assert.Equal(t, uint32(0), ex.last().Cdw10)

	data, err := c.IdentifyController()
	assert.NoError(t, err)
	assert.Len(t, data, admin.IdentifyDataLen)
	assert.Equal(t, uint32(1), ex.last().Cdw10)
	assert.Equal(t, admin.NamespaceController, ex.last().NamespaceID)
}

func TestTemperatureThreshold(t *testing.T) {
	testCases := []struct {
		Description string
		Result      uint32
		Payload     []byte
		Expect      uint16
	}{
		{Description: "value in result word", Result: 0x00010160, Expect: 0x0160},
		{Description: "falls back to payload", Payload: []byte{0x5b, 0x01, 0, 0}, Expect: 0x015b},
		{Description: "both empty", Expect: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Description, func(t *testing.T) {
			ex := &fakeExchanger{result: testCase.Result, fill: func(data []byte) { copy(data, testCase.Payload) }}
			c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

			kelvin, err := c.TemperatureThreshold()
			assert.NoError(t, err)
			assert.Equal(t, testCase.Expect, kelvin)
			assert.Equal(t, admin.OpGetFeatures, ex.last().Opcode)
			assert.Equal(t, admin.FeatureTempThreshold, ex.last().Cdw10)
		})
	}
}

func TestSetTemperatureThreshold(t *testing.T) {
	ex := &fakeExchanger{}
	c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

	assert.NoError(t, c.SetTemperatureThreshold(300))
	cmd := ex.last()
	assert.Equal(t, admin.OpSetFeatures, cmd.Opcode)
	assert.Equal(t, uint32(4), cmd.Cdw10)
	assert.Equal(t, uint32(300), cmd.Cdw11)
	assert.Equal(t, []byte{0x2c, 0x01, 0, 0}, ex.payloads[0])
}

func TestNamespaceManagement(t *testing.T) {
	ex := &fakeExchanger{result: 7}
	c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

	assert.NoError(t, c.DeleteNamespace(admin.NamespaceAll))
	assert.Equal(t, admin.OpNamespaceManage, ex.last().Opcode)
	assert.Equal(t, admin.NamespaceAll, ex.last().NamespaceID)
	assert.Equal(t, uint32(1), ex.last().Cdw10)

	nsid, err := c.CreateNamespace(namespace.Geometry{SizeBlocks: 4096, CapacityBlocks: 2048, FormatIndex: 1, ProtectionType: 2})
	assert.NoError(t, err)
	assert.Equal(t, uint32(7), nsid)
	assert.Equal(t, uint32(0), ex.last().Cdw10)
	payload := ex.payloads[1]
	assert.Len(t, payload, admin.IdentifyDataLen)
	assert.Equal(t, uint64(4096), binary.LittleEndian.Uint64(payload[0:]))
	assert.Equal(t, uint64(2048), binary.LittleEndian.Uint64(payload[8:]))
	assert.Equal(t, byte(1), payload[26])
	assert.Equal(t, byte(2), payload[29])

	assert.NoError(t, c.AttachNamespace(7, 3))
	assert.Equal(t, admin.OpNamespaceAttach, ex.last().Opcode)
	assert.Equal(t, uint32(7), ex.last().NamespaceID)
	assert.Equal(t, []byte{1, 0, 3, 0}, ex.payloads[2][:4])
}

func TestFormat(t *testing.T) {
	ex := &fakeExchanger{}
	c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

	assert.NoError(t, c.Format(1, 2, 1))
	cmd := ex.last()
	assert.Equal(t, admin.OpFormatNVM, cmd.Opcode)
	assert.Equal(t, uint32(2|1<<9), cmd.Cdw10)
	assert.Equal(t, uint32(60000), cmd.TimeoutMs)
	assert.Zero(t, cmd.DataLen)
}

func TestBlockIO(t *testing.T) {
	ex := &fakeExchanger{}
	io := map[uint32]*fakeExchanger{}
	c, _ := newTestController(ex, io)

	data, err := c.ReadBlock(2, 0x100000002, 512)
	assert.NoError(t, err)
	assert.Len(t, data, 512)
	read := io[2].last()
	assert.Equal(t, admin.OpIORead, read.Opcode)
	assert.Equal(t, uint32(2), read.Cdw10)
	assert.Equal(t, uint32(1), read.Cdw11)
	assert.Zero(t, read.Cdw12)

	assert.NoError(t, c.WriteBlock(2, 5, make([]byte, 512)))
	write := io[2].last()
	assert.Equal(t, admin.OpIOWrite, write.Opcode)
	assert.Equal(t, uint32(5), write.Cdw10)
	assert.Equal(t, uint32(512), write.DataLen)

	assert.Empty(t, ex.requests)
	assert.Equal(t, "/dev/nvme0n2", NamespacePath(c.Path(), 2))
}

func TestResetAndRescan(t *testing.T) {
	c, resetter := newTestController(&fakeExchanger{}, map[uint32]*fakeExchanger{})
	assert.NoError(t, c.Reset())
	assert.NoError(t, c.Rescan())
	assert.Equal(t, 1, resetter.resets)
	assert.Equal(t, 1, resetter.rescans)
}

func TestDeviceErrorIsKept(t *testing.T) {
	ex := &fakeExchanger{err: &errdefs.DeviceError{Op: "ioctl", Path: "/dev/nvme0", Errno: syscall.EIO, Status: 0x4002}}
	c, _ := newTestController(ex, map[uint32]*fakeExchanger{})

	_, err := c.SmartLog()
	assert.True(t, errdefs.IsDevice(err))
	assert.ErrorIs(t, err, syscall.EIO)

	_, err = c.Passthru(admin.Params{Opcode: "0x1ff"})
	assert.True(t, errdefs.IsEncoding(err))
}
