package admin

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

func TestCommandLayoutMatchesKernel(t *testing.T) {
	var c Command
	assert.Equal(t, uintptr(CommandSize), unsafe.Sizeof(c))

	offsets := []struct {
		Field  string
		Offset uintptr
		Want   uintptr
	}{
		{"opcode", unsafe.Offsetof(c.Opcode), 0},
		{"flags", unsafe.Offsetof(c.Flags), 1},
		{"reserved", unsafe.Offsetof(c.Reserved), 2},
		{"nsid", unsafe.Offsetof(c.NamespaceID), 4},
		{"cdw2", unsafe.Offsetof(c.Cdw2), 8},
		{"cdw3", unsafe.Offsetof(c.Cdw3), 12},
		{"metadata", unsafe.Offsetof(c.Metadata), 16},
		{"addr", unsafe.Offsetof(c.Addr), 24},
		{"metadata_len", unsafe.Offsetof(c.MetadataLen), 32},
		{"data_len", unsafe.Offsetof(c.DataLen), 36},
		{"cdw10", unsafe.Offsetof(c.Cdw10), 40},
		{"cdw15", unsafe.Offsetof(c.Cdw15), 60},
		{"timeout_ms", unsafe.Offsetof(c.TimeoutMs), 64},
		{"result", unsafe.Offsetof(c.Result), 68},
	}
	for _, o := range offsets {
		assert.Equal(t, o.Want, o.Offset, o.Field)
	}

	// request code size field carries sizeof(struct nvme_passthru_cmd)
	assert.Equal(t, uintptr(CommandSize), (ioctlAdminCmd>>16)&0x3FFF)
	assert.Equal(t, uintptr(CommandSize), (ioctlIOCmd>>16)&0x3FFF)
}

func TestParseOpcode(t *testing.T) {
	testCases := []struct {
		Description string
		Opcode      interface{}
		Expect      uint8
		ExpectErr   bool
	}{
		{Description: "hex string with prefix", Opcode: "0x06", Expect: 6},
		{Description: "upper case hex string", Opcode: "0X0A", Expect: 0x0a},
		{Description: "hex string without prefix is base 16", Opcode: "10", Expect: 0x10},
		{Description: "plain int", Opcode: 0x80, Expect: 0x80},
		{Description: "uint8", Opcode: uint8(2), Expect: 2},
		{Description: "max value", Opcode: 255, Expect: 255},
		{Description: "too large int", Opcode: 256, ExpectErr: true},
		{Description: "negative int", Opcode: -1, ExpectErr: true},
		{Description: "too large hex string", Opcode: "0x100", ExpectErr: true},
		{Description: "garbage string", Opcode: "identify", ExpectErr: true},
		{Description: "unsupported type", Opcode: 6.0, ExpectErr: true},
		{Description: "too large uint64", Opcode: uint64(1 << 40), ExpectErr: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.Description, func(t *testing.T) {
			op, err := ParseOpcode(testCase.Opcode)
			if testCase.ExpectErr {
				assert.True(t, errdefs.IsEncoding(err))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, testCase.Expect, op)
		})
	}
}

func TestBuildRoundTripOpcode(t *testing.T) {
	req, err := Build(Params{Opcode: "0x06", DataLen: IdentifyDataLen, NamespaceID: 1, Cdw10: 1})
	assert.NoError(t, err)

	wire, err := req.Command.MarshalBinary()
	assert.NoError(t, err)
	assert.Len(t, wire, CommandSize)
	assert.Equal(t, byte(6), wire[0])
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(wire[4:]))
	assert.Equal(t, uint32(IdentifyDataLen), binary.LittleEndian.Uint32(wire[36:]))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(wire[40:]))

	var decoded Command
	assert.NoError(t, decoded.UnmarshalBinary(wire))
	assert.Equal(t, uint8(6), decoded.Opcode)
	assert.Equal(t, req.Command, decoded)
}

func TestBuildBindsBuffer(t *testing.T) {
	req, err := Build(Params{Opcode: OpGetLogPage, DataLen: SmartLogDataLen})
	assert.NoError(t, err)
	assert.Len(t, req.Data, SmartLogDataLen)
	assert.Equal(t, uint64(uintptr(unsafe.Pointer(&req.Data[0]))), req.Command.Addr)
	assert.Equal(t, uint32(SmartLogDataLen), req.Command.DataLen)

	empty, err := Build(Params{Opcode: OpFormatNVM})
	assert.NoError(t, err)
	assert.Empty(t, empty.Data)
	assert.Zero(t, empty.Command.Addr)
}

func TestBuildCopiesPayload(t *testing.T) {
	req, err := Build(Params{Opcode: OpSetFeatures, DataLen: 4, Payload: []byte{0x5a, 0x01}})
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x5a, 0x01, 0, 0}, req.Data)

	_, err = Build(Params{Opcode: OpSetFeatures, DataLen: 1, Payload: []byte{1, 2}})
	assert.True(t, errdefs.IsEncoding(err))

	_, err = Build(Params{Opcode: OpSetFeatures, DataLen: -1})
	assert.True(t, errdefs.IsEncoding(err))
}

func TestUnmarshalRejectsShortDescriptor(t *testing.T) {
	var c Command
	err := c.UnmarshalBinary(make([]byte, 64))
	assert.True(t, errdefs.IsFormat(err))
}
