package admin

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unsafe"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

// Params describes one admin or I/O command before encoding
type Params struct {
	// Opcode accepts any integer kind or a hex string such as "0x06" or "06"
	Opcode      interface{}
	NamespaceID uint32
	DataLen     int
	Cdw10       uint32
	Cdw11       uint32
	Cdw12       uint32
	Cdw13       uint32
	Cdw14       uint32
	Cdw15       uint32
	TimeoutMs   uint32

	// Payload is copied to the front of the data buffer for host-to-controller transfers
	Payload []byte
}

// Request binds a descriptor to the buffer its data pointer refers to.
// A Request is consumed by exactly one exchange.
type Request struct {
	Command Command
	Data    []byte
}

// Build encodes params into a descriptor and allocates its response buffer
func Build(params Params) (*Request, error) {
	opcode, err := ParseOpcode(params.Opcode)
	if err != nil {
		return nil, err
	}
	if params.DataLen < 0 || int64(params.DataLen) > math.MaxUint32 {
		return nil, &errdefs.EncodingError{Field: "dataLen", Value: params.DataLen, Reason: "must fit in 32 bits"}
	}
	if len(params.Payload) > params.DataLen {
		return nil, &errdefs.EncodingError{
			Field:  "payload",
			Value:  len(params.Payload),
			Reason: fmt.Sprintf("longer than dataLen %d", params.DataLen),
		}
	}

	req := &Request{
		Command: Command{
			Opcode:      opcode,
			NamespaceID: params.NamespaceID,
			DataLen:     uint32(params.DataLen),
			Cdw10:       params.Cdw10,
			Cdw11:       params.Cdw11,
			Cdw12:       params.Cdw12,
			Cdw13:       params.Cdw13,
			Cdw14:       params.Cdw14,
			Cdw15:       params.Cdw15,
			TimeoutMs:   params.TimeoutMs,
		},
		Data: make([]byte, params.DataLen),
	}
	copy(req.Data, params.Payload)
	if len(req.Data) > 0 {
		req.Command.Addr = uint64(uintptr(unsafe.Pointer(&req.Data[0])))
	}

	return req, nil
}

// ParseOpcode converts numeric or hex-string opcodes into the one byte wire value
func ParseOpcode(v interface{}) (uint8, error) {
	var n int64
	switch op := v.(type) {
	case uint8:
		return op, nil
	case int:
		n = int64(op)
	case int8:
		n = int64(op)
	case int16:
		n = int64(op)
	case int32:
		n = int64(op)
	case int64:
		n = op
	case uint:
		if uint64(op) > math.MaxUint8 {
			return 0, &errdefs.EncodingError{Field: "opcode", Value: v, Reason: "does not fit in one byte"}
		}
		n = int64(op)
	case uint16:
		n = int64(op)
	case uint32:
		n = int64(op)
	case uint64:
		if op > math.MaxUint8 {
			return 0, &errdefs.EncodingError{Field: "opcode", Value: v, Reason: "does not fit in one byte"}
		}
		n = int64(op)
	case string:
		s := strings.ToLower(strings.TrimSpace(op))
		s = strings.TrimPrefix(s, "0x")
		parsed, err := strconv.ParseUint(s, 16, 64)
		if err != nil {
			return 0, &errdefs.EncodingError{Field: "opcode", Value: v, Reason: "not a hex number"}
		}
		if parsed > math.MaxUint8 {
			return 0, &errdefs.EncodingError{Field: "opcode", Value: v, Reason: "does not fit in one byte"}
		}
		return uint8(parsed), nil
	default:
		return 0, &errdefs.EncodingError{Field: "opcode", Value: v, Reason: fmt.Sprintf("unsupported type %T", v)}
	}

	if n < 0 || n > math.MaxUint8 {
		return 0, &errdefs.EncodingError{Field: "opcode", Value: v, Reason: "does not fit in one byte"}
	}
	return uint8(n), nil
}

// MarshalBinary returns the exact wire image of the descriptor
func (c *Command) MarshalBinary() ([]byte, error) {
	b := make([]byte, CommandSize)
	b[0] = c.Opcode
	b[1] = c.Flags
	binary.LittleEndian.PutUint16(b[2:], c.Reserved)
	binary.LittleEndian.PutUint32(b[4:], c.NamespaceID)
	binary.LittleEndian.PutUint32(b[8:], c.Cdw2)
	binary.LittleEndian.PutUint32(b[12:], c.Cdw3)
	binary.LittleEndian.PutUint64(b[16:], c.Metadata)
	binary.LittleEndian.PutUint64(b[24:], c.Addr)
	binary.LittleEndian.PutUint32(b[32:], c.MetadataLen)
	binary.LittleEndian.PutUint32(b[36:], c.DataLen)
	for i, dw := range c.commandDwords() {
		binary.LittleEndian.PutUint32(b[40+4*i:], dw)
	}
	binary.LittleEndian.PutUint32(b[64:], c.TimeoutMs)
	binary.LittleEndian.PutUint32(b[68:], c.Result)
	return b, nil
}

// UnmarshalBinary reads a descriptor back from its wire image
func (c *Command) UnmarshalBinary(b []byte) error {
	if len(b) != CommandSize {
		return &errdefs.FormatError{Decoder: "admin command", Want: strconv.Itoa(CommandSize), Got: len(b)}
	}
	c.Opcode = b[0]
	c.Flags = b[1]
	c.Reserved = binary.LittleEndian.Uint16(b[2:])
	c.NamespaceID = binary.LittleEndian.Uint32(b[4:])
	c.Cdw2 = binary.LittleEndian.Uint32(b[8:])
	c.Cdw3 = binary.LittleEndian.Uint32(b[12:])
	c.Metadata = binary.LittleEndian.Uint64(b[16:])
	c.Addr = binary.LittleEndian.Uint64(b[24:])
	c.MetadataLen = binary.LittleEndian.Uint32(b[32:])
	c.DataLen = binary.LittleEndian.Uint32(b[36:])
	c.Cdw10 = binary.LittleEndian.Uint32(b[40:])
	c.Cdw11 = binary.LittleEndian.Uint32(b[44:])
	c.Cdw12 = binary.LittleEndian.Uint32(b[48:])
	c.Cdw13 = binary.LittleEndian.Uint32(b[52:])
	c.Cdw14 = binary.LittleEndian.Uint32(b[56:])
	c.Cdw15 = binary.LittleEndian.Uint32(b[60:])
	c.TimeoutMs = binary.LittleEndian.Uint32(b[64:])
	c.Result = binary.LittleEndian.Uint32(b[68:])
	return nil
}

func (c *Command) commandDwords() [6]uint32 {
	return [6]uint32{c.Cdw10, c.Cdw11, c.Cdw12, c.Cdw13, c.Cdw14, c.Cdw15}
}

func (c Command) String() string {
	return fmt.Sprintf("opcode=%#02x nsid=%#x data_len=%d cdw10=%#x cdw11=%#x cdw12=%#x timeout_ms=%d",
		c.Opcode, c.NamespaceID, c.DataLen, c.Cdw10, c.Cdw11, c.Cdw12, c.TimeoutMs)
}
