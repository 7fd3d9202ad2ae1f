package namespace

import (
	"encoding/binary"
	"fmt"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

const (
	// MinRecordSize covers every field up to and including the protection byte
	MinRecordSize = 31

	lbaFormatTableOffset = 128
	lbaFormatEntrySize   = 4
)

// Record is the decoded part of an identify namespace response
type Record struct {
	SizeBlocks     uint64 `json:"nsze"`
	CapacityBlocks uint64 `json:"ncap"`
	UsedBlocks     uint64 `json:"nuse"`
	FormatIndex    uint8  `json:"flbas"`
	ProtectionType uint8  `json:"protection_type"`

	// LBAFormatCount is the number of supported LBA formats
	LBAFormatCount int `json:"lba_format_count"`
	// LBADataSize is the block size in bytes of the selected format, 0 when unknown
	LBADataSize uint32 `json:"lba_data_size"`
}

// Decode reads sizes, format index and protection type from an identify namespace buffer.
// Values are taken as-is, nothing is checked for plausibility.
func Decode(data []byte) (Record, error) {
	var r Record
	if len(data) < MinRecordSize {
		return r, &errdefs.FormatError{Decoder: "identify namespace", Want: fmt.Sprintf(">=%d", MinRecordSize), Got: len(data)}
	}

	r.SizeBlocks = binary.LittleEndian.Uint64(data[0:8])
	r.CapacityBlocks = binary.LittleEndian.Uint64(data[8:16])
	r.UsedBlocks = binary.LittleEndian.Uint64(data[16:24])
	r.FormatIndex = data[26] & 0x0F
	r.ProtectionType = data[30]

	// byte 25 is zero based
	r.LBAFormatCount = int(data[25]) + 1
	entry := lbaFormatTableOffset + lbaFormatEntrySize*int(r.FormatIndex)
	if len(data) >= entry+lbaFormatEntrySize {
		if lbads := data[entry+2]; lbads > 0 && lbads < 32 {
			r.LBADataSize = 1 << lbads
		}
	}

	return r, nil
}

// Geometry is the shape a namespace is created with and later checked against
type Geometry struct {
	SizeBlocks     uint64 `yaml:"sizeBlocks" json:"size_blocks"`
	CapacityBlocks uint64 `yaml:"capacityBlocks" json:"capacity_blocks"`
	FormatIndex    uint8  `yaml:"formatIndex" json:"format_index"`
	ProtectionType uint8  `yaml:"protectionType" json:"protection_type"`
}

// Geometry returns the part of the record comparable to a target geometry
func (r Record) Geometry() Geometry {
	return Geometry{
		SizeBlocks:     r.SizeBlocks,
		CapacityBlocks: r.CapacityBlocks,
		FormatIndex:    r.FormatIndex,
		ProtectionType: r.ProtectionType,
	}
}

// Mismatch is one field that differs from the target
type Mismatch struct {
	Field    string
	Expected uint64
	Actual   uint64
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %d, got %d", m.Field, m.Expected, m.Actual)
}

// Matches compares the record with want and reports every differing field
func (r Record) Matches(want Geometry) []Mismatch {
	var mismatches []Mismatch
	check := func(field string, expected, actual uint64) {
		if expected != actual {
			mismatches = append(mismatches, Mismatch{Field: field, Expected: expected, Actual: actual})
		}
	}
	check("sizeBlocks", want.SizeBlocks, r.SizeBlocks)
	check("capacityBlocks", want.CapacityBlocks, r.CapacityBlocks)
	check("formatIndex", uint64(want.FormatIndex), uint64(r.FormatIndex))
	check("protectionType", uint64(want.ProtectionType), uint64(r.ProtectionType))
	return mismatches
}
