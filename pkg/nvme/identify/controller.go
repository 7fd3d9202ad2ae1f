package identify

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

// ControllerDataSize is the size of an identify controller (CNS 1) response
const ControllerDataSize = 4096

// Field is a named byte range of the identify controller data structure
type Field struct {
	Name   string
	Offset int
	Length int
}

// controllerFields lists the ranges compared by name; anything else is compared as raw bytes
var controllerFields = []Field{
	{"vid", 0, 2},
	{"ssvid", 2, 2},
	{"sn", 4, 20},
	{"mn", 24, 40},
	{"fr", 64, 8},
	{"rab", 72, 1},
	{"ieee", 73, 3},
	{"cmic", 76, 1},
	{"mdts", 77, 1},
	{"cntlid", 78, 2},
	{"ver", 80, 4},
	{"rtd3r", 84, 4},
	{"rtd3e", 88, 4},
	{"oaes", 92, 4},
	{"ctratt", 96, 4},
	{"rrls", 100, 2},
	{"cntrltype", 111, 1},
	{"fguid", 112, 16},
	{"oacs", 256, 2},
	{"acl", 258, 1},
	{"aerl", 259, 1},
	{"frmw", 260, 1},
	{"lpa", 261, 1},
	{"elpe", 262, 1},
	{"npss", 263, 1},
	{"avscc", 264, 1},
	{"apsta", 265, 1},
	{"wctemp", 266, 2},
	{"cctemp", 268, 2},
	{"mtfa", 270, 2},
	{"hmpre", 272, 4},
	{"hmmin", 276, 4},
	{"tnvmcap", 280, 16},
	{"unvmcap", 296, 16},
	{"rpmbs", 312, 4},
	{"edstt", 316, 2},
	{"dsto", 318, 1},
	{"fwug", 319, 1},
	{"kas", 320, 2},
	{"hctma", 322, 2},
	{"mntmt", 324, 2},
	{"mxtmt", 326, 2},
	{"sanicap", 328, 4},
	{"sqes", 512, 1},
	{"cqes", 513, 1},
	{"maxcmd", 514, 2},
	{"nn", 516, 4},
	{"oncs", 520, 2},
	{"fuses", 522, 2},
	{"fna", 524, 1},
	{"vwc", 525, 1},
	{"awun", 526, 2},
	{"awupf", 528, 2},
	{"nvscc", 530, 1},
	{"nwpc", 531, 1},
	{"acwu", 532, 2},
	{"sgls", 536, 4},
	{"mnan", 540, 4},
	{"subnqn", 768, 256},
	{"psd", 2048, 1024},
	{"vs", 3072, 1024},
}

// DefaultIgnoredFields differ between units of the same product and are skipped by Compare
var DefaultIgnoredFields = []string{"sn", "fguid", "unvmcap", "subnqn"}

// Controller holds the human readable part of an identify controller response
type Controller struct {
	VendorID          uint16 `json:"vid"`
	SubsystemVendorID uint16 `json:"ssvid"`
	Serial            string `json:"sn"`
	Model             string `json:"mn"`
	Firmware          string `json:"fr"`
	ControllerID      uint16 `json:"cntlid"`
	Version           string `json:"ver"`
	NamespaceCount    uint32 `json:"nn"`
	// WarningTempKelvin and CriticalTempKelvin are the composite temperature thresholds
	WarningTempKelvin  uint16 `json:"wctemp"`
	CriticalTempKelvin uint16 `json:"cctemp"`
	// TotalCapacityBytes is the low 8 bytes of tnvmcap
	TotalCapacityBytes uint64 `json:"tnvmcap"`
}

// DecodeController reads an identify controller response. It keeps no state between calls.
func DecodeController(data []byte) (Controller, error) {
	var c Controller
	if len(data) != ControllerDataSize {
		return c, &errdefs.FormatError{Decoder: "identify controller", Want: strconv.Itoa(ControllerDataSize), Got: len(data)}
	}

	c.VendorID = binary.LittleEndian.Uint16(data[0:2])
	c.SubsystemVendorID = binary.LittleEndian.Uint16(data[2:4])
	c.Serial = asciiField(data[4:24])
	c.Model = asciiField(data[24:64])
	c.Firmware = asciiField(data[64:72])
	c.ControllerID = binary.LittleEndian.Uint16(data[78:80])
	c.Version = version(binary.LittleEndian.Uint32(data[80:84]))
	c.WarningTempKelvin = binary.LittleEndian.Uint16(data[266:268])
	c.CriticalTempKelvin = binary.LittleEndian.Uint16(data[268:270])
	c.TotalCapacityBytes = binary.LittleEndian.Uint64(data[280:288])
	c.NamespaceCount = binary.LittleEndian.Uint32(data[516:520])
	return c, nil
}

// asciiField trims the space padding of fixed width strings
func asciiField(b []byte) string {
	return strings.TrimSpace(string(bytes.TrimRight(b, "\x00")))
}

func version(v uint32) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d.%d.%d", v>>16, (v>>8)&0xFF, v&0xFF)
}

// Mismatch is one byte range that differs from the reference
type Mismatch struct {
	// Field is the field name, or "bytes" for a range outside the named fields
	Field    string
	Offset   int
	Length   int
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s [%d:%d]: expected %s, got %s", m.Field, m.Offset, m.Offset+m.Length, m.Expected, m.Actual)
}

// Compare reports every byte range of got that differs from reference, skipping ignored fields.
// Named fields are reported whole; differing bytes elsewhere are grouped into contiguous ranges.
func Compare(reference, got []byte, ignored ...string) ([]Mismatch, error) {
	if len(reference) != ControllerDataSize {
		return nil, &errdefs.FormatError{Decoder: "reference identify controller", Want: strconv.Itoa(ControllerDataSize), Got: len(reference)}
	}
	if len(got) != ControllerDataSize {
		return nil, &errdefs.FormatError{Decoder: "identify controller", Want: strconv.Itoa(ControllerDataSize), Got: len(got)}
	}

	skip := map[string]bool{}
	for _, name := range ignored {
		skip[name] = true
	}

	var mismatches []Mismatch
	covered := make([]bool, ControllerDataSize)
	for _, f := range controllerFields {
		end := f.Offset + f.Length
		for i := f.Offset; i < end; i++ {
			covered[i] = true
		}
		if skip[f.Name] || bytes.Equal(reference[f.Offset:end], got[f.Offset:end]) {
			continue
		}
		mismatches = append(mismatches, newMismatch(f.Name, reference, got, f.Offset, end))
	}

	start := -1
	for i := 0; i <= ControllerDataSize; i++ {
		differs := i < ControllerDataSize && !covered[i] && reference[i] != got[i]
		if differs && start < 0 {
			start = i
		}
		if !differs && start >= 0 {
			mismatches = append(mismatches, newMismatch("bytes", reference, got, start, i))
			start = -1
		}
	}
	return mismatches, nil
}

func newMismatch(name string, reference, got []byte, start, end int) Mismatch {
	return Mismatch{
		Field:    name,
		Offset:   start,
		Length:   end - start,
		Expected: render(reference[start:end]),
		Actual:   render(got[start:end]),
	}
}

// render shows printable ranges as text and the rest as hex, cut at 32 bytes
func render(b []byte) string {
	const limit = 32
	printable := true
	for _, c := range b {
		if (c < 0x20 || c > 0x7E) && c != 0 {
			printable = false
			break
		}
	}
	if printable && bytes.IndexFunc(b, func(r rune) bool { return r != 0 && r != ' ' }) >= 0 {
		return strconv.Quote(asciiField(b))
	}
	if len(b) > limit {
		return fmt.Sprintf("%x...", b[:limit])
	}
	return fmt.Sprintf("%x", b)
}
