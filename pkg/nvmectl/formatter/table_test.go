package formatter

import (
	"bytes"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
)

func TestFormatBytesToSize(t *testing.T) {
	testCases := []struct {
		Description string
		Bytes       uint64
		Expect      string
	}{
		{Description: "bytes", Bytes: 512, Expect: "512 B"},
		{Description: "kilobytes", Bytes: 512000, Expect: "512.00 kB"},
		{Description: "terabyte drive", Bytes: 1000204886016, Expect: "1.00 TB"},
		{Description: "zero", Bytes: 0, Expect: "0 B"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.Description, func(t *testing.T) {
			assert.Equal(t, testCase.Expect, FormatBytesToSize(testCase.Bytes))
		})
	}
}

func TestPrintTables(t *testing.T) {
	var buf bytes.Buffer
	old := Output
	Output = &buf
	defer func() { Output = old }()

	PrintTable("Controllers", table.Row{"#", "Path"}, []table.Row{{1, "/dev/nvme0"}})
	assert.Contains(t, buf.String(), "Controllers")
	assert.Contains(t, buf.String(), "/dev/nvme0")

	buf.Reset()
	PrintParameters("SMART", []Parameter{{"a", 1}, {"b", 2}, {"c", 3}, {"d", 4}})
	assert.Contains(t, buf.String(), "SMART")
	assert.Contains(t, buf.String(), "d")
}
