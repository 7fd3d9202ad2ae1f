package formatter

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ParameterTableLineLength is the number of key/value pairs per line of a parameter table
const ParameterTableLineLength = 3

// Output is where every table is rendered
var Output io.Writer = os.Stdout

type Parameter struct {
	Key   interface{}
	Value interface{}
}

func buildDefaultTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(Output)
	t.Style().Format.Header = text.FormatDefault
	return t
}

func PrintTable(title string, header table.Row, rows []table.Row) {
	t := buildDefaultTable()
	t.Style().Options.SeparateRows = true

	t.SetTitle(title)
	t.AppendHeader(header)
	t.AppendRows(rows)
	t.Render()
}

// PrintParameters renders key/value pairs, ParameterTableLineLength pairs per line
func PrintParameters(title string, parameters []Parameter) {
	t := buildDefaultTable()
	if title != "" {
		t.SetTitle(title)
	}

	var rows []table.Row
	for i, parameter := range parameters {
		if i%ParameterTableLineLength == 0 {
			rows = append(rows, table.Row{})
		}
		last := len(rows) - 1
		rows[last] = append(rows[last], parameter.Key, parameter.Value)
	}
	t.AppendRows(rows)
	t.Render()
}

// FormatBytesToSize renders a byte count with a decimal unit, the way drive vendors label capacity
func FormatBytesToSize(bytes uint64) string {
	const unit = 1000
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(bytes)/float64(div), "kMGTPE"[exp])
}
