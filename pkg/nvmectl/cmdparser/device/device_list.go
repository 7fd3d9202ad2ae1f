package device

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var deviceFilters []string

var deviceList = &cobra.Command{
	Use:   "list",
	Args:  cobra.ExactArgs(0),
	Short: "List the attached NVMe controllers.",
	Long: "You can use 'nvmectl device list' to see every attached controller with its serial number.\n" +
		"Use '--discovery nvme-cli' to list them through 'nvme list' instead of udev.",
	Example: "nvmectl device list\n" +
		"nvmectl device list --discovery nvme-cli\n" +
		"nvmectl device list --devices 'nvme[0-3]'",
	RunE: deviceListRunE,
}

func init() {
	deviceList.Flags().StringSliceVar(&deviceFilters, "devices", nil, "Glob patterns matched against controller name or path")
}

func deviceListRunE(_ *cobra.Command, _ []string) error {
	enum, err := definitions.NewEnumerator()
	if err != nil {
		return err
	}
	filtered, err := discovery.NewFilteredEnumerator(enum, deviceFilters...)
	if err != nil {
		return err
	}
	devices, err := filtered.List()
	if err != nil {
		return err
	}

	header := table.Row{"#", "Name", "Path", "Serial", "Model", "Firmware"}
	var rows []table.Row
	for i, dev := range devices {
		rows = append(rows, table.Row{i + 1, dev.Name, dev.Path, dev.Serial, dev.Model, dev.Firmware})
	}

	formatter.PrintTable("NVMe Controllers", header, rows)
	return nil
}
