package drive

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvme/controller"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// selector flags shared by every drive command
type selector struct {
	serial string
	device string
	output string
}

func (s *selector) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.serial, "serial", "", "Select the controller by serial number")
	cmd.Flags().StringVar(&s.device, "device", "", "Select the controller by node, e.g. /dev/nvme0")
	cmd.Flags().StringVarP(&s.output, "output", "o", outputTable, "Output format: table or json")
}

func (s *selector) open() (controller.Interface, error) {
	if s.output != outputTable && s.output != outputJSON {
		return nil, fmt.Errorf("unknown output format %q", s.output)
	}
	dev, err := definitions.SelectDevice(s.serial, s.device)
	if err != nil {
		return nil, err
	}
	return definitions.OpenController(dev), nil
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(formatter.Output, string(b))
	return err
}
