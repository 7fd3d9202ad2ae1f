package drive

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvme/controller"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var (
	resetSelector  selector
	rescanSelector selector
)

var Reset = &cobra.Command{
	Use:   "reset",
	Args:  cobra.ExactArgs(0),
	Short: "Reset the controller.",
	Long: "Issue a controller reset through the driver. Outstanding I/O is aborted\n" +
		"and the controller is re-initialized.",
	Example: "nvmectl reset --device /dev/nvme0",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctrl, err := resetSelector.open()
		if err != nil {
			return err
		}
		return resetController(ctrl)
	},
}

var Rescan = &cobra.Command{
	Use:     "rescan",
	Args:    cobra.ExactArgs(0),
	Short:   "Rescan the namespaces of the controller.",
	Long:    "Ask the driver to rescan namespaces so created or attached ones get block nodes.",
	Example: "nvmectl rescan --serial S5H9NS0N123456",
	RunE: func(_ *cobra.Command, _ []string) error {
		ctrl, err := rescanSelector.open()
		if err != nil {
			return err
		}
		return rescanController(ctrl)
	},
}

func init() {
	resetSelector.bind(Reset)
	rescanSelector.bind(Rescan)
}

func resetController(ctrl controller.Interface) error {
	if err := ctrl.Reset(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(formatter.Output, "%s: controller reset\n", ctrl.Path())
	return err
}

func rescanController(ctrl controller.Interface) error {
	if err := ctrl.Rescan(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(formatter.Output, "%s: namespaces rescanned\n", ctrl.Path())
	return err
}
