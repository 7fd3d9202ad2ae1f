package device

import (
	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
)

var Device = &cobra.Command{
	Use:   "device",
	Args:  cobra.ExactArgs(0),
	Short: definitions.CmdHelpMessages["device"].Short,
	Long:  definitions.CmdHelpMessages["device"].Long,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Root cmd will show help only
		return cmd.Help()
	},
}

func init() {
	Device.AddCommand(deviceList)
}
