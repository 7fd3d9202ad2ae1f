package drive

import (
	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var (
	idNsSelector    selector
	idNsNamespaceID uint32
)

var IdNs = &cobra.Command{
	Use:   "id-ns",
	Args:  cobra.ExactArgs(0),
	Short: "Identify one namespace.",
	Long:  "Send identify (CNS 0) for a namespace and decode its size, capacity, usage and format.",
	Example: "nvmectl id-ns --serial S5H9NS0N123456\n" +
		"nvmectl id-ns --device /dev/nvme0 --namespace-id 2 -o json",
	RunE: idNsRunE,
}

func init() {
	idNsSelector.bind(IdNs)
	IdNs.Flags().Uint32VarP(&idNsNamespaceID, "namespace-id", "n", 1, "Namespace to identify")
}

func idNsRunE(_ *cobra.Command, _ []string) error {
	ctrl, err := idNsSelector.open()
	if err != nil {
		return err
	}
	record, err := ctrl.IdentifyNamespace(idNsNamespaceID)
	if err != nil {
		return err
	}

	if idNsSelector.output == outputJSON {
		return printJSON(record)
	}
	formatter.PrintParameters("Namespace "+ctrl.Path(), []formatter.Parameter{
		{Key: "NSID", Value: idNsNamespaceID},
		{Key: "Size (blocks)", Value: record.SizeBlocks},
		{Key: "Capacity (blocks)", Value: record.CapacityBlocks},
		{Key: "Used (blocks)", Value: record.UsedBlocks},
		{Key: "Format Index", Value: record.FormatIndex},
		{Key: "LBA Formats", Value: record.LBAFormatCount},
		{Key: "Block Size", Value: record.LBADataSize},
		{Key: "Protection", Value: record.ProtectionType},
		{Key: "Size", Value: formatter.FormatBytesToSize(record.SizeBlocks * uint64(record.LBADataSize))},
	})
	return nil
}
