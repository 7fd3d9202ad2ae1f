package passthru

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvme/admin"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var (
	serial      string
	device      string
	opcode      string
	namespaceID uint32
	dataLen     int
	cdws        [6]uint32
	timeoutMs   uint32
	payloadHex  string
	raw         bool
)

var AdminPassthru = &cobra.Command{
	Use:   "admin-passthru",
	Args:  cobra.ExactArgs(0),
	Short: "Send one raw admin command.",
	Long: "Build an admin command from the flags, send it through the admin passthrough\n" +
		"and print the result word and the response buffer.",
	Example: "nvmectl admin-passthru --device /dev/nvme0 --opcode 0x06 --data-len 4096 --cdw10 1\n" +
		"nvmectl admin-passthru --serial S5H9NS0N123456 --opcode 0x0a --cdw10 4 --data-len 4",
	RunE: adminPassthruRunE,
}

func init() {
	AdminPassthru.Flags().StringVar(&serial, "serial", "", "Select the controller by serial number")
	AdminPassthru.Flags().StringVar(&device, "device", "", "Select the controller by node, e.g. /dev/nvme0")
	AdminPassthru.Flags().StringVar(&opcode, "opcode", "", "Opcode as hex, e.g. 0x06")
	AdminPassthru.Flags().Uint32VarP(&namespaceID, "namespace-id", "n", 0, "Namespace id, 0 for controller scope")
	AdminPassthru.Flags().IntVarP(&dataLen, "data-len", "l", 0, "Size of the data buffer in bytes")
	for i := range cdws {
		AdminPassthru.Flags().Uint32Var(&cdws[i], fmt.Sprintf("cdw%d", 10+i), 0, fmt.Sprintf("Command dword %d", 10+i))
	}
	AdminPassthru.Flags().Uint32VarP(&timeoutMs, "timeout-ms", "t", 0, "Command timeout in milliseconds, 0 for the driver default")
	AdminPassthru.Flags().StringVar(&payloadHex, "payload", "", "Hex bytes copied to the front of the data buffer")
	AdminPassthru.Flags().BoolVarP(&raw, "raw-binary", "b", false, "Print the response buffer as plain hex")
	_ = AdminPassthru.MarkFlagRequired("opcode")
}

func adminPassthruRunE(_ *cobra.Command, _ []string) error {
	payload, err := hex.DecodeString(strings.ReplaceAll(payloadHex, " ", ""))
	if err != nil {
		return fmt.Errorf("invalid --payload: %v", err)
	}

	dev, err := definitions.SelectDevice(serial, device)
	if err != nil {
		return err
	}
	resp, err := definitions.OpenController(dev).Passthru(admin.Params{
		Opcode:      opcode,
		NamespaceID: namespaceID,
		DataLen:     dataLen,
		Cdw10:       cdws[0],
		Cdw11:       cdws[1],
		Cdw12:       cdws[2],
		Cdw13:       cdws[3],
		Cdw14:       cdws[4],
		Cdw15:       cdws[5],
		TimeoutMs:   timeoutMs,
		Payload:     payload,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(formatter.Output, "%s: %s, result: %#x\n", dev.Path, opcode, resp.Result)
	if raw {
		fmt.Fprintln(formatter.Output, hex.EncodeToString(resp.Data))
	} else if len(resp.Data) > 0 {
		fmt.Fprint(formatter.Output, hex.Dump(resp.Data))
	}
	return nil
}
