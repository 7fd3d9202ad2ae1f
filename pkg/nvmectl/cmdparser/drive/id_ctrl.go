package drive

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvme/controller"
	"github.com/hwameistor/nvmectl/pkg/nvme/identify"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var (
	idCtrlSelector selector
	idCtrlSave     string
	idCtrlRaw      bool
)

var IdCtrl = &cobra.Command{
	Use:   "id-ctrl",
	Args:  cobra.ExactArgs(0),
	Short: "Identify the controller.",
	Long: "Send identify (CNS 1) and show the controller data.\n" +
		"Use --save to keep the 4096 byte response as the reference for 'nvmectl run'.",
	Example: "nvmectl id-ctrl --serial S5H9NS0N123456\n" +
		"nvmectl id-ctrl --device /dev/nvme0 --raw-binary\n" +
		"nvmectl id-ctrl --device /dev/nvme0 --save id-ctrl.bin",
	RunE: idCtrlRunE,
}

func init() {
	idCtrlSelector.bind(IdCtrl)
	IdCtrl.Flags().StringVar(&idCtrlSave, "save", "", "Write the raw response to this file")
	IdCtrl.Flags().BoolVarP(&idCtrlRaw, "raw-binary", "b", false, "Dump the whole response as hex")
}

func idCtrlRunE(_ *cobra.Command, _ []string) error {
	ctrl, err := idCtrlSelector.open()
	if err != nil {
		return err
	}
	return identifyController(ctrl)
}

func identifyController(ctrl controller.Interface) error {
	data, err := ctrl.IdentifyController()
	if err != nil {
		return err
	}

	if idCtrlSave != "" {
		if err := os.WriteFile(idCtrlSave, data, 0644); err != nil {
			return errors.Wrapf(err, "save identify controller to %s", idCtrlSave)
		}
		log.WithFields(log.Fields{"device": ctrl.Path(), "path": idCtrlSave}).Info("Identify controller saved")
	}
	if idCtrlRaw {
		_, err := fmt.Fprint(formatter.Output, hex.Dump(data))
		return err
	}

	c, err := identify.DecodeController(data)
	if err != nil {
		return err
	}
	if idCtrlSelector.output == outputJSON {
		return printJSON(c)
	}
	formatter.PrintParameters("Controller "+ctrl.Path(), []formatter.Parameter{
		{Key: "Vendor", Value: fmt.Sprintf("%#06x", c.VendorID)},
		{Key: "Subsystem Vendor", Value: fmt.Sprintf("%#06x", c.SubsystemVendorID)},
		{Key: "Serial", Value: c.Serial},
		{Key: "Model", Value: c.Model},
		{Key: "Firmware", Value: c.Firmware},
		{Key: "Controller ID", Value: c.ControllerID},
		{Key: "Version", Value: c.Version},
		{Key: "Namespaces", Value: c.NamespaceCount},
		{Key: "Warning Temp", Value: fmt.Sprintf("%d K", c.WarningTempKelvin)},
		{Key: "Critical Temp", Value: fmt.Sprintf("%d K", c.CriticalTempKelvin)},
		{Key: "Capacity", Value: formatter.FormatBytesToSize(c.TotalCapacityBytes)},
	})
	return nil
}
