package drive

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var smartLogSelector selector

var SmartLog = &cobra.Command{
	Use:   "smart-log",
	Args:  cobra.ExactArgs(0),
	Short: "Read the SMART / Health Information log.",
	Long: "Read log page 0x02 through admin passthrough and decode it.\n" +
		"The controller is selected with --serial or --device.",
	Example: "nvmectl smart-log --serial S5H9NS0N123456\n" +
		"nvmectl smart-log --device /dev/nvme0 -o json",
	RunE: smartLogRunE,
}

func init() {
	smartLogSelector.bind(SmartLog)
}

func smartLogRunE(_ *cobra.Command, _ []string) error {
	ctrl, err := smartLogSelector.open()
	if err != nil {
		return err
	}
	l, err := ctrl.SmartLog()
	if err != nil {
		return err
	}

	if smartLogSelector.output == outputJSON {
		return printJSON(struct {
			smart.HealthLog
			Summary smart.Summary `json:"summary"`
		}{l, l.Summary()})
	}
	printHealthLog(ctrl.Path(), l)
	return nil
}

func printHealthLog(path string, l smart.HealthLog) {
	s := l.Summary()
	temperature := "n/a"
	if s.CompositeTemperatureCelsius != nil {
		temperature = fmt.Sprintf("%.2f °C (%d K)", *s.CompositeTemperatureCelsius, l.CompositeTemperatureKelvin)
	}

	parameters := []formatter.Parameter{
		{Key: "Overall Health", Value: s.OverallHealth},
		{Key: "Critical Warning", Value: fmt.Sprintf("%#04x", uint8(l.CriticalWarning))},
		{Key: "Temperature", Value: temperature},
		{Key: "Available Spare", Value: fmt.Sprintf("%d%%", l.AvailableSparePercent)},
		{Key: "Spare Threshold", Value: fmt.Sprintf("%d%%", l.SpareThresholdPercent)},
		{Key: "Percentage Used", Value: fmt.Sprintf("%d%%", l.PercentageUsed)},
		{Key: "Data Read", Value: formatter.FormatBytesToSize(s.TotalBytesRead)},
		{Key: "Data Written", Value: formatter.FormatBytesToSize(s.TotalBytesWritten)},
		{Key: "Host Reads", Value: l.HostReadCommands},
		{Key: "Host Writes", Value: l.HostWriteCommands},
		{Key: "Busy Time (min)", Value: l.ControllerBusyMinutes},
		{Key: "Power Cycles", Value: l.PowerCycles},
		{Key: "Power On Hours", Value: l.PowerOnHours},
		{Key: "Unsafe Shutdowns", Value: l.UnsafeShutdowns},
		{Key: "Media Errors", Value: l.MediaErrors},
		{Key: "Error Log Entries", Value: l.ErrorLogEntries},
		{Key: "Warning Temp Time", Value: l.WarningTempTimeMinutes},
		{Key: "Critical Temp Time", Value: l.CriticalTempTimeMinutes},
	}
	for slot, kelvin := range l.TemperatureSensors {
		if kelvin != 0 {
			parameters = append(parameters, formatter.Parameter{Key: fmt.Sprintf("Sensor %d", slot+1), Value: fmt.Sprintf("%d K", kelvin)})
		}
	}
	formatter.PrintParameters("SMART Log "+path, parameters)
}
