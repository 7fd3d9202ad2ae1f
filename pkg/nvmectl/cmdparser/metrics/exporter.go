package metrics

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hwameistor/nvmectl/pkg/exporter"
	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
)

var (
	addr    string
	devices []string
)

var Exporter = &cobra.Command{
	Use:   "exporter",
	Args:  cobra.ExactArgs(0),
	Short: "Serve SMART metrics of every controller for Prometheus.",
	Long: "Serve /metrics. Every scrape lists the attached controllers and reads\n" +
		"their SMART / Health Information log through admin passthrough.",
	Example: "nvmectl exporter --addr :9998\n" +
		"nvmectl exporter --devices '/dev/nvme[0-1]'",
	RunE: exporterRunE,
}

func init() {
	Exporter.Flags().StringVar(&addr, "addr", ":9998", "Listen address of the metrics server")
	Exporter.Flags().StringSliceVar(&devices, "devices", nil, "Only scrape controllers whose name or path matches one of these globs")
}

func exporterRunE(_ *cobra.Command, _ []string) error {
	enum, err := definitions.NewEnumerator()
	if err != nil {
		return err
	}
	filtered, err := discovery.NewFilteredEnumerator(enum, devices...)
	if err != nil {
		return err
	}
	collector := exporter.NewSMARTCollector(filtered, func(dev discovery.Device) exporter.HealthReader {
		return definitions.OpenController(dev)
	})

	stopCh := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		close(stopCh)
	}()

	return exporter.NewCollectorManager(addr, collector).Run(stopCh)
}
