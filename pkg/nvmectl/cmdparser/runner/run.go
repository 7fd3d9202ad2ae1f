package runner

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hwameistor/nvmectl/pkg/nvme/controller"
	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvme/lifecycle"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/formatter"
)

var (
	configPath string
	reportPath string
	overrides  lifecycle.Config
)

var Run = &cobra.Command{
	Use:   "run",
	Args:  cobra.ExactArgs(0),
	Short: definitions.CmdHelpMessages["run"].Short,
	Long:  definitions.CmdHelpMessages["run"].Long,
	Example: "nvmectl run --config run.yaml\n" +
		"nvmectl run --config run.yaml --serial S5H9NS0N123456 --min-ops 10 --max-ops 20 --report report.yaml",
	RunE: runRunE,
}

func init() {
	Run.Flags().StringVarP(&configPath, "config", "c", "", "Run configuration file (yaml)")
	Run.Flags().StringVar(&reportPath, "report", "", "Write the run report to this file (yaml)")
	Run.Flags().StringVar(&overrides.Serial, "serial", "", "Serial number of the controller under test")
	Run.Flags().IntVar(&overrides.MinOps, "min-ops", 0, "Lower bound of the number of reads and writes")
	Run.Flags().IntVar(&overrides.MaxOps, "max-ops", 0, "Upper bound of the number of reads and writes")
	Run.Flags().StringVar(&overrides.ReferenceIdentify, "reference", "", "Identify controller reference saved by 'nvmectl id-ctrl --save'")
	Run.Flags().BoolVar(&overrides.ContinueOnPreCheckViolation, "continue-on-precheck-violation", false, "Mutate even when the drive fails the pre check")
}

// loadConfig reads --config and applies only the flags set on the command line
func loadConfig(flags *pflag.FlagSet) (lifecycle.Config, error) {
	cfg := lifecycle.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = lifecycle.LoadConfig(configPath); err != nil {
			return cfg, err
		}
	}

	if flags.Changed("serial") {
		cfg.Serial = overrides.Serial
	}
	if flags.Changed("min-ops") {
		cfg.MinOps = overrides.MinOps
	}
	if flags.Changed("max-ops") {
		cfg.MaxOps = overrides.MaxOps
	}
	if flags.Changed("continue-on-precheck-violation") {
		cfg.ContinueOnPreCheckViolation = overrides.ContinueOnPreCheckViolation
	}
	if flags.Changed("reference") {
		cfg.ReferenceIdentify = overrides.ReferenceIdentify
	}
	if flags.Changed("discovery") {
		cfg.Discovery = definitions.Discovery
	}
	if flags.Changed("timeout") {
		cfg.CommandTimeout = definitions.CommandTimeout
	}

	return cfg, cfg.Validate()
}

func runRunE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	enum, err := definitions.NewEnumeratorFor(cfg.Discovery)
	if err != nil {
		return err
	}
	commandMs, formatMs := cfg.ControllerTimeouts()
	open := func(dev discovery.Device) controller.Interface {
		return controller.New(dev.Path, controller.WithTimeouts(commandMs, formatMs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator := lifecycle.NewOrchestrator(cfg, enum, open,
		rand.New(rand.NewSource(time.Now().UnixNano())), log.WithField("cmd", "run"))
	report, runErr := orchestrator.Run(ctx)

	printReport(report)
	if reportPath != "" {
		if err := writeReport(report); err != nil {
			log.WithError(err).WithField("path", reportPath).Error("Failed to write report")
		}
	}
	return runErr
}

func writeReport(report *lifecycle.Report) error {
	f, err := os.Create(reportPath)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	defer f.Close()
	return report.WriteYAML(f)
}

func printReport(report *lifecycle.Report) {
	formatter.PrintParameters("Run "+report.RunID, []formatter.Parameter{
		{Key: "Serial", Value: report.Serial},
		{Key: "Device", Value: report.Device.Path},
		{Key: "State", Value: report.State},
		{Key: "Operations", Value: report.Operations},
		{Key: "Namespace", Value: report.NamespaceID},
		{Key: "Duration", Value: report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)},
	})

	if len(report.Violations) > 0 {
		var rows []table.Row
		for i, v := range report.Violations {
			rows = append(rows, table.Row{i + 1, v.Check, v.Expected, v.Actual, v.Message})
		}
		formatter.PrintTable("Violations", table.Row{"#", "Check", "Expected", "Actual", "Message"}, rows)
	}
	if len(report.Notes) > 0 {
		var rows []table.Row
		for i, note := range report.Notes {
			rows = append(rows, table.Row{i + 1, note})
		}
		formatter.PrintTable("Notes", table.Row{"#", "Note"}, rows)
	}
	if report.RestoreError != "" {
		formatter.PrintTable("Restore", table.Row{"Error"}, []table.Row{{report.RestoreError}})
	}
}
