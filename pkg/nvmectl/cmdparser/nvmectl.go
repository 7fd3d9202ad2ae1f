package cmdparser

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hwameistor/nvmectl/pkg/nvme/lifecycle"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/definitions"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/device"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/drive"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/metrics"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/passthru"
	"github.com/hwameistor/nvmectl/pkg/nvmectl/cmdparser/runner"
)

var Nvmectl = &cobra.Command{
	Use:           "nvmectl",
	Args:          cobra.ExactArgs(0),
	Short:         definitions.CmdHelpMessages["nvmectl"].Short,
	Long:          definitions.CmdHelpMessages["nvmectl"].Long,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging(definitions.Debug, definitions.LogFile)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Root cmd will show help only
		return cmd.Help()
	},
}

func init() {
	// Nvmectl flags
	Nvmectl.PersistentFlags().BoolVar(&definitions.Debug, "debug", false, "Enable debug logging")
	Nvmectl.PersistentFlags().StringVar(&definitions.LogFile, "log-file", "", "Also write logs to this file, rotated")
	Nvmectl.PersistentFlags().StringVar(&definitions.Discovery, "discovery", lifecycle.DiscoveryUdev, "How controllers are found: udev or nvme-cli")
	Nvmectl.PersistentFlags().DurationVar(&definitions.CommandTimeout, "timeout", 30*time.Second, "Admin command timeout")

	// Sub commands
	Nvmectl.AddCommand(device.Device, drive.SmartLog, drive.IdNs, drive.IdCtrl, drive.Reset, drive.Rescan,
		passthru.AdminPassthru, runner.Run, metrics.Exporter)
}

func setupLogging(enableDebug bool, logFile string) {
	log.SetLevel(log.InfoLevel)
	if enableDebug {
		log.SetLevel(log.DebugLevel)
	}

	log.SetFormatter(&log.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
		// log with funcname, file fields. eg: func=Exchange file="channel_linux.go:51"
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			s := strings.Split(f.Function, ".")
			funcname := s[len(s)-1]
			filename := path.Base(f.File)
			return funcname, fmt.Sprintf("%s:%d", filename, f.Line)
		},
	})
	log.SetReportCaller(true)

	var out io.Writer = os.Stderr
	if logFile != "" {
		out = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	log.SetOutput(out)
}
