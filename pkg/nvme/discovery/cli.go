package discovery

import (
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/hwameistor/nvmectl/pkg/exechelper"
)

const nvmeCLI = "nvme"

// namespace suffix of a block node, e.g. the n1 of /dev/nvme0n1
var namespaceSuffix = regexp.MustCompile(`n\d+$`)

// CLIEnumerator lists controllers through `nvme list -o json`
type CLIEnumerator struct {
	executor exechelper.Executor
	logger   *log.Entry
}

func NewCLIEnumerator(executor exechelper.Executor) *CLIEnumerator {
	return &CLIEnumerator{
		executor: executor,
		logger:   log.WithField("Module", "CLIEnumerator"),
	}
}

func (e *CLIEnumerator) List() ([]Device, error) {
	result := e.executor.RunCommand(exechelper.ExecParams{
		CmdName: nvmeCLI,
		CmdArgs: []string{"list", "-o", "json"},
	})
	if !result.Succeeded() {
		e.logger.WithError(result.Error).WithField("stderr", result.ErrBuf.String()).Error("Failed to run nvme list")
		return nil, errors.Errorf("nvme list exited with %d: %v", result.ExitCode, result.Error)
	}

	output := result.OutBuf.String()
	if !gjson.Valid(output) {
		return nil, errors.New("nvme list returned invalid json")
	}

	seen := map[string]bool{}
	var devices []Device
	gjson.Get(output, "Devices").ForEach(func(_, dev gjson.Result) bool {
		// one entry per namespace, collapse them onto their controller
		nsPath := dev.Get("DevicePath").String()
		ctrlPath := namespaceSuffix.ReplaceAllString(nsPath, "")
		if ctrlPath == "" || seen[ctrlPath] {
			return true
		}
		seen[ctrlPath] = true

		devices = append(devices, Device{
			Name:     filepath.Base(ctrlPath),
			Path:     ctrlPath,
			Serial:   dev.Get("SerialNumber").String(),
			Model:    dev.Get("ModelNumber").String(),
			Firmware: dev.Get("Firmware").String(),
		})
		return true
	})

	return devices, nil
}
