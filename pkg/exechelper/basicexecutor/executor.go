package basicexecutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hwameistor/nvmectl/pkg/exechelper"
)

const (
	defaultExecTimeout = 30 * time.Second

	exitCodeTimeout    = 124
	exitCodeErrDefault = 1
	exitCodeSuccess    = 0
)

var whitespace = regexp.MustCompile("[\t\n\r]+")

type basicExecutor struct {
	logger *log.Entry
}

// New returns an executor running commands on the local host
func New() exechelper.Executor {
	return &basicExecutor{logger: log.WithField("Module", "Executor")}
}

// RunCommand runs one command to completion or until its timeout
func (e *basicExecutor) RunCommand(params exechelper.ExecParams) exechelper.ExecResult {
	if params.Timeout <= 0 {
		params.Timeout = defaultExecTimeout
	}
	logger := e.logger.WithFields(log.Fields{"command": params.CmdName, "args": params.CmdArgs})
	logger.Debug("Running command")

	ctx, cancel := context.WithTimeout(context.Background(), params.Timeout)
	defer cancel()

	outbuf, errbuf := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := exec.CommandContext(ctx, params.CmdName, params.CmdArgs...)
	cmd.Stdout = outbuf
	cmd.Stderr = errbuf
	err := cmd.Run()

	result := exechelper.ExecResult{
		OutBuf:   bytes.NewBufferString(strings.TrimSuffix(outbuf.String(), "\n")),
		ErrBuf:   bytes.NewBufferString(strings.TrimSuffix(errbuf.String(), "\n")),
		ExitCode: exitCodeSuccess,
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.ExitCode = exitCodeTimeout
		result.Error = fmt.Errorf("command %s %s timed out after %s", params.CmdName, params.CmdArgs, params.Timeout)
	} else if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.Sys().(syscall.WaitStatus).ExitStatus()
		} else {
			result.ExitCode = exitCodeErrDefault
		}
		result.Error = errors.New(whitespace.ReplaceAllString(err.Error(), " "))
	}

	logger.WithFields(log.Fields{
		"exitCode": result.ExitCode,
		"stderr":   result.ErrBuf.String(),
		"error":    result.Error,
	}).Debug("Finished running command")

	return result
}
