package exechelper

import (
	"bytes"
	"time"
)

//go:generate mockgen -source=types.go -destination=mock_executor.go -package=exechelper

// Executor runs external tools, such as nvme-cli
type Executor interface {
	RunCommand(params ExecParams) ExecResult
}

// ExecParams parameters to execute a command
type ExecParams struct {
	CmdName string
	CmdArgs []string
	// Timeout falls back to the executor default when zero
	Timeout time.Duration
}

// ExecResult result of executing a command
type ExecResult struct {
	OutBuf   *bytes.Buffer
	ErrBuf   *bytes.Buffer
	ExitCode int
	Error    error
}

// Succeeded reports a zero exit code without an execution error
func (r ExecResult) Succeeded() bool {
	return r.Error == nil && r.ExitCode == 0
}
