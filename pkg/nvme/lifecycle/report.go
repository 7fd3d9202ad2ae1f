package lifecycle

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

type State string

const (
	StateInit      State = "Init"
	StatePreCheck  State = "PreCheck"
	StateMutate    State = "Mutate"
	StatePostCheck State = "PostCheck"
	StateRestore   State = "Restore"
	StateDone      State = "Done"
	StateAborted   State = "Aborted"
)

// Snapshot is what was read from the controller at one point of the run
type Snapshot struct {
	Health    *smart.HealthLog  `yaml:"health,omitempty"`
	Namespace *namespace.Record `yaml:"namespace,omitempty"`
}

// Violation is the report form of a ValidationError
type Violation struct {
	Check    string      `yaml:"check"`
	Expected interface{} `yaml:"expected,omitempty"`
	Actual   interface{} `yaml:"actual,omitempty"`
	Message  string      `yaml:"message,omitempty"`
}

// Report is the outcome of one run
type Report struct {
	RunID       string           `yaml:"runId"`
	Serial      string           `yaml:"serial"`
	Device      discovery.Device `yaml:"device"`
	State       State            `yaml:"state"`
	Transitions []State          `yaml:"transitions"`
	StartedAt   time.Time        `yaml:"startedAt"`
	FinishedAt  time.Time        `yaml:"finishedAt"`

	// Operations is N, the number of reads and also the number of writes
	Operations     int    `yaml:"operations"`
	NamespaceID    uint32 `yaml:"namespaceId,omitempty"`
	BlockSizeBytes int    `yaml:"blockSizeBytes,omitempty"`

	Before Snapshot `yaml:"before"`
	After  Snapshot `yaml:"after"`
	// WorkloadStart is the health log taken right before the first read
	WorkloadStart *smart.HealthLog `yaml:"workloadStart,omitempty"`

	OriginalThresholdKelvin *uint16 `yaml:"originalThresholdKelvin,omitempty"`
	LoweredThresholdKelvin  *uint16 `yaml:"loweredThresholdKelvin,omitempty"`

	Violations   []*errdefs.ValidationError `yaml:"-"`
	Notes        []string                   `yaml:"notes,omitempty"`
	RestoreError string                     `yaml:"restoreError,omitempty"`
}

func (r *Report) Passed() bool {
	return r.State == StateDone
}

// WriteYAML writes the report, violations included
func (r *Report) WriteYAML(w io.Writer) error {
	out := struct {
		Report     `yaml:",inline"`
		Violations []Violation `yaml:"violations,omitempty"`
	}{Report: *r}
	for _, v := range r.Violations {
		out.Violations = append(out.Violations, Violation{Check: v.Check, Expected: v.Expected, Actual: v.Actual, Message: v.Message})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
