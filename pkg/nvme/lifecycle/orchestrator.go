package lifecycle

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/hwameistor/nvmectl/pkg/nvme/controller"
	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
	"github.com/hwameistor/nvmectl/pkg/nvme/identify"
	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

const (
	defaultBlockSize = 512

	// the workload stays clear of the first and last blocks of the namespace
	lowestWorkloadLBA = 10
)

const (
	CheckBaseline          = "baseline"
	CheckIdentify          = "identify controller"
	CheckMediaErrors       = "media errors"
	CheckPowerOnHours      = "power on hours"
	CheckPercentageUsed    = "percentage used"
	CheckCancelled         = "cancelled"
	CheckMutate            = "mutate"
	CheckPostSnapshot      = "post snapshot"
	CheckHostReadCommands  = "host read commands"
	CheckHostWriteCommands = "host write commands"
	CheckGeometry          = "namespace geometry"
	CheckInterrupted       = "interrupted"
)

// Opener returns the controller client for a resolved device
type Opener func(dev discovery.Device) controller.Interface

// Orchestrator runs the destructive namespace lifecycle test against one controller:
// Init, PreCheck, Mutate, PostCheck, Restore, then Done or Aborted.
type Orchestrator struct {
	config Config
	enum   discovery.Enumerator
	open   Opener
	rand   *rand.Rand
	logger *log.Entry
}

func NewOrchestrator(config Config, enum discovery.Enumerator, open Opener, rnd *rand.Rand, logger *log.Entry) *Orchestrator {
	return &Orchestrator{
		config: config,
		enum:   enum,
		open:   open,
		rand:   rnd,
		logger: logger.WithField("Module", "Orchestrator"),
	}
}

// run holds the state of one Run call
type run struct {
	config Config
	ctrl   controller.Interface
	rand   *rand.Rand
	report *Report
	logger *log.Entry
}

// Run executes one full run. The returned report is never nil; the error is a
// NotFoundError when the serial did not resolve and an AbortedError carrying
// every violation when the run did not pass. Once the controller is resolved,
// Restore runs on every way out, a panic included.
func (o *Orchestrator) Run(ctx context.Context) (report *Report, err error) {
	report = &Report{
		RunID:     uuid.New().String(),
		Serial:    o.config.Serial,
		State:     StateInit,
		StartedAt: time.Now(),
	}
	report.Transitions = append(report.Transitions, StateInit)
	logger := o.logger.WithFields(log.Fields{"run": report.RunID, "serial": o.config.Serial})

	dev, err := discovery.Resolve(o.enum, o.config.Serial)
	if err != nil {
		logger.WithError(err).Error("Failed to resolve controller")
		report.FinishedAt = time.Now()
		return report, err
	}
	report.Device = dev

	r := &run{
		config: o.config,
		ctrl:   o.open(dev),
		rand:   o.rand,
		report: report,
		logger: logger.WithField("device", dev.Path),
	}
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithField("panic", p).Error("Run interrupted")
			r.violate(&errdefs.ValidationError{Check: CheckInterrupted, Message: fmt.Sprintf("%s: %v", r.report.State, p)})
		}
		err = r.finish()
	}()

	r.transition(StatePreCheck)
	if !r.preCheck() {
		return report, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		r.violate(&errdefs.ValidationError{Check: CheckCancelled, Message: cerr.Error()})
		return report, nil
	}
	r.transition(StateMutate)
	if r.mutate() {
		r.transition(StatePostCheck)
		r.postCheck()
	}
	return report, nil
}

// finish restores the controller and settles the terminal state
func (r *run) finish() error {
	r.transition(StateRestore)
	r.restore()

	r.report.FinishedAt = time.Now()
	if len(r.report.Violations) == 0 {
		r.transition(StateDone)
		return nil
	}
	r.transition(StateAborted)
	return &errdefs.AbortedError{Violations: r.report.Violations}
}

func (r *run) transition(state State) {
	r.report.State = state
	r.report.Transitions = append(r.report.Transitions, state)
	r.logger.WithField("state", state).Info("Entering state")
}

func (r *run) violate(v *errdefs.ValidationError) {
	r.logger.WithFields(log.Fields{"check": v.Check, "state": r.report.State}).Warn(v.Error())
	r.report.Violations = append(r.report.Violations, v)
}

func (r *run) note(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.logger.Info(msg)
	r.report.Notes = append(r.report.Notes, msg)
}

// preCheck captures the baseline and checks the drive is fit for the run.
// It reports whether Mutate may start.
func (r *run) preCheck() bool {
	health, err := r.ctrl.SmartLog()
	if err != nil {
		r.violate(&errdefs.ValidationError{Check: CheckBaseline, Message: "smart log: " + err.Error()})
		return false
	}
	r.report.Before.Health = &health

	record, err := r.ctrl.IdentifyNamespace(r.config.NamespaceID)
	if err != nil {
		r.violate(&errdefs.ValidationError{Check: CheckBaseline, Message: fmt.Sprintf("identify namespace %d: %v", r.config.NamespaceID, err)})
		return false
	}
	r.report.Before.Namespace = &record

	if threshold, err := r.ctrl.TemperatureThreshold(); err != nil {
		r.note("temperature threshold not readable, it will not be lowered or restored: %v", err)
	} else {
		r.report.OriginalThresholdKelvin = &threshold
		if health.CompositeTemperatureKelvin >= threshold && threshold != 0 {
			r.note("composite temperature %d K is at or above threshold %d K", health.CompositeTemperatureKelvin, threshold)
		}
	}

	violations := len(r.report.Violations)
	if health.MediaErrors != 0 {
		r.violate(&errdefs.ValidationError{Check: CheckMediaErrors, Expected: 0, Actual: health.MediaErrors})
	}
	if health.PowerOnHours > r.config.MaxPowerOnHours {
		r.violate(&errdefs.ValidationError{
			Check:    CheckPowerOnHours,
			Expected: fmt.Sprintf("<= %d", r.config.MaxPowerOnHours),
			Actual:   health.PowerOnHours,
		})
	}
	if health.PercentageUsed >= r.config.MaxPercentageUsed {
		r.violate(&errdefs.ValidationError{
			Check:    CheckPercentageUsed,
			Expected: fmt.Sprintf("< %d", r.config.MaxPercentageUsed),
			Actual:   health.PercentageUsed,
		})
	}
	r.compareIdentify()

	if len(r.report.Violations) > violations && !r.config.ContinueOnPreCheckViolation {
		r.logger.Warn("Drive failed pre check, skipping mutation")
		return false
	}
	return true
}

// compareIdentify checks identify controller against the configured reference,
// skipping the fields that differ between units of one product
func (r *run) compareIdentify() {
	if r.config.ReferenceIdentify == "" {
		return
	}
	reference, err := os.ReadFile(r.config.ReferenceIdentify)
	if err != nil {
		r.violate(&errdefs.ValidationError{Check: CheckIdentify, Message: "read reference: " + err.Error()})
		return
	}
	data, err := r.ctrl.IdentifyController()
	if err != nil {
		r.violate(&errdefs.ValidationError{Check: CheckIdentify, Message: err.Error()})
		return
	}
	mismatches, err := identify.Compare(reference, data, identify.DefaultIgnoredFields...)
	if err != nil {
		r.violate(&errdefs.ValidationError{Check: CheckIdentify, Message: err.Error()})
		return
	}
	for _, m := range mismatches {
		r.violate(&errdefs.ValidationError{
			Check:    fmt.Sprintf("%s %s [%d:%d]", CheckIdentify, m.Field, m.Offset, m.Offset+m.Length),
			Expected: m.Expected,
			Actual:   m.Actual,
		})
	}
}

// mutate runs the destructive sequence. The first failing step ends it.
func (r *run) mutate() bool {
	r.report.Operations = r.config.MinOps + r.rand.Intn(r.config.MaxOps-r.config.MinOps+1)
	n := r.report.Operations
	nsid := r.config.NamespaceID

	fail := func(step string, err error) bool {
		r.violate(&errdefs.ValidationError{Check: CheckMutate, Message: fmt.Sprintf("%s: %v", step, err)})
		r.captureAfter(nsid)
		return false
	}

	if err := r.ctrl.DeleteNamespace(nsid); err != nil {
		return fail("delete namespace", err)
	}
	created, err := r.ctrl.CreateNamespace(r.config.Target)
	if err != nil {
		return fail("create namespace", err)
	}
	nsid = created
	r.report.NamespaceID = nsid
	if err := r.ctrl.AttachNamespace(nsid, r.config.ControllerID); err != nil {
		return fail("attach namespace", err)
	}
	if err := r.ctrl.Rescan(); err != nil {
		return fail("rescan", err)
	}
	if err := r.ctrl.Format(nsid, r.config.Target.FormatIndex, r.config.SecureErase); err != nil {
		return fail("format", err)
	}

	record, err := r.ctrl.IdentifyNamespace(nsid)
	if err != nil {
		return fail("identify namespace", err)
	}
	blockSize := r.blockSize(record)
	r.report.BlockSizeBytes = blockSize
	low, high := workloadRange(record.SizeBlocks)
	if high < low {
		return fail("workload", fmt.Errorf("namespace %d has no usable blocks", nsid))
	}

	start, err := r.ctrl.SmartLog()
	if err != nil {
		return fail("workload baseline", err)
	}
	r.report.WorkloadStart = &start

	r.logger.WithFields(log.Fields{"nsid": nsid, "operations": n, "blockSize": blockSize}).Info("Starting workload")
	for i := 0; i < n; i++ {
		if _, err := r.ctrl.ReadBlock(nsid, r.randomLBA(low, high), blockSize); err != nil {
			return fail(fmt.Sprintf("read %d of %d", i+1, n), err)
		}
	}
	data := make([]byte, blockSize)
	for i := 0; i < n; i++ {
		if err := r.ctrl.WriteBlock(nsid, r.randomLBA(low, high), data); err != nil {
			return fail(fmt.Sprintf("write %d of %d", i+1, n), err)
		}
	}
	return true
}

func (r *run) blockSize(record namespace.Record) int {
	if r.config.BlockSize > 0 {
		return r.config.BlockSize
	}
	if record.LBADataSize > 0 {
		return int(record.LBADataSize)
	}
	r.note("block size unknown, using %d bytes", defaultBlockSize)
	return defaultBlockSize
}

// workloadRange returns the inclusive LBA range used by the workload
func workloadRange(sizeBlocks uint64) (uint64, uint64) {
	if sizeBlocks > lowestWorkloadLBA+2 {
		return lowestWorkloadLBA, sizeBlocks - 2
	}
	if sizeBlocks == 0 {
		return 1, 0
	}
	return 0, sizeBlocks - 1
}

// randomLBA draws from [low, high]; the span may not fit in an int64
func (r *run) randomLBA(low, high uint64) uint64 {
	span := high - low + 1
	if span == 0 {
		// [0, MaxUint64]
		return r.rand.Uint64()
	}
	return low + r.rand.Uint64()%span
}

// captureAfter takes the ending snapshots on a best effort basis
func (r *run) captureAfter(nsid uint32) bool {
	ok := true
	if health, err := r.ctrl.SmartLog(); err != nil {
		r.logger.WithError(err).Error("Failed to capture ending smart log")
		ok = false
	} else {
		r.report.After.Health = &health
	}
	if record, err := r.ctrl.IdentifyNamespace(nsid); err != nil {
		r.logger.WithError(err).WithField("nsid", nsid).Error("Failed to capture ending namespace")
		ok = false
	} else {
		r.report.After.Namespace = &record
	}
	return ok
}

func (r *run) postCheck() {
	r.captureAfter(r.report.NamespaceID)
	after := r.report.After

	if after.Health == nil {
		r.violate(&errdefs.ValidationError{Check: CheckPostSnapshot, Message: "smart log not available"})
	} else {
		start := r.report.WorkloadStart
		n := int64(r.report.Operations)
		if delta := counterDelta(start.HostReadCommands, after.Health.HostReadCommands); delta != n {
			r.violate(&errdefs.ValidationError{Check: CheckHostReadCommands, Expected: n, Actual: delta})
		}
		if delta := counterDelta(start.HostWriteCommands, after.Health.HostWriteCommands); delta != n {
			r.violate(&errdefs.ValidationError{Check: CheckHostWriteCommands, Expected: n, Actual: delta})
		}
	}

	if after.Namespace == nil {
		r.violate(&errdefs.ValidationError{Check: CheckPostSnapshot, Message: "identify namespace not available"})
	} else {
		for _, m := range after.Namespace.Matches(r.config.Target) {
			r.violate(&errdefs.ValidationError{Check: CheckGeometry + " " + m.Field, Expected: m.Expected, Actual: m.Actual})
		}
	}

	r.checkTemperatureThreshold()
}

func counterDelta(before, after uint64) int64 {
	return int64(after - before)
}

// checkTemperatureThreshold lowers the threshold below the current temperature and
// looks for the controller to raise its warning. Devices that do not react are noted only.
func (r *run) checkTemperatureThreshold() {
	if r.report.OriginalThresholdKelvin == nil {
		r.note("temperature threshold check skipped, original threshold unknown")
		return
	}
	base := r.report.After.Health
	if base == nil || base.CompositeTemperatureKelvin == 0 {
		r.note("temperature threshold check skipped, no composite temperature")
		return
	}
	if base.CompositeTemperatureKelvin <= r.config.TemperatureDropKelvin {
		r.note("temperature threshold check skipped, composite temperature %d K too low", base.CompositeTemperatureKelvin)
		return
	}

	lowered := base.CompositeTemperatureKelvin - r.config.TemperatureDropKelvin
	r.report.LoweredThresholdKelvin = &lowered
	if err := r.ctrl.SetTemperatureThreshold(lowered); err != nil {
		r.note("could not lower temperature threshold to %d K: %v", lowered, err)
		return
	}
	lowLog, err := r.ctrl.SmartLog()
	if err != nil {
		r.note("could not read smart log after lowering threshold: %v", err)
		return
	}
	if !thresholdReacted(*base, lowLog) {
		r.note("critical warning did not change after lowering threshold to %d K, device may not support it", lowered)
		return
	}
	r.logger.WithField("threshold", lowered).Info("Temperature threshold warning raised")
}

func thresholdReacted(before, after smart.HealthLog) bool {
	return before.CriticalWarning.TemperatureThreshold() != after.CriticalWarning.TemperatureThreshold() ||
		before.WarningTempTimeMinutes != after.WarningTempTimeMinutes
}

// restore puts the original temperature threshold back. Failures are recorded, the outcome stays.
func (r *run) restore() {
	if r.report.OriginalThresholdKelvin == nil {
		return
	}
	original := *r.report.OriginalThresholdKelvin
	if err := r.ctrl.SetTemperatureThreshold(original); err != nil {
		r.logger.WithError(err).WithField("threshold", original).Error("Failed to restore temperature threshold")
		r.report.RestoreError = err.Error()
		return
	}
	r.logger.WithField("threshold", original).Info("Temperature threshold restored")
}
