package exporter

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/hwameistor/nvmectl/pkg/nvme/discovery"
	"github.com/hwameistor/nvmectl/pkg/nvme/smart"
)

var _ prometheus.Collector = &SMARTCollector{}

// smartDescs holds one Desc per exported metric, keyed by metric name
var smartDescs sync.Map

var deviceLabels = []string{"device", "serial", "model"}

// maxConcurrentReads bounds the admin commands in flight during one scrape
const maxConcurrentReads = 8

// HealthReader reads the SMART / Health log of one controller
type HealthReader interface {
	SmartLog() (smart.HealthLog, error)
}

// SMARTCollector reads the health log of every attached controller on each scrape
type SMARTCollector struct {
	enum   discovery.Enumerator
	open   func(dev discovery.Device) HealthReader
	logger *log.Entry
}

// NewSMARTCollector collects SMART metrics through admin passthrough
func NewSMARTCollector(enum discovery.Enumerator, open func(dev discovery.Device) HealthReader) *SMARTCollector {
	return &SMARTCollector{
		enum:   enum,
		open:   open,
		logger: log.WithField("Module", "SMARTCollector"),
	}
}

func (sc *SMARTCollector) Describe(ch chan<- *prometheus.Desc) {
	smartDescs.Range(func(_, desc interface{}) bool {
		ch <- desc.(*prometheus.Desc)
		return true
	})
}

func (sc *SMARTCollector) Collect(ch chan<- prometheus.Metric) {
	devices, err := sc.enum.List()
	if err != nil {
		sc.logger.WithError(err).Error("Failed to list nvme controllers")
		return
	}

	type result struct {
		log smart.HealthLog
		err error
	}
	results := make([]result, len(devices))

	eg, _ := errgroup.WithContext(context.TODO())
	eg.SetLimit(maxConcurrentReads)
	for i, dev := range devices {
		i, dev := i, dev
		eg.Go(func() error {
			results[i].log, results[i].err = sc.open(dev).SmartLog()
			return nil
		})
	}
	_ = eg.Wait()

	for i, dev := range devices {
		labels := []string{dev.Name, dev.Serial, dev.Model}
		if err := results[i].err; err != nil {
			sc.logger.WithError(err).WithField("device", dev.Path).Error("Failed to read smart log")
			ch <- gauge("nvme_smart_scrape_success", 0, labels)
			continue
		}
		ch <- gauge("nvme_smart_scrape_success", 1, labels)
		collectHealthLog(ch, results[i].log, labels)
	}
}

func collectHealthLog(ch chan<- prometheus.Metric, l smart.HealthLog, labels []string) {
	ch <- gauge("nvme_critical_warning", float64(l.CriticalWarning), labels)
	ch <- gauge("nvme_available_spare_ratio", float64(l.AvailableSparePercent)/100, labels)
	ch <- gauge("nvme_available_spare_threshold_ratio", float64(l.SpareThresholdPercent)/100, labels)
	ch <- gauge("nvme_percentage_used_ratio", float64(l.PercentageUsed)/100, labels)
	if celsius, ok := l.CompositeTemperatureCelsius(); ok {
		ch <- gauge("nvme_temperature_celsius", celsius, labels)
	}

	ch <- counter("nvme_data_units_read_total", float64(l.DataUnitsRead), labels)
	ch <- counter("nvme_data_units_written_total", float64(l.DataUnitsWritten), labels)
	ch <- counter("nvme_host_read_commands_total", float64(l.HostReadCommands), labels)
	ch <- counter("nvme_host_write_commands_total", float64(l.HostWriteCommands), labels)
	ch <- counter("nvme_controller_busy_time_seconds_total", float64(l.ControllerBusyMinutes)*60, labels)
	ch <- counter("nvme_power_cycles_total", float64(l.PowerCycles), labels)
	ch <- counter("nvme_power_on_hours_total", float64(l.PowerOnHours), labels)
	ch <- counter("nvme_unsafe_shutdowns_total", float64(l.UnsafeShutdowns), labels)
	ch <- counter("nvme_media_errors_total", float64(l.MediaErrors), labels)
	ch <- counter("nvme_num_err_log_entries_total", float64(l.ErrorLogEntries), labels)
}

func gauge(name string, value float64, labels []string) prometheus.Metric {
	return prometheus.MustNewConstMetric(loadDesc(name), prometheus.GaugeValue, value, labels...)
}

func counter(name string, value float64, labels []string) prometheus.Metric {
	return prometheus.MustNewConstMetric(loadDesc(name), prometheus.CounterValue, value, labels...)
}

func loadDesc(name string) *prometheus.Desc {
	desc, _ := smartDescs.Load(name)
	return desc.(*prometheus.Desc)
}

func init() {
	setupSmartDescs()
}

func setupSmartDescs() {
	help := map[string]string{
		"nvme_smart_scrape_success":               "whether the last health log read succeeded",
		"nvme_critical_warning":                   "critical warning bitmap of the health log",
		"nvme_available_spare_ratio":              "normalized available spare capacity",
		"nvme_available_spare_threshold_ratio":    "available spare threshold",
		"nvme_percentage_used_ratio":              "vendor estimate of life used",
		"nvme_temperature_celsius":                "composite temperature",
		"nvme_data_units_read_total":              "data units (512000 bytes) read by the host",
		"nvme_data_units_written_total":           "data units (512000 bytes) written by the host",
		"nvme_host_read_commands_total":           "read commands completed by the controller",
		"nvme_host_write_commands_total":          "write commands completed by the controller",
		"nvme_controller_busy_time_seconds_total": "time the controller was busy with I/O",
		"nvme_power_cycles_total":                 "power cycles",
		"nvme_power_on_hours_total":               "power on hours",
		"nvme_unsafe_shutdowns_total":             "unsafe shutdowns",
		"nvme_media_errors_total":                 "unrecovered data integrity errors",
		"nvme_num_err_log_entries_total":          "error information log entries over the controller life",
	}
	for name, text := range help {
		smartDescs.Store(name, prometheus.NewDesc(name, text, deviceLabels, nil))
	}
}
