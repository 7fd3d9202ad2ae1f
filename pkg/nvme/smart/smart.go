package smart

import (
	"encoding/binary"
	"strconv"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

const (
	// LogSize is the size of the SMART / Health Information log page
	LogSize = 512

	// DataUnitBytes is the size of one data unit: 1000 * 512 bytes
	DataUnitBytes = 1000 * 512

	// MaxTemperatureSensors is the number of sensor slots in the log page
	MaxTemperatureSensors = 8

	// temperatureLimitKelvin is 85 °C
	temperatureLimitKelvin = 358
	wearLevelLimitPercent  = 80
	kelvinOffset           = 273.15
)

const (
	HealthGood    = "GOOD"
	HealthWarning = "WARNING"
)

// CriticalWarning is the critical warning byte of the log page
type CriticalWarning uint8

const (
	WarnSpareThreshold       CriticalWarning = 1 << 0
	WarnTemperatureThreshold CriticalWarning = 1 << 1
	WarnReliabilityDegraded  CriticalWarning = 1 << 2
	WarnReadOnly             CriticalWarning = 1 << 3
	WarnVolatileMemoryBackup CriticalWarning = 1 << 4
)

func (w CriticalWarning) SpareThreshold() bool       { return w&WarnSpareThreshold != 0 }
func (w CriticalWarning) TemperatureThreshold() bool { return w&WarnTemperatureThreshold != 0 }
func (w CriticalWarning) ReliabilityDegraded() bool  { return w&WarnReliabilityDegraded != 0 }
func (w CriticalWarning) ReadOnly() bool             { return w&WarnReadOnly != 0 }
func (w CriticalWarning) VolatileMemoryBackup() bool { return w&WarnVolatileMemoryBackup != 0 }

// HealthLog is one decoded SMART / Health Information log page.
//
// The 16 byte counters of the log page are read as their low 8 bytes; values
// past 2^64 are not representable here.
type HealthLog struct {
	CriticalWarning            CriticalWarning `json:"critical_warning"`
	CompositeTemperatureKelvin uint16          `json:"composite_temperature_kelvin"`
	AvailableSparePercent      uint8           `json:"available_spare"`
	SpareThresholdPercent      uint8           `json:"available_spare_threshold"`
	PercentageUsed             uint8           `json:"percentage_used"`
	DataUnitsRead              uint64          `json:"data_units_read"`
	DataUnitsWritten           uint64          `json:"data_units_written"`
	HostReadCommands           uint64          `json:"host_read_commands"`
	HostWriteCommands          uint64          `json:"host_write_commands"`
	ControllerBusyMinutes      uint64          `json:"controller_busy_time"`
	PowerCycles                uint64          `json:"power_cycles"`
	PowerOnHours               uint64          `json:"power_on_hours"`
	UnsafeShutdowns            uint64          `json:"unsafe_shutdowns"`
	MediaErrors                uint64          `json:"media_errors"`
	ErrorLogEntries            uint64          `json:"num_err_log_entries"`
	WarningTempTimeMinutes     uint32          `json:"warning_temp_time"`
	CriticalTempTimeMinutes    uint32          `json:"critical_comp_time"`
	// TemperatureSensors holds sensors 1..8 in Kelvin, 0 when the sensor is absent
	TemperatureSensors [MaxTemperatureSensors]uint16 `json:"temperature_sensors"`
}

// Decode parses a 512 byte log page. It keeps no state between calls.
func Decode(data []byte) (HealthLog, error) {
	var l HealthLog
	if len(data) != LogSize {
		return l, &errdefs.FormatError{Decoder: "smart log", Want: strconv.Itoa(LogSize), Got: len(data)}
	}

	l.CriticalWarning = CriticalWarning(data[0])
	l.CompositeTemperatureKelvin = binary.LittleEndian.Uint16(data[1:3])
	l.AvailableSparePercent = data[3]
	l.SpareThresholdPercent = data[4]
	l.PercentageUsed = data[5]
	// bytes 6-31 reserved

	l.DataUnitsRead = counter(data, 32)
	l.DataUnitsWritten = counter(data, 48)
	l.HostReadCommands = counter(data, 64)
	l.HostWriteCommands = counter(data, 80)
	l.ControllerBusyMinutes = counter(data, 96)
	l.PowerCycles = counter(data, 112)
	l.PowerOnHours = counter(data, 128)
	l.UnsafeShutdowns = counter(data, 144)
	l.MediaErrors = counter(data, 160)
	l.ErrorLogEntries = counter(data, 176)

	l.WarningTempTimeMinutes = binary.LittleEndian.Uint32(data[192:196])
	l.CriticalTempTimeMinutes = binary.LittleEndian.Uint32(data[196:200])
	for i := 0; i < MaxTemperatureSensors; i++ {
		offset := 200 + 2*i
		l.TemperatureSensors[i] = binary.LittleEndian.Uint16(data[offset : offset+2])
	}

	return l, nil
}

// counter reads the low 8 bytes of a 16 byte little-endian counter
func counter(data []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(data[offset : offset+8])
}

// CompositeTemperatureCelsius returns false when the controller reports no temperature
func (l HealthLog) CompositeTemperatureCelsius() (float64, bool) {
	if l.CompositeTemperatureKelvin == 0 {
		return 0, false
	}
	return float64(l.CompositeTemperatureKelvin) - kelvinOffset, true
}

func (l HealthLog) TotalBytesRead() uint64 {
	return l.DataUnitsRead * DataUnitBytes
}

func (l HealthLog) TotalBytesWritten() uint64 {
	return l.DataUnitsWritten * DataUnitBytes
}

// Sensors lists the present temperature sensors, keyed by their 1-based slot
func (l HealthLog) Sensors() map[int]uint16 {
	sensors := map[int]uint16{}
	for i, k := range l.TemperatureSensors {
		if k != 0 {
			sensors[i+1] = k
		}
	}
	return sensors
}

// Summary holds advisory values derived from a log page.
// Pass/fail decisions use the raw counters, never these.
type Summary struct {
	OverallHealth               string   `json:"overall_health"`
	CompositeTemperatureCelsius *float64 `json:"composite_temperature_celsius,omitempty"`
	TemperatureOK               *bool    `json:"temperature_ok,omitempty"`
	SpareOK                     bool     `json:"spare_ok"`
	WearLevelOK                 bool     `json:"wear_level_ok"`
	TotalBytesRead              uint64   `json:"total_bytes_read"`
	TotalBytesWritten           uint64   `json:"total_bytes_written"`
}

func (l HealthLog) Summary() Summary {
	s := Summary{
		OverallHealth:     HealthGood,
		SpareOK:           l.AvailableSparePercent >= l.SpareThresholdPercent,
		WearLevelOK:       l.PercentageUsed < wearLevelLimitPercent,
		TotalBytesRead:    l.TotalBytesRead(),
		TotalBytesWritten: l.TotalBytesWritten(),
	}
	if l.CriticalWarning != 0 {
		s.OverallHealth = HealthWarning
	}
	if celsius, ok := l.CompositeTemperatureCelsius(); ok {
		tempOK := l.CompositeTemperatureKelvin < temperatureLimitKelvin
		s.CompositeTemperatureCelsius = &celsius
		s.TemperatureOK = &tempOK
	}
	return s
}
