package smart

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 31, 511, 513, 4096} {
		_, err := Decode(make([]byte, n))
		assert.True(t, errdefs.IsFormat(err), "length %d", n)
	}
}

func TestDecodeZeroPageIsGood(t *testing.T) {
	l, err := Decode(make([]byte, LogSize))
	assert.NoError(t, err)

	s := l.Summary()
	assert.Equal(t, HealthGood, s.OverallHealth)
	assert.Nil(t, s.CompositeTemperatureCelsius)
	assert.Nil(t, s.TemperatureOK)
	assert.True(t, s.SpareOK)
	assert.True(t, s.WearLevelOK)
	assert.Empty(t, l.Sensors())
}

func TestDecodeTemperatureWarning(t *testing.T) {
	data := make([]byte, LogSize)
	data[0] = 0x02

	l, err := Decode(data)
	assert.NoError(t, err)
	assert.True(t, l.CriticalWarning.TemperatureThreshold())
	assert.False(t, l.CriticalWarning.SpareThreshold())
	assert.False(t, l.CriticalWarning.ReliabilityDegraded())
	assert.False(t, l.CriticalWarning.ReadOnly())
	assert.False(t, l.CriticalWarning.VolatileMemoryBackup())
	assert.Equal(t, HealthWarning, l.Summary().OverallHealth)
}

func TestDecodeFields(t *testing.T) {
	data := make([]byte, LogSize)
	data[0] = 0x1d
	binary.LittleEndian.PutUint16(data[1:], 310)
	data[3] = 100
	data[4] = 10
	data[5] = 85
	binary.LittleEndian.PutUint64(data[32:], 2)
	binary.LittleEndian.PutUint64(data[48:], 3)
	binary.LittleEndian.PutUint64(data[64:], 1000)
	binary.LittleEndian.PutUint64(data[80:], 2000)
	binary.LittleEndian.PutUint64(data[96:], 7)
	binary.LittleEndian.PutUint64(data[112:], 42)
	binary.LittleEndian.PutUint64(data[128:], 999)
	binary.LittleEndian.PutUint64(data[144:], 5)
	binary.LittleEndian.PutUint64(data[160:], 1)
	binary.LittleEndian.PutUint64(data[176:], 12)
	binary.LittleEndian.PutUint32(data[192:], 60)
	binary.LittleEndian.PutUint32(data[196:], 6)
	binary.LittleEndian.PutUint16(data[200:], 305)
	binary.LittleEndian.PutUint16(data[214:], 320)
	// high halves of the 16 byte counters are ignored
	data[72] = 0xff

	l, err := Decode(data)
	assert.NoError(t, err)

	assert.True(t, l.CriticalWarning.SpareThreshold())
	assert.False(t, l.CriticalWarning.TemperatureThreshold())
	assert.True(t, l.CriticalWarning.ReliabilityDegraded())
	assert.True(t, l.CriticalWarning.ReadOnly())
	assert.True(t, l.CriticalWarning.VolatileMemoryBackup())
	assert.Equal(t, uint16(310), l.CompositeTemperatureKelvin)
	assert.Equal(t, uint8(100), l.AvailableSparePercent)
	assert.Equal(t, uint8(10), l.SpareThresholdPercent)
	assert.Equal(t, uint8(85), l.PercentageUsed)
	assert.Equal(t, uint64(2), l.DataUnitsRead)
	assert.Equal(t, uint64(3), l.DataUnitsWritten)
	assert.Equal(t, uint64(1000), l.HostReadCommands)
	assert.Equal(t, uint64(2000), l.HostWriteCommands)
	assert.Equal(t, uint64(7), l.ControllerBusyMinutes)
	assert.Equal(t, uint64(42), l.PowerCycles)
	assert.Equal(t, uint64(999), l.PowerOnHours)
	assert.Equal(t, uint64(5), l.UnsafeShutdowns)
	assert.Equal(t, uint64(1), l.MediaErrors)
	assert.Equal(t, uint64(12), l.ErrorLogEntries)
	assert.Equal(t, uint32(60), l.WarningTempTimeMinutes)
	assert.Equal(t, uint32(6), l.CriticalTempTimeMinutes)
	assert.Equal(t, map[int]uint16{1: 305, 8: 320}, l.Sensors())

	s := l.Summary()
	assert.Equal(t, HealthWarning, s.OverallHealth)
	assert.InDelta(t, 36.85, *s.CompositeTemperatureCelsius, 0.001)
	assert.True(t, *s.TemperatureOK)
	assert.True(t, s.SpareOK)
	assert.False(t, s.WearLevelOK)
	assert.Equal(t, uint64(2*512000), s.TotalBytesRead)
	assert.Equal(t, uint64(3*512000), s.TotalBytesWritten)
}

func TestSummaryHotAndLowSpare(t *testing.T) {
	l := HealthLog{CompositeTemperatureKelvin: 358, AvailableSparePercent: 5, SpareThresholdPercent: 10}
	s := l.Summary()
	assert.False(t, *s.TemperatureOK)
	assert.False(t, s.SpareOK)
}

func TestDecodeIsPure(t *testing.T) {
	data := make([]byte, LogSize)
	for i := range data {
		data[i] = byte(i * 7)
	}

	first, err := Decode(data)
	assert.NoError(t, err)
	second, err := Decode(data)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}
