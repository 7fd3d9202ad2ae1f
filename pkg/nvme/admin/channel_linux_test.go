//go:build linux

package admin

import (
	"path/filepath"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/hwameistor/nvmectl/pkg/nvme/errdefs"
)

func TestExchangeMissingDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvme9")
	req, err := Build(Params{Opcode: OpIdentify, DataLen: IdentifyDataLen, Cdw10: 1})
	assert.NoError(t, err)

	_, err = NewAdminChannel(path).Exchange(req)

	var devErr *errdefs.DeviceError
	assert.True(t, errors.As(err, &devErr))
	assert.Equal(t, "open", devErr.Op)
	assert.Equal(t, syscall.ENOENT, devErr.Errno)
}

func TestExchangeNonNVMeNode(t *testing.T) {
	// /dev/null opens fine but rejects the NVMe request code
	_, err := NewAdminChannel("/dev/null").Exchange(&Request{Command: Command{Opcode: OpIdentify}})

	var devErr *errdefs.DeviceError
	assert.True(t, errors.As(err, &devErr))
	assert.Equal(t, "ioctl", devErr.Op)
	assert.NotZero(t, devErr.Errno)
}

func TestRescanMissingDevice(t *testing.T) {
	err := NewAdminChannel(filepath.Join(t.TempDir(), "nvme9")).Rescan()
	assert.True(t, errdefs.IsDevice(err))
}
