package lifecycle

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/hwameistor/nvmectl/pkg/nvme/namespace"
)

const (
	DiscoveryUdev    = "udev"
	DiscoveryNVMeCLI = "nvme-cli"
)

// Config drives one lifecycle run
type Config struct {
	// Serial identifies the controller under test
	Serial string `yaml:"serial"`
	// Discovery selects how Serial is resolved: udev or nvme-cli
	Discovery string `yaml:"discovery"`

	// NamespaceID is captured as the baseline and deleted by the run
	NamespaceID  uint32 `yaml:"namespaceId"`
	ControllerID uint16 `yaml:"controllerId"`
	// Target is the geometry the namespace is re-created with.
	// Only protection type 0 is accepted: create writes DPS while identify
	// namespace reports the byte after it, so no other value can be verified.
	Target      namespace.Geometry `yaml:"target"`
	SecureErase uint8              `yaml:"secureErase"`

	MinOps int `yaml:"minOps"`
	MaxOps int `yaml:"maxOps"`
	// BlockSize overrides the block size read back from identify namespace
	BlockSize int `yaml:"blockSize"`

	// ReferenceIdentify is an identify controller buffer saved with `nvmectl id-ctrl --save`.
	// When set, PreCheck compares the controller against it.
	ReferenceIdentify string `yaml:"referenceIdentify"`

	MaxPowerOnHours             uint64 `yaml:"maxPowerOnHours"`
	MaxPercentageUsed           uint8  `yaml:"maxPercentageUsed"`
	ContinueOnPreCheckViolation bool   `yaml:"continueOnPreCheckViolation"`

	// TemperatureDropKelvin is how far below the composite temperature the threshold is lowered
	TemperatureDropKelvin uint16 `yaml:"temperatureDropKelvin"`

	CommandTimeout time.Duration `yaml:"commandTimeout"`
	FormatTimeout  time.Duration `yaml:"formatTimeout"`
}

// DefaultConfig returns a config with every optional field set
func DefaultConfig() Config {
	return Config{
		Discovery:             DiscoveryUdev,
		NamespaceID:           1,
		MinOps:                10,
		MaxOps:                1000,
		MaxPowerOnHours:       1000,
		MaxPercentageUsed:     100,
		TemperatureDropKelvin: 5,
		CommandTimeout:        30 * time.Second,
		FormatTimeout:         10 * time.Minute,
	}
}

// LoadConfig reads a yaml file over the defaults
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Serial == "" {
		return errors.New("serial is required")
	}
	if c.Discovery != DiscoveryUdev && c.Discovery != DiscoveryNVMeCLI {
		return errors.Errorf("unknown discovery %q, must be %s or %s", c.Discovery, DiscoveryUdev, DiscoveryNVMeCLI)
	}
	if c.NamespaceID == 0 {
		return errors.New("namespaceId must be non zero")
	}
	if c.Target.SizeBlocks == 0 {
		return errors.New("target.sizeBlocks is required")
	}
	if c.Target.CapacityBlocks == 0 {
		c.Target.CapacityBlocks = c.Target.SizeBlocks
	}
	if c.Target.CapacityBlocks > c.Target.SizeBlocks {
		return errors.Errorf("target.capacityBlocks %d exceeds sizeBlocks %d", c.Target.CapacityBlocks, c.Target.SizeBlocks)
	}
	if c.Target.FormatIndex > 0x0F {
		return errors.Errorf("target.formatIndex %d out of range", c.Target.FormatIndex)
	}
	if c.Target.ProtectionType != 0 {
		return errors.Errorf("target.protectionType %d not supported, only 0 can be verified after create", c.Target.ProtectionType)
	}
	if c.SecureErase > 0x07 {
		return errors.Errorf("secureErase %d out of range", c.SecureErase)
	}
	if c.MinOps <= 0 || c.MaxOps < c.MinOps {
		return errors.Errorf("invalid operation range [%d, %d]", c.MinOps, c.MaxOps)
	}
	if c.BlockSize < 0 {
		return errors.Errorf("invalid blockSize %d", c.BlockSize)
	}
	return nil
}

func (c *Config) commandTimeoutMs() uint32 {
	return uint32(c.CommandTimeout / time.Millisecond)
}

func (c *Config) formatTimeoutMs() uint32 {
	return uint32(c.FormatTimeout / time.Millisecond)
}

// ControllerTimeouts returns the descriptor timeouts in milliseconds
func (c *Config) ControllerTimeouts() (commandMs, formatMs uint32) {
	return c.commandTimeoutMs(), c.formatTimeoutMs()
}
