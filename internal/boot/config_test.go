package boot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, uint64(0x80000000), config.DestinationAddress)
	assert.Equal(t, uint64(30<<20), config.DestinationSize)
	assert.Equal(t, uint32(50000), config.ClockKHz)

	target, err := config.TargetGUID()
	require.NoError(t, err)
	assert.Equal(t, gpt.EFISystemPartition, target)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdboot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
image_path: /dev/mmcblk0
destination_address: 0x40000000
clock_khz: 25000
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/mmcblk0", config.ImagePath)
	assert.Equal(t, uint64(0x40000000), config.DestinationAddress)
	assert.Equal(t, uint32(25000), config.ClockKHz)
	assert.Equal(t, uint64(types.DefaultPayloadSize), config.DestinationSize)
	assert.Equal(t, types.EFISystemPartitionGUID, config.PartitionType)
}

func TestLoadConfigEnvironmentOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdboot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image_path: card.img\n"), 0o644))
	t.Setenv("SDBOOT_CLOCK_KHZ", "400")
	t.Setenv("SDBOOT_IMAGE_PATH", "other.img")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(400), config.ClockKHz)
	assert.Equal(t, "other.img", config.ImagePath)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing image", mutate: func(c *Config) { c.ImagePath = "" }, wantErr: true},
		{name: "zero size", mutate: func(c *Config) { c.DestinationSize = 0 }, wantErr: true},
		{name: "partial block", mutate: func(c *Config) { c.DestinationSize = 1000 }, wantErr: true},
		{name: "wrapping region", mutate: func(c *Config) { c.DestinationAddress = ^uint64(0) - 511 }, wantErr: true},
		{name: "zero clock", mutate: func(c *Config) { c.ClockKHz = 0 }, wantErr: true},
		{name: "bad partition type", mutate: func(c *Config) { c.PartitionType = "esp" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testConfig()
			tt.mutate(&config)
			err := config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
