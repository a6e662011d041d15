package boot

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-sdboot/internal/gpt"
	"github.com/deploymenttheory/go-sdboot/internal/types"
)

// Config holds the fixed parameters of a boot attempt. It is read once, before
// the sequence starts, and never changes while it runs.
type Config struct {
	ImagePath          string `mapstructure:"image_path"`
	DestinationAddress uint64 `mapstructure:"destination_address"`
	DestinationSize    uint64 `mapstructure:"destination_size"`
	ClockKHz           uint32 `mapstructure:"clock_khz"`
	PartitionType      string `mapstructure:"partition_type"`
}

// DefaultConfig returns the board defaults.
func DefaultConfig() Config {
	return Config{
		DestinationAddress: types.DefaultDestinationAddress,
		DestinationSize:    types.DefaultPayloadSize,
		ClockKHz:           types.DefaultClockKHz,
		PartitionType:      types.EFISystemPartitionGUID,
	}
}

// LoadConfig loads configuration using Viper. An explicit configFile must
// exist; otherwise sdboot-config.yaml is searched for and may be absent.
// Environment variables prefixed with SDBOOT_ override both.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("sdboot-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.sdboot")
		v.AddConfigPath("/etc/sdboot")
	}

	defaults := DefaultConfig()
	v.SetDefault("image_path", defaults.ImagePath)
	v.SetDefault("destination_address", defaults.DestinationAddress)
	v.SetDefault("destination_size", defaults.DestinationSize)
	v.SetDefault("clock_khz", defaults.ClockKHz)
	v.SetDefault("partition_type", defaults.PartitionType)

	v.SetEnvPrefix("SDBOOT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "error reading config file")
		}
		// Config file not found is OK, we'll use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	return &config, nil
}

// Validate checks the configuration before a boot attempt.
func (c *Config) Validate() error {
	if c.ImagePath == "" {
		return errors.New("card image path is required")
	}
	if c.DestinationSize == 0 {
		return errors.New("destination size must be greater than zero")
	}
	if c.DestinationSize%types.BlockSize != 0 {
		return errors.Newf("destination size %d is not a multiple of %d", c.DestinationSize, types.BlockSize)
	}
	if c.DestinationAddress+c.DestinationSize < c.DestinationAddress {
		return errors.New("destination region wraps the address space")
	}
	if c.ClockKHz == 0 {
		return errors.New("clock frequency must be greater than zero")
	}
	if _, err := c.TargetGUID(); err != nil {
		return err
	}
	return nil
}

// TargetGUID returns the partition type to load in on-disk byte order.
func (c *Config) TargetGUID() (gpt.GUID, error) {
	return gpt.ParseGUID(c.PartitionType)
}
