package disk

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds settings shared by the CLI and image access.
type Config struct {
	SectorSize      uint32 `mapstructure:"sector_size"`
	Offset          int64  `mapstructure:"offset"`
	AutoDetect      bool   `mapstructure:"auto_detect"`
	LogLevel        string `mapstructure:"log_level"`
	Output          string `mapstructure:"output"`
	ScanWorkers     int    `mapstructure:"scan_workers"`
	ScanChunkBlocks uint64 `mapstructure:"scan_chunk_blocks"`
}

// DefaultConfig returns the settings used when no file or environment
// overrides them.
func DefaultConfig() *Config {
	return &Config{
		SectorSize:      512,
		Offset:          0,
		AutoDetect:      false,
		LogLevel:        "warn",
		Output:          "table",
		ScanWorkers:     4,
		ScanChunkBlocks: 4096,
	}
}

// LoadConfig loads configuration using Viper. When path is empty the file
// xfs-config.yaml is searched for in the usual locations; a missing file is
// not an error. GOXFS_ environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("xfs-config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.go-xfs")
		v.AddConfigPath("/etc/go-xfs")
	}

	def := DefaultConfig()
	v.SetDefault("sector_size", def.SectorSize)
	v.SetDefault("offset", def.Offset)
	v.SetDefault("auto_detect", def.AutoDetect)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("output", def.Output)
	v.SetDefault("scan_workers", def.ScanWorkers)
	v.SetDefault("scan_chunk_blocks", def.ScanChunkBlocks)

	v.SetEnvPrefix("GOXFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "error reading config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.SectorSize == 0 || c.SectorSize&(c.SectorSize-1) != 0 {
		return errors.Errorf("sector_size %d is not a power of two", c.SectorSize)
	}
	if c.Offset < 0 {
		return errors.Errorf("offset %d is negative", c.Offset)
	}
	if c.ScanWorkers < 1 {
		return errors.Errorf("scan_workers must be at least 1, got %d", c.ScanWorkers)
	}
	if c.ScanChunkBlocks == 0 {
		return errors.New("scan_chunk_blocks must be positive")
	}
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return errors.Errorf("output %q must be table, json or yaml", c.Output)
	}
	return nil
}
