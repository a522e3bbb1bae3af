package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// MigrateConfig holds configuration for the migrate command.
type MigrateConfig struct {
	DBPath   string
	LogLevel string
}

// LoadMigrate merges config file, environment variables, and flags into
// MigrateConfig.
func LoadMigrate(cfgFile string, flags *pflag.FlagSet) (MigrateConfig, error) {
	v := newViper()

	v.SetDefault("db", "./data/user.db")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return MigrateConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := readConfigFile(v, cfgFile); err != nil {
		return MigrateConfig{}, err
	}

	cfg := MigrateConfig{
		DBPath:   v.GetString("db"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
