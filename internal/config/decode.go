package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	RPCURL   string
	In       string
	Out      string
	Errors   string
	Assets   string
	PgDSN    string
	LogLevel string
}

// LoadDecode merges config file, environment variables, and flags into
// DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v := newViper()

	v.SetDefault("out", "./data/ledger_events.jsonl")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return DecodeConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := readConfigFile(v, cfgFile); err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		RPCURL:   v.GetString("rpc"),
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		Assets:   v.GetString("assets"),
		PgDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
