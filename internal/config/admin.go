package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// AdminConfig holds the settings of the maintenance commands.
type AdminConfig struct {
	PGDSN    string
	LogLevel string
}

// LoadAdmin loads the database and logging settings only.
func LoadAdmin(cfgFile string, flags *pflag.FlagSet) (AdminConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return AdminConfig{}, err
	}
	cfg := AdminConfig{
		PGDSN:    v.GetString("pg-dsn"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.PGDSN == "" {
		return AdminConfig{}, fmt.Errorf("pg dsn is required")
	}
	return cfg, nil
}
