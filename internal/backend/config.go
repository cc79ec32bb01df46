package backend

import (
	"errors"
	"fmt"
	"strings"

	"ledger/internal/config"
)

var backendTypes = []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}

// FromAppConfig picks the store settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	c := Config{
		Type:         BackendType(strings.ToLower(strings.TrimSpace(appConfig.DataBackend))),
		SQLiteDBPath: strings.TrimSpace(appConfig.SQLiteDBPath),
		DatabaseURL:  strings.TrimSpace(appConfig.DatabaseURL),
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks that the settings the selected store needs are present.
func (c Config) Validate() error {
	switch c.Type {
	case MemoryBackend:
		return nil
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
		return nil
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres backend")
		}
		return nil
	default:
		return fmt.Errorf("invalid backend type %q: must be one of %s", c.Type, strings.Join(TypeNames(), ", "))
	}
}

// TypeNames lists the accepted DATA_BACKEND values.
func TypeNames() []string {
	out := make([]string, len(backendTypes))
	for i, t := range backendTypes {
		out[i] = t.String()
	}
	return out
}
