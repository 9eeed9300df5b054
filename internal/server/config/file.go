package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/accounts/internal/flagx"
	"github.com/dmitrijs2005/accounts/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations use
// timex.Duration so both "10s" and integer nanoseconds are accepted.
type FileConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC   string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN        string         `json:"database_dsn" yaml:"database_dsn"`
	MigrationLocations []string       `json:"migration_locations" yaml:"migration_locations"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel           string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays the values of the file named by -c/-config onto config.
// Files ending in .yaml or .yml are read as YAML, anything else as JSON.
// Keys missing from the file leave the current values untouched. An
// unreadable or malformed file panics.
func parseFile(config *Config) {
	name := flagx.ConfigFileFlag()

	// nothing to load
	if name == "" {
		return
	}

	data, err := os.ReadFile(name)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.EndpointAddrGRPC != "" {
		config.EndpointAddrGRPC = c.EndpointAddrGRPC
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if len(c.MigrationLocations) > 0 {
		config.MigrationLocations = c.MigrationLocations
	}
	if c.ShutdownTimeout.Duration > 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.LogLevel != "" {
		config.LogLevel = c.LogLevel
	}
}
