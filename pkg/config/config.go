// Package config holds the cmd/poskernel host's process-level settings —
// never business rules (spec §7 ConfigurationMissing: business rules are
// never hardcoded in the kernel, and neither is the store profile path).
package config

import "github.com/kelseyhightower/envconfig"

// Config is read once at process startup via envconfig, matching the
// teacher's declared dependency (SPEC_FULL §10).
type Config struct {
	// StoreProfileIndexPath points at the declarative document spec §6
	// names (opaque format; pkg/storeprofile.Load is this repo's
	// concrete reader).
	StoreProfileIndexPath string `envconfig:"STORE_PROFILE_INDEX" default:"profiles.json"`
	// LogLevel is passed straight to logrus.ParseLevel by the host.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	// SchemaDatabaseDriver names a default storedb.Driver. The host does
	// not read it: storedb.Open itself treats an empty database.type as
	// sqlite3, the same value as this default.
	SchemaDatabaseDriver string `envconfig:"SCHEMA_DB_DRIVER" default:"sqlite3"`
}

// Load reads Config from the process environment, prefixed POSKERNEL_.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("poskernel", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
