// Package config loads the buffer pool daemon's deployment parameters from
// the environment, optionally seeded from a .env file first.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Config holds everything needed to stand up a buffer pool and its
// introspection surface. PageSize is not part of this struct: it is a
// deployment constant (common.DefaultPageSize), not a runtime knob.
type Config struct {
	// Environment selects "dev" (human-readable logs) or "prod" (JSON logs).
	Environment string `envconfig:"ENVIRONMENT" default:"dev"`

	// PoolSize is the number of frames the buffer pool manages.
	PoolSize uint64 `envconfig:"POOL_SIZE" default:"128"`

	// DataDir is the directory the disk manager stores its page files in.
	DataDir string `envconfig:"DATA_DIR" default:"./data"`

	// HTTPAddr is the listen address for the stats/health introspection
	// server (see src/httpstats).
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"127.0.0.1:8089"`

	// FlushWorkers bounds the worker pool FlushAllPages fans its disk
	// writes out across.
	FlushWorkers int `envconfig:"FLUSH_WORKERS" default:"8"`
}

// Load reads a .env file at envFile if present (a missing file is not an
// error) and then populates Config from the process environment under the
// "BUFFERPOOL" prefix, e.g. BUFFERPOOL_POOL_SIZE.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("bufferpool", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
