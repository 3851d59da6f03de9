package config

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

var dotenvOnce sync.Once

// LoadDotEnv reads .env from the working directory once per process. Values
// already present in the environment win; a missing file is not an error.
func LoadDotEnv() {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
}

// ProductionLike reports whether environment is staging or production,
// where development defaults such as localhost hosts are refused.
func ProductionLike(environment string) bool {
	env := strings.ToLower(strings.TrimSpace(environment))
	return env == EnvStaging || env == EnvProduction
}
