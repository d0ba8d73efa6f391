// Package config loads the client configuration from an optional yaml
// file and the environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every tunable of the client core.
type Config struct {
	// DataDir is where the embedded database, the identity snapshot, and
	// the session token live.
	DataDir string `yaml:"data_dir" env:"FUNDWISE_DATA_DIR" env-default:"./data" env-description:"Local data directory"`

	// Remote selects a remote document store; empty means embedded.
	Remote Remote `yaml:"remote"`

	// AuthInitTimeout bounds how long session initialization waits for
	// the auth provider before trusting the cached identity.
	AuthInitTimeout time.Duration `yaml:"auth_init_timeout" env:"FUNDWISE_AUTH_INIT_TIMEOUT" env-default:"3s"`

	// RefreshPeriod is the polling interval for the selected fund's
	// transactions.
	RefreshPeriod time.Duration `yaml:"refresh_period" env:"FUNDWISE_REFRESH_PERIOD" env-default:"30s"`

	// StrictExactSplits rejects manual splits that don't sum to the
	// expense amount.
	StrictExactSplits bool `yaml:"strict_exact_splits" env:"FUNDWISE_STRICT_EXACT_SPLITS" env-default:"false"`

	// TokenSecret signs session tokens for the local auth provider.
	TokenSecret string `yaml:"token_secret" env:"FUNDWISE_TOKEN_SECRET" env-default:"dev-secret-change-me"`

	// TokenDuration bounds how long a persisted session can be resumed.
	TokenDuration time.Duration `yaml:"token_duration" env:"FUNDWISE_TOKEN_DURATION" env-default:"720h"`
}

// Remote configures the HTTP document store client.
type Remote struct {
	// BaseURL of the remote API, e.g. http://localhost:8080.
	BaseURL string `yaml:"base_url" env:"FUNDWISE_REMOTE_URL" env-default:""`

	// H2C speaks HTTP/2 cleartext to the remote.
	H2C bool `yaml:"h2c" env:"FUNDWISE_REMOTE_H2C" env-default:"false"`
}

// Load reads the config file named by FUNDWISE_CONFIG (when set) and
// then the environment.
func Load() (*Config, error) {
	var cfg Config

	if path := os.Getenv("FUNDWISE_CONFIG"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return &cfg, nil
}
