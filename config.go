package seekly

import (
	"os"
	"time"

	"github.com/ghodss/yaml"
	"github.com/seekly/seekly-go/errors"
	"github.com/seekly/seekly-go/util"
)

// Config configures a client
type Config struct {
	// Endpoint is the backend base url
	Endpoint string `json:"endpoint" validate:"required,url"`
	// APIKey is a bearer token (mutually exclusive with Username/Password)
	APIKey string `json:"apiKey,omitempty"`
	// Username and Password form a basic pair
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	// LogLevel is the log level (error/warn/info/debug)
	LogLevel string `json:"logLevel,omitempty"`
	// RequestTimeout is the per-attempt request timeout
	RequestTimeout time.Duration `json:"requestTimeout,omitempty"`
	// Retry bounds the retry/backoff behavior
	Retry *RetryPolicy `json:"retry,omitempty"`
}

// Validate validates the config and returns a validation error if one exists
func (c Config) Validate() error {
	if err := util.ValidateStruct(c); err != nil {
		return errors.Wrap(err, errors.Config, "invalid config")
	}
	if c.APIKey != "" && c.Username != "" {
		return errors.New(errors.Config, "config accepts an api key or a basic pair, not both")
	}
	return nil
}

// credentials derives the credential provider from the config
func (c Config) credentials() CredentialProvider {
	if c.APIKey != "" {
		return BearerToken(c.APIKey)
	}
	if c.Username != "" {
		return BasicAuth(c.Username, c.Password)
	}
	return nil
}

// LoadConfig loads a yaml config file
func LoadConfig(path string) (Config, error) {
	bits, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.Config, "failed to read config file '%s'", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(bits, &cfg); err != nil {
		return Config{}, errors.Wrap(err, errors.Config, "failed to parse config file '%s'", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
