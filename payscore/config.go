package payscore

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// DefaultAPIBaseURL is the production gateway.
const DefaultAPIBaseURL = "https://api.mch.weixin.qq.com"

// ErrInvalidConfig wraps every Config.Validate failure.
var ErrInvalidConfig = errors.New("payscore: invalid config")

// Config is the merchant configuration read from the environment.
type Config struct {
	MchID              string `env:"PAYSCORE_MCH_ID"`
	AppID              string `env:"PAYSCORE_APP_ID"`
	ServiceID          string `env:"PAYSCORE_SERVICE_ID"`
	APIBaseURL         string `env:"PAYSCORE_API_BASE_URL"`
	APIKey             string `env:"PAYSCORE_API_KEY"`
	APIv3Key           string `env:"PAYSCORE_APIV3_KEY"`
	PrivateKeyPath     string `env:"PAYSCORE_PRIVATE_KEY_PATH"`
	CertSerialNo       string `env:"PAYSCORE_CERT_SERIAL_NO"`
	HTTPTimeoutSeconds int    `env:"PAYSCORE_HTTP_TIMEOUT_SECONDS"`
	MaxRetries         int    `env:"PAYSCORE_MAX_RETRIES"`
	RedisAddress       string `env:"PAYSCORE_REDIS_ADDRESS"`
	LogLevel           string `env:"LOG_LEVEL"`
	EnvName            string `env:"ENV_NAME"`
}

// LoadConfig reads Config from the environment after loading a local .env
// file when ENV_NAME is "local", then applies defaults and validates it.
func LoadConfig() (Config, error) {
	InitLocalEnvConfig()

	cfg := Config{
		APIBaseURL:         DefaultAPIBaseURL,
		HTTPTimeoutSeconds: 30,
		MaxRetries:         3,
		LogLevel:           "info",
		EnvName:            "local",
	}

	if err := SetConfigFromEnvVars(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks that exactly enough credentials are present to sign requests.
func (c Config) Validate() error {
	if c.MchID == "" {
		return fmt.Errorf("%w: PAYSCORE_MCH_ID is required", ErrInvalidConfig)
	}

	rsaMode := c.PrivateKeyPath != ""
	if !rsaMode && c.APIKey == "" {
		return fmt.Errorf("%w: either PAYSCORE_PRIVATE_KEY_PATH or PAYSCORE_API_KEY is required", ErrInvalidConfig)
	}

	if rsaMode && c.CertSerialNo == "" {
		return fmt.Errorf("%w: PAYSCORE_CERT_SERIAL_NO is required with a private key", ErrInvalidConfig)
	}

	if c.APIv3Key != "" && len(c.APIv3Key) != 32 {
		return fmt.Errorf("%w: PAYSCORE_APIV3_KEY must be 32 bytes", ErrInvalidConfig)
	}

	if c.HTTPTimeoutSeconds < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("%w: timeouts and retries must not be negative", ErrInvalidConfig)
	}

	return nil
}

// UsesRSA reports whether requests are signed with the merchant private key.
func (c Config) UsesRSA() bool {
	return c.PrivateKeyPath != ""
}

// HTTPTimeout returns the per-request timeout.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// ReadPrivateKey reads the PEM file at PrivateKeyPath.
func (c Config) ReadPrivateKey() ([]byte, error) {
	if c.PrivateKeyPath == "" {
		return nil, fmt.Errorf("%w: no private key path", ErrInvalidConfig)
	}

	data, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	return data, nil
}

// IsProduction reports whether ENV_NAME names a production deployment.
func (c Config) IsProduction() bool {
	return c.EnvName == "production"
}

// String never exposes secrets.
func (c Config) String() string {
	return fmt.Sprintf(
		"payscore.Config{MchID:%s AppID:%s ServiceID:%s APIBaseURL:%s APIKey:%s APIv3Key:%s PrivateKeyPath:%s CertSerialNo:%s RedisAddress:%s EnvName:%s}",
		c.MchID, c.AppID, c.ServiceID, c.APIBaseURL, redact(c.APIKey), redact(c.APIv3Key),
		c.PrivateKeyPath, c.CertSerialNo, c.RedisAddress, c.EnvName,
	)
}

// GoString never exposes secrets.
func (c Config) GoString() string { return c.String() }

func redact(s string) string {
	if s == "" {
		return ""
	}

	return "REDACTED"
}
