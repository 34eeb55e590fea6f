package zap

import (
	"fmt"
	"strings"

	"github.com/LerianStudio/lib-payscore/payscore"
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LibraryName is the instrumentation scope reported to the OpenTelemetry log bridge.
const LibraryName = "github.com/LerianStudio/lib-payscore"

// Environment selects the encoder defaults. Only production and local are
// distinguished by ENV_NAME; everything else runs as development.
type Environment string

const (
	EnvironmentProduction  Environment = "production"
	EnvironmentDevelopment Environment = "development"
	EnvironmentLocal       Environment = "local"
)

// EnvironmentFor maps an ENV_NAME value. "prod" and "staging" share the
// production profile.
func EnvironmentFor(envName string) Environment {
	switch strings.ToLower(strings.TrimSpace(envName)) {
	case "production", "prod", "staging":
		return EnvironmentProduction
	case "local":
		return EnvironmentLocal
	default:
		return EnvironmentDevelopment
	}
}

type Config struct {
	Environment     Environment
	Level           string
	OTelLibraryName string
}

// ConfigFrom builds a logger Config from the gateway configuration.
func ConfigFrom(cfg payscore.Config) Config {
	return Config{
		Environment:     EnvironmentFor(cfg.EnvName),
		Level:           cfg.LogLevel,
		OTelLibraryName: LibraryName,
	}
}

// NewFromConfig is New(ConfigFrom(cfg)).
func NewFromConfig(cfg payscore.Config) (*Logger, error) {
	return New(ConfigFrom(cfg))
}

// New builds a JSON logger teed into the OpenTelemetry log bridge.
func New(cfg Config) (*Logger, error) {
	if cfg.OTelLibraryName == "" {
		return nil, fmt.Errorf("invalid zap config: OTelLibraryName is required")
	}

	base := zap.NewProductionConfig()

	switch cfg.Environment {
	case EnvironmentProduction:
	case EnvironmentDevelopment, EnvironmentLocal:
		base = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid zap config: environment %q", cfg.Environment)
	}

	level, err := levelFor(cfg)
	if err != nil {
		return nil, err
	}

	base.Level = zap.NewAtomicLevelAt(level)
	base.Encoding = "json"
	base.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	base.DisableStacktrace = true

	built, err := base.Build(
		zap.AddCallerSkip(1),
		zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, otelzap.NewCore(cfg.OTelLibraryName))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &Logger{logger: built}, nil
}

// levelFor honours LOG_LEVEL and otherwise logs debug outside production.
func levelFor(cfg Config) (zapcore.Level, error) {
	if strings.TrimSpace(cfg.Level) == "" {
		if cfg.Environment == EnvironmentProduction {
			return zapcore.InfoLevel, nil
		}

		return zapcore.DebugLevel, nil
	}

	var parsed zapcore.Level
	if err := parsed.Set(cfg.Level); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid level %q: %w", cfg.Level, err)
	}

	return parsed, nil
}
