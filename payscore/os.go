package payscore

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// ErrNotPointer is returned by SetConfigFromEnvVars for non-pointer targets.
var ErrNotPointer = errors.New("config target must be a non-nil pointer to a struct")

// LocalEnvConfig records whether a local .env file was loaded.
type LocalEnvConfig struct {
	Initialized bool
}

var (
	localEnvConfig     *LocalEnvConfig
	localEnvConfigOnce sync.Once
)

// GetenvOrDefault returns the trimmed value of key, or defaultValue when it is unset or blank.
func GetenvOrDefault(key string, defaultValue string) string {
	str := strings.TrimSpace(os.Getenv(key))
	if str == "" {
		return defaultValue
	}

	return str
}

// GetenvBoolOrDefault parses key as a bool, falling back to defaultValue.
func GetenvBoolOrDefault(key string, defaultValue bool) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return defaultValue
	}

	return val
}

// GetenvIntOrDefault parses key as an int64, falling back to defaultValue.
func GetenvIntOrDefault(key string, defaultValue int64) int64 {
	val, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return defaultValue
	}

	return val
}

// InitLocalEnvConfig loads .env from the working directory when ENV_NAME is
// "local". It runs once per process.
func InitLocalEnvConfig() *LocalEnvConfig {
	localEnvConfigOnce.Do(func() {
		version := GetenvOrDefault("VERSION", "NO-VERSION")
		envName := GetenvOrDefault("ENV_NAME", "local")

		fmt.Printf("VERSION: %s\n\n", version)
		fmt.Printf("ENVIRONMENT NAME: %s\n\n", envName)

		if envName != "local" {
			localEnvConfig = &LocalEnvConfig{}
			return
		}

		if err := godotenv.Load(); err != nil {
			fmt.Println("Skipping .env file, using system environment variables")

			localEnvConfig = &LocalEnvConfig{}

			return
		}

		fmt.Println("Local .env file loaded")

		localEnvConfig = &LocalEnvConfig{Initialized: true}
	})

	return localEnvConfig
}

// SetConfigFromEnvVars fills the string, bool and integer fields of the struct
// pointed to by s from the environment variables named in their `env` tags.
// Unset variables leave the field untouched.
func SetConfigFromEnvVars(s any) error {
	v := reflect.ValueOf(s)
	if v.Kind() != reflect.Ptr || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrNotPointer
	}

	v = v.Elem()
	t := v.Type()

	for i := range t.NumField() {
		tag, ok := t.Field(i).Tag.Lookup("env")
		if !ok || tag == "" {
			continue
		}

		raw, set := os.LookupEnv(tag)
		raw = strings.TrimSpace(raw)

		if !set || raw == "" {
			continue
		}

		field := v.Field(i)
		if !field.CanSet() {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("env %s: %w", tag, err)
			}

			field.SetBool(b)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("env %s: %w", tag, err)
			}

			field.SetInt(n)
		default:
			return fmt.Errorf("env %s: unsupported field kind %s", tag, field.Kind())
		}
	}

	return nil
}
