package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFiles reads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the configuration from the environment, fills in tag defaults
// and validates the result.
//
// Fields are bound with struct tags:
//
//	env:"NAME"      variable to read
//	envAlt:"NAME"   fallback variable when the first is unset or empty
//	default:"v"     value used when neither is set
//	required:"true" fail instead of using a default
func Load() (*Config, error) {
	cfg := &Config{}
	if err := bindEnv(reflect.ValueOf(cfg).Elem(), os.Getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// binding is the tag set of one configurable field.
type binding struct {
	name, alt, def string
	required       bool
}

func bindingOf(f reflect.StructField) (binding, bool) {
	b := binding{
		name:     f.Tag.Get("env"),
		alt:      f.Tag.Get("envAlt"),
		def:      f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
	}
	return b, b.name != ""
}

// resolve returns the raw value for b, or "" to leave the field at its zero
// value.
func (b binding) resolve(getenv func(string) string) (string, error) {
	if v := getenv(b.name); v != "" {
		return v, nil
	}
	if b.alt != "" {
		if v := getenv(b.alt); v != "" {
			return v, nil
		}
	}
	if b.required {
		return "", fmt.Errorf("required environment variable %s is not set", b.name)
	}
	return b.def, nil
}

// bindEnv walks the section structs of v and sets every tagged field.
func bindEnv(v reflect.Value, getenv func(string) string) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			if err := bindEnv(fv, getenv); err != nil {
				return err
			}
			continue
		}

		b, ok := bindingOf(sf)
		if !ok {
			continue
		}
		raw, err := b.resolve(getenv)
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if err := assign(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", b.name, raw, err)
		}
	}
	return nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// parsers convert raw values by field type; kinds not listed here fall back
// to the kind switch in assign.
var parsers = map[reflect.Type]func(string) (reflect.Value, error){
	durationType: func(s string) (reflect.Value, error) {
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("invalid duration: %w", err)
		}
		return reflect.ValueOf(d), nil
	},
	reflect.TypeOf([]string(nil)): func(s string) (reflect.Value, error) {
		return reflect.ValueOf(splitList(s)), nil
	},
}

func assign(fv reflect.Value, raw string) error {
	if parse, ok := parsers[fv.Type()]; ok {
		v, err := parse(raw)
		if err != nil {
			return err
		}
		fv.Set(v)
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", fv.Type())
	}
	return nil
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// String returns the configuration for logging with secrets masked: the
// database URL is replaced and API keys are only counted.
func (c *Config) String() string {
	db := "disabled"
	if c.Database.Enabled() {
		db = fmt.Sprintf("URL: [MASKED], MaxConns: %d", c.Database.MaxConns)
	}
	parts := []string{
		fmt.Sprintf("Server: {Addr: %q}", c.Server.Addr()),
		"Database: {" + db + "}",
		fmt.Sprintf("Upload: {MaxFileSize: %d, MaxFiles: %d, MaxConcurrent: %d}",
			c.Upload.MaxFileSize, c.Upload.MaxFiles, c.Upload.MaxConcurrent),
		fmt.Sprintf("Fetch: {Enabled: %v, Timeout: %s, RetryMax: %d, AllowPrivate: %v, AllowedHosts: %v}",
			c.Fetch.Enabled, c.Fetch.Timeout, c.Fetch.RetryMax, c.Fetch.AllowPrivate, c.Fetch.AllowedHosts),
		fmt.Sprintf("View: {DefaultRows: %d, MaxRows: %d}", c.View.DefaultRows, c.View.MaxRows),
		fmt.Sprintf("Session: {IdleTimeout: %s}", c.Session.IdleTimeout),
		fmt.Sprintf("Search: {Enabled: %v, Limit: %d}", c.Search.Enabled, c.Search.Limit),
		fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d, Load: %d}",
			c.Rate.Enabled, c.Rate.RequestsPerMinute, c.Rate.LoadLimit),
		fmt.Sprintf("Security: {RequireAPIKey: %v, APIKeys: %d configured}",
			c.Security.RequireAPIKey, len(c.Security.APIKeys)),
		fmt.Sprintf("Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format),
	}
	return "Config{" + strings.Join(parts, ", ") + "}"
}
