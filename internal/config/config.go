// Package config reads the service configuration.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/config"
)

type Config struct {
	Server ServerSettings
	Log    LogSettings
	Store  StoreSettings
	Rules  RulesSettings
}

type ServerSettings struct {
	Address         string
	ReadTimeout     string `yaml:"readTimeout"`
	WriteTimeout    string `yaml:"writeTimeout"`
	ShutdownTimeout string `yaml:"shutdownTimeout"`
}

type LogSettings struct {
	Level  string
	Format string
}

type StoreSettings struct {
	// URL selects the rule store, e.g. sqlite://rules.db or postgres://...
	// Empty disables the store and the rule write endpoints.
	URL string
}

type RulesSettings struct {
	Dir             string
	Watch           bool
	RefreshInterval string `yaml:"refreshInterval"`
	Remote          struct {
		URL   string
		Token string
	}
}

// Default returns the configuration used for keys that are not set.
func Default() Config {
	return Config{
		Server: ServerSettings{
			Address:         ":8080",
			ReadTimeout:     "10s",
			WriteTimeout:    "30s",
			ShutdownTimeout: "15s",
		},
		Log: LogSettings{
			Level:  "info",
			Format: "json",
		},
		Rules: RulesSettings{
			RefreshInterval: "5m",
		},
	}
}

func (s ServerSettings) Timeouts() (read, write, shutdown time.Duration, err error) {
	if read, err = parseDuration("server.readTimeout", s.ReadTimeout); err != nil {
		return
	}
	if write, err = parseDuration("server.writeTimeout", s.WriteTimeout); err != nil {
		return
	}
	shutdown, err = parseDuration("server.shutdownTimeout", s.ShutdownTimeout)
	return
}

func (r RulesSettings) Interval() (time.Duration, error) {
	return parseDuration("rules.refreshInterval", r.RefreshInterval)
}

func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to read '%s' from yaml config %w", key, err)
	}
	return d, nil
}

// EnvLookup resolves ${VAR} references in the configuration.
type EnvLookup interface {
	LookupEnv(key string) (string, bool)
}

// CompositeEnvVar looks keys up in a JSON object held by the Parent
// environment variable before falling back to the process environment,
// so a deployment can pass all its secrets in one variable.
type CompositeEnvVar struct {
	Parent string
}

func (c CompositeEnvVar) LookupEnv(key string) (string, bool) {
	if c.Parent != "" {
		if s := os.Getenv(c.Parent); s != "" {
			m := make(map[string]string)
			if err := json.Unmarshal([]byte(s), &m); err == nil {
				if v, exists := m[key]; exists {
					return v, true
				}
			}
		}
	}
	return os.LookupEnv(key)
}

// Load layers the sources in order, later sources overriding earlier ones,
// on top of Default.
func Load(env EnvLookup, sources ...io.Reader) (Config, error) {
	result := Default()
	var options []config.YAMLOption
	for _, s := range sources {
		if s != nil {
			options = append(options, config.Source(s))
		}
	}
	if len(options) == 0 {
		return result, nil
	}
	if env == nil {
		env = CompositeEnvVar{}
	}
	options = append(options, config.Expand(env.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "server"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Server); err != nil {
			return result, readError(key, err)
		}
	}
	key = "log"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Log); err != nil {
			return result, readError(key, err)
		}
	}
	key = "store"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Store); err != nil {
			return result, readError(key, err)
		}
	}
	key = "rules"
	if yaml.Get(key).HasValue() {
		if err = yaml.Get(key).Populate(&result.Rules); err != nil {
			return result, readError(key, err)
		}
	}

	if _, _, _, err = result.Server.Timeouts(); err != nil {
		return result, err
	}
	if _, err = result.Rules.Interval(); err != nil {
		return result, err
	}
	return result, nil
}

// LoadFile reads the configuration file at path; an empty path yields the
// defaults.
func LoadFile(path string, env EnvLookup) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config %w", err)
	}
	defer f.Close()
	return Load(env, f)
}
