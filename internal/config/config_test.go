package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapEnv map[string]string

func (m mapEnv) LookupEnv(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	read, write, shutdown, err := cfg.Server.Timeouts()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, read)
	assert.Equal(t, 30*time.Second, write)
	assert.Equal(t, 15*time.Second, shutdown)

	interval, err := cfg.Rules.Interval()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, interval)
}

func TestLoad_LayersAndExpands(t *testing.T) {
	base := `
server:
  address: ":9000"
log:
  level: debug
rules:
  dir: /etc/remap/rules
  watch: true
  remote:
    url: ${RULES_URL:http://localhost:7000}
    token: ${RULES_TOKEN}
`
	override := `
store:
  url: sqlite://${DATA_DIR}/rules.db
rules:
  refreshInterval: 1m
`
	cfg, err := Load(mapEnv{"RULES_TOKEN": "secret", "DATA_DIR": "/var/lib/remap"},
		strings.NewReader(base), strings.NewReader(override))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "10s", cfg.Server.ReadTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "sqlite:///var/lib/remap/rules.db", cfg.Store.URL)
	assert.Equal(t, "/etc/remap/rules", cfg.Rules.Dir)
	assert.True(t, cfg.Rules.Watch)
	assert.Equal(t, "1m", cfg.Rules.RefreshInterval)
	assert.Equal(t, "http://localhost:7000", cfg.Rules.Remote.URL)
	assert.Equal(t, "secret", cfg.Rules.Remote.Token)
}

func TestLoad_InvalidDuration(t *testing.T) {
	_, err := Load(mapEnv{}, strings.NewReader("server:\n  readTimeout: soon\n"))
	assert.ErrorContains(t, err, "server.readTimeout")
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("", nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := filepath.Join(t.TempDir(), "remap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: text\n"), 0o600))
	cfg, err = LoadFile(path, mapEnv{})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestCompositeEnvVar(t *testing.T) {
	t.Setenv("REMAP_TEST_SECRETS", `{"TOKEN":"from-json"}`)
	t.Setenv("TOKEN", "from-env")
	t.Setenv("OTHER", "plain")

	env := CompositeEnvVar{Parent: "REMAP_TEST_SECRETS"}
	v, ok := env.LookupEnv("TOKEN")
	assert.True(t, ok)
	assert.Equal(t, "from-json", v)

	v, ok = env.LookupEnv("OTHER")
	assert.True(t, ok)
	assert.Equal(t, "plain", v)

	_, ok = env.LookupEnv("REMAP_TEST_UNSET")
	assert.False(t, ok)
}
