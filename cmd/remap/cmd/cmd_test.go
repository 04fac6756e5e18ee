package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "code", "order")
	assert.Equal(t, "shown", gjson.Get(buf.String(), "msg").String())
	assert.Equal(t, "order", gjson.Get(buf.String(), "code").String())

	buf.Reset()
	logger, err = newLogger(&buf, "info", "")
	require.NoError(t, err)
	logger.Info("auto")
	assert.True(t, gjson.Valid(buf.String()), buf.String())

	_, err = newLogger(&buf, "loud", "json")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "order.yaml")
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(good, []byte("code: order\nmappings:\n  - sourcePath: a\n    targetPath: b\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte(`{"code":"broken","mappings":[{"sourcePath":"a..b","targetPath":"c"}]}`), 0o600))

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"validate", good})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, good+": ok (order, 1 mappings)\n", out.String())

	out.Reset()
	rootCmd.SetArgs([]string{"validate", good, bad})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, errOut.String(), bad+":")
}
