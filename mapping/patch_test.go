package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestPatchMapping_ArrayForm(t *testing.T) {
	patched, err := PatchMapping([]byte(arrayFormDocument), FieldRuleConfig{
		SourcePath: "customer.email",
		TargetPath: "buyer.email",
		Processors: []string{"lowercase"},
	})
	require.NoError(t, err)
	cfg, err := ParseRuleSetJSON(patched)
	require.NoError(t, err)
	require.Len(t, cfg.Mappings, 3)
	assert.Equal(t, "buyer.email", cfg.Mappings[2].TargetPath)

	patched, err = PatchMapping(patched, FieldRuleConfig{SourcePath: "customer.fullName", TargetPath: "buyer.name"})
	require.NoError(t, err)
	cfg, err = ParseRuleSetJSON(patched)
	require.NoError(t, err)
	require.Len(t, cfg.Mappings, 3)
	assert.Equal(t, "customer.fullName", cfg.Mappings[0].SourcePath)
	assert.Nil(t, cfg.Mappings[0].Processors)
}

func TestPatchMapping_ObjectForm(t *testing.T) {
	patched, err := PatchMapping([]byte(`{"code":"c","mappings":{"a.b":{"sourcePath":"x"}}}`), FieldRuleConfig{
		SourcePath: "y",
		TargetPath: "a.b",
	})
	require.NoError(t, err)
	assert.Equal(t, "y", gjson.GetBytes(patched, `mappings.a\.b.sourcePath`).String())
	cfg, err := ParseRuleSetJSON(patched)
	require.NoError(t, err)
	assert.Len(t, cfg.Mappings, 1)
}

func TestPatchMapping_RejectsMalformedRule(t *testing.T) {
	_, err := PatchMapping([]byte(arrayFormDocument), FieldRuleConfig{SourcePath: "a[", TargetPath: "b"})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestRemoveMapping(t *testing.T) {
	removed, err := RemoveMapping([]byte(arrayFormDocument), "buyer.name")
	require.NoError(t, err)
	cfg, err := ParseRuleSetJSON(removed)
	require.NoError(t, err)
	require.Len(t, cfg.Mappings, 1)
	assert.Equal(t, "total", cfg.Mappings[0].TargetPath)

	_, err = RemoveMapping([]byte(arrayFormDocument), "nowhere")
	assert.ErrorIs(t, err, ErrMappingNotFound)

	removed, err = RemoveMapping([]byte(objectFormDocument), "total")
	require.NoError(t, err)
	assert.False(t, gjson.GetBytes(removed, "mappings.total").Exists())
}

func TestRemoveMapping_LastMappingIsInvalid(t *testing.T) {
	_, err := RemoveMapping([]byte(`{"code":"c","mappings":[{"sourcePath":"a","targetPath":"b"}]}`), "b")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
