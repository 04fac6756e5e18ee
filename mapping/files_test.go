package mapping

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"rules/b.yaml":        {Data: []byte("code: b\nmappings:\n  out:\n    sourcePath: in\n")},
		"rules/a.json":        {Data: []byte(`{"code":"a","mappings":[{"sourcePath":"in","targetPath":"out"}]}`)},
		"rules/.hidden.json":  {Data: []byte(`{}`)},
		"rules/readme.md":     {Data: []byte("notes")},
		"rules/nested/c.json": {Data: []byte(`{}`)},
	}
	files := RuleFiles{Root: "rules", Files: fsys}

	all, err := files.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "rules/a.json", all[0].Name)
	assert.Equal(t, "rules/b.yaml", all[1].Name)

	cfg, err := all[1].Parse()
	require.NoError(t, err)
	assert.Equal(t, "b", cfg.Code)
	assert.Equal(t, ObjectForm, cfg.Form)

	f, err := files.Find("a.json")
	require.NoError(t, err)
	assert.Greater(t, f.Length, 0)

	_, err = files.Find("missing.json")
	assert.Error(t, err)

	_, err = RuleFiles{Root: "nowhere", Files: fsys}.All()
	assert.Error(t, err)
}

func TestIsRuleFile(t *testing.T) {
	assert.True(t, IsRuleFile("x.JSON"))
	assert.True(t, IsRuleFile("x.yml"))
	assert.False(t, IsRuleFile("x.txt"))
}
