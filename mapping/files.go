package mapping

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// RuleFile is one rule set document read from a RuleFiles tree.
type RuleFile struct {
	Name   string
	Reader io.Reader
	Length int
}

// Parse reads the file as a rule set document.
func (f RuleFile) Parse() (RuleSetConfig, error) {
	data, err := io.ReadAll(f.Reader)
	if err != nil {
		return RuleSetConfig{}, fmt.Errorf("failed to read %s %w", f.Name, err)
	}
	cfg, err := ParseRuleSet(f.Name, data)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse %s %w", f.Name, err)
	}
	return cfg, nil
}

// RuleFiles locates rule set documents below Root in any file system,
// embedded or on disk.
type RuleFiles struct {
	Root  string
	Files fs.FS
}

// IsRuleFile reports whether name has a .json, .yaml or .yml extension.
func IsRuleFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

func (rf RuleFiles) root() string {
	if rf.Root == "" {
		return "."
	}
	return rf.Root
}

// Find reads filename below Root.
func (rf RuleFiles) Find(filename string) (RuleFile, error) {
	var result RuleFile
	name := path.Join(rf.root(), filename)
	data, err := fs.ReadFile(rf.Files, name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(data)
		result.Length = len(data)
	}
	return result, err
}

// All returns every rule file directly below Root, sorted by name.
func (rf RuleFiles) All() ([]RuleFile, error) {
	entries, err := fs.ReadDir(rf.Files, rf.root())
	if err != nil {
		return nil, fmt.Errorf("failed to list rule files %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsRuleFile(e.Name()) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	result := make([]RuleFile, 0, len(names))
	for _, n := range names {
		f, err := rf.Find(n)
		if err != nil {
			return nil, fmt.Errorf("failed to read rule file %s %w", n, err)
		}
		result = append(result, f)
	}
	return result, nil
}
