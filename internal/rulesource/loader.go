// Package rulesource loads rule set documents from files, remote services
// and the rule store, and keeps a mapping.Registry current.
package rulesource

import (
	"context"
	"io/fs"
	"log/slog"
	"os"

	"github.com/homemade/remap/mapping"
)

// Loader returns every rule set document a source currently holds.
type Loader interface {
	Load(ctx context.Context) ([]mapping.RuleSetConfig, error)
}

type LoaderFunc func(ctx context.Context) ([]mapping.RuleSetConfig, error)

func (f LoaderFunc) Load(ctx context.Context) ([]mapping.RuleSetConfig, error) {
	return f(ctx)
}

// DirLoader reads *.json, *.yaml and *.yml documents from one directory.
// Files that do not parse are logged and skipped.
type DirLoader struct {
	Files  mapping.RuleFiles
	Logger *slog.Logger
}

func NewDirLoader(dir string, logger *slog.Logger) DirLoader {
	return DirLoader{Files: mapping.RuleFiles{Files: os.DirFS(dir)}, Logger: logger}
}

// NewFSLoader reads documents below root in fsys, e.g. an embed.FS.
func NewFSLoader(fsys fs.FS, root string, logger *slog.Logger) DirLoader {
	return DirLoader{Files: mapping.RuleFiles{Root: root, Files: fsys}, Logger: logger}
}

func (l DirLoader) Load(ctx context.Context) ([]mapping.RuleSetConfig, error) {
	files, err := l.Files.All()
	if err != nil {
		return nil, err
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	result := make([]mapping.RuleSetConfig, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cfg, err := f.Parse()
		if err != nil {
			logger.Warn("skipping rule file", slog.String("file", f.Name), slog.String("error", err.Error()))
			continue
		}
		result = append(result, cfg)
	}
	return result, nil
}

// MultiLoader concatenates loaders in order; when two loaders define the
// same code the later one wins.
type MultiLoader []Loader

func (m MultiLoader) Load(ctx context.Context) ([]mapping.RuleSetConfig, error) {
	var all []mapping.RuleSetConfig
	positions := make(map[string]int)
	for _, l := range m {
		configs, err := l.Load(ctx)
		if err != nil {
			return nil, err
		}
		for _, cfg := range configs {
			if i, seen := positions[cfg.Code]; seen {
				all[i] = cfg
				continue
			}
			positions[cfg.Code] = len(all)
			all = append(all, cfg)
		}
	}
	return all, nil
}
