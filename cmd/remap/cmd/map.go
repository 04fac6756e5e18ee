package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/homemade/remap/internal/rulesource"
	"github.com/homemade/remap/mapping"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Run one mapping locally and print the result",
	RunE:  runMap,
}

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().String("rules", "", "rule set file or directory")
	mapCmd.Flags().String("code", "", "rule set code")
	mapCmd.Flags().String("source", "", "source document file")
	mapCmd.Flags().String("template", "", "target template file")
	_ = mapCmd.MarkFlagRequired("rules")
	_ = mapCmd.MarkFlagRequired("source")
}

func runMap(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr, logLevel, logFormat)
	if err != nil {
		return err
	}
	rules, _ := cmd.Flags().GetString("rules")
	code, _ := cmd.Flags().GetString("code")
	sourceFile, _ := cmd.Flags().GetString("source")
	templateFile, _ := cmd.Flags().GetString("template")

	registry := mapping.NewRegistry()
	configs, err := loadRules(cmd.Context(), rules)
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		set, err := cfg.Compile()
		if err != nil {
			return err
		}
		if err := registry.Register(set); err != nil {
			return err
		}
	}
	if code == "" {
		if registry.Len() != 1 {
			return fmt.Errorf("--code is required when %s holds %d rule sets", rules, registry.Len())
		}
		code = registry.Codes()[0]
	}

	source, err := os.ReadFile(sourceFile)
	if err != nil {
		return fmt.Errorf("failed to read source %w", err)
	}
	var template []byte
	if templateFile != "" {
		if template, err = os.ReadFile(templateFile); err != nil {
			return fmt.Errorf("failed to read template %w", err)
		}
	}

	executor := mapping.NewExecutor(registry, mapping.WithLogger(logger))
	result, invalid, err := executor.ExecuteJSON(code, source, template)
	if err != nil {
		return err
	}
	out := string(result)
	if stdoutIsTerminal() {
		out = gjson.Get(out, "@pretty").Raw
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	for _, path := range invalid.Paths() {
		reason, _ := invalid.Reason(path)
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s (%s)\n", path, reason)
	}
	return nil
}

// loadRules reads one rule set file, or every rule set file in a directory.
func loadRules(ctx context.Context, path string) ([]mapping.RuleSetConfig, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules %w", err)
	}
	if info.IsDir() {
		return rulesource.NewDirLoader(path, nil).Load(ctx)
	}
	cfg, err := readRuleFile(path)
	if err != nil {
		return nil, err
	}
	return []mapping.RuleSetConfig{cfg}, nil
}

func readRuleFile(path string) (mapping.RuleSetConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mapping.RuleSetConfig{}, fmt.Errorf("failed to read rules %w", err)
	}
	return mapping.ParseRuleSet(filepath.Base(path), data)
}
