package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Parse and compile rule set documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		cfg, err := readRuleFile(path)
		if err == nil {
			_, err = cfg.Compile()
		}
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d mappings)\n", path, cfg.Code, len(cfg.Mappings))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d rule set documents are invalid", failed, len(args))
	}
	return nil
}
