package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homemade/remap/mapping"
)

var docCmd = &cobra.Command{
	Use:   "doc FILE",
	Short: "Print the CSV documentation of a rule set document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDoc,
}

func init() {
	rootCmd.AddCommand(docCmd)
	docCmd.Flags().Bool("sort", false, "sort rows by target path")
}

func runDoc(cmd *cobra.Command, args []string) error {
	cfg, err := readRuleFile(args[0])
	if err != nil {
		return err
	}
	set, err := cfg.Compile()
	if err != nil {
		return err
	}
	opts := []mapping.DocOption{
		mapping.DocWithFactories(mapping.NewProcessorFactory(), mapping.NewStrategyFactory()),
	}
	if sorted, _ := cmd.Flags().GetBool("sort"); sorted {
		opts = append(opts, mapping.DocSortedByTarget())
	}
	csv, err := mapping.GenerateRuleDocumentation(set, opts...).FormatCSV()
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), csv)
	return nil
}
