package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cematrix/cematrix/internal/actions"
)

var listCmd = &cobra.Command{
	Use:   "list <suite.yaml>",
	Short: "List the compilers and tests a suite defines",
	Long: `Shows the compilers and test variants from a suite file as tables,
including each compiler's execution mode and each variant's detection
settings.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		return actions.List(Logger, os.Stdout, args[0])
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
