package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/cematrix/cematrix/internal/actions"
)

var validateCmd = &cobra.Command{
	Use:   "validate <suite.yaml>",
	Short: "Validate a suite file",
	Long: `Loads a suite file, applies full validation and checks that every
referenced source and auxiliary file exists on disk. Nothing is executed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.Validate(cmd.Context(), Logger, os.Stdout, args[0])
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
