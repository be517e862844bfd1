// Package cmd contains CLI command definitions
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/cematrix/cematrix/internal/actions"
	"github.com/cematrix/cematrix/internal/config"
	"github.com/cematrix/cematrix/internal/suite"
	"github.com/cematrix/cematrix/pkg/interactive"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch interactive mode",
	Long:  `Launches the interactive menu for cematrix.`,
	Run: func(_ *cobra.Command, _ []string) {
		RunInteractive()
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

// RunInteractive drives the survey-based menu loop. It is also the default
// when the binary starts with no arguments.
func RunInteractive() {
	fmt.Println("cematrix - Interactive Mode")
	fmt.Println("===========================")
	fmt.Println()

	for {
		options := []interactive.MenuOption{
			{
				Name:        "Run Suite",
				Description: "Run a test suite across compilers",
				Action:      interactiveRun,
			},
			{
				Name:        "Validate Suite",
				Description: "Check a suite file and its referenced files",
				Action:      interactiveValidate,
			},
			{
				Name:        "List Suite",
				Description: "Show the compilers and tests a suite defines",
				Action:      interactiveList,
			},
			{
				Name:        "Show Config",
				Description: "Display current environment configuration",
				Action: func() error {
					if err := actions.ShowConfig(os.Stdout); err != nil {
						fmt.Printf("\n❌ Error: %v\n", err)
					}
					interactive.PauseForEnter()
					return nil
				},
			},
		}

		if err := interactive.ShowMainMenu(options); err != nil {
			if errors.Is(err, interactive.ErrExit) {
				fmt.Println("Goodbye!")
				return
			}
			log.Fatal(err)
		}

		fmt.Println()
	}
}

func interactiveRun() error {
	suiteFile, err := interactive.Input("Suite file:", "tests.yaml")
	if err != nil {
		// A canceled prompt returns to the menu.
		return nil
	}

	s, err := suite.NewLoader(Logger).Load(suiteFile)
	if err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
		interactive.PauseForEnter()

		return nil
	}

	nicknames := make([]string, 0, len(s.Compilers))
	for _, c := range s.Compilers {
		nicknames = append(nicknames, c.Nickname)
	}

	selected, err := interactive.MultiSelect("Compilers (empty selects all):", nicknames)
	if err != nil {
		return nil
	}

	runAll := interactive.Confirm("Run all variants instead of only auto detection?")

	table := false
	if runAll {
		table = interactive.Confirm("Generate the markdown table?")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
		interactive.PauseForEnter()

		return nil
	}

	opts := actions.RunOptions{
		SuiteFile:      suiteFile,
		ResultsDir:     cfg.ResultsDir,
		CompilerFilter: selected,
		All:            runAll,
		Table:          table,
		Delay:          cfg.RequestDelay,
		Language:       cfg.Language,
		GodboltURL:     cfg.GodboltURL,
		APITimeout:     cfg.APITimeout,
		BuildTimeout:   cfg.BuildTimeout,
		RunTimeout:     cfg.RunTimeout,
	}

	if _, err := actions.Run(context.Background(), Logger, os.Stdout, opts); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	interactive.PauseForEnter()

	return nil
}

func interactiveValidate() error {
	suiteFile, err := interactive.Input("Suite file:", "tests.yaml")
	if err != nil {
		return nil
	}

	if err := actions.Validate(context.Background(), Logger, os.Stdout, suiteFile); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	interactive.PauseForEnter()

	return nil
}

func interactiveList() error {
	suiteFile, err := interactive.Input("Suite file:", "tests.yaml")
	if err != nil {
		return nil
	}

	if err := actions.List(Logger, os.Stdout, suiteFile); err != nil {
		fmt.Printf("\n❌ Error: %v\n", err)
	}

	interactive.PauseForEnter()

	return nil
}
