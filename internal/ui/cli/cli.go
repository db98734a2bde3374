package cli

import (
	"proscope/internal/core/errors"

	"github.com/spf13/cobra"
)

const versionString = "1.0.0"
const defaultConfigPath = "./proscope.toml"

type cliOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the proscope command tree.
func NewRootCommand() *cobra.Command {
	rt := &runtime{}
	root := &cobra.Command{
		Use:   "proscope",
		Short: "Incremental analysis for OpenEdge ABL sources",
		Long: `proscope tokenizes, parses and indexes OpenEdge ABL files the way an
editor plugin does on every keystroke: scopes, definitions, completion,
outline and syntax styles, plus a watch mode that re-analyses files as
they change on disk.

Example usage:
  proscope outline src/order.p             # Print the code outline
  proscope complete src/order.p -l 12 -p c # Completion entries at line 12
  proscope check src/*.p                   # Fail on unbalanced blocks
  proscope watch src                       # Re-analyse edited files`,
		Version:            versionString,
		SilenceUsage:       true,
		PersistentPreRunE:  rt.setup,
		PersistentPostRunE: rt.teardown,
	}
	root.PersistentFlags().StringVar(&rt.opts.configPath, "config", defaultConfigPath, "config file")
	root.PersistentFlags().BoolVarP(&rt.opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newOutlineCmd(rt),
		newCompleteCmd(rt),
		newHighlightCmd(rt),
		newFindCmd(rt),
		newCheckCmd(rt),
		newWatchCmd(rt),
	)
	return root
}

// Run executes the command line and returns the process exit code.
func Run(args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	return exitCode(root.Execute())
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	switch errors.CodeOf(err) {
	case errors.CodeValidationError:
		return 2
	case errors.CodeNotFound:
		return 3
	default:
		return 1
	}
}
