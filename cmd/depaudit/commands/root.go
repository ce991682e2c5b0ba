package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "depaudit",
	Short: "depaudit - Data-flow auditing for research codebases",
	Long: `depaudit reconstructs the data-flow graph implied by the file reads and
writes in a research codebase (R, Stata, Python, notebooks, LaTeX) and
reports staleness, missing dependencies, and orphaned artifacts.

Commands:
  audit       Run a full dependency audit of a project tree
  graph       Dump the reconstructed data-flow graph
  init        Initialize depaudit configuration interactively

No script is ever executed; the audit is a static, read-only analysis.

Use "depaudit [command] --help" for more information about a command.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(auditCmd)
	RootCmd.AddCommand(graphCmd)
}
