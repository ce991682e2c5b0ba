package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"depaudit/internal/config"
	"depaudit/internal/log"
	"depaudit/pkg/audit"
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit [path]",
	Short: "Run a full dependency audit of a project tree",
	Long: `Scans the project tree, extracts file I/O from every supported source
file, reconstructs the data-flow graph, and reports staleness, missing
dependencies, orphaned outputs, cycles, and unresolved dynamic paths.

Exits non-zero when any ERROR-severity finding is present.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		return runAudit(cmd, root)
	},
}

func runAudit(cmd *cobra.Command, root string) error {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	logger := log.Default()
	if cfg.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	runner := audit.NewRunner(cfg, logger)
	result, err := runner.Run(root)
	if err != nil {
		return err
	}

	var rendered string
	if cfg.Format == config.FormatJSON {
		rendered, err = result.Report.RenderJSON()
		if err != nil {
			return err
		}
	} else {
		rendered = result.Report.RenderText()
	}

	if cfg.Output != "" {
		if err := os.WriteFile(cfg.Output, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("writing report to %s: %w", cfg.Output, err)
		}
		logger.Info("report written", "path", cfg.Output)
	} else {
		fmt.Print(rendered)
	}

	if result.Report.HasErrors() {
		return fmt.Errorf("audit found %d error-severity finding(s)", len(result.Report.Errors))
	}
	return nil
}

// loadConfig loads layered configuration and applies command-line overrides.
func loadConfig(cmd *cobra.Command, root string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load(root)
	}
	if err != nil {
		return nil, err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		cfg.Format = config.FormatJSON
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		cfg.Output = output
	}
	if noCache, _ := cmd.Flags().GetBool("no-cache"); noCache {
		cfg.Cache = false
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.Verbose = true
	}
	if globs, _ := cmd.Flags().GetStringSlice("manuscript"); len(globs) > 0 {
		cfg.ManuscriptGlobs = globs
	}

	return cfg, nil
}

func init() {
	auditCmd.Flags().BoolP("json", "j", false, "Output report as JSON")
	auditCmd.Flags().StringP("output", "o", "", "Write report to a file instead of stdout")
	auditCmd.Flags().Bool("no-cache", false, "Disable the extraction cache")
	auditCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	auditCmd.Flags().String("config", "", "Path to a config file")
	auditCmd.Flags().StringSlice("manuscript", nil, "Manuscript glob(s) overriding configuration")
}
