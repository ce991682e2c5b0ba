package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"depaudit/internal/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize depaudit configuration interactively",
	Long: `Guides you through setting up depaudit configuration step by step.
Creates a config file with manuscript globs, report format and cache settings.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	// === SECTION 1: Manuscripts ===
	manuscriptInput := strings.Join(config.DefaultConfig().ManuscriptGlobs, ", ")
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Manuscript globs").
				Description("Comma-separated globs matching the terminal documents (papers, reports)").
				Placeholder("*.tex, paper/*.tex, *.qmd").
				Value(&manuscriptInput),
		),
	)
	err := form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 2: Report Format ===
	var formatChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Report format").
				Description("Default rendering for audit reports").
				Options(
					huh.NewOption("Text", "text"),
					huh.NewOption("JSON", "json"),
				).
				Value(&formatChoice),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 3: Cache ===
	useCache := true
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Extraction cache").
				Description("Cache per-file extraction results between runs?").
				Affirmative("Enable").
				Negative("Disable").
				Value(&useCache),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	// === SECTION 4: Config Location ===
	var saveLocationChoice string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Save Configuration").
				Description("Where to save the configuration file?").
				Options(
					huh.NewOption("Project (./.depaudit/config.yaml)", "project"),
					huh.NewOption("Global (~/.depaudit/config.yaml)", "global"),
				).
				Value(&saveLocationChoice),
		),
	)
	err = form.Run()
	if err != nil {
		return fmt.Errorf("interactive prompt failed: %w", err)
	}

	var configPath string
	if saveLocationChoice == "global" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("getting home directory: %w", err)
		}
		configPath = config.ProjectConfigPath(home)
	} else {
		configPath = config.ProjectConfigPath(".")
	}

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		var overwrite bool
		form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Config file exists").
					Description(fmt.Sprintf("Overwrite existing config at %s?", configPath)).
					Affirmative("Overwrite").
					Negative("Cancel").
					Value(&overwrite),
			),
		)
		err = form.Run()
		if err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	// === Build config struct ===
	cfg := config.DefaultConfig()
	if globs := splitInput(manuscriptInput); len(globs) > 0 {
		cfg.ManuscriptGlobs = globs
	}
	cfg.Format = config.Format(formatChoice)
	cfg.Cache = useCache

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Show config preview
	fmt.Println("\n=== Configuration Preview ===")
	fmt.Printf("Config path: %s\n", configPath)
	fmt.Printf("Manuscript globs: %s\n", strings.Join(cfg.ManuscriptGlobs, ", "))
	fmt.Printf("Format: %s\n", cfg.Format)
	fmt.Printf("Cache: %t\n", cfg.Cache)
	fmt.Println("================================")

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration saved to: %s\n", configPath)
	return nil
}

// splitInput parses the comma-separated glob field.
func splitInput(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	RootCmd.AddCommand(initCmd)
}
