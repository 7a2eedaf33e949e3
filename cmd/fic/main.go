package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"fic-go/internal/app"
	"fic-go/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Global flags.
var (
	storeFlag    string
	baselineFlag string
	workersFlag  int
	verboseFlag  bool
)

// loadConfig reads the config file, falling back to defaults when none
// exists, and applies command line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	fallback := config.NewConfig("", defaults["base_dir"])
	fallback.LogDir = defaults["log_dir"]
	cfg, err := config.LoadOrDefault(defaults["config_path"], fallback)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("store") && storeFlag != cfg.Store.Type {
		cfg.Store = config.StoreConfig{Type: storeFlag}
	}
	if flags.Changed("baseline") {
		cfg.Store.Path = baselineFlag
	}
	if flags.Changed("workers") {
		cfg.Scan.Workers = workersFlag
	}
	return cfg, nil
}

// newApp loads the config and creates a FICApp. The caller must defer app.Close().
func newApp(cmd *cobra.Command) (*app.FICApp, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a, err := app.NewFICApp(context.Background(), cfg, app.Options{
		Stderr:     cmd.ErrOrStderr(),
		Verbose:    verboseFlag,
		Passphrase: app.PassphraseSource(os.Stdin, cmd.ErrOrStderr()),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "fic",
	Short:        "File integrity checker",
	Long:         "fic records content fingerprints of a directory tree and reports files modified, deleted or added since.",
	SilenceUsage: true,
}

var initCmd = &cobra.Command{
	Use:   "init DIRECTORY",
	Short: "Record a new baseline for DIRECTORY",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Init(args[0])
		if err != nil {
			return err
		}
		app.WriteInitSummary(cmd.OutOrStdout(), res)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check DIRECTORY",
	Short: "Compare DIRECTORY with the baseline",
	Long:  "Compare DIRECTORY with the baseline. Differences are reported but do not change the exit status.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Check(args[0])
		if err != nil {
			return err
		}
		if asJSON {
			return app.WriteCheckReportJSON(cmd.OutOrStdout(), res)
		}
		app.WriteCheckReport(cmd.OutOrStdout(), res)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded init and check runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}
		app.WriteHistory(cmd.OutOrStdout(), runs)
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", defaults["config_path"])
		fmt.Fprintf(out, "Host ID: %s\n", hostID)
		fmt.Fprintf(out, "Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", defaults["config_path"])
		m := &config.Manager{}
		return m.Write(out, cfg)
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage baseline encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair used to encrypt baselines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		passphrase, err := app.ReadNewPassphrase(os.Stdin, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		if err := app.SetupKeys(cfg, passphrase); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Fprintf(out, "Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		fmt.Fprintln(out, `Set [encryption] type = "age" in the config to encrypt new baselines.`)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&storeFlag, "store", "", "Baseline store type: json, sqlite, s3 or memory")
	pf.StringVar(&baselineFlag, "baseline", "", "Baseline location (json file or sqlite database)")
	pf.IntVar(&workersFlag, "workers", 1, "Number of files hashed concurrently")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "Log progress to stderr")

	checkCmd.Flags().Bool("json", false, "Print the report as JSON")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keysCmd)
}
