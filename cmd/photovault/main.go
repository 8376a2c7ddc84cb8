package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"photovault/internal/app"
	"photovault/internal/config"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer
// a.Close(). operation identifies the CLI command being run.
func newApp(ctx context.Context, operation string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:   "photovault",
	Short: "Filename collision detection and metadata sync engine",
}

// config command

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:  %s\n", cfg.LogDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Data Dir:    %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Remote:      %s\n", cfg.Remote.Type)
		fmt.Printf("Events:      %s\n", cfg.Events.Type)
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Cache:       ttl=%ds max=%d\n", cfg.Cache.TTLSeconds, cfg.Cache.MaxEntries)
		fmt.Printf("Batch size:  %d\n", cfg.Detection.BatchSize)
		return nil
	},
}

// keys command

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage backup encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase for private key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Backup encryption keys generated")
		return nil
	},
}

// check command

var checkCmd = &cobra.Command{
	Use:   "check <user> <filename>...",
	Short: "Check filenames for collisions",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Check")
		if err != nil {
			return err
		}
		defer a.Close()

		userID, filenames := args[0], args[1:]
		results, fallbackUsed := a.CheckFilenames(cmd.Context(), userID, filenames)

		if fallbackUsed {
			fmt.Println("Warning: could not verify all filenames, results may be incomplete")
		}

		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			r := results[name]
			if r.Collision {
				fmt.Printf("%s\tcollision (photo %s, %d bytes, uploaded %s)\n",
					name, r.ExistingPhotoID, r.ExistingFile.FileSizeBytes,
					r.ExistingFile.UploadedAt.Format(time.RFC3339))
			} else {
				fmt.Printf("%s\tok\n", name)
			}
		}
		return nil
	},
}

// status command

var statusCmd = &cobra.Command{
	Use:   "status <user>",
	Short: "Show database and sync status for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Status")
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Local DB:     %s (exists: %v)\n", status.Sync.LocalPath, status.Sync.LocalExists)
		fmt.Printf("Remote:       exists=%v generations=%d\n", status.Sync.RemoteExists, status.Sync.Generations)
		if !status.Sync.LastSyncedAt.IsZero() {
			fmt.Printf("Last synced:  %s\n", status.Sync.LastSyncedAt.Format(time.RFC3339))
		}
		fmt.Printf("Photos:       %d\n", status.PhotoCount)
		fmt.Printf("Cache:        %d entries (%d valid)\n", status.Cache.TotalEntries, status.Cache.ValidEntries)
		fmt.Printf("Integrity:    valid=%v\n", status.Integrity.Valid)
		for _, issue := range status.Integrity.Issues {
			fmt.Printf("  issue: %s\n", issue)
		}
		return nil
	},
}

// sync command

var syncCmd = &cobra.Command{
	Use:   "sync <user>",
	Short: "Upload the user's local database to the remote backup store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Sync")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Sync(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Uploaded generation %s (%d bytes, encrypted=%v) in %s\n",
			report.Generation.ID, report.SizeBytes, report.Encrypted, report.Duration)
		return nil
	},
}

// reset command

var resetConfirm bool

var resetCmd = &cobra.Command{
	Use:   "reset <user>",
	Short: "Destructively reload the user's database from the remote backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Reset")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if resetConfirm {
			// Only needed when backups are encrypted; harmless otherwise.
			if term.IsTerminal(int(syscall.Stdin)) {
				passphrase, err = readPassphrase("Backup key passphrase (empty if unencrypted): ")
				if err != nil {
					return err
				}
			}
		}

		report, err := a.Reset(cmd.Context(), args[0], resetConfirm, passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("Local DB deleted:    %v\n", report.LocalDBDeleted)
		fmt.Printf("Remote backup found: %v\n", report.RemoteExists)
		fmt.Printf("Download successful: %v\n", report.DownloadSuccessful)
		fmt.Printf("Duration:            %s\n", report.Duration)
		if report.DataLossRisk {
			fmt.Println("WARNING: no remote backup existed; prior local-only data is gone")
		}
		return nil
	},
}

// validate command

var validateCmd = &cobra.Command{
	Use:   "validate <user>",
	Short: "Run integrity checks against the user's local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Validate")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Validate(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if report.Valid {
			fmt.Println("Database is valid")
			return nil
		}
		fmt.Println("Database has issues:")
		for _, issue := range report.Issues {
			fmt.Printf("  %s\n", issue)
		}
		return nil
	},
}

// stats command

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show collision statistics for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Collisions:       %d\n", stats.Collisions)
		fmt.Printf("Decisions:        %d\n", stats.Decisions)
		fmt.Printf("Overwrites:       %d (rate %.2f)\n", stats.Overwrites, stats.OverwriteRate)
		fmt.Printf("Batch checks:     %d (%d degraded)\n", stats.Batches, stats.DegradedBatches)
		for kind, mean := range stats.MeanDuration {
			fmt.Printf("Mean duration %s: %s\n", kind, mean)
		}
		return nil
	},
}

// events command

var pruneMaxAge time.Duration

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage recorded collision events",
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete events older than --max-age",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "PruneEvents")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.PruneEvents(pruneMaxAge)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d events\n", removed)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configListCmd)
	keysCmd.AddCommand(keysInitCmd)
	eventsCmd.AddCommand(eventsPruneCmd)

	resetCmd.Flags().BoolVar(&resetConfirm, "confirm", false, "confirm the destructive reset")
	eventsPruneCmd.Flags().DurationVar(&pruneMaxAge, "max-age", 30*24*time.Hour, "delete events older than this")

	rootCmd.AddCommand(configCmd, keysCmd, checkCmd, statusCmd, syncCmd, resetCmd, validateCmd, statsCmd, eventsCmd)
}
