package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/doorman/internal/config"
	"github.com/andresmejia3/doorman/internal/logging"
	"github.com/andresmejia3/doorman/internal/store"
	"github.com/andresmejia3/doorman/internal/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	// DB is the optional audit event store shared by subcommands
	DB store.EventStore

	// cfg is bound to the command line flags; a config file is layered underneath them
	cfg      = config.Default()
	cfgPath  string
	logLevel string
	logFile  io.Closer
)

// Version is the application version.
const Version = "0.0.1"

var rootCmd = &cobra.Command{
	Use:     "doorman",
	Short:   "Face recognition door access engine",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Flags()); err != nil {
			return err
		}

		var err error
		logFile, err = logging.Setup(cfg.LogPath, logLevel)
		if err != nil {
			return err
		}

		// If neither the flag nor the file names a database, try the environment
		if cfg.Database == "" {
			cfg.Database = databaseFromEnv()
		}
		if cfg.Database == "" {
			return nil
		}

		// Use the command's context (which will be cancellable) for the connection
		DB, err = store.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if DB != nil {
			// Use Background here because the main context might be cancelled already (due to Ctrl+C)
			// and we still need to send the "Close" command to the DB.
			DB.Close(context.Background())
		}
		if logFile != nil {
			logFile.Close()
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML configuration file (flags override its values)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogPath, "log-path", cfg.LogPath, "Directory for log.txt and audit frames")
	rootCmd.PersistentFlags().StringVar(&cfg.Database, "db", "", "Audit database (postgres://... or sqlite://path); defaults to POSTGRES_* env vars")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig layers the config file under any flag the user set explicitly.
func loadConfig(fs *pflag.FlagSet) error {
	if cfgPath == "" {
		return nil
	}

	changed := map[string]string{}
	fs.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	loaded, err := config.Load(cfgPath, cfg)
	if err != nil {
		return err
	}
	cfg = loaded

	for name, value := range changed {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("failed to reapply --%s: %w", name, err)
		}
	}
	return nil
}

// databaseFromEnv builds a Postgres URL from POSTGRES_* variables, or returns "".
func databaseFromEnv() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	user := os.Getenv("POSTGRES_USER")
	pass := os.Getenv("POSTGRES_PASSWORD")
	name := os.Getenv("POSTGRES_DB")
	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name)
}

// validate checks the merged configuration for mode and dies on the first report.
func validate(mode config.Mode) {
	if err := cfg.Validate(mode); err != nil {
		utils.Die("Invalid configuration", err, nil)
	}
	log.Debug().Interface("config", cfg).Msg("Configuration loaded")
}
