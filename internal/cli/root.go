package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/lucasvrm/previso/internal/control"
	"github.com/lucasvrm/previso/internal/core/config"
)

var (
	cfgPath string
	isDebug bool

	// loaded by PersistentPreRunE
	appCfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "previso",
	Short: "Previso check-in API client",
	Long: `Previso talks to the check-in backend with authenticated, retried requests.
It loads dashboard stats and predictions, and can poll them continuously with "previso watch".`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	// The default path may be absent; an explicit one must exist.
	optional := !cmd.Flags().Changed("config")
	cfg, err := config.Load(cfgPath, optional)
	if err != nil {
		stylelog.InitDefault()
		return err
	}

	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Logging.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		slogLevel = slog.LevelError
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
	} else {
		stylelog.InitDefault(&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})
	}

	appCfg = cfg
	return nil
}

// newApp builds the client stack for one command.
func newApp(cmd *cobra.Command) (*control.App, error) {
	if appCfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return control.NewApp(commandContext(cmd), appCfg, NewLoginNotice(cmd.ErrOrStderr()))
}

// commandContext returns the command context, or Background when the
// command is run outside ExecuteContext.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
