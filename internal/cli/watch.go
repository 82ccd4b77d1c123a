package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucasvrm/previso/internal/control"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll dashboard data and serve health and metrics",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("patient", "", "also poll predictions for this patient")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if p, _ := cmd.Flags().GetString("patient"); p != "" {
		appCfg.Watch.PatientID = p
	}

	app, err := newApp(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	w := control.NewWatcher(app)
	if err := w.Start(ctx); err != nil {
		_ = app.Close()
		return err
	}

	slog.Info("Watcher started", "config", cfgPath, "port", appCfg.Server.Port)

	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	return w.Stop(shutdownCtx)
}
