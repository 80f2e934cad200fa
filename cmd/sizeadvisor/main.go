// Command sizeadvisor recommends bra sizes and styles from body-scan or manual readings.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dailybelle/sizeadvisor/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "sizeadvisor",
	Short: "Daily Belle fitting-room size advisor",
	Long: `sizeadvisor matches bust readings against the store's size tables and
recommends sizes and styles. Readings come from a TG3D body scan or are typed in.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(tablesCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and the logger shared by every subcommand
func setup() (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	cleanup := func() {
		_ = logger.Sync()
		_ = closer.Close()
	}
	return cfg, logger, cleanup, nil
}
