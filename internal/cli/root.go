// Package cli implements the ronchon command-line interface using Cobra.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ronchon/server/internal/app"
	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/utils/logger"
)

// NewRootCommand builds the command tree.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "ronchon",
		Short: "Ronchon chat proxy backend",
		Long: `Ronchon proxies chat requests to the LLM provider and enforces daily
quotas per client, with premium entitlements driven by Stripe billing.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCommand(),
		newPremiumCommand(),
		newStatusCommand(),
		newTokenCommand(),
	)
	return root
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	if err := NewRootCommand(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// commandLogger keeps operator command output clean by logging warnings to w.
func commandLogger(cfg *config.Config, w io.Writer) *zap.Logger {
	level := "warn"
	if cfg.Log.Level == "debug" {
		level = "debug"
	}
	return logger.New(&logger.Config{Level: level, Format: "console", Output: w})
}

func openEntitlements(cmd *cobra.Command) (*app.Entitlements, func(), error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	return app.OpenEntitlements(cfg, commandLogger(cfg, cmd.ErrOrStderr()))
}
