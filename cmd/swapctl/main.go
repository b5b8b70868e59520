package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/app"
)

var opts app.Options

var rootCmd = &cobra.Command{
	Use:   "swapctl",
	Short: "NFT <-> token escrow swaps on MPL-Hybrid",
	Long: `swapctl sets up and validates MPL-Hybrid escrows for a Core collection
and swaps NFTs for fungible tokens in both directions.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "configs/config.json", "path to node and wallet config")
	rootCmd.PersistentFlags().StringVar(&opts.MarketPath, "market", "configs/market.json", "path to market profile")
	rootCmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(addressCmd, validateCmd, setupCmd, verifyCollectionCmd)
	rootCmd.AddCommand(swapNftCmd, swapTokensCmd)
	rootCmd.AddCommand(balanceCmd, overviewCmd)
}

// withRunner создаёт Runner на время выполнения команды; SIGINT/SIGTERM отменяют контекст.
func withRunner(cmd *cobra.Command, fn func(ctx context.Context, r *app.Runner) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r, err := app.NewRunner(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()
	defer r.TrackPerformance(cmd.Name())()

	if err := fn(ctx, r); err != nil {
		r.Logger().Error("Command failed", zap.String("command", cmd.Name()), zap.Error(err))
		r.Logger().Debug("RPC error analysis", zap.String("analysis", r.ExplainError(err)))
		if hint := errorHint(err); hint != "" {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
