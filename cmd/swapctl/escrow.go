package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/hybrid-swap/internal/app"
	"github.com/rovshanmuradov/hybrid-swap/internal/escrow"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
)

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the escrow address derived for the market collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd, func(_ context.Context, r *app.Runner) error {
			market := r.Market()
			addr, bump, err := hybrid.FindEscrowAddress(r.Deployment().EscrowProgram, market.Collection)
			if err != nil {
				return err
			}
			escrowATA, err := escrow.DeriveAssociatedTokenAccount(market.TokenMint, addr)
			if err != nil {
				return err
			}
			fmt.Printf("Escrow:               %s (bump %d)\n", addr, bump)
			fmt.Printf("Escrow token account: %s\n", escrowATA)
			if w, err := r.Wallet(); err == nil {
				ata, err := w.GetATA(market.TokenMint)
				if err != nil {
					return err
				}
				fmt.Printf("Wallet token account: %s\n", ata)
			}
			return nil
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compare the on-chain escrow with the market profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd, func(ctx context.Context, r *app.Runner) error {
			state, current, err := r.Executor().Lifecycle().Validate(ctx, r.Market())
			fmt.Printf("Escrow state: %s\n", current)
			if err != nil {
				return err
			}
			if state != nil {
				fmt.Printf("Name: %s\nTokens per NFT: %d\nFee: %d tokens, %d lamports\nSwaps: %d\n",
					state.Name, state.Amount, state.FeeAmount, state.SolFeeAmount, state.Count)
			}
			return nil
		})
	},
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create, delegate and fund the escrow if it does not exist yet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd, func(ctx context.Context, r *app.Runner) error {
			w, err := r.Wallet()
			if err != nil {
				return err
			}
			state, err := r.Executor().Lifecycle().SetupAndValidate(ctx, r.Market(), w)
			if err != nil {
				return err
			}
			addr, err := r.Executor().Balances().GetEscrowAddress(r.Market())
			if err != nil {
				return err
			}
			fmt.Printf("✅ Escrow %s is ready: %s, %d tokens per NFT\n", addr, state.Name, state.Amount)
			return nil
		})
	},
}

var verifyCollectionCmd = &cobra.Command{
	Use:   "verify-collection",
	Short: "Check that the market authority controls the collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd, func(ctx context.Context, r *app.Runner) error {
			ok, err := r.Executor().Balances().VerifyCollection(ctx, r.Market())
			if err != nil {
				return err
			}
			fmt.Printf("Collection verified: %t\n", ok)
			return nil
		})
	},
}
