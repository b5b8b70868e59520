package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/hybrid-swap/internal/app"
	"github.com/rovshanmuradov/hybrid-swap/internal/escrow"
)

type swapFunc func(ctx context.Context, cfg escrow.EscrowConfig, asset solana.PublicKey, r *app.Runner) (solana.Signature, error)

func swapCommand(use, short string, fn swapFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <asset>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := escrow.ParseAddress("asset", args[0])
			if err != nil {
				return err
			}
			return withRunner(cmd, func(ctx context.Context, r *app.Runner) error {
				sig, err := fn(ctx, r.Market(), asset, r)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Swap confirmed: %s\n", sig)
				return nil
			})
		},
	}
}

var swapNftCmd = swapCommand("swap-nft", "Swap an NFT from the wallet for tokens from the escrow",
	func(ctx context.Context, cfg escrow.EscrowConfig, asset solana.PublicKey, r *app.Runner) (solana.Signature, error) {
		w, err := r.Wallet()
		if err != nil {
			return solana.Signature{}, err
		}
		return r.Executor().SwapNftForTokens(ctx, cfg, asset, w)
	})

var swapTokensCmd = swapCommand("swap-tokens", "Pay tokens to receive an NFT held by the escrow",
	func(ctx context.Context, cfg escrow.EscrowConfig, asset solana.PublicKey, r *app.Runner) (solana.Signature, error) {
		w, err := r.Wallet()
		if err != nil {
			return solana.Signature{}, err
		}
		return r.Executor().SwapTokensForNft(ctx, cfg, asset, w)
	})
