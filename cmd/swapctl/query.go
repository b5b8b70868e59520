package main

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/hybrid-swap/internal/app"
	"github.com/rovshanmuradov/hybrid-swap/internal/escrow"
)

var ownerFlag string

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print the market token balance of a wallet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd, func(ctx context.Context, r *app.Runner) error {
			owner, err := resolveOwner(r)
			if err != nil {
				return err
			}
			balance, err := r.Executor().Balances().GetTokenBalance(ctx, r.Market().TokenMint, owner)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d\n", owner, balance)
			return nil
		})
	},
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Print escrow state, exchange rate and balances",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRunner(cmd, func(ctx context.Context, r *app.Runner) error {
			owner, err := resolveOwner(r)
			if err != nil {
				return err
			}
			o, err := r.Executor().Overview(ctx, r.Market(), owner)
			if err != nil {
				return err
			}
			fmt.Printf("Escrow:         %s (%s)\n", o.EscrowAddress, o.EscrowState)
			fmt.Printf("Tokens per NFT: %d\n", o.TokensPerNft)
			fmt.Printf("NFT price:      %d\n", o.SwapCost)
			fmt.Printf("Escrow balance: %d\n", o.EscrowBalance)
			fmt.Printf("Wallet balance: %d (%s)\n", o.WalletBalance, owner)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{balanceCmd, overviewCmd} {
		c.Flags().StringVar(&ownerFlag, "owner", "", "wallet address (defaults to the configured keypair)")
	}
}

// resolveOwner: адрес из --owner или публичный ключ настроенного кошелька.
func resolveOwner(r *app.Runner) (solana.PublicKey, error) {
	if ownerFlag != "" {
		return escrow.ParseAddress("owner", ownerFlag)
	}
	w, err := r.Wallet()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pass --owner or configure a keypair: %w", err)
	}
	return w.PublicKey(), nil
}
