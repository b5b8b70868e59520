package escrow

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rovshanmuradov/hybrid-swap/internal/events"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
)

func TestSwapNftForTokens(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(1_000_000)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)

	sig, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	require.NoError(t, err)
	assert.NotEqual(t, solana.Signature{}, sig)

	// у кошелька не было ATA: сначала создание, затем release
	require.Equal(t, 2, f.submitter.count())
	assert.Equal(t, []solana.PublicKey{solana.SPLAssociatedTokenAccountProgramID}, f.submitter.programs(0))
	assert.Equal(t, []solana.PublicKey{f.deployment.EscrowProgram}, f.submitter.programs(1))

	ix := f.submitter.txs[1][0]
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, hybrid.ReleaseV1Discriminator[:], data)

	metas := ix.Accounts()
	require.Len(t, metas, 16)
	assert.Equal(t, f.user.PublicKey(), metas[0].PublicKey)
	assert.True(t, metas[0].IsSigner)
	assert.Equal(t, f.cfg.Authority, metas[1].PublicKey)
	assert.Equal(t, f.escrow, metas[2].PublicKey)
	assert.Equal(t, asset, metas[3].PublicKey)
	assert.Equal(t, f.cfg.Collection, metas[4].PublicKey)
	assert.Equal(t, mustATA(t, f.cfg.TokenMint, f.user.PublicKey()), metas[5].PublicKey)
	assert.Equal(t, mustATA(t, f.cfg.TokenMint, f.escrow), metas[6].PublicKey)
	assert.Equal(t, mustATA(t, f.cfg.TokenMint, f.cfg.Authority), metas[8].PublicKey)
	assert.Equal(t, f.deployment.FeeProjectAccount, metas[10].PublicKey)

	assert.Contains(t, f.publisher.types(), events.SwapCompleted)
}

func TestSwapNftForTokensExistingTokenAccount(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(1_000_000)
	f.putTokenBalance(f.user.PublicKey(), 0)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)

	_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	require.NoError(t, err)
	require.Equal(t, 1, f.submitter.count())
	assert.Equal(t, []solana.PublicKey{f.deployment.EscrowProgram}, f.submitter.programs(0))
}

func TestSwapNftForTokensPreconditions(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture) solana.PublicKey
		want    error
	}{
		{
			name: "foreign collection",
			prepare: func(f *fixture) solana.PublicKey {
				f.readyEscrow(1_000_000)
				return f.putAsset(f.user.PublicKey(), solana.NewWallet().PublicKey())
			},
			want: &Error{Kind: KindWrongCollection, Field: "collection"},
		},
		{
			name: "asset missing",
			prepare: func(f *fixture) solana.PublicKey {
				f.readyEscrow(1_000_000)
				return solana.NewWallet().PublicKey()
			},
			want: &Error{Kind: KindWrongCollection, Field: "asset"},
		},
		{
			name: "not owned",
			prepare: func(f *fixture) solana.PublicKey {
				f.readyEscrow(1_000_000)
				return f.putAsset(solana.NewWallet().PublicKey(), f.cfg.Collection)
			},
			want: &Error{Kind: KindNotOwned, Field: "wallet"},
		},
		{
			name: "escrow mismatch",
			prepare: func(f *fixture) solana.PublicKey {
				onChain := f.cfg
				onChain.TokenPerNft = 1
				f.putEscrow(onChain)
				return f.putAsset(f.user.PublicKey(), f.cfg.Collection)
			},
			want: ErrConfigMismatch,
		},
		{
			name: "escrow missing for non-authority",
			prepare: func(f *fixture) solana.PublicKey {
				return f.putAsset(f.user.PublicKey(), f.cfg.Collection)
			},
			want: &Error{Kind: KindAuthorityMismatch, Field: "signer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			asset := tt.prepare(f)

			_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, f.submitter.count())
			assert.Contains(t, f.publisher.types(), events.SwapFailed)
		})
	}
}

func TestSwapNftForTokensEscrowMismatchIsUnavailable(t *testing.T) {
	f := newFixture(t)
	onChain := f.cfg
	onChain.TokenPerNft = 1
	f.putEscrow(onChain)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)

	_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	assert.Equal(t, KindEscrowUnavailable, KindOf(err))
	assert.ErrorIs(t, err, &Error{Kind: KindConfigMismatch, Field: "token_per_nft"})
}

func TestSwapNftForTokensEscrowUnderfunded(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(f.cfg.TokenPerNft - 1)
	f.putTokenBalance(f.user.PublicKey(), 0)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)

	_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	assert.ErrorIs(t, err, &Error{Kind: KindInsufficientBalance, Field: "escrow"})
	assert.Equal(t, 0, f.submitter.count())
}

func TestSwapNftForTokensUnderfundedEscrowCreatesNoTokenAccount(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(f.cfg.TokenPerNft - 1)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)

	_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	assert.ErrorIs(t, err, &Error{Kind: KindInsufficientBalance, Field: "escrow"})
	assert.Equal(t, 0, f.submitter.count())
	_, exists := f.ledger.data(mustATA(t, f.cfg.TokenMint, f.user.PublicKey()))
	assert.False(t, exists)
}

func TestSwapRejectionLogsProgramError(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	f := newFixture(t)
	f.exec = NewExecutor(f.ledger, f.submitter, f.deployment, zap.New(obs), WithPublisher(f.publisher), withAnalyzer(t))
	f.readyEscrow(1_000_000)
	f.putTokenBalance(f.user.PublicKey(), 0)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)
	f.submitter.onSend = func([]solana.Instruction) error {
		return &jsonrpc.RPCError{
			Code:    -32002,
			Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1771",
			Data: map[string]interface{}{"logs": []interface{}{
				"Program MPL4o4wMzndgh8T1NVDxELQCj5UQfYTYEkabX3wNKtb invoke [1]",
				"Program MPL4o4wMzndgh8T1NVDxELQCj5UQfYTYEkabX3wNKtb failed: custom program error: 0x1771",
			}},
		}
	}

	_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	require.ErrorIs(t, err, &Error{Kind: KindTransactionRejected, Field: "release"})

	entries := logs.FilterMessage("Program rejected transaction").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "release", fields["step"])
	assert.Equal(t, int64(0x1771), fields["program_error_code"])
}

func TestSwapNftForTokensRejected(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(1_000_000)
	f.putTokenBalance(f.user.PublicKey(), 0)
	asset := f.putAsset(f.user.PublicKey(), f.cfg.Collection)
	f.submitter.onSend = func([]solana.Instruction) error {
		return errors.New("custom program error: 0x1771")
	}

	_, err := f.exec.SwapNftForTokens(context.Background(), f.cfg, asset, f.user)
	assert.ErrorIs(t, err, &Error{Kind: KindTransactionRejected, Field: "release"})
	assert.Equal(t, 1, f.submitter.count())
}

func TestSwapTokensForNft(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(0)
	f.putTokenBalance(f.user.PublicKey(), f.cfg.SwapCost())
	asset := f.putAsset(f.escrow, f.cfg.Collection)

	_, err := f.exec.SwapTokensForNft(context.Background(), f.cfg, asset, f.user)
	require.NoError(t, err)
	require.Equal(t, 1, f.submitter.count())

	ix := f.submitter.txs[0][0]
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, hybrid.CaptureV1Discriminator[:], data)
	assert.Len(t, ix.Accounts(), 16)
	assert.Equal(t, []events.EventType{events.EscrowStateChanged, events.SwapCompleted}, f.publisher.types())
}

func TestSwapTokensForNftInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(0)
	f.putTokenBalance(f.user.PublicKey(), 50000)
	asset := f.putAsset(f.escrow, f.cfg.Collection)

	_, err := f.exec.SwapTokensForNft(context.Background(), f.cfg, asset, f.user)
	require.ErrorIs(t, err, &Error{Kind: KindInsufficientBalance, Field: "wallet"})
	assert.Contains(t, err.Error(), "expected 101000, got 50000")
	assert.Equal(t, 0, f.submitter.count())
}

func TestSwapTokensForNftWalletWithoutTokenAccount(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(0)
	asset := f.putAsset(f.escrow, f.cfg.Collection)

	_, err := f.exec.SwapTokensForNft(context.Background(), f.cfg, asset, f.user)
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Equal(t, 0, f.submitter.count())
}

func TestSwapTokensForNftAssetNotInEscrow(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(0)
	f.putTokenBalance(f.user.PublicKey(), f.cfg.SwapCost())
	asset := f.putAsset(solana.NewWallet().PublicKey(), f.cfg.Collection)

	_, err := f.exec.SwapTokensForNft(context.Background(), f.cfg, asset, f.user)
	assert.ErrorIs(t, err, &Error{Kind: KindNotOwned, Field: "escrow"})
	assert.Equal(t, 0, f.submitter.count())
}

func TestSwapTokensForNftRejected(t *testing.T) {
	f := newFixture(t)
	f.readyEscrow(0)
	f.putTokenBalance(f.user.PublicKey(), f.cfg.SwapCost())
	asset := f.putAsset(f.escrow, f.cfg.Collection)
	f.submitter.onSend = func([]solana.Instruction) error {
		return errors.New("blockhash not found")
	}

	_, err := f.exec.SwapTokensForNft(context.Background(), f.cfg, asset, f.user)
	assert.ErrorIs(t, err, &Error{Kind: KindTransactionRejected, Field: "capture"})
	assert.Equal(t, KindTransactionRejected, KindOf(err))
}
