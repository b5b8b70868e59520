// internal/escrow/swap.go
package escrow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
	"github.com/rovshanmuradov/hybrid-swap/internal/events"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/core"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/token"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

// Direction - направление обмена.
type Direction string

const (
	NftToTokens Direction = "nft_to_tokens" // release
	TokensToNft Direction = "tokens_to_nft" // capture
)

// Executor выполняет обмены в обе стороны. Перед отправкой проверяется всё, что
// можно проверить заранее: коллекция, владелец ассета, балансы.
type Executor struct {
	lifecycle *Manager
	balances  *Balances
	reader    blockchain.AccountReader
	submitter Submitter
	logger    *zap.Logger
}

func NewExecutor(reader blockchain.AccountReader, submitter Submitter, deployment Deployment, logger *zap.Logger, opts ...Option) *Executor {
	lifecycle := NewManager(reader, submitter, deployment, logger, opts...)
	return &Executor{
		lifecycle: lifecycle,
		balances:  lifecycle.balances,
		reader:    reader,
		submitter: submitter,
		logger:    logger.Named("escrow-swap"),
	}
}

// Lifecycle returns the escrow lifecycle manager shared by the executor.
func (e *Executor) Lifecycle() *Manager {
	return e.lifecycle
}

// Balances returns the read-only query helper shared by the executor.
func (e *Executor) Balances() *Balances {
	return e.balances
}

// SwapNftForTokens (release): NFT уходит из кошелька в эскроу, кошелёк получает токены.
func (e *Executor) SwapNftForTokens(ctx context.Context, cfg EscrowConfig, asset solana.PublicKey, signer wallet.Signer) (solana.Signature, error) {
	sig, err := e.swapNftForTokens(ctx, cfg, asset, signer)
	e.report(NftToTokens, asset, signer, sig, err)
	return sig, err
}

func (e *Executor) swapNftForTokens(ctx context.Context, cfg EscrowConfig, asset solana.PublicKey, signer wallet.Signer) (solana.Signature, error) {
	owner := signer.PublicKey()

	// 1. Ассет должен принадлежать коллекции рынка и кошельку
	nft, err := e.readAsset(ctx, cfg, asset)
	if err != nil {
		return solana.Signature{}, err
	}
	if !nft.Owner.Equals(owner) {
		return solana.Signature{}, mismatch(KindNotOwned, "wallet", owner, nft.Owner)
	}

	// 2. Эскроу существует и совпадает с конфигурацией
	state, err := e.lifecycle.SetupAndValidate(ctx, cfg, signer)
	if err != nil {
		return solana.Signature{}, newError(KindEscrowUnavailable, "escrow", err)
	}

	accounts, err := e.swapAccounts(cfg, state, asset, owner)
	if err != nil {
		return solana.Signature{}, err
	}

	// 3. В эскроу должно хватать токенов на выплату
	escrowBalance, _, err := e.balances.tokenAccountBalance(ctx, accounts.EscrowTokenAccount, cfg.TokenMint)
	if err != nil {
		return solana.Signature{}, newError(KindEscrowUnavailable, "escrow", err)
	}
	if escrowBalance < cfg.TokenPerNft {
		return solana.Signature{}, &Error{
			Kind:     KindInsufficientBalance,
			Field:    "escrow",
			Expected: strconv.FormatUint(cfg.TokenPerNft, 10),
			Actual:   strconv.FormatUint(escrowBalance, 10),
		}
	}

	// 4. ATA кошелька создаётся отдельной транзакцией, только если его нет;
	// до проверки баланса эскроу ничего не отправляется
	if _, exists, err := e.balances.tokenAccountBalance(ctx, accounts.UserTokenAccount, cfg.TokenMint); err != nil {
		return solana.Signature{}, newError(KindEscrowUnavailable, "wallet", err)
	} else if !exists {
		ix, _, err := token.NewCreateIdempotentATAInstruction(owner, owner, cfg.TokenMint)
		if err != nil {
			return solana.Signature{}, newError(KindTransactionRejected, "wallet", err)
		}
		e.logger.Info("Creating wallet token account", zap.String("account", accounts.UserTokenAccount.String()))
		if _, err := e.submitter.SendAndConfirm(ctx, signer, ix); err != nil {
			return solana.Signature{}, newError(KindTransactionRejected, "wallet", err)
		}
	}

	// 5. release
	ix := hybrid.NewReleaseV1Instruction(e.lifecycle.deployment.EscrowProgram, accounts)
	sig, err := e.submitter.SendAndConfirm(ctx, signer, ix)
	if err != nil {
		e.lifecycle.logProgramError("release", err)
		return sig, newError(KindTransactionRejected, "release", err)
	}
	return sig, nil
}

// SwapTokensForNft (capture): токены уходят в эскроу и на комиссию, NFT из эскроу - в кошелёк.
func (e *Executor) SwapTokensForNft(ctx context.Context, cfg EscrowConfig, asset solana.PublicKey, signer wallet.Signer) (solana.Signature, error) {
	sig, err := e.swapTokensForNft(ctx, cfg, asset, signer)
	e.report(TokensToNft, asset, signer, sig, err)
	return sig, err
}

func (e *Executor) swapTokensForNft(ctx context.Context, cfg EscrowConfig, asset solana.PublicKey, signer wallet.Signer) (solana.Signature, error) {
	owner := signer.PublicKey()

	state, err := e.lifecycle.SetupAndValidate(ctx, cfg, signer)
	if err != nil {
		return solana.Signature{}, newError(KindEscrowUnavailable, "escrow", err)
	}

	accounts, err := e.swapAccounts(cfg, state, asset, owner)
	if err != nil {
		return solana.Signature{}, err
	}

	balance, _, err := e.balances.tokenAccountBalance(ctx, accounts.UserTokenAccount, cfg.TokenMint)
	if err != nil {
		return solana.Signature{}, newError(KindEscrowUnavailable, "wallet", err)
	}
	if required := cfg.SwapCost(); balance < required {
		return solana.Signature{}, &Error{
			Kind:     KindInsufficientBalance,
			Field:    "wallet",
			Expected: strconv.FormatUint(required, 10),
			Actual:   strconv.FormatUint(balance, 10),
		}
	}

	nft, err := e.readAsset(ctx, cfg, asset)
	if err != nil {
		return solana.Signature{}, err
	}
	if !nft.Owner.Equals(accounts.Escrow) {
		return solana.Signature{}, mismatch(KindNotOwned, "escrow", accounts.Escrow, nft.Owner)
	}

	ix := hybrid.NewCaptureV1Instruction(e.lifecycle.deployment.EscrowProgram, accounts)
	sig, err := e.submitter.SendAndConfirm(ctx, signer, ix)
	if err != nil {
		e.lifecycle.logProgramError("capture", err)
		return sig, newError(KindTransactionRejected, "capture", err)
	}
	return sig, nil
}

// readAsset читает ассет и проверяет, что он из коллекции рынка.
func (e *Executor) readAsset(ctx context.Context, cfg EscrowConfig, asset solana.PublicKey) (*core.Asset, error) {
	info, err := readAccount(ctx, e.reader, asset)
	if err != nil {
		if blockchain.IsAccountNotFound(err) {
			return nil, newError(KindWrongCollection, "asset", err)
		}
		return nil, newError(KindEscrowUnavailable, "asset", err)
	}
	if !info.Owner.Equals(e.lifecycle.deployment.CoreProgram) {
		return nil, mismatch(KindWrongCollection, "asset", e.lifecycle.deployment.CoreProgram, info.Owner)
	}

	nft, err := core.DecodeAsset(info.Data.GetBinary())
	if err != nil {
		return nil, newError(KindWrongCollection, "asset", err)
	}
	collection, ok := nft.Collection()
	if !ok {
		return nil, &Error{Kind: KindWrongCollection, Field: "collection", Expected: cfg.Collection.String(), Actual: "none"}
	}
	if !collection.Equals(cfg.Collection) {
		return nil, mismatch(KindWrongCollection, "collection", cfg.Collection, collection)
	}
	return nft, nil
}

// swapAccounts собирает аккаунты release/capture. Комиссии идут по адресам из on-chain записи.
func (e *Executor) swapAccounts(cfg EscrowConfig, state *hybrid.EscrowV1, asset, owner solana.PublicKey) (hybrid.SwapAccounts, error) {
	deriver := e.lifecycle.deriver
	escrowAddr, err := deriver.EscrowAddress(cfg.Collection)
	if err != nil {
		return hybrid.SwapAccounts{}, err
	}

	userATA, err := deriver.AssociatedTokenAccount(cfg.TokenMint, owner)
	if err != nil {
		return hybrid.SwapAccounts{}, err
	}
	escrowATA, err := deriver.AssociatedTokenAccount(cfg.TokenMint, escrowAddr)
	if err != nil {
		return hybrid.SwapAccounts{}, err
	}
	feeATA, err := deriver.AssociatedTokenAccount(cfg.TokenMint, state.FeeLocation)
	if err != nil {
		return hybrid.SwapAccounts{}, err
	}

	return hybrid.SwapAccounts{
		Owner:              owner,
		Authority:          state.Authority,
		Escrow:             escrowAddr,
		Asset:              asset,
		Collection:         cfg.Collection,
		UserTokenAccount:   userATA,
		EscrowTokenAccount: escrowATA,
		Token:              cfg.TokenMint,
		FeeTokenAccount:    feeATA,
		FeeSolAccount:      state.FeeLocation,
		FeeProjectAccount:  e.lifecycle.deployment.FeeProjectAccount,
		CoreProgram:        e.lifecycle.deployment.CoreProgram,
	}, nil
}

func (e *Executor) report(direction Direction, asset solana.PublicKey, signer wallet.Signer, sig solana.Signature, err error) {
	fields := []zap.Field{
		zap.String("direction", string(direction)),
		zap.String("asset", asset.String()),
		zap.String("wallet", signer.PublicKey().String()),
	}
	if err != nil {
		e.logger.Error("Swap failed", append(fields, zap.String("kind", string(KindOf(err))), zap.Error(err))...)
		e.lifecycle.publish(events.SwapFailedEvent{
			BaseEvent: events.NewBaseEvent(events.SwapFailed),
			Direction: string(direction),
			Asset:     asset.String(),
			Wallet:    signer.PublicKey().String(),
			Kind:      string(KindOf(err)),
			Error:     err,
		})
		return
	}

	e.logger.Info("Swap completed", append(fields, zap.String("signature", sig.String()))...)
	e.lifecycle.publish(events.SwapCompletedEvent{
		BaseEvent: events.NewBaseEvent(events.SwapCompleted),
		Direction: string(direction),
		Asset:     asset.String(),
		Wallet:    signer.PublicKey().String(),
		Signature: sig.String(),
	})
}

// Overview - сводка рынка для отображения.
type Overview struct {
	EscrowAddress solana.PublicKey
	EscrowState   State
	TokensPerNft  uint64
	SwapCost      uint64
	WalletBalance uint64
	EscrowBalance uint64
}

// Overview читает состояние эскроу и оба баланса параллельно. Транзакций не отправляет.
func (e *Executor) Overview(ctx context.Context, cfg EscrowConfig, owner solana.PublicKey) (*Overview, error) {
	escrowAddr, err := e.balances.GetEscrowAddress(cfg)
	if err != nil {
		return nil, err
	}
	out := &Overview{
		EscrowAddress: escrowAddr,
		TokensPerNft:  e.balances.GetTokensPerNft(cfg),
		SwapCost:      cfg.SwapCost(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, state, err := e.lifecycle.Validate(gctx, cfg)
		out.EscrowState = state
		if KindOf(err) == KindConfigMismatch {
			// несовпадение отражается в EscrowState
			return nil
		}
		return err
	})
	g.Go(func() error {
		balance, err := e.balances.GetTokenBalance(gctx, cfg.TokenMint, owner)
		out.WalletBalance = balance
		return err
	})
	g.Go(func() error {
		balance, err := e.balances.GetTokenBalance(gctx, cfg.TokenMint, escrowAddr)
		out.EscrowBalance = balance
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load overview: %w", err)
	}
	return out, nil
}
