// internal/escrow/balance.go
package escrow

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/core"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/token"
)

// Balances - запросы только на чтение: балансы токенов и проверка коллекции.
type Balances struct {
	reader     blockchain.AccountReader
	deployment Deployment
	deriver    *AddressDeriver
	logger     *zap.Logger
}

func NewBalances(reader blockchain.AccountReader, deployment Deployment, logger *zap.Logger, opts ...Option) *Balances {
	o := applyOptions(opts)
	return &Balances{
		reader:     reader,
		deployment: deployment,
		deriver:    NewAddressDeriver(deployment.EscrowProgram, o.finder),
		logger:     logger.Named("escrow-balances"),
	}
}

// GetTokenBalance возвращает баланс ATA владельца. Отсутствующий ATA - это 0, не ошибка.
func (b *Balances) GetTokenBalance(ctx context.Context, mint, owner solana.PublicKey) (uint64, error) {
	ata, err := b.deriver.AssociatedTokenAccount(mint, owner)
	if err != nil {
		return 0, err
	}
	balance, _, err := b.tokenAccountBalance(ctx, ata, mint)
	return balance, err
}

// tokenAccountBalance читает баланс token-аккаунта; exists == false для отсутствующего аккаунта.
func (b *Balances) tokenAccountBalance(ctx context.Context, account, mint solana.PublicKey) (uint64, bool, error) {
	info, err := readAccount(ctx, b.reader, account)
	if err != nil {
		if blockchain.IsAccountNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read token account %s: %w", account, err)
	}

	if !info.Owner.Equals(solana.TokenProgramID) {
		return 0, true, fmt.Errorf("account %s is not owned by the token program", account)
	}
	acc, err := token.DecodeAccount(info.Data.GetBinary())
	if err != nil {
		return 0, true, fmt.Errorf("account %s: %w", account, err)
	}
	if !acc.Mint.Equals(mint) {
		return 0, true, fmt.Errorf("account %s holds mint %s, expected %s", account, acc.Mint, mint)
	}
	return acc.Amount, true, nil
}

// GetTokensPerNft - курс обмена из конфигурации. On-chain значение сверяется только в Validate.
func (b *Balances) GetTokensPerNft(cfg EscrowConfig) uint64 {
	return cfg.TokenPerNft
}

// GetEscrowAddress возвращает адрес эскроу для коллекции рынка.
func (b *Balances) GetEscrowAddress(cfg EscrowConfig) (solana.PublicKey, error) {
	return b.deriver.EscrowAddress(cfg.Collection)
}

// VerifyCollection проверяет, что update authority коллекции совпадает с authority рынка.
func (b *Balances) VerifyCollection(ctx context.Context, cfg EscrowConfig) (bool, error) {
	info, err := readAccount(ctx, b.reader, cfg.Collection)
	if err != nil {
		return false, fmt.Errorf("failed to read collection %s: %w", cfg.Collection, err)
	}
	if !info.Owner.Equals(b.deployment.CoreProgram) {
		return false, mismatch(KindWrongCollection, "collection", b.deployment.CoreProgram, info.Owner)
	}

	collection, err := core.DecodeCollection(info.Data.GetBinary())
	if err != nil {
		return false, newError(KindWrongCollection, "collection", err)
	}
	if !collection.UpdateAuthority.Equals(cfg.Authority) {
		b.logger.Warn("Collection update authority differs",
			zap.String("collection", cfg.Collection.String()),
			zap.String("expected", cfg.Authority.String()),
			zap.String("actual", collection.UpdateAuthority.String()))
		return false, mismatch(KindAuthorityMismatch, "authority", cfg.Authority, collection.UpdateAuthority)
	}
	return true, nil
}

// readAccount читает аккаунт; пустой ответ узла трактуется как отсутствующий аккаунт.
func readAccount(ctx context.Context, reader blockchain.AccountReader, address solana.PublicKey) (*rpc.Account, error) {
	info, err := reader.GetAccountInfo(ctx, address)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("%s: %w", address, blockchain.ErrAccountNotFound)
	}
	return info.Value, nil
}
