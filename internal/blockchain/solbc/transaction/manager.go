// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

// Manager строит, подписывает, отправляет и подтверждает транзакции.
// Отправка выполняется ровно один раз: повторная отправка транзакции с побочными
// эффектами остаётся решением вызывающего кода.
type Manager struct {
	client    blockchain.Client
	logger    *zap.Logger
	config    Config
	validator *Validator
	monitor   *Monitor
	metrics   *Metrics
}

func NewManager(client blockchain.Client, logger *zap.Logger, config Config, reg prometheus.Registerer) *Manager {
	config = config.withDefaults()
	return &Manager{
		client:    client,
		logger:    logger.Named("tx-manager"),
		config:    config,
		validator: NewValidator(logger),
		monitor:   NewMonitor(client, logger, config),
		metrics:   NewMetrics(reg),
	}
}

// SendAndConfirm собирает транзакцию из инструкций с signer в роли плательщика
// и ждёт её подтверждения.
func (tm *Manager) SendAndConfirm(ctx context.Context, signer wallet.Signer, instructions ...solana.Instruction) (solana.Signature, error) {
	defer tm.metrics.TrackTransaction(time.Now())

	tx, err := tm.build(ctx, signer, instructions)
	if err != nil {
		return solana.Signature{}, err
	}

	signature, err := tm.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		SkipPreflight:       tm.config.SkipPreflight,
		PreflightCommitment: tm.config.Commitment,
	})
	if err != nil {
		tm.metrics.failure("send")
		tm.logger.Error("Failed to send transaction", zap.Error(err))
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	tm.logger.Debug("Transaction sent", zap.String("signature", signature.String()))

	status, err := tm.monitor.AwaitConfirmation(ctx, signature)
	if err != nil {
		tm.metrics.failure("confirm")
		tm.logger.Error("Transaction confirmation failed",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return signature, err
	}

	tm.metrics.success()
	tm.logger.Info("Transaction confirmed",
		zap.String("signature", signature.String()),
		zap.String("status", status.Status),
		zap.Uint64("slot", status.Slot))
	return signature, nil
}

func (tm *Manager) build(ctx context.Context, signer wallet.Signer, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := tm.client.GetRecentBlockhash(ctx)
	if err != nil {
		tm.metrics.failure("blockhash")
		return nil, fmt.Errorf("failed to get recent blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		tm.metrics.failure("build")
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := signer.SignTransaction(ctx, tx); err != nil {
		tm.metrics.failure("sign")
		return nil, fmt.Errorf("%w: %v", ErrSigningDeclined, err)
	}

	if err := tm.validator.ValidateTransaction(tx); err != nil {
		tm.metrics.failure("validate")
		tm.logger.Error("Transaction validation failed", zap.Error(err))
		return nil, err
	}
	return tx, nil
}
