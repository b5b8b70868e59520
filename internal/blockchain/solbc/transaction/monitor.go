// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
)

type Monitor struct {
	client blockchain.Client
	logger *zap.Logger
	config Config
}

func NewMonitor(client blockchain.Client, logger *zap.Logger, config Config) *Monitor {
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config.withDefaults(),
	}
}

// checkConfirmation проверяет, подтверждена ли транзакция.
// Ошибка исполнения в леджере возвращается как постоянная.
func (m *Monitor) checkConfirmation(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		m.logger.Warn("Confirmation check failed", zap.Error(err))
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}

	if response == nil || len(response.Value) == 0 || response.Value[0] == nil {
		return nil, errPending
	}

	status := response.Value[0]
	if status.Err != nil {
		return status, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err))
	}

	switch m.config.Commitment {
	case rpc.CommitmentProcessed:
		return status, nil
	case rpc.CommitmentFinalized:
		if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return status, nil
		}
	default:
		if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
			return status, nil
		}
		if status.Confirmations != nil && *status.Confirmations >= uint64(m.config.MinConfirmations) {
			return status, nil
		}
	}
	return nil, errPending
}

// AwaitConfirmation опрашивает статус подписи до подтверждения, ошибки исполнения или таймаута.
func (m *Monitor) AwaitConfirmation(ctx context.Context, signature solana.Signature) (*Status, error) {
	status, err := backoff.Retry(ctx,
		func() (*rpc.SignatureStatusesResult, error) {
			return m.checkConfirmation(ctx, signature)
		},
		backoff.WithBackOff(backoff.NewConstantBackOff(m.config.PollInterval)),
		backoff.WithMaxElapsedTime(m.config.ConfirmationTime),
	)
	if err != nil {
		if errors.Is(err, errPending) {
			return nil, fmt.Errorf("%w after %s: %s", ErrConfirmationTimeout, m.config.ConfirmationTime, signature)
		}
		if status != nil {
			return toStatus(signature, status), err
		}
		return nil, err
	}
	return toStatus(signature, status), nil
}

func toStatus(signature solana.Signature, status *rpc.SignatureStatusesResult) *Status {
	txStatus := &Status{
		Signature: signature.String(),
		Timestamp: time.Now(),
		Slot:      status.Slot,
	}

	if status.Confirmations != nil {
		txStatus.Confirmations = *status.Confirmations
	}

	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusFinalized:
		txStatus.Status = "finalized"
	case rpc.ConfirmationStatusConfirmed:
		txStatus.Status = "confirmed"
	default:
		txStatus.Status = "processed"
	}

	if status.Err != nil {
		txStatus.Error = fmt.Sprintf("%v", status.Err)
		txStatus.Status = "failed"
	}
	return txStatus
}
