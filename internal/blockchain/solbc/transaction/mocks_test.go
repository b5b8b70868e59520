// internal/blockchain/solbc/transaction/mocks_test.go
package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

// MockClient реализует интерфейс blockchain.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	res, _ := args.Get(0).(*rpc.GetAccountInfoResult)
	return res, args.Error(1)
}

func (m *MockClient) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solana.Hash), args.Error(1)
}

func (m *MockClient) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	res, _ := args.Get(0).(*rpc.GetSignatureStatusesResult)
	return res, args.Error(1)
}

type decliningSigner struct {
	key solana.PublicKey
}

func (s decliningSigner) PublicKey() solana.PublicKey { return s.key }

func (s decliningSigner) SignTransaction(context.Context, *solana.Transaction) error {
	return errors.New("user rejected the request")
}

func testWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

func testInstruction(signer solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
		{PublicKey: signer, IsSigner: true, IsWritable: true},
	}, []byte{2, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0})
}

func statuses(s *rpc.SignatureStatusesResult) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{s}}
}

func fastConfig() Config {
	return Config{
		ConfirmationTime: 200 * time.Millisecond,
		PollInterval:     5 * time.Millisecond,
		Commitment:       rpc.CommitmentConfirmed,
	}
}
