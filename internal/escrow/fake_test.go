package escrow

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
	"github.com/rovshanmuradov/hybrid-swap/internal/events"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/core"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/token"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

// fakeLedger - состояние аккаунтов в памяти; считает чтения.
type fakeLedger struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]*rpc.Account
	reads    int
	failWith error // если задано, любое чтение возвращает эту ошибку
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: make(map[solana.PublicKey]*rpc.Account)}
}

func (l *fakeLedger) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	if l.failWith != nil {
		return nil, l.failWith
	}
	acc, ok := l.accounts[pubkey]
	if !ok {
		return nil, fmt.Errorf("%s: %w", pubkey, blockchain.ErrAccountNotFound)
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (l *fakeLedger) put(address, owner solana.PublicKey, data []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = &rpc.Account{Owner: owner, Lamports: 1, Data: rpc.DataBytesOrJSONFromBytes(data)}
}

func (l *fakeLedger) data(address solana.PublicKey) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[address]
	if !ok {
		return nil, false
	}
	return acc.Data.GetBinary(), true
}

func (l *fakeLedger) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failWith = err
}

func (l *fakeLedger) readCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}

// fakeSubmitter записывает отправленные транзакции и применяет их эффекты к леджеру.
type fakeSubmitter struct {
	mu     sync.Mutex
	txs    [][]solana.Instruction
	onSend func(ixs []solana.Instruction) error
}

func (s *fakeSubmitter) SendAndConfirm(_ context.Context, _ wallet.Signer, ixs ...solana.Instruction) (solana.Signature, error) {
	s.mu.Lock()
	s.txs = append(s.txs, ixs)
	n := len(s.txs)
	onSend := s.onSend
	s.mu.Unlock()

	if onSend != nil {
		if err := onSend(ixs); err != nil {
			return solana.Signature{}, err
		}
	}
	return solana.Signature{byte(n)}, nil
}

func (s *fakeSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txs)
}

func (s *fakeSubmitter) programs(i int) []solana.PublicKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []solana.PublicKey
	for _, ix := range s.txs[i] {
		out = append(out, ix.ProgramID())
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.EventType
	for _, e := range p.events {
		out = append(out, e.Type())
	}
	return out
}

type fixture struct {
	t          *testing.T
	ledger     *fakeLedger
	submitter  *fakeSubmitter
	publisher  *recordingPublisher
	deployment Deployment
	exec       *Executor
	cfg        EscrowConfig
	authority  *wallet.Wallet
	user       *wallet.Wallet
	escrow     solana.PublicKey
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return w
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		ledger:     newFakeLedger(),
		submitter:  &fakeSubmitter{},
		publisher:  &recordingPublisher{},
		deployment: DefaultDeployment(),
		authority:  newWallet(t),
		user:       newWallet(t),
	}
	f.cfg = EscrowConfig{
		Collection:           solana.NewWallet().PublicKey(),
		TokenMint:            solana.NewWallet().PublicKey(),
		Authority:            f.authority.PublicKey(),
		BaseURI:              "https://example.com/meta/",
		MinIndex:             0,
		MaxIndex:             9999,
		TokenPerNft:          100000,
		TokenFee:             1000,
		SolFeeLamports:       500_000_000,
		EscrowName:           "Test",
		InitialFundingAmount: 1_000_000,
	}

	var err error
	f.escrow, err = DeriveEscrowAddress(f.deployment.EscrowProgram, f.cfg.Collection)
	require.NoError(t, err)

	f.submitter.onSend = f.simulate
	opts = append([]Option{WithPublisher(f.publisher)}, opts...)
	f.exec = NewExecutor(f.ledger, f.submitter, f.deployment, zaptest.NewLogger(t), opts...)
	f.putCollection(f.cfg.Authority)
	return f
}

// simulate применяет эффекты инструкций программ к леджеру.
func (f *fixture) simulate(ixs []solana.Instruction) error {
	for _, ix := range ixs {
		data, err := ix.Data()
		if err != nil {
			return err
		}
		metas := ix.Accounts()

		switch {
		case ix.ProgramID().Equals(f.deployment.EscrowProgram) && len(data) >= 8 &&
			[8]byte(data[:8]) == hybrid.InitEscrowV1Discriminator:
			if _, ok := f.ledger.data(metas[0].PublicKey); ok {
				return errors.New("Allocate: account already in use")
			}
			f.putEscrow(f.cfg)

		case ix.ProgramID().Equals(solana.SPLAssociatedTokenAccountProgramID):
			if _, ok := f.ledger.data(metas[1].PublicKey); !ok {
				f.ledger.put(metas[1].PublicKey, solana.TokenProgramID, tokenAccountData(metas[3].PublicKey, metas[2].PublicKey, 0))
			}

		case ix.ProgramID().Equals(solana.TokenProgramID) && data[0] == 3:
			amount := binary.LittleEndian.Uint64(data[1:9])
			if err := f.move(metas[0].PublicKey, metas[1].PublicKey, amount); err != nil {
				return err
			}
		}
	}
	return nil
}

func (f *fixture) move(from, to solana.PublicKey, amount uint64) error {
	src, ok := f.ledger.data(from)
	if !ok {
		return errors.New("source token account missing")
	}
	dst, ok := f.ledger.data(to)
	if !ok {
		return errors.New("destination token account missing")
	}
	srcAcc, err := token.DecodeAccount(src)
	if err != nil {
		return err
	}
	dstAcc, err := token.DecodeAccount(dst)
	if err != nil {
		return err
	}
	if srcAcc.Amount < amount {
		return errors.New("insufficient funds")
	}
	f.ledger.put(from, solana.TokenProgramID, tokenAccountData(srcAcc.Mint, srcAcc.Owner, srcAcc.Amount-amount))
	f.ledger.put(to, solana.TokenProgramID, tokenAccountData(dstAcc.Mint, dstAcc.Owner, dstAcc.Amount+amount))
	return nil
}

func (f *fixture) putEscrow(cfg EscrowConfig) {
	f.t.Helper()
	record := &hybrid.EscrowV1{
		Collection:   cfg.Collection,
		Authority:    cfg.Authority,
		Token:        cfg.TokenMint,
		FeeLocation:  cfg.Authority,
		Name:         cfg.EscrowName,
		URI:          cfg.BaseURI,
		Max:          cfg.MaxIndex,
		Min:          cfg.MinIndex,
		Amount:       cfg.TokenPerNft,
		FeeAmount:    cfg.TokenFee,
		SolFeeAmount: cfg.SolFeeLamports,
		Bump:         255,
	}
	data, err := record.Encode()
	require.NoError(f.t, err)
	f.ledger.put(f.escrow, f.deployment.EscrowProgram, data)
}

func (f *fixture) putTokenBalance(owner solana.PublicKey, amount uint64) solana.PublicKey {
	f.t.Helper()
	ata, err := DeriveAssociatedTokenAccount(f.cfg.TokenMint, owner)
	require.NoError(f.t, err)
	f.ledger.put(ata, solana.TokenProgramID, tokenAccountData(f.cfg.TokenMint, owner, amount))
	return ata
}

func (f *fixture) tokenBalance(owner solana.PublicKey) uint64 {
	f.t.Helper()
	ata, err := DeriveAssociatedTokenAccount(f.cfg.TokenMint, owner)
	require.NoError(f.t, err)
	data, ok := f.ledger.data(ata)
	if !ok {
		return 0
	}
	acc, err := token.DecodeAccount(data)
	require.NoError(f.t, err)
	return acc.Amount
}

func (f *fixture) putAsset(owner, collection solana.PublicKey) solana.PublicKey {
	asset := solana.NewWallet().PublicKey()
	f.ledger.put(asset, f.deployment.CoreProgram, assetData(owner, collection))
	return asset
}

func (f *fixture) putCollection(updateAuthority solana.PublicKey) {
	data := []byte{byte(core.KeyCollectionV1)}
	data = append(data, updateAuthority[:]...)
	data = borshString(data, "Collection")
	data = borshString(data, "https://example.com/c.json")
	data = binary.LittleEndian.AppendUint32(data, 1)
	data = binary.LittleEndian.AppendUint32(data, 1)
	f.ledger.put(f.cfg.Collection, f.deployment.CoreProgram, data)
}

// readyEscrow - эскроу создан и пополнен.
func (f *fixture) readyEscrow(balance uint64) {
	f.putEscrow(f.cfg)
	f.putTokenBalance(f.escrow, balance)
}

func tokenAccountData(mint, owner solana.PublicKey, amount uint64) []byte {
	data := make([]byte, token.AccountSize)
	copy(data[0:32], mint[:])
	copy(data[32:64], owner[:])
	binary.LittleEndian.PutUint64(data[64:72], amount)
	data[108] = 1
	return data
}

func borshString(b []byte, s string) []byte {
	b = binary.LittleEndian.AppendUint32(b, uint32(len(s)))
	return append(b, s...)
}

func assetData(owner, collection solana.PublicKey) []byte {
	data := []byte{byte(core.KeyAssetV1)}
	data = append(data, owner[:]...)
	data = append(data, byte(core.UpdateAuthorityCollection))
	data = append(data, collection[:]...)
	data = borshString(data, "NFT #7")
	data = borshString(data, "https://example.com/7.json")
	return append(data, 0)
}
