// internal/escrow/lifecycle.go
package escrow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/hybrid-swap/internal/blockchain"
	"github.com/rovshanmuradov/hybrid-swap/internal/events"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/core"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/token"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

// State - последнее наблюдаемое состояние эскроу.
type State int

const (
	StateUnknown State = iota
	StateMissing
	StateInvalid
	StateValid
)

func (s State) String() string {
	switch s {
	case StateMissing:
		return "missing"
	case StateInvalid:
		return "invalid"
	case StateValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Setup steps, used as error fields and event names.
const (
	StepInitialize = "initialize"
	StepDelegate   = "delegate"
	StepFund       = "fund"
)

// Manager создаёт, делегирует, пополняет и проверяет эскроу одного рынка.
// Блокировок на эскроу не берётся: повторный вызов SetupAndValidate безопасен,
// так как каждый шаг начинается с чтения состояния.
type Manager struct {
	reader     blockchain.AccountReader
	submitter  Submitter
	deployment Deployment
	deriver    *AddressDeriver
	balances   *Balances
	classifier ErrorClassifier
	publisher  events.Publisher
	logger     *zap.Logger

	mu     sync.Mutex
	states map[solana.PublicKey]State
}

func NewManager(reader blockchain.AccountReader, submitter Submitter, deployment Deployment, logger *zap.Logger, opts ...Option) *Manager {
	o := applyOptions(opts)
	return &Manager{
		reader:     reader,
		submitter:  submitter,
		deployment: deployment,
		deriver:    NewAddressDeriver(deployment.EscrowProgram, o.finder),
		balances:   NewBalances(reader, deployment, logger, opts...),
		classifier: o.classifier,
		publisher:  o.publisher,
		logger:     logger.Named("escrow-lifecycle"),
		states:     make(map[solana.PublicKey]State),
	}
}

// State returns the last observed state of the escrow for cfg.
func (m *Manager) State(cfg EscrowConfig) State {
	addr, err := m.deriver.EscrowAddress(cfg.Collection)
	if err != nil {
		return StateUnknown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[addr]
}

func (m *Manager) transition(addr solana.PublicKey, cfg EscrowConfig, to State) {
	m.mu.Lock()
	from := m.states[addr]
	m.states[addr] = to
	m.mu.Unlock()

	if from == to {
		return
	}
	m.logger.Debug("Escrow state changed",
		zap.String("escrow", addr.String()),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	m.publish(events.EscrowStateChangedEvent{
		BaseEvent:  events.NewBaseEvent(events.EscrowStateChanged),
		Escrow:     addr.String(),
		Collection: cfg.Collection.String(),
		From:       from.String(),
		To:         to.String(),
	})
}

func (m *Manager) publish(e events.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(e); err != nil {
		m.logger.Warn("Failed to publish event", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}

// Validate читает on-chain эскроу ровно одним запросом и сверяет его с cfg.
// Отсутствующий эскроу - StateMissing без ошибки.
func (m *Manager) Validate(ctx context.Context, cfg EscrowConfig) (*hybrid.EscrowV1, State, error) {
	addr, err := m.deriver.EscrowAddress(cfg.Collection)
	if err != nil {
		return nil, StateUnknown, err
	}

	info, err := readAccount(ctx, m.reader, addr)
	if err != nil {
		if blockchain.IsAccountNotFound(err) {
			m.transition(addr, cfg, StateMissing)
			return nil, StateMissing, nil
		}
		return nil, StateUnknown, newError(KindEscrowUnavailable, "escrow", err)
	}

	if !info.Owner.Equals(m.deployment.EscrowProgram) {
		m.transition(addr, cfg, StateInvalid)
		return nil, StateInvalid, mismatch(KindConfigMismatch, "account", m.deployment.EscrowProgram, info.Owner)
	}
	state, err := hybrid.DecodeEscrowV1(info.Data.GetBinary())
	if err != nil {
		m.transition(addr, cfg, StateInvalid)
		return nil, StateInvalid, newError(KindConfigMismatch, "account", err)
	}

	if err := compareState(cfg, state); err != nil {
		m.logger.Warn("Escrow does not match market config",
			zap.String("escrow", addr.String()),
			zap.Error(err))
		m.transition(addr, cfg, StateInvalid)
		return state, StateInvalid, err
	}

	m.transition(addr, cfg, StateValid)
	return state, StateValid, nil
}

func compareState(cfg EscrowConfig, state *hybrid.EscrowV1) error {
	switch {
	case !state.Collection.Equals(cfg.Collection):
		return mismatch(KindConfigMismatch, "collection", cfg.Collection, state.Collection)
	case !state.Token.Equals(cfg.TokenMint):
		return mismatch(KindConfigMismatch, "token_mint", cfg.TokenMint, state.Token)
	case !state.Authority.Equals(cfg.Authority):
		return mismatch(KindConfigMismatch, "authority", cfg.Authority, state.Authority)
	case state.Amount != cfg.TokenPerNft:
		return &Error{
			Kind:     KindConfigMismatch,
			Field:    "token_per_nft",
			Expected: strconv.FormatUint(cfg.TokenPerNft, 10),
			Actual:   strconv.FormatUint(state.Amount, 10),
		}
	}
	return nil
}

// Initialize создаёт аккаунт эскроу со всеми параметрами cfg; signer платит за аренду.
// Допустим только из StateMissing. Если аккаунт уже создан параллельным вызовом,
// возвращается ErrAlreadyInitialized.
func (m *Manager) Initialize(ctx context.Context, cfg EscrowConfig, signer wallet.Signer) (solana.Signature, error) {
	addr, err := m.deriver.EscrowAddress(cfg.Collection)
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepInitialize, err)
	}
	if state := m.State(cfg); state != StateMissing {
		return solana.Signature{}, newError(KindInitializationFailed, StepInitialize,
			fmt.Errorf("escrow %s is %s, initialize requires missing", addr, state))
	}

	feeATA, err := m.deriver.AssociatedTokenAccount(cfg.TokenMint, cfg.Authority)
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepInitialize, err)
	}

	ix, err := hybrid.NewInitEscrowV1Instruction(m.deployment.EscrowProgram,
		hybrid.InitEscrowV1Accounts{
			Escrow:      addr,
			Authority:   signer.PublicKey(),
			Collection:  cfg.Collection,
			Token:       cfg.TokenMint,
			FeeLocation: cfg.Authority,
			FeeATA:      feeATA,
		},
		hybrid.InitEscrowV1Args{
			Name:         cfg.EscrowName,
			URI:          cfg.BaseURI,
			Max:          cfg.MaxIndex,
			Min:          cfg.MinIndex,
			Amount:       cfg.TokenPerNft,
			FeeAmount:    cfg.TokenFee,
			SolFeeAmount: cfg.SolFeeLamports,
			Path:         0,
		})
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepInitialize, err)
	}

	m.logger.Info("Initializing escrow",
		zap.String("escrow", addr.String()),
		zap.String("collection", cfg.Collection.String()),
		zap.String("name", cfg.EscrowName))

	sig, err := m.submitter.SendAndConfirm(ctx, signer, ix)
	if err != nil {
		if m.classifier != nil && m.classifier.IsAccountAlreadyInUse(err) {
			m.logger.Info("Escrow already initialized", zap.String("escrow", addr.String()))
			return sig, ErrAlreadyInitialized
		}
		m.logProgramError(StepInitialize, err)
		return sig, newError(KindInitializationFailed, StepInitialize, err)
	}
	m.stepDone(addr, StepInitialize, sig)
	return sig, nil
}

// AddDelegates выдаёт делегатам из Deployment права UpdateDelegate на коллекцию.
// Проверки "уже делегировано" нет: каждый вызов отправляет транзакцию.
func (m *Manager) AddDelegates(ctx context.Context, cfg EscrowConfig, signer wallet.Signer) (solana.Signature, error) {
	addr, err := m.deriver.EscrowAddress(cfg.Collection)
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepDelegate, err)
	}

	ix, err := core.NewAddUpdateDelegateInstruction(m.deployment.CoreProgram,
		core.AddUpdateDelegateAccounts{
			Collection: cfg.Collection,
			Payer:      signer.PublicKey(),
			Authority:  signer.PublicKey(),
		},
		m.deployment.Delegates,
		cfg.Authority,
	)
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepDelegate, err)
	}

	m.logger.Info("Adding collection delegates",
		zap.String("collection", cfg.Collection.String()),
		zap.Int("delegates", len(m.deployment.Delegates)))

	sig, err := m.submitter.SendAndConfirm(ctx, signer, ix)
	if err != nil {
		m.logProgramError(StepDelegate, err)
		return sig, newError(KindInitializationFailed, StepDelegate, err)
	}
	m.stepDone(addr, StepDelegate, sig)
	return sig, nil
}

// Fund создаёт token-аккаунт эскроу (если его нет) и переводит InitialFundingAmount
// с ATA signer. Баланс проверяется до отправки.
func (m *Manager) Fund(ctx context.Context, cfg EscrowConfig, signer wallet.Signer) (solana.Signature, error) {
	addr, err := m.deriver.EscrowAddress(cfg.Collection)
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepFund, err)
	}
	payer := signer.PublicKey()

	source, err := m.checkFunding(ctx, cfg, payer)
	if err != nil {
		return solana.Signature{}, err
	}

	createIx, escrowATA, err := token.NewCreateIdempotentATAInstruction(payer, addr, cfg.TokenMint)
	if err != nil {
		return solana.Signature{}, newError(KindInitializationFailed, StepFund, err)
	}
	instructions := []solana.Instruction{createIx}

	if cfg.InitialFundingAmount > 0 {
		transferIx, err := token.NewTransferInstruction(cfg.InitialFundingAmount, source, escrowATA, payer)
		if err != nil {
			return solana.Signature{}, newError(KindInitializationFailed, StepFund, err)
		}
		instructions = append(instructions, transferIx)
	}

	m.logger.Info("Funding escrow",
		zap.String("escrow", addr.String()),
		zap.String("escrow_token_account", escrowATA.String()),
		zap.Uint64("amount", cfg.InitialFundingAmount))

	sig, err := m.submitter.SendAndConfirm(ctx, signer, instructions...)
	if err != nil {
		m.logProgramError(StepFund, err)
		return sig, newError(KindInitializationFailed, StepFund, err)
	}
	m.stepDone(addr, StepFund, sig)
	return sig, nil
}

// checkFunding проверяет, что на ATA payer хватает токенов на InitialFundingAmount,
// и возвращает адрес этого ATA.
func (m *Manager) checkFunding(ctx context.Context, cfg EscrowConfig, payer solana.PublicKey) (solana.PublicKey, error) {
	source, err := m.deriver.AssociatedTokenAccount(cfg.TokenMint, payer)
	if err != nil {
		return solana.PublicKey{}, newError(KindInitializationFailed, StepFund, err)
	}
	if cfg.InitialFundingAmount == 0 {
		return source, nil
	}

	balance, _, err := m.balances.tokenAccountBalance(ctx, source, cfg.TokenMint)
	if err != nil {
		return solana.PublicKey{}, newError(KindInitializationFailed, StepFund, err)
	}
	if balance < cfg.InitialFundingAmount {
		return solana.PublicKey{}, &Error{
			Kind:     KindInsufficientBalance,
			Field:    "payer",
			Expected: strconv.FormatUint(cfg.InitialFundingAmount, 10),
			Actual:   strconv.FormatUint(balance, 10),
		}
	}
	return source, nil
}

// logProgramError пишет в журнал код и имя ошибки программы, если классификатор их распознал.
func (m *Manager) logProgramError(step string, err error) {
	if m.classifier == nil {
		return
	}
	code, name, ok := m.classifier.ProgramError(err)
	if !ok {
		return
	}
	m.logger.Warn("Program rejected transaction",
		zap.String("step", step),
		zap.Int("program_error_code", code),
		zap.String("program_error", name))
}

func (m *Manager) stepDone(addr solana.PublicKey, step string, sig solana.Signature) {
	m.logger.Info("Escrow setup step confirmed",
		zap.String("escrow", addr.String()),
		zap.String("step", step),
		zap.String("signature", sig.String()))
	m.publish(events.EscrowSetupStepEvent{
		BaseEvent: events.NewBaseEvent(events.EscrowSetupStep),
		Escrow:    addr.String(),
		Step:      step,
		Signature: sig.String(),
	})
}

// SetupAndValidate - точка входа: Validate; для отсутствующего эскроу
// проверка баланса payer, Initialize -> AddDelegates -> Fund и повторный Validate. Несовпадающий эскроу
// не исправляется. Для уже валидного эскроу это одно чтение и ноль транзакций.
func (m *Manager) SetupAndValidate(ctx context.Context, cfg EscrowConfig, signer wallet.Signer) (*hybrid.EscrowV1, error) {
	state, current, err := m.Validate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	switch current {
	case StateValid:
		return state, nil
	case StateMissing:
	default:
		return nil, newError(KindEscrowUnavailable, "escrow", fmt.Errorf("unexpected state %s", current))
	}

	if !signer.PublicKey().Equals(cfg.Authority) {
		return nil, mismatch(KindAuthorityMismatch, "signer", cfg.Authority, signer.PublicKey())
	}
	// пополнение проверяется до init: иначе эскроу станет Valid без токенов
	if _, err := m.checkFunding(ctx, cfg, signer.PublicKey()); err != nil {
		return nil, err
	}

	if _, err := m.Initialize(ctx, cfg, signer); err != nil {
		if !errors.Is(err, ErrAlreadyInitialized) {
			return nil, err
		}
	} else {
		if _, err := m.AddDelegates(ctx, cfg, signer); err != nil {
			return nil, err
		}
		if _, err := m.Fund(ctx, cfg, signer); err != nil {
			return nil, err
		}
	}

	state, current, err = m.Validate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if current != StateValid {
		return nil, newError(KindInitializationFailed, StepInitialize,
			fmt.Errorf("escrow is %s after setup", current))
	}
	return state, nil
}
