// internal/program/hybrid/instructions.go
package hybrid

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// InitEscrowV1Args - параметры эскроу, записываемые программой при создании.
type InitEscrowV1Args struct {
	Name         string
	URI          string
	Max          uint64
	Min          uint64
	Amount       uint64
	FeeAmount    uint64
	SolFeeAmount uint64
	Path         uint16
}

// InitEscrowV1Accounts - аккаунты init_escrow_v1 в порядке, ожидаемом программой.
type InitEscrowV1Accounts struct {
	Escrow      solana.PublicKey
	Authority   solana.PublicKey
	Collection  solana.PublicKey
	Token       solana.PublicKey
	FeeLocation solana.PublicKey
	FeeATA      solana.PublicKey
}

// NewInitEscrowV1Instruction создаёт аккаунт эскроу; authority платит за аренду.
func NewInitEscrowV1Instruction(programID solana.PublicKey, accounts InitEscrowV1Accounts, args InitEscrowV1Args) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)

	if err := enc.WriteBytes(InitEscrowV1Discriminator[:], false); err != nil {
		return nil, fmt.Errorf("failed to write instruction discriminator: %w", err)
	}
	if err := enc.Encode(args); err != nil {
		return nil, fmt.Errorf("failed to encode init_escrow_v1 args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(accounts.Escrow, true, false),
		solana.NewAccountMeta(accounts.Authority, true, true),
		solana.NewAccountMeta(accounts.Collection, false, false),
		solana.NewAccountMeta(accounts.Token, false, false),
		solana.NewAccountMeta(accounts.FeeLocation, false, false),
		solana.NewAccountMeta(accounts.FeeATA, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
	}

	return solana.NewInstruction(programID, metas, buf.Bytes()), nil
}

// SwapAccounts - общий набор аккаунтов release_v1 и capture_v1.
type SwapAccounts struct {
	Owner              solana.PublicKey
	Authority          solana.PublicKey
	Escrow             solana.PublicKey
	Asset              solana.PublicKey
	Collection         solana.PublicKey
	UserTokenAccount   solana.PublicKey
	EscrowTokenAccount solana.PublicKey
	Token              solana.PublicKey
	FeeTokenAccount    solana.PublicKey
	FeeSolAccount      solana.PublicKey
	FeeProjectAccount  solana.PublicKey
	CoreProgram        solana.PublicKey
}

// NewReleaseV1Instruction: NFT уходит от владельца в эскроу, владелец получает токены.
func NewReleaseV1Instruction(programID solana.PublicKey, accounts SwapAccounts) solana.Instruction {
	return newSwapInstruction(programID, ReleaseV1Discriminator, accounts)
}

// NewCaptureV1Instruction: токены уходят в эскроу и на комиссию, NFT из эскроу переходит владельцу.
func NewCaptureV1Instruction(programID solana.PublicKey, accounts SwapAccounts) solana.Instruction {
	return newSwapInstruction(programID, CaptureV1Discriminator, accounts)
}

func newSwapInstruction(programID solana.PublicKey, discriminator [8]byte, a SwapAccounts) solana.Instruction {
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(a.Owner, true, true),
		solana.NewAccountMeta(a.Authority, true, false),
		solana.NewAccountMeta(a.Escrow, true, false),
		solana.NewAccountMeta(a.Asset, true, false),
		solana.NewAccountMeta(a.Collection, true, false),
		solana.NewAccountMeta(a.UserTokenAccount, true, false),
		solana.NewAccountMeta(a.EscrowTokenAccount, true, false),
		solana.NewAccountMeta(a.Token, false, false),
		solana.NewAccountMeta(a.FeeTokenAccount, true, false),
		solana.NewAccountMeta(a.FeeSolAccount, true, false),
		solana.NewAccountMeta(a.FeeProjectAccount, true, false),
		solana.NewAccountMeta(solana.SysVarRecentBlockHashesPubkey, false, false),
		solana.NewAccountMeta(a.CoreProgram, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
	}

	data := make([]byte, len(discriminator))
	copy(data, discriminator[:])
	return solana.NewInstruction(programID, metas, data)
}
