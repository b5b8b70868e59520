// internal/program/token/token.go
package token

import (
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// AccountSize - размер SPL token аккаунта.
const AccountSize = 165

// ErrNotTokenAccount возвращается, если данные не похожи на SPL token аккаунт.
var ErrNotTokenAccount = errors.New("not an spl token account")

// FindAssociatedTokenAddress возвращает ATA для пары (owner, mint).
func FindAssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return ata, nil
}

// NewCreateIdempotentATAInstruction создаёт ATA для owner, если её ещё нет.
// Повторное выполнение для существующего аккаунта не является ошибкой.
func NewCreateIdempotentATAInstruction(payer, owner, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, err := FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	ix := solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{1}, // CreateIdempotent
	)
	return ix, ata, nil
}

// NewTransferInstruction переводит amount между token-аккаунтами, owner подписывает.
func NewTransferInstruction(amount uint64, source, destination, owner solana.PublicKey) (solana.Instruction, error) {
	ix, err := token.NewTransferInstruction(amount, source, destination, owner, nil).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("failed to build transfer instruction: %w", err)
	}
	return ix, nil
}

// DecodeAccount декодирует данные SPL token аккаунта.
func DecodeAccount(data []byte) (*token.Account, error) {
	if len(data) < AccountSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotTokenAccount, len(data))
	}
	var acc token.Account
	if err := bin.NewBinDecoder(data).Decode(&acc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTokenAccount, err)
	}
	return &acc, nil
}
