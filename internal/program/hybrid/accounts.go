// internal/program/hybrid/accounts.go
package hybrid

import (
	"bytes"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ErrNotEscrowAccount возвращается, если данные аккаунта не являются EscrowV1.
var ErrNotEscrowAccount = errors.New("account is not an EscrowV1")

// EscrowV1 - on-chain запись эскроу.
type EscrowV1 struct {
	Collection   solana.PublicKey
	Authority    solana.PublicKey
	Token        solana.PublicKey
	FeeLocation  solana.PublicKey
	Name         string
	URI          string
	Max          uint64
	Min          uint64
	Amount       uint64
	FeeAmount    uint64
	SolFeeAmount uint64
	Count        uint64
	Path         uint16
	Bump         uint8
}

// DecodeEscrowV1 декодирует аккаунт эскроу, проверяя дискриминатор.
func DecodeEscrowV1(data []byte) (*EscrowV1, error) {
	if len(data) < len(EscrowV1Discriminator) || !bytes.Equal(data[:8], EscrowV1Discriminator[:]) {
		return nil, ErrNotEscrowAccount
	}

	var escrow EscrowV1
	if err := bin.NewBorshDecoder(data[8:]).Decode(&escrow); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEscrowAccount, err)
	}
	return &escrow, nil
}

// Encode сериализует запись в формате аккаунта (с дискриминатором).
func (e *EscrowV1) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(EscrowV1Discriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode escrow: %w", err)
	}
	return buf.Bytes(), nil
}
