// internal/escrow/address.go
package escrow

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
)

// PDAFinder ищет program-derived address для seeds.
type PDAFinder interface {
	FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error)
}

// PDAFinderFunc adapts a function to PDAFinder.
type PDAFinderFunc func(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error)

func (f PDAFinderFunc) FindProgramAddress(seeds [][]byte, programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return f(seeds, programID)
}

// DefaultPDAFinder uses the solana-go bump search.
var DefaultPDAFinder PDAFinder = PDAFinderFunc(solana.FindProgramAddress)

// AddressDeriver вычисляет адреса эскроу и ATA. Чистая функция от входов, без I/O.
type AddressDeriver struct {
	programID solana.PublicKey
	finder    PDAFinder
}

func NewAddressDeriver(programID solana.PublicKey, finder PDAFinder) *AddressDeriver {
	if finder == nil {
		finder = DefaultPDAFinder
	}
	return &AddressDeriver{programID: programID, finder: finder}
}

// EscrowAddress: seeds ("escrow", collection) под программой эскроу.
func (d *AddressDeriver) EscrowAddress(collection solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := d.finder.FindProgramAddress(hybrid.EscrowSeeds(collection), d.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive escrow address: %w", err)
	}
	return addr, nil
}

// AssociatedTokenAccount: seeds (owner, token program, mint) под ATA программой.
func (d *AddressDeriver) AssociatedTokenAccount(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := d.finder.FindProgramAddress(
		[][]byte{owner[:], solana.TokenProgramID[:], mint[:]},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return addr, nil
}

// DeriveEscrowAddress derives the escrow address with the default finder.
func DeriveEscrowAddress(programID, collection solana.PublicKey) (solana.PublicKey, error) {
	return NewAddressDeriver(programID, nil).EscrowAddress(collection)
}

// DeriveAssociatedTokenAccount derives the ATA of owner for mint with the default finder.
func DeriveAssociatedTokenAccount(mint, owner solana.PublicKey) (solana.PublicKey, error) {
	return NewAddressDeriver(solana.PublicKey{}, nil).AssociatedTokenAccount(mint, owner)
}

// ParseAddress декодирует base58 адрес и проверяет длину 32 байта.
// Ошибка - InvalidAddress с именем поля.
func ParseAddress(field, s string) (solana.PublicKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, &Error{Kind: KindInvalidAddress, Field: field, Err: err}
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, &Error{
			Kind:     KindInvalidAddress,
			Field:    field,
			Expected: "32 bytes",
			Actual:   fmt.Sprintf("%d bytes", len(raw)),
		}
	}
	return solana.PublicKeyFromBytes(raw), nil
}
