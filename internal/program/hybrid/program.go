// internal/program/hybrid/program.go
package hybrid

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID - адрес развернутой программы эскроу (совместима с MPL-Hybrid).
var ProgramID = solana.MustPublicKeyFromBase58("MPL4o4wMzndgh8T1NVDxELQCj5UQfYTYEkabX3wNKtb")

// EscrowSeed - литерал доменного разделения в seeds адреса эскроу.
const EscrowSeed = "escrow"

// Anchor-дискриминаторы: первые 8 байт sha256("global:<ix>") и sha256("account:<Name>").
var (
	InitEscrowV1Discriminator = [8]byte{0xc1, 0x0a, 0xa7, 0x79, 0xde, 0x06, 0x15, 0x92}
	ReleaseV1Discriminator    = [8]byte{0x56, 0xd0, 0xd8, 0x1e, 0x7f, 0x41, 0x47, 0x50}
	CaptureV1Discriminator    = [8]byte{0x16, 0x17, 0x80, 0x11, 0x28, 0x85, 0xe0, 0xe4}
	EscrowV1Discriminator     = [8]byte{0x1a, 0x5a, 0xc1, 0xda, 0xbc, 0xfb, 0x8b, 0xd3}
)

// EscrowSeeds возвращает seeds PDA эскроу: сырые байты "escrow" и байты коллекции.
func EscrowSeeds(collection solana.PublicKey) [][]byte {
	return [][]byte{[]byte(EscrowSeed), collection.Bytes()}
}

// FindEscrowAddress вычисляет адрес эскроу для коллекции.
func FindEscrowAddress(programID, collection solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(EscrowSeeds(collection), programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive escrow address: %w", err)
	}
	return addr, bump, nil
}
