// internal/escrow/deployment.go
package escrow

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/hybrid-swap/internal/program/core"
	"github.com/rovshanmuradov/hybrid-swap/internal/program/hybrid"
	"github.com/rovshanmuradov/hybrid-swap/internal/wallet"
)

// Deployment - адреса развернутых программ и фиксированный список делегатов,
// которых программа эскроу требует для перемещения ассетов.
type Deployment struct {
	EscrowProgram     solana.PublicKey
	CoreProgram       solana.PublicKey
	FeeProjectAccount solana.PublicKey
	Delegates         []solana.PublicKey
}

// DefaultDeployment returns the devnet/mainnet MPL-Hybrid deployment.
func DefaultDeployment() Deployment {
	return Deployment{
		EscrowProgram:     hybrid.ProgramID,
		CoreProgram:       core.ProgramID,
		FeeProjectAccount: solana.MustPublicKeyFromBase58("GjF4LqmEhV33riVyAwHwiEeAHx4XXFn2yMY3fmMigoP3"),
		Delegates: []solana.PublicKey{
			solana.MustPublicKeyFromBase58("5jD4WTmGYmJG6e9JjRvJX8Svk5Ph2rxqwPjrqky33rRg"),
			solana.MustPublicKeyFromBase58("2BAnwcKZHzohvMjwZ4ekxN2vmrgLF955d8U1cw1XvHVz"),
		},
	}
}

// Submitter подписывает, отправляет и подтверждает одну транзакцию.
type Submitter interface {
	SendAndConfirm(ctx context.Context, signer wallet.Signer, instructions ...solana.Instruction) (solana.Signature, error)
}

// ErrorClassifier распознаёт ошибку создания уже существующего аккаунта
// и извлекает код ошибки программы из логов симуляции.
type ErrorClassifier interface {
	IsAccountAlreadyInUse(err error) bool
	ProgramError(err error) (code int, name string, ok bool)
}
