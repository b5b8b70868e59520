// internal/blockchain/errors.go
package blockchain

import (
	"errors"

	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound возвращается, когда аккаунт по адресу не существует.
var ErrAccountNotFound = errors.New("account not found")

// IsAccountNotFound сообщает, что узел ответил "аккаунта нет". Ошибки транспорта
// (HTTP 404, "Method not found") сюда не относятся, даже если содержат "not found".
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, rpc.ErrNotFound)
}
