// internal/blockchain/solbc/rpc/errors.go
package rpc

import (
	"errors"
	"fmt"
)

var (
	ErrNoRPCNodes = errors.New("no RPC nodes configured")
	ErrTimeout    = errors.New("rpc request timed out")
)

// Error - сбой запроса к конкретному узлу пула. Attempt считается с 1;
// при ExecuteWithRetry это номер последней попытки.
type Error struct {
	Method  string
	Node    string
	Attempt int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s via %s (attempt %d): %v", e.Method, e.Node, e.Attempt, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func nodeError(method, node string, attempt int, err error) *Error {
	return &Error{Method: method, Node: node, Attempt: attempt, Err: err}
}
