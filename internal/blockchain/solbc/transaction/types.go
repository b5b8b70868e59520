// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrSigningDeclined     = errors.New("transaction signing declined")
	ErrTransactionFailed   = errors.New("transaction failed on chain")
)

// errPending означает, что подпись ещё не достигла нужного уровня подтверждения.
var errPending = errors.New("transaction pending")

type Config struct {
	ConfirmationTime time.Duration
	PollInterval     time.Duration
	SkipPreflight    bool
	Commitment       rpc.CommitmentType
	MinConfirmations uint8
}

// DefaultConfig returns the settings used when the caller leaves fields zero.
func DefaultConfig() Config {
	return Config{
		ConfirmationTime: 60 * time.Second,
		PollInterval:     500 * time.Millisecond,
		Commitment:       rpc.CommitmentConfirmed,
		MinConfirmations: 1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ConfirmationTime <= 0 {
		c.ConfirmationTime = d.ConfirmationTime
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Commitment == "" {
		c.Commitment = d.Commitment
	}
	if c.MinConfirmations == 0 {
		c.MinConfirmations = d.MinConfirmations
	}
	return c
}

type Status struct {
	Signature     string
	Status        string
	Confirmations uint64
	Slot          uint64
	Error         string
	Timestamp     time.Time
}
