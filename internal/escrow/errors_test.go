package escrow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatching(t *testing.T) {
	inner := &Error{Kind: KindConfigMismatch, Field: "token_per_nft", Expected: "100000", Actual: "5"}
	outer := newError(KindEscrowUnavailable, "escrow", inner)
	wrapped := fmt.Errorf("swap: %w", outer)

	assert.ErrorIs(t, wrapped, ErrEscrowUnavailable)
	assert.ErrorIs(t, wrapped, ErrConfigMismatch)
	assert.ErrorIs(t, wrapped, &Error{Kind: KindConfigMismatch, Field: "token_per_nft"})
	assert.NotErrorIs(t, wrapped, &Error{Kind: KindConfigMismatch, Field: "authority"})
	assert.NotErrorIs(t, wrapped, ErrInsufficientBalance)

	assert.Equal(t, KindEscrowUnavailable, KindOf(wrapped))
	assert.Equal(t, KindConfigMismatch, KindOf(inner))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))

	assert.Equal(t, "ConfigMismatch(token_per_nft): expected 100000, got 5", inner.Error())
	assert.Contains(t, outer.Error(), "EscrowUnavailable(escrow): ConfigMismatch")
}
