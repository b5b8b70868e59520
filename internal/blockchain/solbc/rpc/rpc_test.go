package rpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newPool(t *testing.T) *RPCClient {
	t.Helper()
	c, err := NewClient([]string{"http://a.invalid", "http://b.invalid"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresNodes(t *testing.T) {
	_, err := NewClient(nil, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrNoRPCNodes)
}

func TestExecuteWithRetryRotatesNodes(t *testing.T) {
	c := newPool(t)
	var seen []*solanarpc.Client
	err := c.ExecuteWithRetry(context.Background(), "getAccountInfo", func(_ context.Context, node *solanarpc.Client) error {
		seen = append(seen, node)
		if len(seen) < 2 {
			return errors.New("connection refused")
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
}

func TestExecuteWithRetryGivesUp(t *testing.T) {
	c := newPool(t)
	calls := 0
	err := c.ExecuteWithRetry(context.Background(), "getAccountInfo", func(context.Context, *solanarpc.Client) error {
		calls++
		return errors.New("503")
	})

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "getAccountInfo", rpcErr.Method)
	assert.Equal(t, retryAttempts, rpcErr.Attempt)
	assert.NotEmpty(t, rpcErr.Node)
	assert.Contains(t, err.Error(), fmt.Sprintf("(attempt %d): 503", retryAttempts))
	assert.Equal(t, retryAttempts, calls)
}

func TestExecuteWithRetryDoesNotRetryNotFound(t *testing.T) {
	c := newPool(t)
	calls := 0
	err := c.ExecuteWithRetry(context.Background(), "getAccountInfo", func(context.Context, *solanarpc.Client) error {
		calls++
		return fmt.Errorf("lookup: %w", solanarpc.ErrNotFound)
	})
	assert.ErrorIs(t, err, solanarpc.ErrNotFound)
	assert.Equal(t, 1, calls)
}

func TestOnceRunsExactlyOnce(t *testing.T) {
	c := newPool(t)
	calls := 0
	boom := errors.New("blockhash not found")
	err := c.Once(context.Background(), "sendTransaction", func(context.Context, *solanarpc.Client) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	var rpcErr *Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, "sendTransaction", rpcErr.Method)
	assert.Equal(t, 1, rpcErr.Attempt)
}
