// internal/blockchain/solbc/rpc/rpc.go
package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// Основные константы
const (
	retryAttempts = 3
	retryDelay    = 500 * time.Millisecond
	reqTimeout    = 15 * time.Second
)

// Operation выполняет один запрос к конкретному узлу.
type Operation func(ctx context.Context, node *solanarpc.Client) error

// RPCClient - пул RPC узлов с переключением по кругу.
// Повторы применяются только к чтению; отправка транзакций идет через Once.
type RPCClient struct {
	nodes   []*solanarpc.Client
	urls    []string
	current int
	mu      sync.Mutex
	logger  *zap.Logger
}

// NewClient создает новый RPC клиент
func NewClient(urls []string, logger *zap.Logger) (*RPCClient, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*solanarpc.Client, len(urls))
	for i, url := range urls {
		nodes[i] = solanarpc.New(url)
	}

	return &RPCClient{
		nodes:  nodes,
		urls:   urls,
		logger: logger.Named("rpc-client"),
	}, nil
}

func (c *RPCClient) next() (*solanarpc.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	node := c.nodes[c.current]
	url := c.urls[c.current]
	c.current = (c.current + 1) % len(c.nodes)
	return node, url
}

// ExecuteWithRetry выполняет запрос на чтение с переключением узлов при ошибке.
// "not found" не повторяется: это ответ, а не сбой узла.
func (c *RPCClient) ExecuteWithRetry(ctx context.Context, method string, operation Operation) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, reqTimeout)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		node, url := c.next()

		err := operation(timeoutCtx, node)
		if err == nil {
			return nil
		}
		if errors.Is(err, solanarpc.ErrNotFound) {
			return err
		}
		lastErr = nodeError(method, url, attempt+1, err)

		c.logger.Debug("RPC request failed, trying next node",
			zap.String("url", url),
			zap.String("method", method),
			zap.Error(err),
			zap.Int("attempt", attempt+1))

		if attempt < retryAttempts-1 {
			select {
			case <-timeoutCtx.Done():
				if errors.Is(ctx.Err(), context.Canceled) {
					return ctx.Err()
				}
				return ErrTimeout
			case <-time.After(retryDelay):
			}
		}
	}

	return lastErr
}

// Once выполняет запрос ровно один раз на следующем узле.
func (c *RPCClient) Once(ctx context.Context, method string, operation Operation) error {
	node, url := c.next()
	if err := operation(ctx, node); err != nil {
		return nodeError(method, url, 1, err)
	}
	return nil
}
