package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotConfigured means no RPC endpoint was configured.
	ErrNotConfigured = errors.New("chain rpc not configured")

	// ErrTransactionFailed means the transaction has a failed on-chain receipt.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrUnavailable means the RPC call itself failed or timed out; the check
	// can be retried.
	ErrUnavailable = errors.New("chain rpc unavailable")
)

// Config holds chain RPC configuration.
type Config struct {
	RPCURL  string
	Timeout time.Duration
}

// Client verifies transaction receipts against an Ethereum-compatible RPC
// endpoint. Verification is advisory: callers decide what to do when no
// endpoint is configured.
type Client struct {
	eth     *ethclient.Client
	timeout time.Duration
}

// NewClient dials the configured RPC endpoint. An empty RPCURL returns a
// disabled client rather than an error so deployments without a chain
// integration still start.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	if strings.TrimSpace(cfg.RPCURL) == "" {
		return &Client{timeout: timeout}, nil
	}

	eth, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain rpc: %w", err)
	}

	log.Info().Str("rpc", cfg.RPCURL).Msg("Connected to chain RPC")
	return &Client{eth: eth, timeout: timeout}, nil
}

// Enabled reports whether an RPC endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.eth != nil
}

// VerifyTransaction checks that txHash has a successful receipt.
// Returns ErrTransactionFailed for a failed or missing receipt,
// ErrUnavailable for RPC/timeout errors, ErrNotConfigured when disabled.
func (c *Client) VerifyTransaction(ctx context.Context, txHash string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("%w: receipt not found for %s", ErrTransactionFailed, txHash)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return fmt.Errorf("%w: %s", ErrTransactionFailed, txHash)
	}

	return nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c != nil && c.eth != nil {
		c.eth.Close()
	}
}
