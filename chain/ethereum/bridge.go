package ethereum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the read/submit surface the bridge needs from an Ethereum node.
// *ethclient.Client satisfies it; tests use an in-memory fake.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend

	// ChainID returns the chain identifier of the connected network.
	ChainID(ctx context.Context) (*big.Int, error)
}

// Config holds configuration for the Bridge.
type Config struct {
	// Backend is the underlying node connection.
	Backend Backend

	// PollInterval is how often to poll for a transaction receipt while
	// waiting for confirmation.
	// Default: 4 seconds
	PollInterval time.Duration

	// Logger for confirmation progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a default Bridge configuration for the given backend.
func DefaultConfig(backend Backend) *Config {
	return &Config{
		Backend:      backend,
		PollInterval: 4 * time.Second,
	}
}

// Bridge is a thin provider handle over an Ethereum RPC backend. It exposes
// the two chain-level operations the client needs beyond contract binding:
// identifying the active network and waiting for a submitted transaction to
// be mined.
type Bridge struct {
	cfg *Config
	log *slog.Logger
}

// NewBridge creates a new Bridge.
func NewBridge(cfg *Config) (*Bridge, error) {
	if cfg == nil || cfg.Backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 4 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		cfg: cfg,
		log: logger.With("component", "chain_bridge"),
	}, nil
}

// Dial connects to the node at rpcURL and wraps it in a Bridge.
func Dial(ctx context.Context, rpcURL string) (*Bridge, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	return NewBridge(DefaultConfig(client))
}

// Backend returns the underlying node connection, for contract binding.
func (b *Bridge) Backend() Backend {
	return b.cfg.Backend
}

// ChainID returns the chain identifier of the connected network. It is
// queried fresh on every call: the result feeds the network guard, so a
// stale answer would defeat the check.
func (b *Bridge) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := b.cfg.Backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	return id, nil
}

// WaitMined blocks until the given transaction is included in a block,
// polling for its receipt at the configured interval. It returns the
// receipt on success, ErrTxReverted if the transaction was mined but its
// execution reverted, or the context error if ctx ends first.
func (b *Bridge) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}

	txHash := tx.Hash()
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := b.cfg.Backend.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("%w: tx %s", ErrTxReverted, txHash)
			}
			b.log.Info("transaction confirmed",
				"tx", txHash, "block", receipt.BlockNumber)
			return receipt, nil

		case errors.Is(err, goethereum.NotFound):
			// Not mined yet, keep polling.

		default:
			return nil, fmt.Errorf("failed to get receipt for %s: %w",
				txHash, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
