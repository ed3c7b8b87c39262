package session

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/landtenure/landclient/chain/ethereum"
)

// Signer is transaction-signing authority for a single account. It is
// re-derived on every acquisition; callers must not cache it across
// actions, since the active account can change between them.
type Signer struct {
	// Address is the account the signer acts for.
	Address common.Address

	// Opts carries the signing function and fee fields for contract
	// writes.
	Opts *bind.TransactOpts
}

// Agent brokers access to the user's signing key and network connection.
// It is the module's wallet boundary: Connect may prompt the user and fails
// with ErrConnectionRejected if they decline.
type Agent interface {
	// Connect requests account access and returns a read connection to
	// the network the wallet is pointed at.
	Connect(ctx context.Context) (ethereum.Backend, error)

	// Signer derives fresh signing authority for the active account,
	// bound to the given chain.
	Signer(ctx context.Context, chainID *big.Int) (*Signer, error)
}

// KeyStoreAgentConfig holds configuration for the keystore-backed agent.
type KeyStoreAgentConfig struct {
	// RPCURL is the node endpoint the wallet is pointed at.
	RPCURL string

	// KeyFile is the path to an encrypted keystore JSON file.
	KeyFile string

	// Passphrase unlocks the key file.
	Passphrase string
}

// KeyStoreAgent is an Agent backed by a local go-ethereum keystore file.
// Declining to unlock the key (a wrong or withheld passphrase) is the local
// equivalent of rejecting a wallet connection prompt.
type KeyStoreAgent struct {
	cfg *KeyStoreAgentConfig
}

// NewKeyStoreAgent creates a keystore-backed agent.
func NewKeyStoreAgent(cfg *KeyStoreAgentConfig) (*KeyStoreAgent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url required")
	}
	if cfg.KeyFile == "" {
		return nil, fmt.Errorf("key file required")
	}

	return &KeyStoreAgent{cfg: cfg}, nil
}

// Connect dials the configured node endpoint.
func (a *KeyStoreAgent) Connect(ctx context.Context) (ethereum.Backend, error) {
	client, err := ethclient.DialContext(ctx, a.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", a.cfg.RPCURL, err)
	}

	// Prove the key can be unlocked before reporting a connection; a
	// wallet that cannot sign is not a usable session.
	if _, err := a.unlock(); err != nil {
		client.Close()
		return nil, err
	}

	return client, nil
}

// Signer derives fresh signing authority from the key file.
func (a *KeyStoreAgent) Signer(ctx context.Context, chainID *big.Int) (*Signer, error) {
	key, err := a.unlock()
	if err != nil {
		return nil, err
	}

	opts, err := bind.NewKeyedTransactorWithChainID(key.PrivateKey, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}

	return &Signer{
		Address: crypto.PubkeyToAddress(key.PrivateKey.PublicKey),
		Opts:    opts,
	}, nil
}

func (a *KeyStoreAgent) unlock() (*keystore.Key, error) {
	raw, err := os.ReadFile(a.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := keystore.DecryptKey(raw, a.cfg.Passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionRejected, err)
	}

	return key, nil
}
