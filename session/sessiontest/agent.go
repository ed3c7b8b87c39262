// Package sessiontest provides an in-memory wallet agent for tests.
package sessiontest

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/landtenure/landclient/chain/ethereum"
	"github.com/landtenure/landclient/session"
)

// Agent is a session.Agent over a fixed key and backend. Error fields make
// it refuse connection or signing on demand.
type Agent struct {
	mu sync.Mutex

	backend ethereum.Backend
	key     *ecdsa.PrivateKey

	// ConnectErr, when set, is returned from Connect.
	ConnectErr error

	// SignerErr, when set, is returned from Signer.
	SignerErr error

	// ConnectCalls and SignerCalls count invocations, for asserting that
	// the wallet was (or was not) contacted.
	ConnectCalls int
	SignerCalls  int
}

// NewAgent creates an agent whose key is derived from keySeed, so tests get
// stable distinct accounts per seed.
func NewAgent(backend ethereum.Backend, keySeed int64) *Agent {
	if keySeed <= 0 {
		panic("key seed must be positive")
	}

	raw := make([]byte, 32)
	big.NewInt(keySeed).FillBytes(raw)

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		panic(fmt.Sprintf("derive test key: %v", err))
	}

	return &Agent{backend: backend, key: key}
}

// Address returns the agent's account.
func (a *Agent) Address() common.Address {
	return crypto.PubkeyToAddress(a.key.PublicKey)
}

// Connect implements session.Agent.
func (a *Agent) Connect(ctx context.Context) (ethereum.Backend, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.ConnectCalls++
	if a.ConnectErr != nil {
		return nil, a.ConnectErr
	}
	return a.backend, nil
}

// Signer implements session.Agent.
func (a *Agent) Signer(ctx context.Context, chainID *big.Int) (*session.Signer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.SignerCalls++
	if a.SignerErr != nil {
		return nil, a.SignerErr
	}

	opts, err := bind.NewKeyedTransactorWithChainID(a.key, chainID)
	if err != nil {
		return nil, err
	}

	return &session.Signer{
		Address: a.Address(),
		Opts:    opts,
	}, nil
}
