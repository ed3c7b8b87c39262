// Package ethtest provides an in-memory Ethereum backend that executes the
// land registry ABI against local state, for use in tests across the module.
package ethtest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	goethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/landtenure/landclient/registry"
)

// State is the contract-resident state the fake backend serves.
type State struct {
	ImageHash    string
	Size         string
	Location     string
	DocumentHash string
	Owner        common.Address
	NextOwner    common.Address
}

// WriteCall records one write method invocation observed by the backend.
type WriteCall struct {
	Method string
	Args   []interface{}
}

// Backend is an in-memory implementation of the chain backend used by the
// client. Writes are mined synchronously: the receipt is available as soon
// as SendTransaction returns.
type Backend struct {
	mu sync.Mutex

	chainID  *big.Int
	state    State
	landABI  abi.ABI
	receipts map[common.Hash]*types.Receipt
	nonce    uint64

	// Writes lists every write invocation, in order.
	Writes []WriteCall

	failReads map[string]error
	reverts   map[string]bool
	sendErr   error
}

// NewBackend creates a fake backend on the given chain with the given
// initial contract state.
func NewBackend(chainID int64, state State) *Backend {
	parsed, err := registry.LandRegistryMetaData.GetAbi()
	if err != nil {
		panic(fmt.Sprintf("registry ABI: %v", err))
	}

	return &Backend{
		chainID:   big.NewInt(chainID),
		state:     state,
		landABI:   *parsed,
		receipts:  make(map[common.Hash]*types.Receipt),
		failReads: make(map[string]error),
		reverts:   make(map[string]bool),
	}
}

// SetChainID switches the network the backend reports, simulating the user
// changing networks in their wallet mid-session.
func (b *Backend) SetChainID(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chainID = big.NewInt(id)
}

// FailRead makes the named read method fail with err.
func (b *Backend) FailRead(method string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failReads[method] = err
}

// RevertWrite makes the named write method mine with a reverted receipt.
func (b *Backend) RevertWrite(method string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reverts[method] = true
}

// RejectSend makes SendTransaction fail with err, simulating the user
// rejecting the transaction in their wallet.
func (b *Backend) RejectSend(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendErr = err
}

// State returns a copy of the current contract state.
func (b *Backend) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ChainID implements the chain backend.
func (b *Backend) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.chainID), nil
}

// CallContract executes a read against the in-memory state.
func (b *Backend) CallContract(ctx context.Context, call goethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	method, err := b.landABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown method: %w", err)
	}

	if failErr, ok := b.failReads[method.Name]; ok {
		return nil, failErr
	}

	var out interface{}
	switch method.Name {
	case "landImageHash":
		out = b.state.ImageHash
	case "landSize":
		out = b.state.Size
	case "landLocation":
		out = b.state.Location
	case "landDocumentPDFHash":
		out = b.state.DocumentHash
	case "owner":
		out = b.state.Owner
	case "nextOwner":
		out = b.state.NextOwner
	default:
		return nil, fmt.Errorf("method %s is not a view", method.Name)
	}

	return method.Outputs.Pack(out)
}

// SendTransaction mines the transaction synchronously, applying its state
// change and storing a receipt.
func (b *Backend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sendErr != nil {
		return b.sendErr
	}

	data := tx.Data()
	method, err := b.landABI.MethodById(data[:4])
	if err != nil {
		return fmt.Errorf("unknown method: %w", err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return fmt.Errorf("failed to unpack %s args: %w", method.Name, err)
	}

	b.Writes = append(b.Writes, WriteCall{Method: method.Name, Args: args})

	status := types.ReceiptStatusSuccessful
	if b.reverts[method.Name] {
		status = types.ReceiptStatusFailed
	} else {
		switch method.Name {
		case "claimOwnership":
			b.state.Owner = args[0].(common.Address)
		case "transferLandOwnership":
			b.state.NextOwner = args[0].(common.Address)
		case "updateLandDocs":
			b.state.DocumentHash = args[0].(string)
		default:
			return fmt.Errorf("method %s is not a write", method.Name)
		}
	}

	b.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(1),
	}

	return nil
}

// TransactionReceipt returns the receipt for a mined transaction.
func (b *Backend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	receipt, ok := b.receipts[txHash]
	if !ok {
		return nil, goethereum.NotFound
	}
	return receipt, nil
}

// CodeAt reports contract code present at every address.
func (b *Backend) CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

// PendingCodeAt reports contract code present at every address.
func (b *Backend) PendingCodeAt(ctx context.Context, contract common.Address) ([]byte, error) {
	return []byte{0x01}, nil
}

// PendingNonceAt returns a monotonically increasing nonce.
func (b *Backend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	nonce := b.nonce
	b.nonce++
	return nonce, nil
}

// HeaderByNumber returns a synthetic head with a base fee so the binder
// builds dynamic-fee transactions.
func (b *Backend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{
		Number:     big.NewInt(1),
		BaseFee:    big.NewInt(1_000_000_000),
		Difficulty: big.NewInt(0),
	}, nil
}

// SuggestGasPrice returns a flat gas price.
func (b *Backend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap returns a flat tip cap.
func (b *Backend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

// EstimateGas returns a flat estimate.
func (b *Backend) EstimateGas(ctx context.Context, call goethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

// FilterLogs returns no logs; the land registry emits none the client uses.
func (b *Backend) FilterLogs(ctx context.Context, query goethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

// SubscribeFilterLogs is not supported by the fake backend.
func (b *Backend) SubscribeFilterLogs(ctx context.Context, query goethereum.FilterQuery, ch chan<- types.Log) (goethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}
