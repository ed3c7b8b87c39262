package ethereum_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/landtenure/landclient/chain/ethereum"
	"github.com/landtenure/landclient/chain/ethereum/ethtest"
	"github.com/landtenure/landclient/netguard"
	"github.com/landtenure/landclient/registry"
)

var _ ethereum.Backend = (*ethtest.Backend)(nil)

func testBridge(t *testing.T, backend ethereum.Backend) *ethereum.Bridge {
	t.Helper()

	cfg := ethereum.DefaultConfig(backend)
	cfg.PollInterval = 5 * time.Millisecond

	bridge, err := ethereum.NewBridge(cfg)
	require.NoError(t, err)
	return bridge
}

func submitTransfer(t *testing.T, backend *ethtest.Backend) *registry.Gateway {
	t.Helper()

	raw := make([]byte, 32)
	raw[31] = 0x09
	key, err := crypto.ToECDSA(raw)
	require.NoError(t, err)

	opts, err := bind.NewKeyedTransactorWithChainID(
		key, big.NewInt(netguard.SepoliaChainID),
	)
	require.NoError(t, err)

	gateway, err := registry.Bind(
		common.HexToAddress("0xAA"), backend, opts,
	)
	require.NoError(t, err)
	return gateway
}

func TestNewBridge_RequiresBackend(t *testing.T) {
	t.Parallel()

	_, err := ethereum.NewBridge(nil)
	require.Error(t, err)

	_, err = ethereum.NewBridge(&ethereum.Config{})
	require.Error(t, err)
}

func TestBridge_ChainID(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	bridge := testBridge(t, backend)

	id, err := bridge.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(netguard.SepoliaChainID), id.Int64())

	// The answer follows the wallet's active network, fresh each call.
	backend.SetChainID(1)
	id, err = bridge.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), id.Int64())
}

func TestBridge_WaitMined(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	bridge := testBridge(t, backend)
	gateway := submitTransfer(t, backend)

	tx, err := gateway.TransferLandOwnership(
		context.Background(),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	)
	require.NoError(t, err)

	receipt, err := bridge.WaitMined(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), receipt.TxHash)
}

func TestBridge_WaitMinedReverted(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	backend.RevertWrite("transferLandOwnership")

	bridge := testBridge(t, backend)
	gateway := submitTransfer(t, backend)

	tx, err := gateway.TransferLandOwnership(
		context.Background(),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	)
	require.NoError(t, err)

	_, err = bridge.WaitMined(context.Background(), tx)
	require.ErrorIs(t, err, ethereum.ErrTxReverted)
}

func TestBridge_WaitMinedContextCancelled(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	_ = testBridge(t, backend)
	gateway := submitTransfer(t, backend)

	tx, err := gateway.TransferLandOwnership(
		context.Background(),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	)
	require.NoError(t, err)

	// Wait on a bridge whose backend never saw the transaction: it stays
	// pending forever, so only the context can end the wait.
	fresh := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	freshBridge := testBridge(t, fresh)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	_, err = freshBridge.WaitMined(ctx, tx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
