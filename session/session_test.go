package session_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/landtenure/landclient/chain/ethereum/ethtest"
	"github.com/landtenure/landclient/netguard"
	"github.com/landtenure/landclient/session"
	"github.com/landtenure/landclient/session/sessiontest"
)

func newManager(t *testing.T, agent session.Agent) *session.Manager {
	t.Helper()

	manager, err := session.New(&session.Config{
		Agent: agent,
		Guard: netguard.Sepolia(),
	})
	require.NoError(t, err)
	return manager
}

func TestManager_Connect(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	sess, err := manager.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, sess.Connected)
	require.Equal(t, agent.Address(), sess.Account)
	require.NotNil(t, sess.Provider)
}

func TestManager_ConnectIdempotent(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	_, err := manager.Connect(context.Background())
	require.NoError(t, err)

	// A second connect reuses the session without prompting the wallet.
	_, err = manager.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, agent.ConnectCalls)
}

func TestManager_ConnectRejected(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	agent.ConnectErr = session.ErrConnectionRejected
	manager := newManager(t, agent)

	_, err := manager.Connect(context.Background())
	require.ErrorIs(t, err, session.ErrConnectionRejected)

	sess := manager.Current()
	require.False(t, sess.Connected)
	require.Equal(t, common.Address{}, sess.Account)

	// The user may retry: clear the rejection and connect again.
	agent.ConnectErr = nil
	sess, err = manager.Connect(context.Background())
	require.NoError(t, err)
	require.True(t, sess.Connected)
}

func TestManager_ConnectWrongNetwork(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(1, ethtest.State{}) // mainnet
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	_, err := manager.Connect(context.Background())
	require.ErrorIs(t, err, netguard.ErrNetworkMismatch)

	// The account is known but the provider is withheld, so nothing can
	// read or write until the user switches networks.
	sess := manager.Current()
	require.True(t, sess.Connected)
	require.Equal(t, agent.Address(), sess.Account)
	require.Nil(t, sess.Provider)

	// Switching the wallet to Sepolia unblocks the session, still
	// without a second prompt.
	backend.SetChainID(netguard.SepoliaChainID)
	sess, err = manager.Connect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess.Provider)
	require.Equal(t, 1, agent.ConnectCalls)
}

func TestManager_SignerRederivesEveryCall(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	_, err := manager.Connect(context.Background())
	require.NoError(t, err)
	callsAfterConnect := agent.SignerCalls

	signer, err := manager.Signer(context.Background())
	require.NoError(t, err)
	require.Equal(t, agent.Address(), signer.Address)
	require.NotNil(t, signer.Opts)

	_, err = manager.Signer(context.Background())
	require.NoError(t, err)
	require.Equal(t, callsAfterConnect+2, agent.SignerCalls)
}

func TestManager_SignerChecksNetworkAtAcquisition(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	_, err := manager.Connect(context.Background())
	require.NoError(t, err)

	// The user switches networks between connecting and signing.
	backend.SetChainID(1)

	_, err = manager.Signer(context.Background())
	require.ErrorIs(t, err, netguard.ErrNetworkMismatch)
}

func TestManager_SignerLazyConnects(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	signer, err := manager.Signer(context.Background())
	require.NoError(t, err)
	require.Equal(t, agent.Address(), signer.Address)
	require.Equal(t, 1, agent.ConnectCalls)
}

func TestManager_Disconnect(t *testing.T) {
	t.Parallel()

	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{})
	agent := sessiontest.NewAgent(backend, 1)
	manager := newManager(t, agent)

	_, err := manager.Connect(context.Background())
	require.NoError(t, err)

	manager.Disconnect()
	require.False(t, manager.Current().Connected)

	_, err = manager.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, agent.ConnectCalls)
}

func TestShortAddress(t *testing.T) {
	t.Parallel()

	addr := common.HexToAddress("0x1234567890AbcdEF1234567890aBcdef12345678")
	require.Equal(t, "0x123456...5678", session.ShortAddress(addr))
}
