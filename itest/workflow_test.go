package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/landtenure/landclient/chain/ethereum/ethtest"
	"github.com/landtenure/landclient/client"
	"github.com/landtenure/landclient/docstore"
	"github.com/landtenure/landclient/netguard"
	"github.com/landtenure/landclient/session/sessiontest"
)

const publishedCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

var contractAddr = common.HexToAddress("0x00000000000000000000000000000000000000AA")

// fakeStore serves an nft.storage-compatible store endpoint.
func fakeStore(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    true,
			"value": map[string]string{"ipnft": publishedCID},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func newConnectedClient(t *testing.T, backend *ethtest.Backend, keySeed int64, storeURL string) (*client.Client, *sessiontest.Agent) {
	t.Helper()

	agent := sessiontest.NewAgent(backend, keySeed)
	c, err := client.New(&client.Config{
		Contract: contractAddr,
		Agent:    agent,
		Storage: &docstore.Config{
			BaseURL:   storeURL,
			Token:     "test-credential",
			RateLimit: 100,
		},
	})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))

	return c, agent
}

// TestTransferClaimRoundTrip walks the full ownership handover: the owner
// designates a next owner, who then claims the land.
func TestTransferClaimRoundTrip(t *testing.T) {
	t.Parallel()

	store := fakeStore(t)

	// Seed the registry with agent 1 as the current owner.
	ownerAddr := sessiontest.NewAgent(nil, 1).Address()
	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{
		ImageHash: "QmImage",
		Size:      "2 acres",
		Location:  "Plot 14, Riverside",
		Owner:     ownerAddr,
	})

	ownerClient, _ := newConnectedClient(t, backend, 1, store.URL)
	require.Equal(t, client.RoleOwner, ownerClient.Role())

	// The owner designates agent 2 as next owner.
	nextAddr := sessiontest.NewAgent(nil, 2).Address()
	err := ownerClient.TransferOwnership(context.Background(), nextAddr.Hex())
	require.NoError(t, err)

	rec := ownerClient.Record()
	require.Equal(t, nextAddr, rec.NextOwner)
	require.Equal(t, ownerAddr, rec.Owner) // transfer does not change owner

	// Agent 2 connects against the same chain and claims.
	nextClient, nextAgent := newConnectedClient(t, backend, 2, store.URL)
	require.Equal(t, client.RoleNextOwner, nextClient.Role())

	require.NoError(t, nextClient.ClaimOwnership(context.Background()))
	require.Equal(t, nextAgent.Address(), nextClient.Record().Owner)
	require.Equal(t, client.RoleOwner, nextClient.Role())
}

// TestDocumentUpdateWorkflow publishes a document and records its content
// identifier on-chain.
func TestDocumentUpdateWorkflow(t *testing.T) {
	t.Parallel()

	store := fakeStore(t)

	ownerAddr := sessiontest.NewAgent(nil, 1).Address()
	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{
		Owner:        ownerAddr,
		DocumentHash: "QmOldDoc",
	})

	c, _ := newConnectedClient(t, backend, 1, store.URL)

	err := c.UpdateLandDocument(
		context.Background(), bytes.NewReader([]byte("%PDF-1.4 new deed")),
	)
	require.NoError(t, err)

	// The chain now records the published identifier.
	require.Equal(t, publishedCID, backend.State().DocumentHash)

	// The local record lags until the next full sync, as designed.
	require.Equal(t, "QmOldDoc", c.Record().DocumentHash)

	rec, err := c.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, publishedCID, rec.DocumentHash)
}

// TestDocumentUpdateFailedPublish verifies that a failed publish never
// reaches the chain.
func TestDocumentUpdateFailedPublish(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upload rejected", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	ownerAddr := sessiontest.NewAgent(nil, 1).Address()
	backend := ethtest.NewBackend(netguard.SepoliaChainID, ethtest.State{
		Owner: ownerAddr,
	})

	c, _ := newConnectedClient(t, backend, 1, server.URL)

	err := c.UpdateLandDocument(
		context.Background(), bytes.NewReader([]byte("%PDF-1.4")),
	)
	require.ErrorIs(t, err, docstore.ErrPublishFailure)
	require.Empty(t, backend.Writes)
}

// TestWrongNetworkRefusal verifies the client refuses to operate against
// the wrong chain end to end.
func TestWrongNetworkRefusal(t *testing.T) {
	t.Parallel()

	store := fakeStore(t)

	backend := ethtest.NewBackend(1, ethtest.State{ImageHash: "QmImage"})
	agent := sessiontest.NewAgent(backend, 1)

	c, err := client.New(&client.Config{
		Contract: contractAddr,
		Agent:    agent,
		Storage: &docstore.Config{
			BaseURL:   store.URL,
			Token:     "test-credential",
			RateLimit: 100,
		},
	})
	require.NoError(t, err)

	require.ErrorIs(t,
		c.Connect(context.Background()), netguard.ErrNetworkMismatch,
	)
	require.Empty(t, c.Record().ImageHash)

	// Switching the wallet back to Sepolia recovers the session.
	backend.SetChainID(netguard.SepoliaChainID)
	require.NoError(t, c.Connect(context.Background()))
	require.Equal(t, "QmImage", c.Record().ImageHash)
}
