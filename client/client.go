// Package client is the main entry point for embedding the land registry
// client in Go applications. It wires the session manager, network guard,
// contract gateway, document publisher, record synchronizer, and
// transaction orchestrator into one facade.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/landtenure/landclient/docstore"
	"github.com/landtenure/landclient/netguard"
	"github.com/landtenure/landclient/record"
	"github.com/landtenure/landclient/registry"
	"github.com/landtenure/landclient/session"
	"github.com/landtenure/landclient/txflow"
)

// Role is the session account's relationship to the land record.
type Role string

const (
	// RoleVisitor can view the record but has no pending rights on it.
	RoleVisitor Role = "visitor"

	// RoleOwner is the current owner and may transfer ownership or
	// update the document.
	RoleOwner Role = "owner"

	// RoleNextOwner has been designated to take over and may claim.
	RoleNextOwner Role = "nextOwner"
)

// Config holds client configuration.
type Config struct {
	// Contract is the deployed land registry address.
	Contract common.Address

	// Agent is the wallet boundary.
	Agent session.Agent

	// RequiredChainID pins the network. Default: Sepolia (11155111).
	RequiredChainID *big.Int

	// Storage configures the document store client. Nil loads it from
	// the environment.
	Storage *docstore.Config

	// PollInterval for transaction confirmation polling.
	PollInterval time.Duration

	// Logger for all components. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is the embeddable land registry client.
type Client struct {
	cfg *Config
	log *slog.Logger

	sessions  *session.Manager
	publisher *docstore.Client

	// sync and flow exist only once a validated provider does.
	mu   sync.Mutex
	sync *record.Synchronizer
	flow *txflow.Orchestrator
}

// New creates a new client.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if cfg.Contract == (common.Address{}) {
		return nil, fmt.Errorf("contract address required")
	}
	if cfg.Agent == nil {
		return nil, fmt.Errorf("wallet agent required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessions, err := session.New(&session.Config{
		Agent:        cfg.Agent,
		Guard:        netguard.NewGuard(cfg.RequiredChainID),
		PollInterval: cfg.PollInterval,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}

	storageCfg := cfg.Storage
	if storageCfg == nil {
		storageCfg, err = docstore.ConfigFromEnv()
		if err != nil {
			return nil, err
		}
	}
	if storageCfg.Logger == nil {
		storageCfg.Logger = cfg.Logger
	}
	publisher, err := docstore.NewClient(storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create document store client: %w", err)
	}

	return &Client{
		cfg:       cfg,
		log:       logger.With("component", "client"),
		sessions:  sessions,
		publisher: publisher,
	}, nil
}

// Connect establishes the wallet session, validates the network, and pulls
// the full land record. Safe to call repeatedly; an established session is
// reused without prompting the wallet again.
func (c *Client) Connect(ctx context.Context) error {
	sess, err := c.sessions.Connect(ctx)
	if err != nil {
		return err
	}

	sync, err := c.ensureWired(sess)
	if err != nil {
		return err
	}

	// The session just transitioned to connected-with-provider: run the
	// full sync. Individual field failures are reported, not fatal; the
	// fields that did read are already applied.
	if _, err := sync.SyncAll(ctx); err != nil {
		c.log.Warn("initial sync incomplete", "err", err)
	}

	return nil
}

// ensureWired builds the synchronizer and orchestrator the first time a
// validated provider is available.
func (c *Client) ensureWired(sess session.Session) (*record.Synchronizer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sync != nil {
		return c.sync, nil
	}

	gateway, err := registry.Bind(c.cfg.Contract, sess.Provider.Backend(), nil)
	if err != nil {
		return nil, err
	}

	sync, err := record.New(&record.Config{
		Reader: gateway,
		Logger: c.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	flow, err := txflow.New(&txflow.Config{
		Session:   c.sessions,
		Contract:  c.cfg.Contract,
		Publisher: c.publisher,
		Sync:      sync,
		Logger:    c.cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	c.sync = sync
	c.flow = flow

	return sync, nil
}

// Session returns the current wallet session state.
func (c *Client) Session() session.Session {
	return c.sessions.Current()
}

// Record returns the current local land record.
func (c *Client) Record() record.LandRecord {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()

	if sync == nil {
		return record.LandRecord{}
	}
	return sync.Record()
}

// Role reports how the session account relates to the synced record.
func (c *Client) Role() Role {
	sess := c.sessions.Current()
	if !sess.Connected {
		return RoleVisitor
	}

	rec := c.Record()
	switch sess.Account {
	case rec.Owner:
		return RoleOwner
	case rec.NextOwner:
		return RoleNextOwner
	default:
		return RoleVisitor
	}
}

// InFlight reports whether a transaction is pending.
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow != nil && c.flow.InFlight()
}

// Refresh re-reads the full land record on demand.
func (c *Client) Refresh(ctx context.Context) (record.LandRecord, error) {
	c.mu.Lock()
	sync := c.sync
	c.mu.Unlock()

	if sync == nil {
		return record.LandRecord{}, ErrNotConnected
	}
	return sync.SyncAll(ctx)
}

// TransferOwnership designates nextOwner as the account allowed to claim
// the land.
func (c *Client) TransferOwnership(ctx context.Context, nextOwner string) error {
	flow, err := c.orchestrator()
	if err != nil {
		return err
	}
	return flow.TransferOwnership(ctx, nextOwner)
}

// ClaimOwnership claims the land for the connected account.
func (c *Client) ClaimOwnership(ctx context.Context) error {
	flow, err := c.orchestrator()
	if err != nil {
		return err
	}
	return flow.ClaimOwnership(ctx)
}

// UpdateLandDocument publishes a new land document and records its content
// identifier on-chain.
func (c *Client) UpdateLandDocument(ctx context.Context, document io.Reader) error {
	flow, err := c.orchestrator()
	if err != nil {
		return err
	}
	return flow.UpdateLandDocument(ctx, document)
}

func (c *Client) orchestrator() (*txflow.Orchestrator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.flow == nil {
		return nil, ErrNotConnected
	}
	return c.flow, nil
}
