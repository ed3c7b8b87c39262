// Package session owns the lifecycle of the wallet connection: lazy
// connect, account discovery, provider acquisition, and on-demand signer
// derivation. The Session it manages is the only place connection state
// lives; everything else in the client reads it through the Manager.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/landtenure/landclient/chain/ethereum"
	"github.com/landtenure/landclient/netguard"
)

// Session is the client-local view of the wallet connection.
//
// Invariant: Connected implies Account is set. Provider stays nil until the
// network guard has passed, so a session on the wrong chain is connected
// but cannot read or write anything.
type Session struct {
	Connected bool
	Account   common.Address
	Provider  *ethereum.Bridge
}

// Config holds configuration for the session Manager.
type Config struct {
	// Agent is the wallet boundary.
	Agent Agent

	// Guard validates the active chain. Defaults to Sepolia.
	Guard *netguard.Guard

	// PollInterval is passed through to the provider bridge.
	PollInterval time.Duration

	// Logger for session lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Agent == nil {
		return fmt.Errorf("agent required")
	}
	return nil
}

// Manager owns the Session. It is the single writer of session state.
type Manager struct {
	cfg *Config
	log *slog.Logger

	mu      sync.Mutex
	backend ethereum.Backend
	bridge  *ethereum.Bridge
	sess    Session
}

// New creates a new session Manager.
func New(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Guard == nil {
		cfg.Guard = netguard.Sepolia()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg: cfg,
		log: logger.With("component", "session"),
	}, nil
}

// Connect establishes the wallet session. It is idempotent: when a session
// already has a validated provider it is returned as-is, without prompting
// the wallet again.
//
// A rejected connection leaves the session disconnected and returns
// ErrConnectionRejected. A wrong active chain leaves the session connected
// (the account is known) but withholds the provider and returns
// ErrNetworkMismatch.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.Connected && m.sess.Provider != nil {
		return m.sess, nil
	}

	if m.backend == nil {
		backend, err := m.cfg.Agent.Connect(ctx)
		if err != nil {
			return Session{}, fmt.Errorf("wallet connection: %w", err)
		}
		m.backend = backend

		bridgeCfg := ethereum.DefaultConfig(backend)
		if m.cfg.PollInterval > 0 {
			bridgeCfg.PollInterval = m.cfg.PollInterval
		}
		bridgeCfg.Logger = m.cfg.Logger

		bridge, err := ethereum.NewBridge(bridgeCfg)
		if err != nil {
			m.backend = nil
			return Session{}, err
		}
		m.bridge = bridge
	}

	if !m.sess.Connected {
		signer, err := m.cfg.Agent.Signer(ctx, m.cfg.Guard.Required)
		if err != nil {
			return Session{}, fmt.Errorf("account discovery: %w", err)
		}
		m.sess = Session{Connected: true, Account: signer.Address}
	}

	active, err := m.bridge.ChainID(ctx)
	if err != nil {
		return m.sess, fmt.Errorf("failed to query active chain: %w", err)
	}
	if err := m.cfg.Guard.Assert(active); err != nil {
		m.log.Warn("wallet on wrong network",
			"account", m.sess.Account, "active", active)
		return m.sess, err
	}

	m.sess.Provider = m.bridge
	m.log.Info("wallet connected",
		"account", m.sess.Account, "chain", active)

	return m.sess, nil
}

// Signer acquires fresh signing authority for the active account. It lazily
// connects if needed and re-validates the active chain at the moment of
// acquisition: the user may have switched networks since the session was
// established.
func (m *Manager) Signer(ctx context.Context) (*Signer, error) {
	if _, err := m.Connect(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	bridge := m.bridge
	m.mu.Unlock()

	active, err := bridge.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query active chain: %w", err)
	}
	if err := m.cfg.Guard.Assert(active); err != nil {
		return nil, err
	}

	return m.cfg.Agent.Signer(ctx, m.cfg.Guard.Required)
}

// Current returns a copy of the session state.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Disconnect drops the session and provider. The next Connect prompts the
// wallet again.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sess = Session{}
	m.backend = nil
	m.bridge = nil
}

// ShortAddress renders an address in the abbreviated display form used by
// the UI, e.g. 0x12Ab34...Cd56.
func ShortAddress(a common.Address) string {
	s := a.Hex()
	return s[:8] + "..." + s[38:]
}
