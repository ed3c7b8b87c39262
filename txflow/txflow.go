// Package txflow sequences state-changing actions against the land
// registry: acquire a signer, invoke the contract write, await confirmation,
// refresh the fields the write affected. A single in-flight flag keeps two
// transactions from ever racing the same account nonce.
package txflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ipfs/go-cid"

	"github.com/landtenure/landclient/record"
	"github.com/landtenure/landclient/registry"
	"github.com/landtenure/landclient/session"
)

// Kind identifies a user-initiated action.
type Kind string

const (
	KindClaim          Kind = "claimOwnership"
	KindTransfer       Kind = "transferLandOwnership"
	KindUpdateDocument Kind = "updateLandDocs"
)

// State is the orchestrator's position in the per-action state machine.
type State string

const (
	StateIdle      State = "idle"
	StateSigning   State = "signing"
	StateSubmitted State = "submitted"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
)

// Publisher uploads a document and returns its content identifier.
type Publisher interface {
	Publish(ctx context.Context, document io.Reader) (cid.Cid, error)
}

// Refresher re-reads contract fields into the local record.
type Refresher interface {
	Sync(ctx context.Context, fields ...record.Field) (record.LandRecord, error)
}

// Config holds configuration for the Orchestrator.
type Config struct {
	// Session provides signer acquisition and the provider.
	Session *session.Manager

	// Contract is the deployed registry address.
	Contract common.Address

	// Publisher uploads documents for KindUpdateDocument.
	Publisher Publisher

	// Sync refreshes the local record after confirmations.
	Sync Refresher

	// Logger for action outcomes. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Session == nil {
		return fmt.Errorf("session manager required")
	}
	if c.Contract == (common.Address{}) {
		return fmt.Errorf("contract address required")
	}
	if c.Publisher == nil {
		return fmt.Errorf("publisher required")
	}
	if c.Sync == nil {
		return fmt.Errorf("synchronizer required")
	}
	return nil
}

// Orchestrator runs one state-changing action at a time.
type Orchestrator struct {
	cfg *Config
	log *slog.Logger

	inFlight atomic.Bool

	mu    sync.Mutex
	state State
}

// New creates a new Orchestrator.
func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:   cfg,
		log:   logger.With("component", "txflow"),
		state: StateIdle,
	}, nil
}

// InFlight reports whether an action is currently pending. The UI disables
// further actions while it is true.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// State returns the state of the most recent action.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// TransferOwnership designates nextOwner as the account allowed to claim
// the land. An absent or malformed address fails with ErrMissingInput
// before the wallet is contacted.
func (o *Orchestrator) TransferOwnership(ctx context.Context, nextOwner string) error {
	if nextOwner == "" {
		return fmt.Errorf("%w: next owner address", ErrMissingInput)
	}
	if !common.IsHexAddress(nextOwner) {
		return fmt.Errorf("%w: %q is not an address", ErrMissingInput, nextOwner)
	}
	addr := common.HexToAddress(nextOwner)

	return o.run(ctx, KindTransfer, []record.Field{record.FieldNextOwner},
		func(ctx context.Context) (*types.Transaction, error) {
			_, gateway, err := o.signingGateway(ctx)
			if err != nil {
				return nil, err
			}
			return gateway.TransferLandOwnership(ctx, addr)
		},
	)
}

// ClaimOwnership claims the land for the session's account. Only the
// account the current owner designated can succeed; anyone else reverts
// on-chain.
func (o *Orchestrator) ClaimOwnership(ctx context.Context) error {
	return o.run(ctx, KindClaim, []record.Field{record.FieldOwner},
		func(ctx context.Context) (*types.Transaction, error) {
			signer, gateway, err := o.signingGateway(ctx)
			if err != nil {
				return nil, err
			}
			return gateway.ClaimOwnership(ctx, signer.Address)
		},
	)
}

// UpdateLandDocument publishes the document to the content-addressed store
// and records the returned identifier on-chain. A failed publish aborts the
// action before any chain write. The on-chain document hash is not
// refreshed here; it surfaces on the next full sync.
func (o *Orchestrator) UpdateLandDocument(ctx context.Context, document io.Reader) error {
	if document == nil {
		return fmt.Errorf("%w: document", ErrMissingInput)
	}

	return o.run(ctx, KindUpdateDocument, nil,
		func(ctx context.Context) (*types.Transaction, error) {
			id, err := o.cfg.Publisher.Publish(ctx, document)
			if err != nil {
				return nil, err
			}

			_, gateway, err := o.signingGateway(ctx)
			if err != nil {
				return nil, err
			}
			return gateway.UpdateLandDocs(ctx, id.String())
		},
	)
}

// run drives one action through the state machine. steps must produce the
// submitted transaction; run then waits for it to be mined and triggers the
// scoped refresh. Any failure resets the in-flight flag and leaves the
// local record untouched.
func (o *Orchestrator) run(ctx context.Context, kind Kind, refresh []record.Field,
	steps func(context.Context) (*types.Transaction, error)) error {

	if !o.inFlight.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: cannot start %s", ErrTxInFlight, kind)
	}
	defer o.inFlight.Store(false)

	o.setState(StateSigning)

	tx, err := steps(ctx)
	if err != nil {
		return o.fail(kind, err)
	}

	o.setState(StateSubmitted)
	o.log.Info("transaction submitted", "kind", kind, "tx", tx.Hash())

	provider := o.cfg.Session.Current().Provider
	if provider == nil {
		return o.fail(kind, fmt.Errorf("session lost its provider"))
	}
	if _, err := provider.WaitMined(ctx, tx); err != nil {
		return o.fail(kind, err)
	}

	o.setState(StateConfirmed)
	o.log.Info("transaction confirmed", "kind", kind, "tx", tx.Hash())

	if len(refresh) > 0 {
		if _, err := o.cfg.Sync.Sync(ctx, refresh...); err != nil {
			// The transaction itself succeeded; the stale fields
			// surface on the next sync.
			o.log.Warn("post-confirmation refresh incomplete",
				"kind", kind, "err", err)
		}
	}

	return nil
}

// signingGateway acquires a fresh signer and binds a signing contract
// handle. The session manager re-validates the active chain during signer
// acquisition.
func (o *Orchestrator) signingGateway(ctx context.Context) (*session.Signer, *registry.Gateway, error) {
	signer, err := o.cfg.Session.Signer(ctx)
	if err != nil {
		return nil, nil, err
	}

	sess := o.cfg.Session.Current()
	if sess.Provider == nil {
		return nil, nil, fmt.Errorf("session has no provider")
	}

	gateway, err := registry.Bind(o.cfg.Contract, sess.Provider.Backend(), signer.Opts)
	if err != nil {
		return nil, nil, err
	}

	return signer, gateway, nil
}

func (o *Orchestrator) fail(kind Kind, err error) error {
	o.setState(StateFailed)
	o.log.Error("transaction failed", "kind", kind, "err", err)
	return err
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}
