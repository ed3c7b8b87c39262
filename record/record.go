// Package record holds the client-local projection of the on-chain land
// record and keeps it in sync with the contract. The Synchronizer is its
// single writer; nothing is ever mutated optimistically.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/singleflight"
)

// LandRecord is the read projection of the contract state. Image and
// document hashes are independent content identifiers; no relationship
// between them is assumed.
type LandRecord struct {
	ImageHash    string
	Size         string
	Location     string
	DocumentHash string
	Owner        common.Address
	NextOwner    common.Address
}

// Field names one contract-resident field of the record.
type Field string

const (
	FieldImageHash    Field = "imageHash"
	FieldSize         Field = "size"
	FieldLocation     Field = "location"
	FieldDocumentHash Field = "documentHash"
	FieldOwner        Field = "owner"
	FieldNextOwner    Field = "nextOwner"
)

// AllFields lists every field, in contract declaration order.
var AllFields = []Field{
	FieldImageHash, FieldSize, FieldLocation,
	FieldDocumentHash, FieldOwner, FieldNextOwner,
}

// Reader is the read surface of the contract gateway.
type Reader interface {
	LandImageHash(ctx context.Context) (string, error)
	LandSize(ctx context.Context) (string, error)
	LandLocation(ctx context.Context) (string, error)
	LandDocumentHash(ctx context.Context) (string, error)
	Owner(ctx context.Context) (common.Address, error)
	NextOwner(ctx context.Context) (common.Address, error)
}

// Config holds configuration for the Synchronizer.
type Config struct {
	// Reader is the read-bound contract handle.
	Reader Reader

	// Logger for per-field read failures. Defaults to slog.Default().
	Logger *slog.Logger
}

// Synchronizer pulls contract fields into the local LandRecord. Each field
// read is an independent unit: one failing leaves the others applied.
type Synchronizer struct {
	cfg *Config
	log *slog.Logger

	group singleflight.Group

	mu  sync.RWMutex
	rec LandRecord
}

// New creates a new Synchronizer.
func New(cfg *Config) (*Synchronizer, error) {
	if cfg == nil || cfg.Reader == nil {
		return nil, fmt.Errorf("reader required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Synchronizer{
		cfg: cfg,
		log: logger.With("component", "record_sync"),
	}, nil
}

// SyncAll reads every field.
func (s *Synchronizer) SyncAll(ctx context.Context) (LandRecord, error) {
	return s.Sync(ctx, AllFields...)
}

// Sync reads the named fields from the contract and applies the successful
// reads to the local record. Failed reads are logged and joined into the
// returned error; the record keeps whatever was read successfully.
// Identical concurrent syncs are coalesced into a single pass.
func (s *Synchronizer) Sync(ctx context.Context, fields ...Field) (LandRecord, error) {
	if len(fields) == 0 {
		fields = AllFields
	}

	_, err, _ := s.group.Do(syncKey(fields), func() (interface{}, error) {
		return nil, s.syncFields(ctx, fields)
	})

	return s.Record(), err
}

// Record returns a copy of the current local record.
func (s *Synchronizer) Record() LandRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec
}

func (s *Synchronizer) syncFields(ctx context.Context, fields []Field) error {
	var errs []error
	for _, field := range fields {
		if err := s.syncField(ctx, field); err != nil {
			s.log.Warn("field read failed", "field", field, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Synchronizer) syncField(ctx context.Context, field Field) error {
	switch field {
	case FieldImageHash:
		v, err := s.cfg.Reader.LandImageHash(ctx)
		if err != nil {
			return err
		}
		s.apply(func(r *LandRecord) { r.ImageHash = v })

	case FieldSize:
		v, err := s.cfg.Reader.LandSize(ctx)
		if err != nil {
			return err
		}
		s.apply(func(r *LandRecord) { r.Size = v })

	case FieldLocation:
		v, err := s.cfg.Reader.LandLocation(ctx)
		if err != nil {
			return err
		}
		s.apply(func(r *LandRecord) { r.Location = v })

	case FieldDocumentHash:
		v, err := s.cfg.Reader.LandDocumentHash(ctx)
		if err != nil {
			return err
		}
		s.apply(func(r *LandRecord) { r.DocumentHash = v })

	case FieldOwner:
		v, err := s.cfg.Reader.Owner(ctx)
		if err != nil {
			return err
		}
		s.apply(func(r *LandRecord) { r.Owner = v })

	case FieldNextOwner:
		v, err := s.cfg.Reader.NextOwner(ctx)
		if err != nil {
			return err
		}
		s.apply(func(r *LandRecord) { r.NextOwner = v })

	default:
		return fmt.Errorf("unknown field %q", field)
	}

	return nil
}

func (s *Synchronizer) apply(set func(*LandRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set(&s.rec)
}

func syncKey(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
