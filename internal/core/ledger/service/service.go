package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LeJamon/offerd/internal/core/ledger"
	"github.com/LeJamon/offerd/internal/core/tx"
	"github.com/LeJamon/offerd/internal/storage/journal"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Common errors
var (
	ErrNotStarted         = errors.New("service not started")
	ErrInvalidTransaction = errors.New("invalid transaction blob")
	ErrNoJournal          = errors.New("no transaction journal configured")
)

// Config holds configuration for the ledger Service
type Config struct {
	// Ledger is the committed account store
	Ledger *ledger.Ledger

	// Engine configures the transaction engine
	Engine tx.EngineConfig

	// Journal records every transaction outcome (optional)
	Journal journal.Journal

	// Registerer receives the service metrics (optional)
	Registerer prometheus.Registerer

	// ReplayWindow is how many journal entries seed the replay cache on Start
	ReplayWindow int
}

// SubmitResult is the outcome of one submitted transaction.
type SubmitResult struct {
	Hash              tx.Hash            `json:"hash"`
	Result            string             `json:"engine_result"`
	Code              int                `json:"engine_result_code"`
	Message           string             `json:"engine_result_message"`
	Applied           bool               `json:"applied"`
	Sequence          uint64             `json:"ledger_index,omitempty"`
	FailedInstruction int                `json:"failed_instruction"`
	Affected          []journal.Affected `json:"affected,omitempty"`
}

// Service owns the engine and answers queries against committed state.
type Service struct {
	mu      sync.RWMutex
	started bool

	config  Config
	ledger  *ledger.Ledger
	engine  *tx.Engine
	journal journal.Journal
	metrics *metrics

	events *EventPublisher
}

// New creates a new Service
func New(cfg Config) (*Service, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("service requires a ledger")
	}
	engine, err := tx.NewEngine(cfg.Ledger, cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	return &Service{
		config:  cfg,
		ledger:  cfg.Ledger,
		engine:  engine,
		journal: cfg.Journal,
		metrics: m,
		events:  NewEventPublisher(),
	}, nil
}

// Start seeds the replay cache from the journal so that a restart does not
// reopen the window for transactions applied just before shutdown.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.journal != nil && s.config.ReplayWindow > 0 {
		recent, err := s.journal.Recent(ctx, s.config.ReplayWindow)
		if err != nil {
			return fmt.Errorf("load recent transactions: %w", err)
		}
		seeded := 0
		for _, e := range recent {
			if !e.Applied() {
				continue
			}
			s.engine.MarkApplied(tx.Hash(e.Hash), e.Sequence)
			seeded++
		}
		log.WithField("count", seeded).Debug("seeded replay cache from journal")
	}

	s.metrics.sequence.Set(float64(s.ledger.Sequence()))
	s.started = true
	log.WithField("sequence", s.ledger.Sequence()).Info("ledger service started")
	return nil
}

// IsStarted reports whether Start has completed.
func (s *Service) IsStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Events returns the publisher that transaction outcomes are sent to.
func (s *Service) Events() *EventPublisher {
	return s.events
}

// EngineConfig returns the ledger-wide engine parameters.
func (s *Service) EngineConfig() tx.EngineConfig {
	return s.engine.Config()
}

// Sequence returns the current ledger sequence.
func (s *Service) Sequence() uint64 {
	return s.ledger.Sequence()
}

// Submit parses and applies a serialized transaction.
func (s *Service) Submit(ctx context.Context, raw []byte) (*SubmitResult, error) {
	t, err := tx.ParseTransaction(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return s.submit(ctx, t, raw)
}

// SubmitTx applies an already parsed transaction.
func (s *Service) SubmitTx(ctx context.Context, t *tx.Transaction) (*SubmitResult, error) {
	raw, err := t.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	return s.submit(ctx, t, raw)
}

func (s *Service) submit(ctx context.Context, t *tx.Transaction, raw []byte) (*SubmitResult, error) {
	if !s.IsStarted() {
		return nil, ErrNotStarted
	}

	start := time.Now()
	res := s.engine.Apply(ctx, t)
	s.metrics.observe(res, time.Since(start))

	out := &SubmitResult{
		Hash:              res.Hash,
		Result:            res.Result.String(),
		Code:              int(res.Result),
		Message:           res.Message,
		Applied:           res.Applied,
		Sequence:          res.Sequence,
		FailedInstruction: res.FailedInstruction,
		Affected:          affectedEntries(res.Metadata),
	}

	logger := log.WithFields(log.Fields{
		"tx":     res.Hash.String(),
		"result": out.Result,
	})
	if res.Applied {
		s.metrics.sequence.Set(float64(res.Sequence))
		logger.WithField("sequence", res.Sequence).Info("transaction applied")
	} else {
		logger.Debug("transaction rejected")
	}

	if s.shouldRecord(res) {
		err := s.journal.Record(ctx, &journal.Entry{
			Hash:      journal.Hash(res.Hash),
			Sequence:  res.Sequence,
			Result:    out.Result,
			Code:      out.Code,
			Raw:       raw,
			Affected:  out.Affected,
			Submitted: start,
		})
		if err != nil {
			// the ledger already holds the outcome
			logger.WithError(err).Error("failed to journal transaction")
		}
	}

	s.events.PublishTransaction(TransactionEvent{
		Hash:              res.Hash,
		Result:            out.Result,
		Code:              out.Code,
		Applied:           res.Applied,
		Sequence:          res.Sequence,
		FailedInstruction: res.FailedInstruction,
		Affected:          out.Affected,
	})
	return out, nil
}

// shouldRecord skips outcomes that would overwrite or pollute the journal:
// replays of an applied hash and blobs too malformed to hash.
func (s *Service) shouldRecord(res tx.ApplyResult) bool {
	if s.journal == nil {
		return false
	}
	if res.Hash == (tx.Hash{}) {
		return false
	}
	return res.Result != tx.TefALREADY
}

func affectedEntries(meta *tx.Metadata) []journal.Affected {
	if meta == nil || len(meta.AffectedNodes) == 0 {
		return nil
	}
	out := make([]journal.Affected, len(meta.AffectedNodes))
	for i, n := range meta.AffectedNodes {
		out[i] = journal.Affected{
			Key:    n.Key.String(),
			Type:   n.Type.String(),
			Action: n.Action.String(),
		}
	}
	return out
}
