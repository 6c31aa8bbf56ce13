package history

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/reeler/reeler/internal/database"
	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("History")

const DefaultListLimit = 50

type (
	Config struct {
		QueueSize int `toml:"queue_size" env:"HISTORY_QUEUE_SIZE" env-default:"64"`
	}

	attemptStore interface {
		SaveAttempt(db database.Queryable, attempt *Attempt, links []Link) error
		ListRecent(db database.Queryable, limit int) ([]*AttemptWithLinks, error)
	}

	databaseManager interface {
		GetSqlxDb() *sqlx.DB
		WrapTx(func(*sqlx.Tx) error) error
	}

	record struct {
		attempt Attempt
		links   []Link
	}

	// Service is the history collaborator: it persists extraction
	// attempts asynchronously and serves the recent-attempt listing.
	// The caller-facing request path only ever enqueues; a single
	// background worker drains the queue and writes to the store.
	// Persistence is strictly best-effort - a full queue drops the
	// record, and a store failure is logged and swallowed. Neither is
	// ever surfaced to the client, who already has their answer.
	Service struct {
		store attemptStore
		db    databaseManager
		queue chan record
	}
)

func New(config Config, store attemptStore, db databaseManager) *Service {
	return &Service{
		store: store,
		db:    db,
		queue: make(chan record, config.QueueSize),
	}
}

// Record enqueues an attempt for persistence. Never blocks: if the
// queue is full the record is dropped with a warning.
func (service *Service) Record(attempt Attempt, links []Link) {
	select {
	case service.queue <- record{attempt: attempt, links: links}:
	default:
		log.Emit(logger.WARNING, "History queue full, dropping record for %s attempt\n", attempt.Platform)
	}
}

// ListRecent returns up to 'limit' of the most recent attempts,
// newest first. A non-positive limit falls back to DefaultListLimit.
func (service *Service) ListRecent(limit int) ([]*AttemptWithLinks, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	return service.store.ListRecent(service.db.GetSqlxDb(), limit)
}

// Run drains the record queue until the provided context is
// cancelled. Any records still queued at cancellation are flushed
// before returning.
func (service *Service) Run(ctx context.Context) error {
	for {
		select {
		case rec := <-service.queue:
			service.persist(rec)
		case <-ctx.Done():
			for {
				select {
				case rec := <-service.queue:
					service.persist(rec)
				default:
					return nil
				}
			}
		}
	}
}

func (service *Service) persist(rec record) {
	err := service.db.WrapTx(func(tx *sqlx.Tx) error {
		return service.store.SaveAttempt(tx, &rec.attempt, rec.links)
	})
	if err != nil {
		log.Emit(logger.WARNING, "Failed to save download history: %s\n", err.Error())
		return
	}

	log.Emit(logger.DEBUG, "Saved history record #%d for %s attempt\n", rec.attempt.ID, rec.attempt.Platform)
}
