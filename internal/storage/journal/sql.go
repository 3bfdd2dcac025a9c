package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and tunes the journal backend.
type Config struct {
	Driver      string
	DSN         string
	JournalMode string // sqlite only
	Timeout     time.Duration
}

// SQLJournal is a Journal over database/sql.
type SQLJournal struct {
	db      *sql.DB
	driver  string
	timeout time.Duration
	mu      sync.RWMutex
}

var _ Journal = (*SQLJournal)(nil)

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, cfg Config) (*SQLJournal, error) {
	if cfg.Driver != DriverSQLite && cfg.Driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// a single writer connection avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	j := &SQLJournal{db: db, driver: cfg.Driver, timeout: cfg.Timeout}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}
	if cfg.Driver == DriverSQLite && cfg.JournalMode != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode="+cfg.JournalMode); err != nil {
			db.Close()
			return nil, fmt.Errorf("set journal mode: %w", err)
		}
	}
	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return j, nil
}

func (j *SQLJournal) initSchema(ctx context.Context) error {
	id, blob := "INTEGER PRIMARY KEY AUTOINCREMENT", "BLOB"
	if j.driver == DriverPostgres {
		id, blob = "BIGSERIAL PRIMARY KEY", "BYTEA"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id ` + id + `,
			hash ` + blob + ` NOT NULL UNIQUE,
			ledger_seq BIGINT NOT NULL,
			result TEXT NOT NULL,
			code INTEGER NOT NULL,
			raw_txn ` + blob + ` NOT NULL,
			txn_meta ` + blob + `,
			submitted_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_ledger_seq ON transactions (ledger_seq)`,
	}
	for _, s := range stmts {
		if _, err := j.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $N for postgres.
func rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record stores e. Recording the same hash again replaces the earlier
// outcome, which happens when a failed transaction is resubmitted.
func (j *SQLJournal) Record(ctx context.Context, e *Entry) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return ErrClosed
	}

	raw, err := compress(e.Raw)
	if err != nil {
		return err
	}
	meta, err := encodeAffected(e.Affected)
	if err != nil {
		return err
	}
	submitted := e.Submitted
	if submitted.IsZero() {
		submitted = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	query := rebind(j.driver, `INSERT INTO transactions
		(hash, ledger_seq, result, code, raw_txn, txn_meta, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (hash) DO UPDATE SET
			ledger_seq = excluded.ledger_seq,
			result = excluded.result,
			code = excluded.code,
			raw_txn = excluded.raw_txn,
			txn_meta = excluded.txn_meta,
			submitted_at = excluded.submitted_at`)
	_, err = j.db.ExecContext(ctx, query,
		e.Hash[:], int64(e.Sequence), e.Result, e.Code, raw, meta, submitted.UnixNano())
	if err != nil {
		return fmt.Errorf("record transaction %s: %w", e.Hash, err)
	}
	return nil
}

const selectColumns = `SELECT hash, ledger_seq, result, code, raw_txn, txn_meta, submitted_at FROM transactions`

// Get returns the journal entry for hash.
func (j *SQLJournal) Get(ctx context.Context, hash Hash) (*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	row := j.db.QueryRowContext(ctx, rebind(j.driver, selectColumns+` WHERE hash = ?`), hash[:])
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}
	return e, err
}

// Recent returns up to limit entries, newest first.
func (j *SQLJournal) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	rows, err := j.db.QueryContext(ctx, rebind(j.driver, selectColumns+` ORDER BY id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transactions: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (j *SQLJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var (
		e         Entry
		hash      []byte
		seq       int64
		raw, meta []byte
		submitted int64
	)
	if err := s.Scan(&hash, &seq, &e.Result, &e.Code, &raw, &meta, &submitted); err != nil {
		return nil, err
	}
	if len(hash) != len(e.Hash) {
		return nil, errBadBlob
	}
	copy(e.Hash[:], hash)
	e.Sequence = uint64(seq)
	e.Submitted = time.Unix(0, submitted)

	var err error
	if e.Raw, err = decompress(raw); err != nil {
		return nil, err
	}
	if e.Affected, err = decodeAffected(meta); err != nil {
		return nil, err
	}
	return &e, nil
}
