// Package ledger journals the asynchronous operations the CLI starts and
// waits on: task ids, location URLs, and report request ids, together with
// the terminal state each one reached. It is a local audit trail, not a
// response cache; nothing here is ever served back in place of an API call.
//
// The lifecycle of a row is Start (pending) followed by exactly one Finish.
// Prune removes finished rows past a retention window.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Kind identifies what the operation reference points at.
type Kind string

// Operation kinds.
const (
	KindTask     Kind = "task"
	KindLocation Kind = "location"
	KindReport   Kind = "report"
	KindExport   Kind = "export"
)

// State is the lifecycle state of an operation.
type State string

// Operation states. Every state but StatePending is terminal.
const (
	StatePending  State = "pending"
	StateComplete State = "complete"
	StateError    State = "error"
	StateCanceled State = "canceled"
	StateGaveUp   State = "gave_up"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	switch s {
	case StateComplete, StateError, StateCanceled, StateGaveUp:
		return true
	default:
		return false
	}
}

// ErrNotFound is returned when no operation has the requested id.
var ErrNotFound = errors.New("ledger: operation not found")

// ErrAlreadyFinished is returned by Finish on a row that is no longer pending.
var ErrAlreadyFinished = errors.New("ledger: operation already finished")

// dbDirPerms is used when creating the ledger's parent directory.
const dbDirPerms = 0o700

// memoryPath opens a private in-memory database.
const memoryPath = ":memory:"

const (
	sqlInsertOperation = `INSERT INTO operations (id, kind, ref, command, state, started_at)
		VALUES (?, ?, ?, ?, 'pending', ?)`

	sqlFinishOperation = `UPDATE operations SET state = ?, detail = ?, finished_at = ?
		WHERE id = ? AND state = 'pending'`

	sqlSelectOperation = `SELECT id, kind, ref, command, state, detail, started_at, finished_at
		FROM operations`

	sqlPruneOperations = `DELETE FROM operations
		WHERE state != 'pending' AND finished_at < ?`
)

// Operation is one journaled row.
type Operation struct {
	ID         string
	Kind       Kind
	Ref        string
	Command    string
	State      State
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time // zero while pending
}

// Duration is how long the operation ran, or has been running so far.
func (o *Operation) Duration(now time.Time) time.Duration {
	if o.FinishedAt.IsZero() {
		return now.Sub(o.StartedAt)
	}

	return o.FinishedAt.Sub(o.StartedAt)
}

// Filter narrows List. Zero values match everything; Limit 0 means no limit.
type Filter struct {
	Kind  Kind
	State State
	Limit int
}

// Store is the SQLite-backed operation journal.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if necessary) the ledger database at path and runs
// migrations. Use ":memory:" for a throwaway ledger.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	dsn := memoryPath

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), dbDirPerms); err != nil {
			return nil, fmt.Errorf("ledger: creating directory for %s: %w", path, err)
		}

		dsn = fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
			path,
		)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database %s: %w", path, err)
	}

	// One connection: a second one would see a different :memory: database,
	// and concurrent CLI invocations serialize on busy_timeout.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("ledger opened", slog.String("db_path", path))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Start records a new pending operation and returns its id.
func (s *Store) Start(ctx context.Context, kind Kind, ref, command string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("ledger: starting %s operation: empty reference", kind)
	}

	id := uuid.NewString()

	if _, err := s.db.ExecContext(ctx, sqlInsertOperation,
		id, string(kind), ref, command, s.nowFunc().UnixNano()); err != nil {
		return "", fmt.Errorf("ledger: recording %s %s: %w", kind, ref, err)
	}

	s.logger.Debug("operation started",
		slog.String("id", id), slog.String("kind", string(kind)), slog.String("ref", ref))

	return id, nil
}

// Finish moves a pending operation to a terminal state. detail is free text
// such as an error message; empty detail is stored as NULL.
func (s *Store) Finish(ctx context.Context, id string, state State, detail string) error {
	if !state.Terminal() {
		return fmt.Errorf("ledger: finishing %s: %q is not a terminal state", id, state)
	}

	res, err := s.db.ExecContext(ctx, sqlFinishOperation,
		string(state), nullString(detail), s.nowFunc().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("ledger: finishing %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ledger: finishing %s: %w", id, err)
	}

	if n == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}

		return fmt.Errorf("%w: %s", ErrAlreadyFinished, id)
	}

	s.logger.Debug("operation finished", slog.String("id", id), slog.String("state", string(state)))

	return nil
}

// Get returns one operation by id.
func (s *Store) Get(ctx context.Context, id string) (*Operation, error) {
	row := s.db.QueryRowContext(ctx, sqlSelectOperation+" WHERE id = ?", id)

	op, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	return op, nil
}

// List returns operations matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Operation, error) {
	var (
		where []string
		args  []any
	)

	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}

	if f.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(f.State))
	}

	query := sqlSelectOperation
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY started_at DESC, id"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: listing operations: %w", err)
	}
	defer rows.Close()

	var ops []Operation

	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}

		ops = append(ops, *op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating operations: %w", err)
	}

	return ops, nil
}

// Prune deletes finished operations that finished more than olderThan ago
// and returns how many were removed. Pending rows are never pruned.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.nowFunc().Add(-olderThan).UnixNano()

	res, err := s.db.ExecContext(ctx, sqlPruneOperations, cutoff)
	if err != nil {
		return 0, fmt.Errorf("ledger: pruning operations: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("ledger: pruning operations: %w", err)
	}

	s.logger.Info("pruned operations", slog.Int64("removed", n), slog.Duration("older_than", olderThan))

	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOperation(r rowScanner) (*Operation, error) {
	var (
		op         Operation
		kind       string
		state      string
		detail     sql.NullString
		startedAt  int64
		finishedAt sql.NullInt64
	)

	if err := r.Scan(&op.ID, &kind, &op.Ref, &op.Command, &state, &detail, &startedAt, &finishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, fmt.Errorf("ledger: scanning operation: %w", err)
	}

	op.Kind = Kind(kind)
	op.State = State(state)
	op.Detail = detail.String
	op.StartedAt = time.Unix(0, startedAt)

	if finishedAt.Valid {
		op.FinishedAt = time.Unix(0, finishedAt.Int64)
	}

	return &op, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}

	return sql.NullString{String: s, Valid: true}
}
