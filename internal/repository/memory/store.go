// Package memory is an in-process store with the same transactional contract as the
// Postgres repositories. A transaction holds the store-wide lock from Begin until
// Commit or Rollback, and Rollback undoes exactly the rows the transaction wrote.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/gigmarket/backend/internal/models"
)

var errUnsupported = errors.New("memory store: raw SQL is not supported")

type Store struct {
	txSem chan struct{}
	mu    sync.RWMutex

	users         map[uuid.UUID]*models.User
	tasks         map[uuid.UUID]*models.Task
	disputes      map[uuid.UUID]*models.Dispute
	transactions  []*models.Transaction
	notifications []*models.Notification
}

// New returns an empty store seeded with the platform account.
func New() *Store {
	s := &Store{
		txSem:    make(chan struct{}, 1),
		users:    make(map[uuid.UUID]*models.User),
		tasks:    make(map[uuid.UUID]*models.Task),
		disputes: make(map[uuid.UUID]*models.Dispute),
	}
	s.users[models.PlatformAccountID] = &models.User{
		ID:         models.PlatformAccountID,
		Role:       models.RoleAdmin,
		Name:       "Platform",
		Email:      "platform@gigmarket.local",
		Level:      1,
		IsVerified: true,
	}
	return s
}

// Begin starts a transaction. It waits while another transaction is open, or until
// ctx is done.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	select {
	case s.txSem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.RLock()
	txCount := len(s.transactions)
	s.mu.RUnlock()
	return &Tx{store: s, undo: newUndoLog(txCount)}, nil
}

// undoLog holds the pre-image of every row a transaction wrote. A nil pre-image
// means the row did not exist before.
type undoLog struct {
	users    map[uuid.UUID]*models.User
	tasks    map[uuid.UUID]*models.Task
	disputes map[uuid.UUID]*models.Dispute
	txCount  int
}

func newUndoLog(txCount int) *undoLog {
	return &undoLog{
		users:    make(map[uuid.UUID]*models.User),
		tasks:    make(map[uuid.UUID]*models.Task),
		disputes: make(map[uuid.UUID]*models.Dispute),
		txCount:  txCount,
	}
}

// openTx returns the live transaction behind tx, or nil for writes made outside one.
func openTx(tx pgx.Tx) *Tx {
	t, ok := tx.(*Tx)
	if !ok || t == nil || t.done {
		return nil
	}
	return t
}

// The journal* helpers must be called with s.mu held, before the write.

func (s *Store) journalUser(tx pgx.Tx, id uuid.UUID) {
	t := openTx(tx)
	if t == nil {
		return
	}
	if _, seen := t.undo.users[id]; seen {
		return
	}
	var prev *models.User
	if u, ok := s.users[id]; ok {
		prev = copyUser(u)
	}
	t.undo.users[id] = prev
}

func (s *Store) journalTask(tx pgx.Tx, id uuid.UUID) {
	t := openTx(tx)
	if t == nil {
		return
	}
	if _, seen := t.undo.tasks[id]; seen {
		return
	}
	var prev *models.Task
	if cur, ok := s.tasks[id]; ok {
		prev = copyTask(cur)
	}
	t.undo.tasks[id] = prev
}

func (s *Store) journalDispute(tx pgx.Tx, id uuid.UUID) {
	t := openTx(tx)
	if t == nil {
		return
	}
	if _, seen := t.undo.disputes[id]; seen {
		return
	}
	var prev *models.Dispute
	if d, ok := s.disputes[id]; ok {
		prev = copyDispute(d)
	}
	t.undo.disputes[id] = prev
}

// revert puts back the pre-images in undo. Rows the transaction never wrote are
// left alone, including rows created outside it while it was open.
func (s *Store) revert(undo *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, prev := range undo.users {
		if prev == nil {
			delete(s.users, id)
		} else {
			s.users[id] = prev
		}
	}
	for id, prev := range undo.tasks {
		if prev == nil {
			delete(s.tasks, id)
		} else {
			s.tasks[id] = prev
		}
	}
	for id, prev := range undo.disputes {
		if prev == nil {
			delete(s.disputes, id)
		} else {
			s.disputes[id] = prev
		}
	}
	s.transactions = s.transactions[:undo.txCount]
}

// Tx satisfies pgx.Tx. Only Commit and Rollback are meaningful. Repositories use it
// to journal their writes.
type Tx struct {
	store *Store
	undo  *undoLog
	done  bool
}

func (t *Tx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("memory store: nested transactions are not supported")
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	<-t.store.txSem
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.revert(t.undo)
	<-t.store.txSem
	return nil
}

func (t *Tx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errUnsupported
}
func (t *Tx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, errUnsupported }
func (t *Tx) QueryRow(context.Context, string, ...any) pgx.Row        { return errRow{} }
func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errUnsupported
}
func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *Tx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errUnsupported
}
func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{}

func (errRow) Scan(...any) error { return errUnsupported }

func copyUser(u *models.User) *models.User {
	cp := *u
	cp.SavedTasks = append([]uuid.UUID(nil), u.SavedTasks...)
	return &cp
}

func copyTask(t *models.Task) *models.Task {
	cp := *t
	return &cp
}

func copyDispute(d *models.Dispute) *models.Dispute {
	cp := *d
	cp.Attachments = append([]string(nil), d.Attachments...)
	return &cp
}
