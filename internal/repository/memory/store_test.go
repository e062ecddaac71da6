package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repository"
)

func seedUser(t *testing.T, s *Store, balance int64) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	u := &models.User{ID: uuid.New(), Role: models.RoleClient, Name: "c", Email: uuid.NewString() + "@test"}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if balance > 0 {
		tx, _ := s.Begin(ctx)
		if _, err := s.Users().AddBalance(ctx, tx, u.ID, balance); err != nil {
			t.Fatalf("add balance: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	return u.ID
}

func TestNew_SeedsPlatformAccount(t *testing.T) {
	s := New()
	u, err := s.Users().GetByID(context.Background(), models.PlatformAccountID)
	if err != nil {
		t.Fatalf("platform account missing: %v", err)
	}
	if !u.IsAdmin() {
		t.Errorf("platform account role = %q, want Admin", u.Role)
	}
}

func TestRollback_RestoresState(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := seedUser(t, s, 1000)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Users().DeductBalance(ctx, tx, id, 400); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	taskID := uuid.New()
	if err := s.Tasks().Create(ctx, tx, &models.Task{ID: taskID, Type: models.TaskTypeJob, Price: 400, AuthorID: id}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := s.Transactions().CreateTx(ctx, tx, &models.Transaction{ID: uuid.New(), UserID: id, Type: models.TxPayJob, Amount: -400}); err != nil {
		t.Fatalf("create tx record: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	u, _ := s.Users().GetByID(ctx, id)
	if u.Balance != 1000 {
		t.Errorf("balance after rollback = %d, want 1000", u.Balance)
	}
	if _, err := s.Tasks().GetByID(ctx, taskID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("task should be gone after rollback, got err=%v", err)
	}
	recs, _ := s.Transactions().ListByUser(ctx, id)
	if len(recs) != 0 {
		t.Errorf("transaction records survived rollback: %d", len(recs))
	}
}

func TestRollback_KeepsUsersCreatedOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	payer := seedUser(t, s, 500)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := s.Users().DeductBalance(ctx, tx, payer, 200); err != nil {
		t.Fatalf("deduct: %v", err)
	}
	newcomer := &models.User{ID: uuid.New(), Role: models.RoleFreelancer, Email: "newcomer@test"}
	if err := s.Users().Create(ctx, newcomer); err != nil {
		t.Fatalf("register during open tx: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	if _, err := s.Users().GetByID(ctx, newcomer.ID); err != nil {
		t.Errorf("user registered while a tx was open was lost: %v", err)
	}
	if _, err := s.Users().GetByEmail(ctx, "newcomer@test"); err != nil {
		t.Errorf("lookup by email after rollback: %v", err)
	}
	u, _ := s.Users().GetByID(ctx, payer)
	if u.Balance != 500 {
		t.Errorf("payer balance after rollback = %d, want 500", u.Balance)
	}
}

func TestRollback_TaskDeleteRestoresChildrenAndDisputes(t *testing.T) {
	ctx := context.Background()
	s := New()
	author := seedUser(t, s, 0)
	parentID, childID, disputeID := uuid.New(), uuid.New(), uuid.New()

	setup, _ := s.Begin(ctx)
	_ = s.Tasks().Create(ctx, setup, &models.Task{ID: parentID, Type: models.TaskTypeJob, AuthorID: author})
	_ = s.Tasks().Create(ctx, setup, &models.Task{ID: childID, Type: models.TaskTypeJob, AuthorID: author, ParentTaskID: &parentID})
	_ = s.Disputes().Create(ctx, setup, &models.Dispute{ID: disputeID, TaskID: parentID, OpenedBy: author, Status: models.DisputeOpen})
	if err := setup.Commit(ctx); err != nil {
		t.Fatal(err)
	}

	tx, _ := s.Begin(ctx)
	if err := s.Tasks().Delete(ctx, tx, parentID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Tasks().GetByID(ctx, parentID); err != nil {
		t.Errorf("parent task not restored: %v", err)
	}
	child, err := s.Tasks().GetByID(ctx, childID)
	if err != nil || child.ParentTaskID == nil || *child.ParentTaskID != parentID {
		t.Errorf("child parent link not restored: %+v, err %v", child, err)
	}
	if _, err := s.Disputes().GetByID(ctx, disputeID); err != nil {
		t.Errorf("dispute not restored: %v", err)
	}
}

func TestCommitThenRollback_IsNoop(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := seedUser(t, s, 0)

	tx, _ := s.Begin(ctx)
	if _, err := s.Users().AddBalance(ctx, tx, id, 50); err != nil {
		t.Fatal(err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(ctx); !errors.Is(err, pgx.ErrTxClosed) {
		t.Errorf("rollback after commit = %v, want ErrTxClosed", err)
	}
	u, _ := s.Users().GetByID(ctx, id)
	if u.Balance != 50 {
		t.Errorf("balance = %d, want 50", u.Balance)
	}
}

func TestDeductBalance_Insufficient(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := seedUser(t, s, 10)

	tx, _ := s.Begin(ctx)
	defer tx.Rollback(ctx)
	if _, err := s.Users().DeductBalance(ctx, tx, id, 11); !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("err = %v, want pgx.ErrNoRows", err)
	}
}

func TestBegin_SerializesTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	id := seedUser(t, s, 0)

	tx1, _ := s.Begin(ctx)
	var wg sync.WaitGroup
	started := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		tx2, _ := s.Begin(ctx)
		_, _ = s.Users().AddBalance(ctx, tx2, id, 1)
		_ = tx2.Commit(ctx)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	u, _ := s.Users().GetByID(ctx, id)
	if u.Balance != 0 {
		t.Fatalf("second transaction ran while the first was open")
	}
	_ = tx1.Commit(ctx)
	wg.Wait()

	u, _ = s.Users().GetByID(ctx, id)
	if u.Balance != 1 {
		t.Errorf("balance = %d, want 1", u.Balance)
	}
}

func TestBegin_HonoursContextWhileWaiting(t *testing.T) {
	s := New()
	held, err := s.Begin(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer held.Rollback(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := s.Begin(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("begin while locked = %v, want DeadlineExceeded", err)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if _, err := s.Begin(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("begin with cancelled ctx = %v, want Canceled", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := &models.User{ID: uuid.New(), Role: models.RoleClient, Email: "dup@test"}
	if err := s.Users().Create(ctx, u); err != nil {
		t.Fatal(err)
	}
	err := s.Users().Create(ctx, &models.User{ID: uuid.New(), Role: models.RoleClient, Email: "dup@test"})
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Errorf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestNotifications_ListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	n := &models.Notification{ID: uuid.New(), UserID: userID, Type: "system", Title: "hi"}
	_ = s.Notifications().Create(ctx, n)
	_ = s.Notifications().Create(ctx, n)

	list, _ := s.Notifications().ListByUser(ctx, userID, 0)
	if len(list) != 1 {
		t.Fatalf("redelivery should be idempotent, got %d records", len(list))
	}
	if err := s.Notifications().MarkRead(ctx, uuid.New(), n.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("mark read by another user = %v, want ErrNotFound", err)
	}
	if err := s.Notifications().MarkRead(ctx, userID, n.ID); err != nil {
		t.Fatal(err)
	}
	list, _ = s.Notifications().ListByUser(ctx, userID, 0)
	if !list[0].Read {
		t.Error("notification not marked read")
	}
}

func TestNotifications_UnreadCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		_ = s.Notifications().Create(ctx, &models.Notification{ID: uuid.New(), UserID: userID, Type: "system"})
	}
	_ = s.Notifications().Create(ctx, &models.Notification{ID: uuid.New(), UserID: uuid.New(), Type: "system"})

	if n, _ := s.Notifications().CountUnread(ctx, userID); n != 3 {
		t.Fatalf("unread = %d, want 3", n)
	}
	if err := s.Notifications().MarkAllRead(ctx, userID); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Notifications().CountUnread(ctx, userID); n != 0 {
		t.Errorf("unread after mark-all = %d, want 0", n)
	}
}
