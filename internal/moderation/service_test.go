package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/commission"
	"github.com/gigmarket/backend/internal/ledger"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/notify"
	"github.com/gigmarket/backend/internal/repository/memory"
	"github.com/gigmarket/backend/internal/workflow"
)

type fixture struct {
	store  *memory.Store
	svc    *Service
	events *notify.Recorder
	admin  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	rec := &notify.Recorder{}
	f := &fixture{
		store:  s,
		events: rec,
		svc: &Service{
			Pool:         s,
			Users:        s.Users(),
			Tasks:        s.Tasks(),
			Disputes:     s.Disputes(),
			Transactions: s.Transactions(),
			Events:       notify.NewEmitter(rec, nil),
		},
	}
	f.admin = f.user(t, models.RoleAdmin)
	return f
}

func (f *fixture) user(t *testing.T, role string) uuid.UUID {
	t.Helper()
	u := &models.User{ID: uuid.New(), Role: role, Name: "User " + role, Email: uuid.NewString() + "@example.com"}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

// ---------------------------------------------------------------------------
// Ban / verify
// ---------------------------------------------------------------------------

func TestBanAndUnban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.user(t, models.RoleFreelancer)

	u, err := f.svc.Ban(ctx, f.admin, target, "")
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if !u.IsBanned || u.BannedAt == nil || u.BanReason != defaultBanReason {
		t.Errorf("unexpected user after ban %+v", u)
	}
	stored, _ := f.store.Users().GetByID(ctx, target)
	if !stored.IsBanned {
		t.Error("ban not persisted")
	}
	if len(f.events.For(target, notify.System)) != 1 {
		t.Error("banned user should be notified")
	}
	if _, err := f.svc.Ban(ctx, f.admin, target, "again"); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("double ban: err = %v, want ErrInvalidTransition", err)
	}

	u, err = f.svc.Unban(ctx, f.admin, target)
	if err != nil {
		t.Fatalf("Unban: %v", err)
	}
	if u.IsBanned || u.BannedAt != nil || u.BanReason != "" {
		t.Errorf("unexpected user after unban %+v", u)
	}
}

func TestBan_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, models.RoleClient)
	otherAdmin := f.user(t, models.RoleAdmin)

	if _, err := f.svc.Ban(ctx, client, otherAdmin, "x"); !errors.Is(err, workflow.ErrForbidden) {
		t.Errorf("non-admin ban: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Ban(ctx, f.admin, otherAdmin, "x"); !errors.Is(err, workflow.ErrForbidden) {
		t.Errorf("banning admin: err = %v, want ErrForbidden", err)
	}
	if _, err := f.svc.Ban(ctx, f.admin, uuid.New(), "x"); !errors.Is(err, workflow.ErrNotFound) {
		t.Errorf("unknown user: err = %v, want ErrNotFound", err)
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.user(t, models.RoleFreelancer)

	u, err := f.svc.Verify(ctx, f.admin, target)
	if err != nil || !u.IsVerified {
		t.Fatalf("Verify = %+v, %v", u, err)
	}
	u, err = f.svc.Unverify(ctx, f.admin, target)
	if err != nil || u.IsVerified {
		t.Fatalf("Unverify = %+v, %v", u, err)
	}
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, models.RoleClient)
	banned := f.user(t, models.RoleFreelancer)
	if _, err := f.svc.Ban(ctx, f.admin, banned, "spam"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter UserFilter
		want   int
	}{
		{"all", UserFilter{}, 3},
		{"clients", UserFilter{Role: models.RoleClient}, 1},
		{"banned", UserFilter{Status: "banned"}, 1},
		{"active", UserFilter{Status: "active"}, 2},
		{"search", UserFilter{Search: "FREELANCER"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListUsers(ctx, f.admin, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func TestStats_FromLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l := ledger.New(f.store.Users(), f.store.Transactions())
	engine := &workflow.Engine{
		Pool:       f.store,
		Tasks:      f.store.Tasks(),
		Users:      f.store.Users(),
		Disputes:   f.store.Disputes(),
		Ledger:     l,
		Commission: commission.New(commission.DefaultRateBP),
	}
	client := f.user(t, models.RoleClient)
	worker := f.user(t, models.RoleFreelancer)

	tx, _ := f.store.Begin(ctx)
	if _, err := l.Credit(ctx, tx, ledger.Entry{UserID: client, Type: models.TxTopUp, Amount: 12000}); err != nil {
		t.Fatal(err)
	}
	_ = tx.Commit(ctx)

	task, err := engine.CreateTask(ctx, client, workflow.CreateTaskInput{Type: models.TaskTypeJob, Title: "App", Price: 10000})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ClaimTask(ctx, worker, task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.SubmitTask(ctx, worker, task.ID, workflow.SubmitInput{Ref: "build.apk"}); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ApproveTask(ctx, client, task.ID, 5, ""); err != nil {
		t.Fatal(err)
	}

	st, err := f.svc.Stats(ctx, f.admin)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := Financials{
		Volume:             10000,
		PlatformCommission: 500,
		PlatformBalance:    500,
		Topups:             12000,
		Payouts:            9500,
	}
	if st.Financials != want {
		t.Errorf("financials = %+v, want %+v", st.Financials, want)
	}
	if st.Users.Total != 3 || st.Users.Clients != 1 || st.Users.Freelancers != 1 {
		t.Errorf("users = %+v", st.Users)
	}
	if st.Tasks.Total != 1 || st.Tasks.Completed != 1 {
		t.Errorf("tasks = %+v", st.Tasks)
	}

	if _, err := f.svc.Stats(ctx, client); !errors.Is(err, workflow.ErrForbidden) {
		t.Errorf("non-admin stats: err = %v, want ErrForbidden", err)
	}
}
