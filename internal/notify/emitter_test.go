package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Emitter
// ---------------------------------------------------------------------------

func TestEmit_AssignsIDAndTimestamp(t *testing.T) {
	rec := &Recorder{}
	e := NewEmitter(rec, nil)
	user := uuid.New()

	e.Emit(context.Background(), Event{UserID: user, Type: TaskAssigned, Title: "assigned"})

	got := rec.Events()
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].ID == uuid.Nil {
		t.Error("event id not assigned")
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not assigned")
	}
}

func TestEmit_SwallowsSinkErrors(t *testing.T) {
	rec := &Recorder{Err: errors.New("broker down")}
	e := NewEmitter(rec, nil)

	// Must not panic or block; nothing is returned to the caller.
	e.Emit(context.Background(),
		Event{UserID: uuid.New(), Type: PaymentReceived},
		Event{UserID: uuid.New(), Type: ReviewReceived},
	)
	if len(rec.Events()) != 0 {
		t.Error("failing sink should record nothing")
	}
}

func TestEmit_DropsUnknownTypeAndMissingUser(t *testing.T) {
	rec := &Recorder{}
	e := NewEmitter(rec, nil)

	e.Emit(context.Background(),
		Event{UserID: uuid.New(), Type: Type("bogus")},
		Event{Type: TaskCancelled},
		Event{UserID: uuid.New(), Type: DisputeResolved},
	)
	got := rec.Events()
	if len(got) != 1 || got[0].Type != DisputeResolved {
		t.Fatalf("expected only the dispute_resolved event, got %+v", got)
	}
}

func TestEmit_NilEmitter(t *testing.T) {
	var e *Emitter
	e.Emit(context.Background(), Event{UserID: uuid.New(), Type: System})
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	ok := &Recorder{}
	bad := &Recorder{Err: errors.New("boom")}
	err := MultiSink{ok, bad}.Publish(context.Background(), Event{UserID: uuid.New(), Type: System})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if len(ok.Events()) != 1 {
		t.Error("healthy sink should still receive the event")
	}
}

// ---------------------------------------------------------------------------
// Event
// ---------------------------------------------------------------------------

func TestEventNotification_MarshalsMetadata(t *testing.T) {
	taskID := uuid.New()
	ev := Event{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Type:        PaymentReceived,
		RelatedID:   &taskID,
		RelatedType: RelatedTask,
		Metadata:    Metadata{Amount: Int64(9500), Commission: Int64(500)},
	}
	n, err := ev.Notification()
	if err != nil {
		t.Fatalf("Notification: %v", err)
	}
	if string(n.Metadata) != `{"amount":9500,"commission":500}` {
		t.Errorf("metadata = %s", n.Metadata)
	}
	if n.Type != "payment_received" || *n.RelatedID != taskID {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestTypeValid(t *testing.T) {
	for _, ty := range []Type{TaskAssigned, TaskSubmitted, TaskApproved, TaskCancelled, PaymentReceived, ReviewReceived,
		CancellationRequested, CancellationRejected, DisputeOpened, DisputeResolved, System} {
		if !ty.Valid() {
			t.Errorf("%s should be valid", ty)
		}
	}
	if Type("dispute_escalated").Valid() {
		t.Error("unknown type reported valid")
	}
}
