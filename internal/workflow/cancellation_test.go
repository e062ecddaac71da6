package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/notify"
)

func TestCancellation_PartialRefund(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, worker, task := h.jobInReview(t, 8000)

	res, err := h.engine.RequestCancellation(ctx, client, task.ID, "scope changed")
	if err != nil {
		t.Fatalf("RequestCancellation: %v", err)
	}
	if res.AutoApproved || res.Task.CancellationStatus != models.CancellationPending {
		t.Fatalf("expected pending request, got %+v", res)
	}
	if len(h.events.For(worker, notify.CancellationRequested)) != 1 {
		t.Error("counterpart should get cancellation_requested")
	}

	got, err := h.engine.ApproveCancellation(ctx, worker, task.ID, 60)
	if err != nil {
		t.Fatalf("ApproveCancellation: %v", err)
	}
	if got.Status != models.TaskStatusCancelled || got.CancellationStatus != models.CancellationApproved {
		t.Errorf("status = %s/%s", got.Status, got.CancellationStatus)
	}
	if got.RefundedAmount != 4800 || got.RetainedAmount != 3200 {
		t.Errorf("refunded/retained = %d/%d, want 4800/3200", got.RefundedAmount, got.RetainedAmount)
	}
	if b := h.balance(t, client); b != 4800 {
		t.Errorf("client balance = %d, want 4800", b)
	}
	if b := h.balance(t, worker); b != 0 {
		t.Errorf("worker balance = %d, want 0", b)
	}
	if n := len(h.records(t, task.ID, models.TxEarn)) + len(h.records(t, task.ID, models.TxCommissionEarn)); n != 0 {
		t.Errorf("refund must not write earn/commission entries, got %d", n)
	}
	if len(h.events.For(client, notify.TaskCancelled)) != 1 || len(h.events.For(worker, notify.TaskCancelled)) != 1 {
		t.Error("both parties should get task_cancelled")
	}
	h.assertConserved(t)

	if _, err := h.engine.ApproveTask(ctx, client, task.ID, 5, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("approve after cancel: err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancellation_WorkerAutoApproved(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, worker, task := h.jobInProgress(t, 8000)

	res, err := h.engine.RequestCancellation(ctx, worker, task.ID, "cannot deliver")
	if err != nil {
		t.Fatalf("RequestCancellation: %v", err)
	}
	if !res.AutoApproved || res.Task.Status != models.TaskStatusCancelled {
		t.Fatalf("expected auto-approval, got %+v", res)
	}
	if b := h.balance(t, client); b != 8000 {
		t.Errorf("client balance = %d, want 8000", b)
	}
	if len(h.events.For(client, notify.CancellationRequested)) != 0 {
		t.Error("auto-approved request should not ask the client")
	}
	h.assertConserved(t)
}

func TestCancellation_WorkerAfterSubmitNeedsApproval(t *testing.T) {
	h := newHarness(t)
	_, worker, task := h.jobInReview(t, 500)

	res, err := h.engine.RequestCancellation(context.Background(), worker, task.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.AutoApproved {
		t.Error("request after submission must wait for the client")
	}
}

func TestCancellation_Guards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, worker, task := h.jobInProgress(t, 1000)
	stranger := h.user(t, models.RoleFreelancer, 0)

	if _, err := h.engine.ApproveCancellation(ctx, worker, task.ID, 100); !errors.Is(err, ErrNoPendingRequest) {
		t.Errorf("approve without request: err = %v, want ErrNoPendingRequest", err)
	}
	if _, err := h.engine.RequestCancellation(ctx, stranger, task.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger request: err = %v, want ErrForbidden", err)
	}
	if _, err := h.engine.RequestCancellation(ctx, client, task.ID, "late"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.engine.RequestCancellation(ctx, worker, task.ID, ""); !errors.Is(err, ErrAlreadyPending) {
		t.Errorf("second request: err = %v, want ErrAlreadyPending", err)
	}
	if _, err := h.engine.ApproveCancellation(ctx, client, task.ID, 100); !errors.Is(err, ErrForbidden) {
		t.Errorf("self-approval: err = %v, want ErrForbidden", err)
	}
	if _, err := h.engine.RejectCancellation(ctx, client, task.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("self-rejection: err = %v, want ErrForbidden", err)
	}
	for _, pct := range []int{-1, 101} {
		if _, err := h.engine.ApproveCancellation(ctx, worker, task.ID, pct); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("pct %d: err = %v, want ErrInvalidInput", pct, err)
		}
	}
	if b := h.balance(t, client); b != 0 {
		t.Errorf("no funds should move on rejected calls, client balance %d", b)
	}
}

func TestCancellation_Reject(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, worker, task := h.jobInProgress(t, 1000)

	if _, err := h.engine.RequestCancellation(ctx, client, task.ID, "budget"); err != nil {
		t.Fatal(err)
	}
	got, err := h.engine.RejectCancellation(ctx, worker, task.ID)
	if err != nil {
		t.Fatalf("RejectCancellation: %v", err)
	}
	if got.Status != models.TaskStatusInProgress || got.CancellationStatus != models.CancellationRejected || got.CancellationRequested {
		t.Errorf("unexpected task %+v", got)
	}
	if len(h.events.For(client, notify.CancellationRejected)) != 1 {
		t.Error("requester should get cancellation_rejected")
	}
	// A rejected request can be raised again.
	if _, err := h.engine.RequestCancellation(ctx, client, task.ID, "budget"); err != nil {
		t.Errorf("re-request after rejection: %v", err)
	}
}

func TestCancellation_ZeroPercentRetainsAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, worker, task := h.jobInReview(t, 999)

	if _, err := h.engine.RequestCancellation(ctx, worker, task.ID, ""); err != nil {
		t.Fatal(err)
	}
	got, err := h.engine.ApproveCancellation(ctx, client, task.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.RefundedAmount != 0 || got.RetainedAmount != 999 {
		t.Errorf("refunded/retained = %d/%d", got.RefundedAmount, got.RetainedAmount)
	}
	if n := len(h.records(t, task.ID, models.TxRefund)); n != 0 {
		t.Errorf("zero refund should not write a ledger entry, got %d", n)
	}
	h.assertConserved(t)
}

func TestApprove_ClearsPendingCancellation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	client, worker, task := h.jobInReview(t, 1000)

	if _, err := h.engine.RequestCancellation(ctx, worker, task.ID, ""); err != nil {
		t.Fatal(err)
	}
	res, err := h.engine.ApproveTask(ctx, client, task.ID, 3, "")
	if err != nil {
		t.Fatalf("ApproveTask: %v", err)
	}
	if res.Task.CancellationRequested || res.Task.CancellationStatus == models.CancellationPending {
		t.Errorf("pending cancellation not cleared: %+v", res.Task)
	}
	if _, err := h.engine.ApproveCancellation(ctx, client, task.ID, 100); err == nil {
		t.Error("cancellation must not apply to a completed task")
	}
}
