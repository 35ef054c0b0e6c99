package service

import (
	"context"
	"errors"
	"testing"

	"sheltermail/internal/model"
	"sheltermail/internal/render"
)

func TestEnqueue_CreatesPendingRow(t *testing.T) {
	repo := newMemOutboxRepo()
	svc := NewOutboxService(repo)

	msg, err := svc.Enqueue(context.Background(), "ana@example.org",
		render.KeyPurchaseVoucher, map[string]any{"voucher_code": "ABC-123"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if msg.ID == 0 {
		t.Error("id not assigned")
	}

	row := repo.get(msg.ID)
	if row.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", row.Status)
	}
	if !contains(row.Payload, "ABC-123") {
		t.Errorf("payload = %q, want voucher code inside", row.Payload)
	}
	if row.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", row.Attempts)
	}
}

func TestEnqueue_RejectsBadInput(t *testing.T) {
	svc := NewOutboxService(newMemOutboxRepo())

	if _, err := svc.Enqueue(context.Background(), "not-an-address", "x", nil); !errors.Is(err, ErrInvalidRecipient) {
		t.Errorf("err = %v, want ErrInvalidRecipient", err)
	}
	if _, err := svc.Enqueue(context.Background(), "a@b.org", "", nil); !errors.Is(err, ErrEmptyTemplateKey) {
		t.Errorf("err = %v, want ErrEmptyTemplateKey", err)
	}
}

func TestRequeue_OnlyFailedMessages(t *testing.T) {
	repo := newMemOutboxRepo()
	svc := NewOutboxService(repo)

	msg, err := svc.Enqueue(context.Background(), "ana@example.org",
		render.KeyAdoptionRequestCreated, nil)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Still pending: not requeueable.
	if err := svc.Requeue(context.Background(), msg.ID); !errors.Is(err, ErrNotRequeueable) {
		t.Errorf("requeue pending: err = %v, want ErrNotRequeueable", err)
	}

	if err := repo.MarkFailed(context.Background(), msg.ID, 1, "boom"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Requeue(context.Background(), msg.ID); err != nil {
		t.Fatalf("requeue failed message: %v", err)
	}
	if got := repo.get(msg.ID).Status; got != model.StatusPending {
		t.Errorf("status = %q, want pending", got)
	}
	// Attempt history survives the requeue.
	if got := repo.get(msg.ID).Attempts; got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}
