package service

import (
	"context"
	"testing"
	"time"

	"github.com/vibast-solutions/ms-go-clover-pos/app/entity"
)

func TestRunExpirePendingBatchMarksTimeout(t *testing.T) {
	f := newTerminalFixture(configuredMethod())
	stale := time.Now().UTC().Add(-2 * time.Hour)
	fresh := time.Now().UTC()

	_ = f.logs.Create(context.Background(), &entity.TransactionLog{Reference: "API-sale-stale", PaymentMethodID: 1, Type: entity.TransactionTypeSale, Status: entity.TransactionStatusPending, RequestTimestamp: stale})
	_ = f.logs.Create(context.Background(), &entity.TransactionLog{Reference: "API-sale-fresh", PaymentMethodID: 1, Type: entity.TransactionTypeSale, Status: entity.TransactionStatusPending, RequestTimestamp: fresh})
	_ = f.logs.Create(context.Background(), &entity.TransactionLog{Reference: "API-status-done", PaymentMethodID: 1, Type: entity.TransactionTypeStatus, Status: entity.TransactionStatusSuccess, RequestTimestamp: stale})

	expired, err := f.svc.RunExpirePendingBatch(context.Background())
	if err != nil {
		t.Fatalf("expire pending failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected one expired row, got %d", expired)
	}

	staleLog, _ := f.logs.FindByReference(context.Background(), "API-sale-stale")
	if staleLog.Status != entity.TransactionStatusTimeout {
		t.Fatalf("expected timeout status, got %s", staleLog.Status)
	}
	if staleLog.ResponseTimestamp == nil || staleLog.DurationSeconds == nil || *staleLog.DurationSeconds < 7000 {
		t.Fatalf("expected response timestamp and duration, got %+v", staleLog)
	}

	freshLog, _ := f.logs.FindByReference(context.Background(), "API-sale-fresh")
	if freshLog.Status != entity.TransactionStatusPending {
		t.Fatalf("fresh row must stay pending, got %s", freshLog.Status)
	}
	doneLog, _ := f.logs.FindByReference(context.Background(), "API-status-done")
	if doneLog.Status != entity.TransactionStatusSuccess {
		t.Fatalf("completed row must not change, got %s", doneLog.Status)
	}
}

func TestRunExpirePendingBatchNoop(t *testing.T) {
	f := newTerminalFixture(configuredMethod())

	expired, err := f.svc.RunExpirePendingBatch(context.Background())
	if err != nil || expired != 0 {
		t.Fatalf("expected noop, got expired=%d err=%v", expired, err)
	}
}
