package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/unmute/internal/persistence"
	"github.com/example/unmute/internal/testfixtures"
)

func TestQuotaUpsertAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	quota := persistence.DeviceJoinQuota{
		Fingerprint:  "device-key-1",
		JoinCount:    1,
		LastJoinedAt: now,
	}
	if err := harness.Quotas.UpsertQuota(ctx, quota); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := harness.Quotas.GetQuota(ctx, "device-key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.JoinCount != 1 || !stored.LastJoinedAt.Equal(now) {
		t.Fatalf("unexpected quota: %+v", stored)
	}

	quota.JoinCount = 2
	quota.LastJoinedAt = now.Add(time.Minute)
	if err := harness.Quotas.UpsertQuota(ctx, quota); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err = harness.Quotas.GetQuota(ctx, "device-key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.JoinCount != 2 || !stored.LastJoinedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("upsert did not replace row: %+v", stored)
	}
}

func TestGetQuotaMissing(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)

	if _, err := harness.Quotas.GetQuota(context.Background(), "never-seen"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
