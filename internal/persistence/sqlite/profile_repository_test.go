package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/example/unmute/internal/persistence"
	"github.com/example/unmute/internal/testfixtures"
)

func TestProfileUpsertAndGet(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if _, err := harness.Profiles.GetProfile(ctx, "user-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	accepted := now
	profile := persistence.UserProfile{
		UserID:           "user-1",
		HasAcceptedTerms: true,
		TermsAcceptedAt:  &accepted,
		UpdatedAt:        now,
	}
	if err := harness.Profiles.UpsertProfile(ctx, profile); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := harness.Profiles.GetProfile(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.HasAcceptedTerms {
		t.Fatal("expected accepted terms")
	}
	if stored.TermsAcceptedAt == nil || !stored.TermsAcceptedAt.Equal(accepted) {
		t.Fatalf("unexpected acceptance time: %+v", stored.TermsAcceptedAt)
	}
}

func TestDonationCreate(t *testing.T) {
	harness := testfixtures.NewSQLiteHarness(t)
	ctx := context.Background()

	donation := persistence.Donation{
		ID:        "donation-1",
		OrderID:   "order_abc",
		PaymentID: "pay_def",
		Amount:    15000,
		Currency:  "INR",
		CreatedAt: testfixtures.ReferenceTime(),
	}
	if err := harness.Donations.CreateDonation(ctx, donation); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
