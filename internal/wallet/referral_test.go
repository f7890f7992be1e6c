package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
)

func TestClaimReferralRejectsSelf(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ClaimReferral(context.Background(), "u1", "u1"); !errors.Is(err, store.ErrSelfReferral) {
		t.Errorf("ClaimReferral(u1, u1) = %v, want ErrSelfReferral", err)
	}
}

func TestClaimReferralUnknownReferrer(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ClaimReferral(context.Background(), "u1", "nobody"); !errors.Is(err, store.ErrInvalidCode) {
		t.Errorf("ClaimReferral with unknown referrer = %v, want ErrInvalidCode", err)
	}
}

func TestClaimReferralPaysBothSides(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	st.Credit(ctx, "referrer", 100)

	bonus, err := svc.ClaimReferral(ctx, "newbie", "referrer")
	if err != nil {
		t.Fatalf("ClaimReferral failed: %v", err)
	}
	if bonus != 10 {
		t.Errorf("Bonus = %d, want default 10", bonus)
	}
	if got := mustBalance(t, svc, "referrer"); got != 110 {
		t.Errorf("Referrer balance = %d, want 110", got)
	}
	balance, claimed, err := svc.Balance(ctx, "newbie")
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if balance != 10 || !claimed {
		t.Errorf("Newbie balance/claimed = %d/%v, want 10/true", balance, claimed)
	}
}

func TestClaimReferralUsesConfiguredBonus(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	st.Credit(ctx, "referrer", 0)
	if err := st.UpdateSettings(ctx, &models.Settings{ReferralBonus: 25}); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	bonus, err := svc.ClaimReferral(ctx, "newbie", "referrer")
	if err != nil {
		t.Fatalf("ClaimReferral failed: %v", err)
	}
	if bonus != 25 {
		t.Errorf("Bonus = %d, want 25", bonus)
	}
}

func TestClaimReferralOnlyOnce(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	st.Credit(ctx, "r1", 0)
	st.Credit(ctx, "r2", 0)

	if _, err := svc.ClaimReferral(ctx, "u1", "r1"); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	// A second claim, even with a different referrer, is rejected.
	if _, err := svc.ClaimReferral(ctx, "u1", "r2"); !errors.Is(err, store.ErrAlreadyClaimed) {
		t.Errorf("Second claim = %v, want ErrAlreadyClaimed", err)
	}
	if got := mustBalance(t, svc, "r2"); got != 0 {
		t.Errorf("Second referrer balance = %d, want 0", got)
	}
}

func TestClaimReferralConcurrentDuplicates(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	st.Credit(ctx, "referrer", 0)

	const claims = 50
	var wg sync.WaitGroup
	results := make(chan error, claims)
	for i := 0; i < claims; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ClaimReferral(ctx, "newbie", "referrer")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, alreadyClaimed := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrAlreadyClaimed):
			alreadyClaimed++
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}
	if successes != 1 || alreadyClaimed != claims-1 {
		t.Errorf("Got %d successes, %d already-claimed; want 1 and %d", successes, alreadyClaimed, claims-1)
	}
	if got := mustBalance(t, svc, "referrer"); got != 10 {
		t.Errorf("Referrer balance = %d, want exactly one bonus of 10", got)
	}
}
