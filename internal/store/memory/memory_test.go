package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ludocash/backend/internal/store"
)

func TestDebitNeverOverdraws(t *testing.T) {
	st := New()
	ctx := context.Background()
	if err := st.Credit(ctx, "u1", 100); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	// 10 workers race to debit 30 from a balance of 100: exactly 3 can win.
	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- st.Debit(ctx, "u1", 30)
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, store.ErrInsufficientFunds) {
			t.Errorf("Unexpected debit error: %v", err)
		}
	}
	if successes != 3 {
		t.Errorf("Got %d successful debits, want 3", successes)
	}
	balance, _, _ := st.GetBalance(ctx, "u1")
	if balance != 10 {
		t.Errorf("Final balance = %d, want 10", balance)
	}
}

func TestDebitUnknownAccount(t *testing.T) {
	st := New()
	if err := st.Debit(context.Background(), "ghost", 1); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Errorf("Debit(unknown) = %v, want ErrInsufficientFunds", err)
	}
}

func TestCreditCreatesAccount(t *testing.T) {
	st := New()
	ctx := context.Background()
	if err := st.Credit(ctx, "fresh", 42); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	balance, claimed, err := st.GetBalance(ctx, "fresh")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 42 || claimed {
		t.Errorf("New account = %d/%v, want 42/false", balance, claimed)
	}
}
