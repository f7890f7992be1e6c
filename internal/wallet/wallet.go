// Package wallet is the account ledger service: balances, pending
// deposit/withdraw transactions with operator approval, and referral bonuses.
package wallet

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
)

type Service struct {
	store store.Store
}

func New(st store.Store) *Service {
	return &Service{store: st}
}

// Balance returns the spendable balance and referral flag for a user. An
// unknown user reads as zero without creating an account.
func (s *Service) Balance(ctx context.Context, userID string) (int64, bool, error) {
	return s.store.GetBalance(ctx, userID)
}

// SubmitDeposit records a pending deposit request for operator review. The
// balance is untouched until the request is approved.
func (s *Service) SubmitDeposit(ctx context.Context, userID string, amount int64, reference, phone string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("deposit amount must be positive, got %d", amount)
	}
	t := &models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Kind:      models.KindDeposit,
		Status:    models.TxPending,
		Reference: reference,
		Phone:     phone,
	}
	if err := s.store.CreateDeposit(ctx, t); err != nil {
		return "", err
	}
	log.Printf("[WALLET] Deposit submitted: tx=%s user=%s amount=%d ref=%s", t.ID, userID, amount, reference)
	return t.ID, nil
}

// SubmitWithdraw escrows the amount from the balance and records a pending
// withdraw in one unit. The money leaves the spendable balance now; it comes
// back only if the request is rejected.
func (s *Service) SubmitWithdraw(ctx context.Context, userID string, amount int64, reference, phone string) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("withdraw amount must be positive, got %d", amount)
	}
	t := &models.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Kind:      models.KindWithdraw,
		Status:    models.TxPending,
		Reference: reference,
		Phone:     phone,
	}
	if err := s.store.CreateWithdraw(ctx, t); err != nil {
		return "", err
	}
	log.Printf("[WALLET] Withdraw submitted: tx=%s user=%s amount=%d (escrowed)", t.ID, userID, amount)
	return t.ID, nil
}

// Approve finalizes a pending transaction. Deposits credit the account now;
// withdraws have nothing left to move (the escrow at submission already did).
func (s *Service) Approve(ctx context.Context, txID string) error {
	t, err := s.store.FinalizeTransaction(ctx, txID, true)
	if err != nil {
		return err
	}
	log.Printf("[WALLET] Approved %s %s: tx=%s user=%s amount=%d", t.Kind, t.Status, t.ID, t.UserID, t.Amount)
	return nil
}

// Reject finalizes a pending transaction. Rejected withdraws get the
// escrowed amount credited back; rejected deposits never moved money.
func (s *Service) Reject(ctx context.Context, txID string) error {
	t, err := s.store.FinalizeTransaction(ctx, txID, false)
	if err != nil {
		return err
	}
	log.Printf("[WALLET] Rejected %s: tx=%s user=%s amount=%d", t.Kind, t.ID, t.UserID, t.Amount)
	return nil
}

// Pending lists pending transactions oldest first for operator review.
func (s *Service) Pending(ctx context.Context) ([]models.Transaction, error) {
	return s.store.ListPending(ctx)
}
