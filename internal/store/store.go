// Package store defines the transactional persistence boundary of the ledger
// and match-lifecycle engine. Every method that the engine needs to be atomic
// (balance check-then-debit, escrow-plus-record, roster append, the referral
// double credit) is a single Store call, so an implementation can serialize it
// with a database transaction or a lock and no caller can observe or create
// partial state.
package store

import (
	"context"
	"time"

	"github.com/ludocash/backend/internal/models"
)

// Store is implemented by store/pg (Postgres, row locks) and store/memory
// (mutex-guarded, used by tests and mock mode). Both provide the same
// serializability guarantees per method.
type Store interface {
	// GetBalance is read-only: an unknown user reports a zero balance and an
	// unclaimed referral without materializing an account row.
	GetBalance(ctx context.Context, userID string) (balance int64, referralClaimed bool, err error)

	// Credit adds amount (> 0) to the user's balance, creating the account
	// row if absent.
	Credit(ctx context.Context, userID string, amount int64) error

	// Debit atomically decrements the balance by amount (> 0), failing with
	// ErrInsufficientFunds when the current balance is lower. The check and
	// the decrement are one operation; the balance can never go below zero
	// through this call.
	Debit(ctx context.Context, userID string, amount int64) error

	// CreateDeposit records a pending deposit. No balance effect until the
	// transaction is approved.
	CreateDeposit(ctx context.Context, t *models.Transaction) error

	// CreateWithdraw escrows t.Amount from the balance and records a pending
	// withdraw in one unit. On ErrInsufficientFunds nothing is written.
	CreateWithdraw(ctx context.Context, t *models.Transaction) error

	// FinalizeTransaction resolves a pending transaction exactly once.
	// approve=true on a deposit credits the account; approve=false on a
	// withdraw refunds the escrowed amount. A second call returns
	// ErrAlreadyFinalized.
	FinalizeTransaction(ctx context.Context, id string, approve bool) (*models.Transaction, error)

	// ListPending returns pending transactions ordered by creation time.
	ListPending(ctx context.Context) ([]models.Transaction, error)

	// ClaimReferral pays bonus to both referrer and user and flips the user's
	// referral flag as one unit. Exactly one of any set of concurrent calls
	// for the same user succeeds; the rest get ErrAlreadyClaimed.
	ClaimReferral(ctx context.Context, userID, referrerID string, bonus int64) error

	// CreateMatch inserts m with status open and an empty roster.
	CreateMatch(ctx context.Context, m *models.Match) error

	// GetMatch returns the match with its roster in join order.
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)

	// ListOpenMatches returns open matches with rosters for the lobby.
	ListOpenMatches(ctx context.Context) ([]models.Match, error)

	// JoinMatch runs the whole join protocol as one unit: the match must be
	// open (ErrMatchFull when it already started, ErrNotFound for anything
	// else), roomPass must match when the room has
	// one, the entry fee must be debitable, the user must not already hold a
	// seat and a seat must be free. On the join that fills the last seat the
	// match flips to playing in the same unit. Returns the match as it stands
	// after the join.
	JoinMatch(ctx context.Context, matchID, userID, roomPass string) (*models.Match, error)

	// PromoteDueMatches transitions every open match whose start time has
	// been reached: to playing with at least two seats taken, to expired
	// otherwise (entry fees refunded). Re-running is a no-op for matches
	// already transitioned. Returns the matches transitioned by this call.
	PromoteDueMatches(ctx context.Context, now time.Time) ([]models.Match, error)

	// DueWarnings returns open matches starting within lead of now whose
	// warning has not been sent, marking them sent. Each match is returned
	// at most once across all calls.
	DueWarnings(ctx context.Context, now time.Time, lead time.Duration) ([]models.Match, error)

	// SettleMatch credits prize (the match's configured prize when <= 0) to
	// winnerID and closes the match. The winner must hold a seat
	// (ErrNotAParticipant). A match that is not playing reports ErrNotFound
	// if unknown or not yet started, ErrAlreadyFinalized if already settled
	// or dead.
	SettleMatch(ctx context.Context, matchID, winnerID string, prize int64) (*models.Match, error)

	// CancelMatch moves an open match to cancelled and refunds entry fees.
	CancelMatch(ctx context.Context, matchID string) error

	// DeleteMatch removes a match and its roster outright (operator purge).
	DeleteMatch(ctx context.Context, matchID string) error

	GetSettings(ctx context.Context) (*models.Settings, error)
	UpdateSettings(ctx context.Context, s *models.Settings) error
}
