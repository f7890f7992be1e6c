// Package pg implements store.Store on PostgreSQL. Multi-step sequences run
// inside SQL transactions with row locks (SELECT ... FOR UPDATE) or single
// conditional UPDATEs, so the balance and roster invariants hold under
// concurrent request handlers and the scheduler.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
)

type Store struct {
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func infra(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(store.ErrStoreUnavailable, err))
}

const matchColumns = `id, entry_fee, prize, capacity, start_time, start_at, room_code, room_pass, status, warn_sent, winner_id, created_at, started_at, ended_at`

func (s *Store) GetBalance(ctx context.Context, userID string) (int64, bool, error) {
	var row struct {
		Balance         int64 `db:"balance"`
		ReferralClaimed bool  `db:"referral_claimed"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT balance, referral_claimed FROM accounts WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, infra("get balance", err)
	}
	return row.Balance, row.ReferralClaimed, nil
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64) error {
	if err := credit(ctx, s.db, userID, amount); err != nil {
		return infra("credit", err)
	}
	return nil
}

// credit upserts the account row, so a first-ever credit materializes it.
func credit(ctx context.Context, q sqlx.ExtContext, userID string, amount int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, referral_claimed, created_at, updated_at)
		VALUES ($1, $2, FALSE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance, updated_at = NOW()
	`, userID, amount)
	return err
}

func (s *Store) Debit(ctx context.Context, userID string, amount int64) error {
	return debit(ctx, s.db, userID, amount)
}

// debit is a single conditional UPDATE: the balance check and the decrement
// cannot be interleaved with another writer. Zero rows means the account is
// missing or short, which is the same answer either way.
func debit(ctx context.Context, q sqlx.ExtContext, userID string, amount int64) error {
	res, err := q.ExecContext(ctx, `
		UPDATE accounts SET balance = balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return infra("debit", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return infra("debit", err)
	}
	if n == 0 {
		return store.ErrInsufficientFunds
	}
	return nil
}

func (s *Store) CreateDeposit(ctx context.Context, t *models.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, kind, status, reference, phone, created_at)
		VALUES ($1, $2, $3, 'deposit', 'pending', $4, $5, NOW())
	`, t.ID, t.UserID, t.Amount, t.Reference, t.Phone)
	if err != nil {
		return infra("create deposit", err)
	}
	return nil
}

func (s *Store) CreateWithdraw(ctx context.Context, t *models.Transaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return infra("create withdraw", err)
	}
	defer tx.Rollback()

	// Escrow first; if the debit fails nothing is recorded.
	if err := debit(ctx, tx, t.UserID, t.Amount); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, kind, status, reference, phone, created_at)
		VALUES ($1, $2, $3, 'withdraw', 'pending', $4, $5, NOW())
	`, t.ID, t.UserID, t.Amount, t.Reference, t.Phone)
	if err != nil {
		return infra("create withdraw", err)
	}
	if err := tx.Commit(); err != nil {
		return infra("create withdraw", err)
	}
	return nil
}

func (s *Store) FinalizeTransaction(ctx context.Context, id string, approve bool) (*models.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, infra("finalize transaction", err)
	}
	defer tx.Rollback()

	var t models.Transaction
	err = tx.GetContext(ctx, &t, `
		SELECT id, user_id, amount, kind, status, reference, phone, created_at, finalized_at
		FROM transactions WHERE id = $1 FOR UPDATE
	`, id)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, infra("finalize transaction", err)
	}
	if t.Status != models.TxPending {
		return nil, store.ErrAlreadyFinalized
	}

	if approve {
		t.Status = models.TxApproved
		if t.Kind == models.KindDeposit {
			if err := credit(ctx, tx, t.UserID, t.Amount); err != nil {
				return nil, infra("finalize transaction", err)
			}
		}
	} else {
		t.Status = models.TxRejected
		if t.Kind == models.KindWithdraw {
			// compensating credit of the escrowed amount
			if err := credit(ctx, tx, t.UserID, t.Amount); err != nil {
				return nil, infra("finalize transaction", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE transactions SET status = $2, finalized_at = NOW() WHERE id = $1
	`, id, t.Status)
	if err != nil {
		return nil, infra("finalize transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, infra("finalize transaction", err)
	}
	t.FinalizedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return &t, nil
}

func (s *Store) ListPending(ctx context.Context) ([]models.Transaction, error) {
	var out []models.Transaction
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, user_id, amount, kind, status, reference, phone, created_at, finalized_at
		FROM transactions WHERE status = 'pending' ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, infra("list pending", err)
	}
	return out, nil
}

func (s *Store) ClaimReferral(ctx context.Context, userID, referrerID string, bonus int64) error {
	if userID == referrerID {
		return store.ErrSelfReferral
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return infra("claim referral", err)
	}
	defer tx.Rollback()

	// Materialize and lock the claimant's row so racing claims serialize on it.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (user_id, balance, referral_claimed, created_at, updated_at)
		VALUES ($1, 0, FALSE, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return infra("claim referral", err)
	}
	var claimed bool
	if err := tx.GetContext(ctx, &claimed, `SELECT referral_claimed FROM accounts WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
		return infra("claim referral", err)
	}
	if claimed {
		return store.ErrAlreadyClaimed
	}

	var referrerExists bool
	if err := tx.GetContext(ctx, &referrerExists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE user_id = $1)`, referrerID); err != nil {
		return infra("claim referral", err)
	}
	if !referrerExists {
		return store.ErrInvalidCode
	}

	if err := credit(ctx, tx, referrerID, bonus); err != nil {
		return infra("claim referral", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + $2, referral_claimed = TRUE, referred_by = $3, updated_at = NOW()
		WHERE user_id = $1
	`, userID, bonus, referrerID)
	if err != nil {
		return infra("claim referral", err)
	}
	if err := tx.Commit(); err != nil {
		return infra("claim referral", err)
	}
	return nil
}

func (s *Store) CreateMatch(ctx context.Context, m *models.Match) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO matches (id, entry_fee, prize, capacity, start_time, start_at, room_code, room_pass, status, warn_sent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'open', FALSE, NOW())
	`, m.ID, m.EntryFee, m.Prize, m.Capacity, m.StartTime, m.StartAt, m.RoomCode, m.RoomPass)
	if err != nil {
		return infra("create match", err)
	}
	return nil
}

func roster(ctx context.Context, q sqlx.QueryerContext, matchID string) ([]string, error) {
	var players []string
	err := sqlx.SelectContext(ctx, q, &players, `
		SELECT user_id FROM match_players WHERE match_id = $1 ORDER BY seat ASC
	`, matchID)
	return players, err
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	var m models.Match
	err := s.db.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, matchID)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, infra("get match", err)
	}
	if m.Players, err = roster(ctx, s.db, matchID); err != nil {
		return nil, infra("get match", err)
	}
	return &m, nil
}

func (s *Store) ListOpenMatches(ctx context.Context) ([]models.Match, error) {
	var out []models.Match
	err := s.db.SelectContext(ctx, &out, `
		SELECT `+matchColumns+` FROM matches WHERE status = 'open' ORDER BY start_at ASC
	`)
	if err != nil {
		return nil, infra("list open matches", err)
	}
	for i := range out {
		if out[i].Players, err = roster(ctx, s.db, out[i].ID); err != nil {
			return nil, infra("list open matches", err)
		}
	}
	return out, nil
}

func (s *Store) JoinMatch(ctx context.Context, matchID, userID, roomPass string) (*models.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, infra("join match", err)
	}
	defer tx.Rollback()

	var m models.Match
	err = tx.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, matchID)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, infra("join match", err)
	}
	if m.Status != models.MatchOpen {
		// a joiner racing past the fill-up sees the room as full, not gone
		if m.Status == models.MatchPlaying {
			return nil, store.ErrMatchFull
		}
		return nil, store.ErrNotFound
	}
	if m.HasPassword() && m.RoomPass.String != roomPass {
		return nil, store.ErrWrongPassword
	}

	// Entry fee leaves the balance inside the same transaction; a rollback
	// on any later check returns it.
	if err := debit(ctx, tx, userID, m.EntryFee); err != nil {
		return nil, err
	}

	players, err := roster(ctx, tx, matchID)
	if err != nil {
		return nil, infra("join match", err)
	}
	for _, p := range players {
		if p == userID {
			return nil, store.ErrAlreadyJoined
		}
	}
	if len(players) >= m.Capacity {
		return nil, store.ErrMatchFull
	}

	seat := len(players) + 1
	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_players (match_id, user_id, seat, joined_at) VALUES ($1, $2, $3, NOW())
	`, matchID, userID, seat)
	if err != nil {
		return nil, infra("join match", err)
	}
	m.Players = append(players, userID)

	if seat == m.Capacity {
		// Last seat taken: start immediately rather than waiting for the
		// scheduler to find a full-but-open match.
		m.Status = models.MatchPlaying
		m.StartedAt = sql.NullTime{Time: time.Now(), Valid: true}
		_, err = tx.ExecContext(ctx, `UPDATE matches SET status = 'playing', started_at = NOW() WHERE id = $1`, matchID)
		if err != nil {
			return nil, infra("join match", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, infra("join match", err)
	}
	return &m, nil
}

func (s *Store) PromoteDueMatches(ctx context.Context, now time.Time) ([]models.Match, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT id FROM matches WHERE status = 'open' AND start_at <= $1 ORDER BY start_at ASC
	`, now)
	if err != nil {
		return nil, infra("promote due matches", err)
	}

	var out []models.Match
	for _, id := range ids {
		m, err := s.promoteOne(ctx, id, now)
		if err != nil {
			log.Printf("[STORE] Failed to promote match %s: %v", id, err)
			continue
		}
		if m != nil {
			out = append(out, *m)
		}
	}
	return out, nil
}

// promoteOne claims a single due match. The status is re-checked under the
// row lock, so a match joined to capacity (already playing) between the scan
// and the claim is skipped.
func (s *Store) promoteOne(ctx context.Context, matchID string, now time.Time) (*models.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, infra("promote match", err)
	}
	defer tx.Rollback()

	var m models.Match
	err = tx.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, matchID)
	if err != nil {
		return nil, infra("promote match", err)
	}
	if m.Status != models.MatchOpen || m.StartAt.After(now) {
		return nil, nil
	}
	if m.Players, err = roster(ctx, tx, matchID); err != nil {
		return nil, infra("promote match", err)
	}

	if len(m.Players) >= 2 {
		m.Status = models.MatchPlaying
		_, err = tx.ExecContext(ctx, `UPDATE matches SET status = 'playing', started_at = NOW() WHERE id = $1`, matchID)
	} else {
		m.Status = models.MatchExpired
		_, err = tx.ExecContext(ctx, `UPDATE matches SET status = 'expired', ended_at = NOW() WHERE id = $1`, matchID)
		if err == nil {
			err = refundRoster(ctx, tx, &m)
		}
	}
	if err != nil {
		return nil, infra("promote match", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, infra("promote match", err)
	}
	return &m, nil
}

// refundRoster returns each joined player's entry fee when a match dies
// without being played.
func refundRoster(ctx context.Context, tx *sqlx.Tx, m *models.Match) error {
	for _, p := range m.Players {
		if err := credit(ctx, tx, p, m.EntryFee); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DueWarnings(ctx context.Context, now time.Time, lead time.Duration) ([]models.Match, error) {
	var out []models.Match
	err := s.db.SelectContext(ctx, &out, `
		UPDATE matches SET warn_sent = TRUE
		WHERE status = 'open' AND warn_sent = FALSE AND start_at <= $1
		RETURNING `+matchColumns+`
	`, now.Add(lead))
	if err != nil {
		return nil, infra("due warnings", err)
	}
	for i := range out {
		if out[i].Players, err = roster(ctx, s.db, out[i].ID); err != nil {
			return nil, infra("due warnings", err)
		}
	}
	return out, nil
}

func (s *Store) SettleMatch(ctx context.Context, matchID, winnerID string, prize int64) (*models.Match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, infra("settle match", err)
	}
	defer tx.Rollback()

	var m models.Match
	err = tx.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, matchID)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, infra("settle match", err)
	}
	switch m.Status {
	case models.MatchPlaying:
	case models.MatchOpen:
		return nil, store.ErrNotFound
	default:
		return nil, store.ErrAlreadyFinalized
	}

	if m.Players, err = roster(ctx, tx, matchID); err != nil {
		return nil, infra("settle match", err)
	}
	joined := false
	for _, p := range m.Players {
		if p == winnerID {
			joined = true
			break
		}
	}
	if !joined {
		return nil, store.ErrNotAParticipant
	}

	if prize <= 0 {
		prize = m.Prize
	}
	if err := credit(ctx, tx, winnerID, prize); err != nil {
		return nil, infra("settle match", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE matches SET status = 'finished', winner_id = $2, ended_at = NOW() WHERE id = $1
	`, matchID, winnerID)
	if err != nil {
		return nil, infra("settle match", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, infra("settle match", err)
	}
	m.Status = models.MatchFinished
	m.WinnerID = sql.NullString{String: winnerID, Valid: true}
	return &m, nil
}

func (s *Store) CancelMatch(ctx context.Context, matchID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return infra("cancel match", err)
	}
	defer tx.Rollback()

	var m models.Match
	err = tx.GetContext(ctx, &m, `SELECT `+matchColumns+` FROM matches WHERE id = $1 FOR UPDATE`, matchID)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return infra("cancel match", err)
	}
	if m.Status != models.MatchOpen {
		return store.ErrAlreadyFinalized
	}
	if m.Players, err = roster(ctx, tx, matchID); err != nil {
		return infra("cancel match", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE matches SET status = 'cancelled', ended_at = NOW() WHERE id = $1`, matchID); err != nil {
		return infra("cancel match", err)
	}
	if err := refundRoster(ctx, tx, &m); err != nil {
		return infra("cancel match", err)
	}
	if err := tx.Commit(); err != nil {
		return infra("cancel match", err)
	}
	return nil
}

func (s *Store) DeleteMatch(ctx context.Context, matchID string) error {
	// match_players rows go with the match (ON DELETE CASCADE)
	res, err := s.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, matchID)
	if err != nil {
		return infra("delete match", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return infra("delete match", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	var set models.Settings
	err := s.db.GetContext(ctx, &set, `SELECT referral_bonus, payment_number, support_contact FROM settings WHERE id = 'config'`)
	if err != nil {
		return nil, infra("get settings", err)
	}
	return &set, nil
}

func (s *Store) UpdateSettings(ctx context.Context, set *models.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, referral_bonus, payment_number, support_contact, updated_at)
		VALUES ('config', $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			referral_bonus = EXCLUDED.referral_bonus,
			payment_number = EXCLUDED.payment_number,
			support_contact = EXCLUDED.support_contact,
			updated_at = NOW()
	`, set.ReferralBonus, set.PaymentNumber, set.SupportContact)
	if err != nil {
		return infra("update settings", err)
	}
	return nil
}
