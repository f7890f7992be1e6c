// Package memory is an in-process Store used by the test suite and by mock
// mode (MOCK_STORE=true). A single mutex serializes every operation, which
// gives the same atomicity guarantees as the Postgres implementation's
// transactions: no partial escrow, no over-capacity roster, no double
// referral payout.
package memory

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
)

type account struct {
	balance         int64
	referralClaimed bool
	referredBy      string
	createdAt       time.Time
}

type Store struct {
	mu       sync.Mutex
	accounts map[string]*account
	txns     map[string]*models.Transaction
	txnOrder []string
	matches  map[string]*models.Match
	settings models.Settings
}

var _ store.Store = (*Store)(nil)

// New returns an empty store with default settings (referral bonus 10).
func New() *Store {
	return &Store{
		accounts: make(map[string]*account),
		txns:     make(map[string]*models.Transaction),
		matches:  make(map[string]*models.Match),
		settings: models.Settings{ReferralBonus: 10},
	}
}

func (s *Store) GetBalance(ctx context.Context, userID string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[userID]
	if !ok {
		return 0, false, nil
	}
	return a.balance, a.referralClaimed, nil
}

// getOrCreate must be called with s.mu held.
func (s *Store) getOrCreate(userID string) *account {
	a, ok := s.accounts[userID]
	if !ok {
		a = &account{createdAt: time.Now()}
		s.accounts[userID] = a
	}
	return a
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreate(userID).balance += amount
	return nil
}

func (s *Store) Debit(ctx context.Context, userID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debitLocked(userID, amount)
}

func (s *Store) debitLocked(userID string, amount int64) error {
	a, ok := s.accounts[userID]
	if !ok || a.balance < amount {
		return store.ErrInsufficientFunds
	}
	a.balance -= amount
	return nil
}

func (s *Store) CreateDeposit(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertTxnLocked(t)
	return nil
}

func (s *Store) CreateWithdraw(ctx context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.debitLocked(t.UserID, t.Amount); err != nil {
		return err
	}
	s.insertTxnLocked(t)
	return nil
}

func (s *Store) insertTxnLocked(t *models.Transaction) {
	cp := *t
	s.txns[t.ID] = &cp
	s.txnOrder = append(s.txnOrder, t.ID)
}

func (s *Store) FinalizeTransaction(ctx context.Context, id string, approve bool) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txns[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if t.Status != models.TxPending {
		return nil, store.ErrAlreadyFinalized
	}
	if approve {
		t.Status = models.TxApproved
		if t.Kind == models.KindDeposit {
			s.getOrCreate(t.UserID).balance += t.Amount
		}
	} else {
		t.Status = models.TxRejected
		if t.Kind == models.KindWithdraw {
			// compensating credit of the escrowed amount
			s.getOrCreate(t.UserID).balance += t.Amount
		}
	}
	t.FinalizedAt = sql.NullTime{Time: time.Now(), Valid: true}
	cp := *t
	return &cp, nil
}

func (s *Store) ListPending(ctx context.Context) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, id := range s.txnOrder {
		if t := s.txns[id]; t.Status == models.TxPending {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (s *Store) ClaimReferral(ctx context.Context, userID, referrerID string, bonus int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userID == referrerID {
		return store.ErrSelfReferral
	}
	user := s.accounts[userID]
	if user != nil && user.referralClaimed {
		return store.ErrAlreadyClaimed
	}
	referrer, ok := s.accounts[referrerID]
	if !ok {
		return store.ErrInvalidCode
	}
	if user == nil {
		user = s.getOrCreate(userID)
	}
	referrer.balance += bonus
	user.balance += bonus
	user.referralClaimed = true
	user.referredBy = referrerID
	return nil
}

func (s *Store) CreateMatch(ctx context.Context, m *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	cp.Players = append([]string(nil), m.Players...)
	s.matches[m.ID] = &cp
	return nil
}

func cloneMatch(m *models.Match) *models.Match {
	cp := *m
	cp.Players = append([]string(nil), m.Players...)
	return &cp
}

func (s *Store) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMatch(m), nil
}

func (s *Store) ListOpenMatches(ctx context.Context) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Match
	for _, m := range s.matches {
		if m.Status == models.MatchOpen {
			out = append(out, *cloneMatch(m))
		}
	}
	return out, nil
}

func (s *Store) JoinMatch(ctx context.Context, matchID, userID, roomPass string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return nil, store.ErrNotFound
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
	a := s.accounts[userID]
	if a == nil || a.balance < m.EntryFee {
		return nil, store.ErrInsufficientFunds
	}
	for _, p := range m.Players {
		if p == userID {
			return nil, store.ErrAlreadyJoined
		}
	}
	if len(m.Players) >= m.Capacity {
		return nil, store.ErrMatchFull
	}
	a.balance -= m.EntryFee
	m.Players = append(m.Players, userID)
	if len(m.Players) == m.Capacity {
		m.Status = models.MatchPlaying
		m.StartedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}
	return cloneMatch(m), nil
}

func (s *Store) PromoteDueMatches(ctx context.Context, now time.Time) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Match
	for _, m := range s.matches {
		if m.Status != models.MatchOpen || m.StartAt.After(now) {
			continue
		}
		if len(m.Players) >= 2 {
			m.Status = models.MatchPlaying
			m.StartedAt = sql.NullTime{Time: now, Valid: true}
		} else {
			m.Status = models.MatchExpired
			m.EndedAt = sql.NullTime{Time: now, Valid: true}
			s.refundRosterLocked(m)
		}
		out = append(out, *cloneMatch(m))
	}
	return out, nil
}

// refundRosterLocked returns each joined player's entry fee when a match
// dies without being played.
func (s *Store) refundRosterLocked(m *models.Match) {
	for _, p := range m.Players {
		s.getOrCreate(p).balance += m.EntryFee
	}
}

func (s *Store) DueWarnings(ctx context.Context, now time.Time, lead time.Duration) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Match
	cutoff := now.Add(lead)
	for _, m := range s.matches {
		if m.Status != models.MatchOpen || m.WarnSent || m.StartAt.After(cutoff) {
			continue
		}
		m.WarnSent = true
		out = append(out, *cloneMatch(m))
	}
	return out, nil
}

func (s *Store) SettleMatch(ctx context.Context, matchID, winnerID string, prize int64) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok || m.Status == models.MatchOpen {
		return nil, store.ErrNotFound
	}
	if m.Status != models.MatchPlaying {
		return nil, store.ErrAlreadyFinalized
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
	s.getOrCreate(winnerID).balance += prize
	m.Status = models.MatchFinished
	m.WinnerID = sql.NullString{String: winnerID, Valid: true}
	m.EndedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return cloneMatch(m), nil
}

func (s *Store) CancelMatch(ctx context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return store.ErrNotFound
	}
	if m.Status != models.MatchOpen {
		return store.ErrAlreadyFinalized
	}
	m.Status = models.MatchCancelled
	m.EndedAt = sql.NullTime{Time: time.Now(), Valid: true}
	s.refundRosterLocked(m)
	return nil
}

func (s *Store) DeleteMatch(ctx context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[matchID]; !ok {
		return store.ErrNotFound
	}
	delete(s.matches, matchID)
	return nil
}

func (s *Store) GetSettings(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := s.settings
	return &cp, nil
}

func (s *Store) UpdateSettings(ctx context.Context, set *models.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = *set
	return nil
}
