package models

import (
	"database/sql"
	"time"
)

// Transaction kinds
const (
	KindDeposit  = "deposit"
	KindWithdraw = "withdraw"
)

// Transaction statuses
const (
	TxPending  = "pending"
	TxApproved = "approved"
	TxRejected = "rejected"
)

// Match statuses
const (
	MatchOpen      = "open"
	MatchPlaying   = "playing"
	MatchFinished  = "finished"
	MatchExpired   = "expired"
	MatchCancelled = "cancelled"
)

// Account holds a user's spendable balance in the smallest currency unit.
// Accounts materialize on first credit and are never deleted.
type Account struct {
	UserID          string         `db:"user_id" json:"user_id"`
	Balance         int64          `db:"balance" json:"balance"`
	ReferralClaimed bool           `db:"referral_claimed" json:"referral_claimed"`
	ReferredBy      sql.NullString `db:"referred_by" json:"referred_by,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only deposit/withdraw request. Withdraw amounts
// are escrowed from the balance at creation; deposits credit at approval.
type Transaction struct {
	ID          string       `db:"id" json:"id"`
	UserID      string       `db:"user_id" json:"user_id"`
	Amount      int64        `db:"amount" json:"amount"`
	Kind        string       `db:"kind" json:"kind"`
	Status      string       `db:"status" json:"status"`
	Reference   string       `db:"reference" json:"reference,omitempty"`
	Phone       string       `db:"phone" json:"phone,omitempty"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	FinalizedAt sql.NullTime `db:"finalized_at" json:"finalized_at,omitempty"`
}

// Match is a scheduled tournament room. Players holds the roster in join
// order, which is also turn order.
type Match struct {
	ID        string         `db:"id" json:"id"`
	EntryFee  int64          `db:"entry_fee" json:"entry_fee"`
	Prize     int64          `db:"prize" json:"prize"`
	Capacity  int            `db:"capacity" json:"capacity"`
	StartTime string         `db:"start_time" json:"start_time"`
	StartAt   time.Time      `db:"start_at" json:"start_at"`
	RoomCode  string         `db:"room_code" json:"room_code"`
	RoomPass  sql.NullString `db:"room_pass" json:"-"`
	Status    string         `db:"status" json:"status"`
	WarnSent  bool           `db:"warn_sent" json:"-"`
	WinnerID  sql.NullString `db:"winner_id" json:"winner_id,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	StartedAt sql.NullTime   `db:"started_at" json:"started_at,omitempty"`
	EndedAt   sql.NullTime   `db:"ended_at" json:"ended_at,omitempty"`

	Players []string `db:"-" json:"players"`
}

// HasPassword reports whether joining this match requires a room password.
func (m *Match) HasPassword() bool {
	return m.RoomPass.Valid && m.RoomPass.String != ""
}

// Settings is the singleton platform configuration row.
type Settings struct {
	ReferralBonus  int64  `db:"referral_bonus" json:"referral_bonus"`
	PaymentNumber  string `db:"payment_number" json:"payment_number"`
	SupportContact string `db:"support_contact" json:"support_contact"`
}

// AdminAccount is an operator login
type AdminAccount struct {
	Username     string    `db:"username" json:"username"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// AdminAudit records an operator action
type AdminAudit struct {
	ID            int       `db:"id" json:"id"`
	AdminUsername string    `db:"admin_username" json:"admin_username"`
	IP            string    `db:"ip" json:"ip"`
	Route         string    `db:"route" json:"route"`
	Action        string    `db:"action" json:"action"`
	Details       []byte    `db:"details" json:"details"`
	Success       bool      `db:"success" json:"success"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
