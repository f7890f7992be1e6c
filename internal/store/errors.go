package store

import "errors"

// Every failure this core can report is one of these values (possibly
// wrapped). Callers branch with errors.Is; nothing in the engine panics or
// retries on its own.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyFinalized  = errors.New("already finalized")
	ErrSelfReferral      = errors.New("self referral")
	ErrAlreadyClaimed    = errors.New("referral already claimed")
	ErrInvalidCode       = errors.New("invalid referral code")
	ErrWrongPassword     = errors.New("wrong room password")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrMatchFull         = errors.New("match full")
	ErrNotAParticipant   = errors.New("winner is not a participant")

	// ErrStoreUnavailable wraps infrastructure failures (connection loss,
	// failed commits). The transactional boundaries guarantee no partial
	// state is left behind when it is returned.
	ErrStoreUnavailable = errors.New("store unavailable")
)
