package wallet

import (
	"context"
	"log"

	"github.com/ludocash/backend/internal/store"
)

const defaultReferralBonus = 10

// ClaimReferral pays the configured bonus to both the referrer and the user
// and marks the user's referral as claimed, all in one unit. Only the first
// of any set of concurrent claims for the same user pays out; the rest see
// ErrAlreadyClaimed. Returns the bonus amount paid.
func (s *Service) ClaimReferral(ctx context.Context, userID, referrerID string) (int64, error) {
	if userID == referrerID {
		return 0, store.ErrSelfReferral
	}

	bonus := int64(defaultReferralBonus)
	if set, err := s.store.GetSettings(ctx); err == nil && set.ReferralBonus > 0 {
		bonus = set.ReferralBonus
	} else if err != nil {
		log.Printf("[WALLET] Settings unavailable, using default referral bonus %d: %v", bonus, err)
	}

	if err := s.store.ClaimReferral(ctx, userID, referrerID, bonus); err != nil {
		return 0, err
	}
	log.Printf("[WALLET] Referral claimed: user=%s referrer=%s bonus=%d", userID, referrerID, bonus)
	return bonus, nil
}
