// Package match owns tournament lifecycle: creation, the join protocol with
// entry-fee escrow, the scheduler that starts or expires matches at their
// configured time, and prize settlement.
package match

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/ludocash/backend/internal/events"
	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
)

type Registry struct {
	store    store.Store
	pub      events.Publisher
	loc      *time.Location
	warnLead time.Duration
}

// NewRegistry wires the registry to its store and event publisher. loc is
// the wall-clock locale start times are interpreted in; warnLead is how far
// before start the one-minute warning fires.
func NewRegistry(st store.Store, pub events.Publisher, loc *time.Location, warnLead time.Duration) *Registry {
	if loc == nil {
		loc = time.Local
	}
	if warnLead <= 0 {
		warnLead = time.Minute
	}
	return &Registry{store: st, pub: pub, loc: loc, warnLead: warnLead}
}

// CreateParams describes a new tournament room.
type CreateParams struct {
	EntryFee  int64
	Prize     int64
	Capacity  int
	StartTime string
	RoomCode  string
	RoomPass  string
}

// Create registers an open match with an empty roster.
func (r *Registry) Create(ctx context.Context, p CreateParams) (*models.Match, error) {
	if p.Capacity != 2 && p.Capacity != 4 {
		return nil, fmt.Errorf("capacity must be 2 or 4, got %d", p.Capacity)
	}
	if p.EntryFee < 0 || p.Prize < 0 {
		return nil, fmt.Errorf("entry fee and prize must not be negative")
	}
	if p.RoomCode == "" {
		return nil, fmt.Errorf("room code is required")
	}
	startAt, err := resolveStartAt(p.StartTime, time.Now(), r.loc)
	if err != nil {
		return nil, err
	}

	m := &models.Match{
		ID:        uuid.NewString(),
		EntryFee:  p.EntryFee,
		Prize:     p.Prize,
		Capacity:  p.Capacity,
		StartTime: p.StartTime,
		StartAt:   startAt,
		RoomCode:  p.RoomCode,
		Status:    models.MatchOpen,
	}
	if p.RoomPass != "" {
		m.RoomPass = sql.NullString{String: p.RoomPass, Valid: true}
	}
	if err := r.store.CreateMatch(ctx, m); err != nil {
		return nil, err
	}
	log.Printf("[MATCH] Created match %s: fee=%d prize=%d capacity=%d starts=%s",
		m.ID, m.EntryFee, m.Prize, m.Capacity, startAt.Format(time.RFC3339))
	return m, nil
}

// Join seats a user in an open match, escrowing the entry fee. When the last
// seat fills the match starts immediately and matchStarted goes out.
func (r *Registry) Join(ctx context.Context, matchID, userID, roomPass string) (*models.Match, error) {
	m, err := r.store.JoinMatch(ctx, matchID, userID, roomPass)
	if err != nil {
		return nil, err
	}
	log.Printf("[MATCH] %s joined match %s (%d/%d)", userID, m.ID, len(m.Players), m.Capacity)
	if m.Status == models.MatchPlaying {
		r.publish(ctx, events.Event{
			Type:     events.TypeMatchStarted,
			MatchID:  m.ID,
			RoomCode: m.RoomCode,
			Players:  m.Players,
		})
	}
	return m, nil
}

// ListOpen returns open matches for the lobby.
func (r *Registry) ListOpen(ctx context.Context) ([]models.Match, error) {
	return r.store.ListOpenMatches(ctx)
}

// Get returns a single match with its roster.
func (r *Registry) Get(ctx context.Context, matchID string) (*models.Match, error) {
	return r.store.GetMatch(ctx, matchID)
}

// DeclareWinner is the settlement hook: the trusted relay layer reports the
// outcome of a played match, the declared winner gets the prize and the
// match closes. A winner outside the roster is rejected. A prize of zero
// falls back to the match's configured prize.
func (r *Registry) DeclareWinner(ctx context.Context, matchID, winnerID string, prize int64) error {
	m, err := r.store.SettleMatch(ctx, matchID, winnerID, prize)
	if err != nil {
		return err
	}
	log.Printf("[MATCH] Match %s settled: winner=%s", m.ID, winnerID)
	return nil
}

// Cancel moves an open match to cancelled, refunding any escrowed fees.
func (r *Registry) Cancel(ctx context.Context, matchID string) error {
	if err := r.store.CancelMatch(ctx, matchID); err != nil {
		return err
	}
	log.Printf("[MATCH] Match %s cancelled", matchID)
	return nil
}

// Purge removes a match record outright. Destructive; cancel first if the
// match still has escrowed entry fees.
func (r *Registry) Purge(ctx context.Context, matchID string) error {
	if err := r.store.DeleteMatch(ctx, matchID); err != nil {
		return err
	}
	log.Printf("[MATCH] Match %s purged", matchID)
	return nil
}

// Tick runs one scheduler pass: matches whose start time has been reached
// flip to playing (two or more seated) or expired (fewer), then pending
// one-minute warnings go out. Re-running on the same state is a no-op.
func (r *Registry) Tick(ctx context.Context, now time.Time) {
	promoted, err := r.store.PromoteDueMatches(ctx, now)
	if err != nil {
		log.Printf("[SCHEDULER] Failed to promote due matches: %v", err)
	}
	for i := range promoted {
		m := &promoted[i]
		switch m.Status {
		case models.MatchPlaying:
			log.Printf("[SCHEDULER] Match %s started with %d players", m.ID, len(m.Players))
			r.publish(ctx, events.Event{
				Type:     events.TypeMatchStarted,
				MatchID:  m.ID,
				RoomCode: m.RoomCode,
				Players:  m.Players,
			})
		case models.MatchExpired:
			log.Printf("[SCHEDULER] Match %s expired with %d players (fees refunded)", m.ID, len(m.Players))
			r.publish(ctx, events.Event{Type: events.TypeMatchExpired, MatchID: m.ID})
		}
	}

	warned, err := r.store.DueWarnings(ctx, now, r.warnLead)
	if err != nil {
		log.Printf("[SCHEDULER] Failed to fetch due warnings: %v", err)
	}
	for i := range warned {
		r.publish(ctx, events.Event{Type: events.TypeOneMinuteWarning, MatchID: warned[i].ID})
	}
}

func (r *Registry) publish(ctx context.Context, ev events.Event) {
	if r.pub == nil {
		return
	}
	if err := r.pub.Publish(ctx, ev); err != nil {
		log.Printf("[MATCH] Failed to publish %s for match %s: %v", ev.Type, ev.MatchID, err)
	}
}
