package match

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ludocash/backend/internal/events"
	"github.com/ludocash/backend/internal/models"
	"github.com/ludocash/backend/internal/store"
	"github.com/ludocash/backend/internal/store/memory"
)

func newTestRegistry(t *testing.T) (*Registry, *memory.Store, *events.Recorder) {
	t.Helper()
	st := memory.New()
	rec := events.NewRecorder()
	return NewRegistry(st, rec, time.UTC, time.Minute), st, rec
}

// seedMatch inserts an open match with a controlled start instant.
func seedMatch(t *testing.T, st *memory.Store, fee, prize int64, capacity int, startAt time.Time, pass string) string {
	t.Helper()
	m := &models.Match{
		ID:        uuid.NewString(),
		EntryFee:  fee,
		Prize:     prize,
		Capacity:  capacity,
		StartTime: startAt.Format("3:04 PM"),
		StartAt:   startAt,
		RoomCode:  "ROOM42",
		Status:    models.MatchOpen,
	}
	if pass != "" {
		m.RoomPass = sql.NullString{String: pass, Valid: true}
	}
	if err := st.CreateMatch(context.Background(), m); err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	return m.ID
}

func balanceOf(t *testing.T, st *memory.Store, userID string) int64 {
	t.Helper()
	balance, _, err := st.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance(%s) failed: %v", userID, err)
	}
	return balance
}

func TestCreateMatchValidation(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	cases := []struct {
		name string
		p    CreateParams
	}{
		{"bad capacity", CreateParams{Capacity: 3, StartTime: "7:30 PM", RoomCode: "R1"}},
		{"bad start time", CreateParams{Capacity: 2, StartTime: "half past seven", RoomCode: "R1"}},
		{"missing room code", CreateParams{Capacity: 2, StartTime: "7:30 PM"}},
		{"negative fee", CreateParams{Capacity: 2, StartTime: "7:30 PM", RoomCode: "R1", EntryFee: -1}},
	}
	for _, tc := range cases {
		if _, err := reg.Create(ctx, tc.p); err == nil {
			t.Errorf("Create(%s) should fail", tc.name)
		}
	}
}

func TestCreateMatchStartsOpen(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	m, err := reg.Create(context.Background(), CreateParams{
		EntryFee: 50, Prize: 90, Capacity: 4, StartTime: "11:59 PM", RoomCode: "LUDO1", RoomPass: "secret",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m.Status != models.MatchOpen || len(m.Players) != 0 {
		t.Errorf("New match should be open and empty, got status=%s players=%v", m.Status, m.Players)
	}
	if m.StartAt.IsZero() {
		t.Error("StartAt not resolved")
	}
}

func TestJoinDebitsFeeAndKeepsOpen(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 50, 90, 2, time.Now().Add(time.Hour), "")
	st.Credit(ctx, "alice", 100)
	st.Credit(ctx, "bob", 30)

	m, err := reg.Join(ctx, id, "alice", "")
	if err != nil {
		t.Fatalf("Join(alice) failed: %v", err)
	}
	if m.Status != models.MatchOpen {
		t.Errorf("Match status after 1/2 join = %s, want open", m.Status)
	}
	if got := balanceOf(t, st, "alice"); got != 50 {
		t.Errorf("Alice balance = %d, want 50", got)
	}

	_, err = reg.Join(ctx, id, "bob", "")
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Join(bob) = %v, want ErrInsufficientFunds", err)
	}
	if got := balanceOf(t, st, "bob"); got != 30 {
		t.Errorf("Bob balance = %d, want 30 (untouched)", got)
	}
	after, err := reg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(after.Players) != 1 {
		t.Errorf("Roster = %v, want only alice", after.Players)
	}
}

func TestJoinPreconditionFailures(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 10, 18, 2, time.Now().Add(time.Hour), "hunter2")
	st.Credit(ctx, "alice", 100)

	if _, err := reg.Join(ctx, "no-such-match", "alice", ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Join(unknown) = %v, want ErrNotFound", err)
	}
	if _, err := reg.Join(ctx, id, "alice", "wrong"); !errors.Is(err, store.ErrWrongPassword) {
		t.Errorf("Join with wrong password = %v, want ErrWrongPassword", err)
	}
	if _, err := reg.Join(ctx, id, "alice", "hunter2"); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if _, err := reg.Join(ctx, id, "alice", "hunter2"); !errors.Is(err, store.ErrAlreadyJoined) {
		t.Errorf("Duplicate join = %v, want ErrAlreadyJoined", err)
	}
	if got := balanceOf(t, st, "alice"); got != 90 {
		t.Errorf("Alice balance = %d, want 90 (fee charged once)", got)
	}
}

func TestJoinFillingLastSeatStartsMatch(t *testing.T) {
	reg, st, rec := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 10, 18, 2, time.Now().Add(time.Hour), "")
	st.Credit(ctx, "alice", 10)
	st.Credit(ctx, "bob", 10)

	if _, err := reg.Join(ctx, id, "alice", ""); err != nil {
		t.Fatalf("Join(alice) failed: %v", err)
	}
	m, err := reg.Join(ctx, id, "bob", "")
	if err != nil {
		t.Fatalf("Join(bob) failed: %v", err)
	}
	if m.Status != models.MatchPlaying {
		t.Errorf("Match status after fill = %s, want playing", m.Status)
	}
	if len(m.Players) != 2 || m.Players[0] != "alice" || m.Players[1] != "bob" {
		t.Errorf("Roster order = %v, want [alice bob]", m.Players)
	}

	evs := rec.Events()
	if len(evs) != 1 || evs[0].Type != events.TypeMatchStarted {
		t.Fatalf("Events = %+v, want one match_started", evs)
	}
	if evs[0].MatchID != id || evs[0].RoomCode != "ROOM42" {
		t.Errorf("match_started payload = %+v", evs[0])
	}
}

func TestJoinConcurrentLastSeats(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 10, 18, 2, time.Now().Add(time.Hour), "")

	users := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for _, u := range users {
		st.Credit(ctx, u, 10)
	}

	var wg sync.WaitGroup
	results := make(chan error, len(users))
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := reg.Join(ctx, id, u, "")
			results <- err
		}(u)
	}
	wg.Wait()
	close(results)

	successes, full := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, store.ErrMatchFull):
			full++
		default:
			t.Errorf("Unexpected join error: %v", err)
		}
	}
	if successes != 2 || full != len(users)-2 {
		t.Errorf("Got %d successes, %d match-full; want 2 and %d", successes, full, len(users)-2)
	}

	m, err := reg.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(m.Players) != 2 {
		t.Errorf("Roster length = %d, want capacity 2", len(m.Players))
	}

	// Exactly two entry fees left the system's player balances.
	var total int64
	for _, u := range users {
		total += balanceOf(t, st, u)
	}
	if total != int64(len(users)*10-20) {
		t.Errorf("Total remaining balances = %d, want %d", total, len(users)*10-20)
	}
}

func TestDeclareWinner(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 10, 18, 2, time.Now().Add(time.Hour), "")
	st.Credit(ctx, "alice", 10)
	st.Credit(ctx, "bob", 10)
	reg.Join(ctx, id, "alice", "")
	reg.Join(ctx, id, "bob", "")

	if err := reg.DeclareWinner(ctx, id, "mallory", 18); !errors.Is(err, store.ErrNotAParticipant) {
		t.Errorf("DeclareWinner(non-participant) = %v, want ErrNotAParticipant", err)
	}
	if err := reg.DeclareWinner(ctx, "no-such-match", "alice", 18); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DeclareWinner(unknown match) = %v, want ErrNotFound", err)
	}

	if err := reg.DeclareWinner(ctx, id, "alice", 18); err != nil {
		t.Fatalf("DeclareWinner failed: %v", err)
	}
	if got := balanceOf(t, st, "alice"); got != 18 {
		t.Errorf("Winner balance = %d, want 18", got)
	}
	m, _ := reg.Get(ctx, id)
	if m.Status != models.MatchFinished || !m.WinnerID.Valid || m.WinnerID.String != "alice" {
		t.Errorf("Match after settlement: status=%s winner=%v", m.Status, m.WinnerID)
	}

	// Settlement is exactly once.
	if err := reg.DeclareWinner(ctx, id, "bob", 18); !errors.Is(err, store.ErrAlreadyFinalized) {
		t.Errorf("Second settlement = %v, want ErrAlreadyFinalized", err)
	}
	if got := balanceOf(t, st, "bob"); got != 0 {
		t.Errorf("Bob balance after rejected settlement = %d, want 0", got)
	}
}

func TestDeclareWinnerDefaultsToConfiguredPrize(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 10, 35, 2, time.Now().Add(time.Hour), "")
	st.Credit(ctx, "alice", 10)
	st.Credit(ctx, "bob", 10)
	reg.Join(ctx, id, "alice", "")
	reg.Join(ctx, id, "bob", "")

	if err := reg.DeclareWinner(ctx, id, "bob", 0); err != nil {
		t.Fatalf("DeclareWinner failed: %v", err)
	}
	if got := balanceOf(t, st, "bob"); got != 35 {
		t.Errorf("Winner balance = %d, want configured prize 35", got)
	}
}

func TestCancelRefundsRoster(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 40, 70, 4, time.Now().Add(time.Hour), "")
	st.Credit(ctx, "alice", 100)
	reg.Join(ctx, id, "alice", "")

	if err := reg.Cancel(ctx, id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if got := balanceOf(t, st, "alice"); got != 100 {
		t.Errorf("Alice balance after cancel = %d, want 100 (refunded)", got)
	}
	m, _ := reg.Get(ctx, id)
	if m.Status != models.MatchCancelled {
		t.Errorf("Status = %s, want cancelled", m.Status)
	}
	if _, err := reg.Join(ctx, id, "alice", ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Join after cancel = %v, want ErrNotFound", err)
	}
}

func TestPurgeRemovesMatch(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	id := seedMatch(t, st, 0, 0, 2, time.Now().Add(time.Hour), "")

	if err := reg.Purge(ctx, id); err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if _, err := reg.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get after purge = %v, want ErrNotFound", err)
	}
	if err := reg.Purge(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Second purge = %v, want ErrNotFound", err)
	}
}

func TestListOpenExcludesStartedMatches(t *testing.T) {
	reg, st, _ := newTestRegistry(t)
	ctx := context.Background()
	open := seedMatch(t, st, 0, 0, 2, time.Now().Add(time.Hour), "")
	playing := seedMatch(t, st, 0, 0, 2, time.Now().Add(time.Hour), "")
	st.Credit(ctx, "alice", 1)
	st.Credit(ctx, "bob", 1)
	reg.Join(ctx, playing, "alice", "")
	reg.Join(ctx, playing, "bob", "")

	list, err := reg.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != open {
		t.Errorf("ListOpen = %v, want only %s", list, open)
	}
}
