// Package events carries match lifecycle notifications to the external relay
// layer over a Redis pub/sub channel. The relay (out of process) turns these
// into socket broadcasts; this side only publishes.
package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Channel is the pub/sub channel the relay subscribes to.
const Channel = "match_events"

// Event types
const (
	TypeOneMinuteWarning = "one_minute_warning"
	TypeMatchStarted     = "match_started"
	TypeMatchExpired     = "match_expired"
)

// Event is the wire payload published on Channel.
type Event struct {
	Type     string   `json:"type"`
	MatchID  string   `json:"match_id"`
	RoomCode string   `json:"room_code,omitempty"`
	Players  []string `json:"players,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// RedisPublisher publishes events as JSON on a Redis channel.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	n, err := p.rdb.Publish(ctx, Channel, b).Result()
	if err != nil {
		log.Printf("[EVENTS] Publish failed: type=%s match=%s err=%v", ev.Type, ev.MatchID, err)
		return err
	}
	log.Printf("[EVENTS] Published %s for match %s (subscribers=%d)", ev.Type, ev.MatchID, n)
	return nil
}

// Recorder collects events in memory; the tests use it in place of Redis.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a snapshot of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
