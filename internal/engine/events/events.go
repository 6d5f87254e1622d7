// Package events defines the append-only event log a battle session emits.
// The log is the only channel to any presentation layer: each payload
// carries the affected ids, before/after values and zone names a renderer
// needs, so consumers never re-query engine internals.
package events

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Type indicates the category of an engine event.
type Type string

const (
	EventSessionStarted Type = "SESSION_STARTED"
	EventSessionEnded   Type = "SESSION_ENDED"

	EventScoreGained    Type = "SCORE_GAINED"
	EventGenkiChanged   Type = "GENKI_CHANGED"
	EventStaminaChanged Type = "STAMINA_CHANGED"

	EventBuffAdded     Type = "BUFF_ADDED"
	EventBuffRemoved   Type = "BUFF_REMOVED"
	EventBuffConsumed  Type = "BUFF_CONSUMED"
	EventBuffExpired   Type = "BUFF_EXPIRED"
	EventMultiplierSet Type = "MULTIPLIER_SET"

	EventTagAdded   Type = "TAG_ADDED"
	EventTagRemoved Type = "TAG_REMOVED"
	EventTagExpired Type = "TAG_EXPIRED"

	EventCardsDrawn    Type = "CARDS_DRAWN"
	EventDeckReshuffle Type = "DECK_RESHUFFLED"
	EventCardMoved     Type = "CARD_MOVED"
	EventCardPlayed    Type = "CARD_PLAYED"
	EventHandDiscarded Type = "HAND_DISCARDED"

	EventPlayLimitChanged Type = "PLAY_LIMIT_CHANGED"
	EventMaxTurnsChanged  Type = "MAX_TURNS_CHANGED"

	EventHookRegistered Type = "HOOK_REGISTERED"
	EventHookFired      Type = "HOOK_FIRED"
	EventHookExpired    Type = "HOOK_EXPIRED"

	EventTurnEnded         Type = "TURN_ENDED"
	EventTurnStarted       Type = "TURN_STARTED"
	EventStateSwitched     Type = "STATE_SWITCHED"
	EventImpressionSettled Type = "IMPRESSION_SETTLED"
	EventFullPowerOverflow Type = "FULL_POWER_OVERFLOW"

	EventExecutorError Type = "EXECUTOR_ERROR"
)

// Event is one append-only record of something the engine did.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Log is the ordered, append-only event record of one session. Event ids
// are ulids, so sorting by id preserves emission order.
type Log struct {
	mu      sync.Mutex
	events  []Event
	entropy *ulid.MonotonicEntropy
}

// NewLog creates an empty event log.
func NewLog() *Log {
	return &Log{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// Append records a new event and returns it.
func (l *Log) Append(t Type, data map[string]any) Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	evt := Event{
		ID:        ulid.MustNew(ulid.Timestamp(now), l.entropy).String(),
		Type:      t,
		Timestamp: now,
		Data:      data,
	}
	l.events = append(l.events, evt)
	return evt
}

// All returns a copy of every recorded event in order.
func (l *Log) All() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Len returns the number of recorded events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Since returns the events recorded after the given index. Consumers polling
// the log keep their own cursor.
func (l *Log) Since(index int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 {
		index = 0
	}
	if index >= len(l.events) {
		return nil
	}
	return append([]Event(nil), l.events[index:]...)
}
