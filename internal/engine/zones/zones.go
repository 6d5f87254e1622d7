// Package zones manages the five card locations of a battle and all card
// movement between them. It knows card identities and rarities, nothing
// about card logic.
package zones

import (
	"fmt"

	"github.com/hatsuboshi/lesson-engine/internal/engine/rng"
)

// Zone identifies one of the five card locations.
type Zone string

const (
	ZoneDeck    Zone = "deck"
	ZoneHand    Zone = "hand"
	ZoneDiscard Zone = "discard"
	ZoneReserve Zone = "reserve"
	ZoneRemoved Zone = "removed"
)

// Valid reports whether z names a known zone.
func (z Zone) Valid() bool {
	switch z {
	case ZoneDeck, ZoneHand, ZoneDiscard, ZoneReserve, ZoneRemoved:
		return true
	}
	return false
}

// Instance is one card occurrence in a zone. The same template can appear
// multiple times in a session, each with its own instance id.
type Instance struct {
	InstanceID string `json:"instance_id"`
	TemplateID string `json:"template_id"`
	Rarity     string `json:"rarity"`
	Enhanced   bool   `json:"enhanced"`
}

// Filter selects card instances for moves and random plays. nil matches all.
type Filter func(Instance) bool

// Manager owns the five zones. Order within a zone is meaningful: the deck
// draws from the front, moved cards append to the back.
type Manager struct {
	zones map[Zone][]Instance
}

// NewManager creates a manager with the given cards as the deck, in order.
// Shuffling the opening deck is the caller's job.
func NewManager(deck []Instance) *Manager {
	m := &Manager{zones: make(map[Zone][]Instance)}
	m.zones[ZoneDeck] = append([]Instance(nil), deck...)
	return m
}

// Count returns the number of cards in a zone.
func (m *Manager) Count(z Zone) int {
	return len(m.zones[z])
}

// Cards returns a copy of a zone's contents in order.
func (m *Manager) Cards(z Zone) []Instance {
	return append([]Instance(nil), m.zones[z]...)
}

// RarityCounts returns how many cards of each rarity sit in hand.
func (m *Manager) RarityCounts() map[string]int {
	out := make(map[string]int)
	for _, c := range m.zones[ZoneHand] {
		out[c.Rarity]++
	}
	return out
}

// Find locates a card instance, returning its zone.
func (m *Manager) Find(instanceID string) (Instance, Zone, bool) {
	for z, cards := range m.zones {
		for _, c := range cards {
			if c.InstanceID == instanceID {
				return c, z, true
			}
		}
	}
	return Instance{}, "", false
}

// Draw moves up to n cards deck to hand, reshuffling the discard pile into
// the deck once when the deck runs dry. When both are empty it stops
// silently. Returns the drawn cards in order, and whether a reshuffle
// happened.
func (m *Manager) Draw(n int, src rng.Source) (drawn []Instance, reshuffled bool) {
	for i := 0; i < n; i++ {
		if len(m.zones[ZoneDeck]) == 0 {
			if reshuffled || len(m.zones[ZoneDiscard]) == 0 {
				break
			}
			m.zones[ZoneDeck] = m.zones[ZoneDiscard]
			m.zones[ZoneDiscard] = nil
			m.Shuffle(src)
			reshuffled = true
		}
		card := m.zones[ZoneDeck][0]
		m.zones[ZoneDeck] = m.zones[ZoneDeck][1:]
		m.zones[ZoneHand] = append(m.zones[ZoneHand], card)
		drawn = append(drawn, card)
	}
	return drawn, reshuffled
}

// Shuffle permutes the deck in place with a Fisher-Yates shuffle fed by the
// session's randomness source.
func (m *Manager) Shuffle(src rng.Source) {
	deck := m.zones[ZoneDeck]
	for i := len(deck) - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// Move relocates one card instance between zones. A non-nil filter must
// also accept the card.
func (m *Manager) Move(instanceID string, from, to Zone, filter Filter) (Instance, error) {
	cards := m.zones[from]
	for i, c := range cards {
		if c.InstanceID != instanceID {
			continue
		}
		if filter != nil && !filter(c) {
			return Instance{}, fmt.Errorf("card %s rejected by filter", instanceID)
		}
		m.zones[from] = append(cards[:i:i], cards[i+1:]...)
		m.zones[to] = append(m.zones[to], c)
		return c, nil
	}
	return Instance{}, fmt.Errorf("card %s not in %s", instanceID, from)
}

// MoveMatching moves up to n filter-matching cards from one zone to
// another, preserving order. n < 0 moves all matches.
func (m *Manager) MoveMatching(from, to Zone, filter Filter, n int) []Instance {
	var moved []Instance
	var kept []Instance
	for _, c := range m.zones[from] {
		if (n < 0 || len(moved) < n) && (filter == nil || filter(c)) {
			moved = append(moved, c)
			continue
		}
		kept = append(kept, c)
	}
	m.zones[from] = kept
	m.zones[to] = append(m.zones[to], moved...)
	return moved
}

// Matching returns the cards in a zone accepted by the filter.
func (m *Manager) Matching(z Zone, filter Filter) []Instance {
	var out []Instance
	for _, c := range m.zones[z] {
		if filter == nil || filter(c) {
			out = append(out, c)
		}
	}
	return out
}

// DiscardHand moves every hand card to the discard pile, returning them in
// hand order.
func (m *Manager) DiscardHand() []Instance {
	hand := m.zones[ZoneHand]
	m.zones[ZoneHand] = nil
	m.zones[ZoneDiscard] = append(m.zones[ZoneDiscard], hand...)
	return hand
}

// Total returns the number of cards across all zones.
func (m *Manager) Total() int {
	total := 0
	for _, cards := range m.zones {
		total += len(cards)
	}
	return total
}

// Snapshot returns a copy of all five zones.
func (m *Manager) Snapshot() map[Zone][]Instance {
	out := make(map[Zone][]Instance, len(m.zones))
	for z, cards := range m.zones {
		out[z] = append([]Instance(nil), cards...)
	}
	return out
}

// Restore replaces all zone contents from a snapshot.
func (m *Manager) Restore(snapshot map[Zone][]Instance) {
	m.zones = make(map[Zone][]Instance, len(snapshot))
	for z, cards := range snapshot {
		m.zones[z] = append([]Instance(nil), cards...)
	}
}
