package zones

import (
	"sort"
	"testing"

	"github.com/hatsuboshi/lesson-engine/internal/engine/rng"
)

func deck(ids ...string) []Instance {
	out := make([]Instance, len(ids))
	for i, id := range ids {
		out[i] = Instance{InstanceID: id, TemplateID: "tpl-" + id, Rarity: "R"}
	}
	return out
}

func TestManager_DrawBasic(t *testing.T) {
	m := NewManager(deck("a", "b", "c"))
	drawn, reshuffled := m.Draw(2, &rng.Scripted{})

	if len(drawn) != 2 || drawn[0].InstanceID != "a" || drawn[1].InstanceID != "b" {
		t.Errorf("unexpected draw order: %v", drawn)
	}
	if reshuffled {
		t.Error("no reshuffle expected")
	}
	if m.Count(ZoneDeck) != 1 || m.Count(ZoneHand) != 2 {
		t.Errorf("deck=%d hand=%d after draw", m.Count(ZoneDeck), m.Count(ZoneHand))
	}
}

func TestManager_DrawReshufflesDiscardOnce(t *testing.T) {
	m := NewManager(deck("a", "b"))
	m.Draw(2, &rng.Scripted{})
	m.DiscardHand()

	before := m.Total()
	drawn, reshuffled := m.Draw(5, &rng.Scripted{})

	if !reshuffled {
		t.Error("expected a reshuffle of discard into deck")
	}
	// Only two cards exist; the draw stops silently after them.
	if len(drawn) != 2 {
		t.Errorf("drew %d cards, want 2", len(drawn))
	}
	if m.Total() != before {
		t.Errorf("draw changed total card count: %d -> %d", before, m.Total())
	}

	// The reshuffle is a permutation: same multiset of cards.
	got := []string{drawn[0].InstanceID, drawn[1].InstanceID}
	sort.Strings(got)
	if got[0] != "a" || got[1] != "b" {
		t.Errorf("reshuffle lost cards: %v", got)
	}
}

func TestManager_DrawEmptyEverythingIsSilent(t *testing.T) {
	m := NewManager(nil)
	drawn, reshuffled := m.Draw(3, &rng.Scripted{})
	if len(drawn) != 0 || reshuffled {
		t.Errorf("draw from empty zones should be a silent no-op, got %v", drawn)
	}
}

func TestManager_ShuffleIsDeterministicPerSeed(t *testing.T) {
	m1 := NewManager(deck("a", "b", "c", "d", "e"))
	m2 := NewManager(deck("a", "b", "c", "d", "e"))
	m1.Shuffle(rng.New(7))
	m2.Shuffle(rng.New(7))

	c1, c2 := m1.Cards(ZoneDeck), m2.Cards(ZoneDeck)
	for i := range c1 {
		if c1[i].InstanceID != c2[i].InstanceID {
			t.Fatalf("same seed produced different shuffles at %d", i)
		}
	}
}

func TestManager_Move(t *testing.T) {
	m := NewManager(deck("a", "b"))
	m.Draw(1, &rng.Scripted{})

	if _, err := m.Move("a", ZoneHand, ZoneReserve, nil); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if m.Count(ZoneReserve) != 1 {
		t.Error("card did not arrive in reserve")
	}

	// Filter rejection leaves state untouched.
	_, err := m.Move("b", ZoneDeck, ZoneRemoved, func(c Instance) bool { return c.Rarity == "SSR" })
	if err == nil {
		t.Error("expected filter rejection")
	}
	if m.Count(ZoneDeck) != 1 {
		t.Error("rejected move mutated the deck")
	}

	// Moving a card that is not in the named zone fails.
	if _, err := m.Move("a", ZoneDeck, ZoneHand, nil); err == nil {
		t.Error("expected error for card not in zone")
	}
}

func TestManager_MoveMatching(t *testing.T) {
	m := NewManager(nil)
	m.Restore(map[Zone][]Instance{
		ZoneDiscard: {
			{InstanceID: "a", Rarity: "R"},
			{InstanceID: "b", Rarity: "SSR"},
			{InstanceID: "c", Rarity: "SSR"},
		},
	})

	moved := m.MoveMatching(ZoneDiscard, ZoneHand, func(c Instance) bool { return c.Rarity == "SSR" }, 1)
	if len(moved) != 1 || moved[0].InstanceID != "b" {
		t.Errorf("unexpected match: %v", moved)
	}
	if m.Count(ZoneDiscard) != 2 || m.Count(ZoneHand) != 1 {
		t.Errorf("discard=%d hand=%d", m.Count(ZoneDiscard), m.Count(ZoneHand))
	}
}

func TestManager_DiscardHand(t *testing.T) {
	m := NewManager(deck("a", "b", "c"))
	m.Draw(3, &rng.Scripted{})

	discarded := m.DiscardHand()
	if len(discarded) != 3 {
		t.Errorf("discarded %d cards, want 3", len(discarded))
	}
	if m.Count(ZoneHand) != 0 || m.Count(ZoneDiscard) != 3 {
		t.Errorf("hand=%d discard=%d", m.Count(ZoneHand), m.Count(ZoneDiscard))
	}
}

func TestManager_RarityCounts(t *testing.T) {
	m := NewManager(nil)
	m.Restore(map[Zone][]Instance{
		ZoneHand: {
			{InstanceID: "a", Rarity: "R"},
			{InstanceID: "b", Rarity: "SSR"},
			{InstanceID: "c", Rarity: "SSR"},
		},
	})
	counts := m.RarityCounts()
	if counts["SSR"] != 2 || counts["R"] != 1 {
		t.Errorf("unexpected rarity counts: %v", counts)
	}
}

func TestManager_SnapshotRestoreRoundTrip(t *testing.T) {
	m := NewManager(deck("a", "b", "c", "d"))
	m.Draw(2, &rng.Scripted{})
	m.Move("a", ZoneHand, ZoneRemoved, nil)

	snap := m.Snapshot()
	m2 := NewManager(nil)
	m2.Restore(snap)

	for _, z := range []Zone{ZoneDeck, ZoneHand, ZoneDiscard, ZoneReserve, ZoneRemoved} {
		a, b := m.Cards(z), m2.Cards(z)
		if len(a) != len(b) {
			t.Fatalf("zone %s differs after restore", z)
		}
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("zone %s card %d differs after restore", z, i)
			}
		}
	}
}
