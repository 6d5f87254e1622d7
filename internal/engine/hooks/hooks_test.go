package hooks

import (
	"testing"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
)

type stubEnv struct {
	vars map[string]float64
}

func (s *stubEnv) Var(name string) (float64, bool) { v, ok := s.vars[name]; return v, ok }
func (s *stubEnv) HasTag(string) bool              { return false }
func (s *stubEnv) HasBuff(string) bool             { return false }
func (s *stubEnv) BuffStacks(string) int           { return 0 }
func (s *stubEnv) BuffDuration(string) int         { return 0 }
func (s *stubEnv) RarityInHand(string) int         { return 0 }
func (s *stubEnv) SwitchCount(string) int          { return 0 }
func (s *stubEnv) Rand() float64                   { return 0 }
func (s *stubEnv) NameMatches(string) bool         { return false }

func drawAction() []cards.AtomicAction {
	return []cards.AtomicAction{{Kind: cards.ActionDrawCards, Count: 1}}
}

func newManager() *Manager {
	return NewManager(expr.NewEvaluator(nil))
}

func TestManager_FireMatchesTrigger(t *testing.T) {
	m := newManager()
	m.Register(cards.HookDef{ID: "h1", Trigger: cards.TriggerTurnEnd, Actions: drawAction()})
	m.Register(cards.HookDef{ID: "h2", Trigger: cards.TriggerTurnStart, Actions: drawAction()})

	fired, expired := m.Fire(cards.TriggerTurnEnd, &stubEnv{})
	if len(fired) != 1 || fired[0].HookID != "h1" {
		t.Errorf("fired = %v, want h1 only", fired)
	}
	if len(expired) != 0 {
		t.Errorf("nothing should expire, got %v", expired)
	}
}

func TestManager_MaxTriggersFiresAtMostOnce(t *testing.T) {
	m := newManager()
	m.Register(cards.HookDef{
		ID: "once", Trigger: cards.TriggerTurnStart, MaxTriggers: 1,
		Actions: drawAction(),
	})

	fired, expired := m.Fire(cards.TriggerTurnStart, &stubEnv{})
	if len(fired) != 1 {
		t.Fatalf("first fire: got %d, want 1", len(fired))
	}
	if len(expired) != 1 || expired[0] != "once" {
		t.Errorf("hook should expire after its only trigger, got %v", expired)
	}

	// Arbitrarily many later triggers never fire it again.
	for i := 0; i < 50; i++ {
		fired, _ = m.Fire(cards.TriggerTurnStart, &stubEnv{})
		if len(fired) != 0 {
			t.Fatalf("exhausted hook fired on call %d", i)
		}
	}
}

func TestManager_ConditionGatesFiring(t *testing.T) {
	m := newManager()
	m.Register(cards.HookDef{
		ID:          "gated",
		Trigger:     cards.TriggerTurnEnd,
		Condition:   expr.Expression{Node: expr.MustParse("turn >= 3")},
		MaxTriggers: 1,
		Actions:     drawAction(),
	})

	// Condition false: no fire, no budget consumed.
	fired, _ := m.Fire(cards.TriggerTurnEnd, &stubEnv{vars: map[string]float64{"turn": 1}})
	if len(fired) != 0 {
		t.Fatal("condition false but hook fired")
	}

	fired, _ = m.Fire(cards.TriggerTurnEnd, &stubEnv{vars: map[string]float64{"turn": 3}})
	if len(fired) != 1 {
		t.Fatal("condition true but hook did not fire")
	}
}

func TestManager_DecayTurn(t *testing.T) {
	m := newManager()
	m.Register(cards.HookDef{ID: "short", Trigger: cards.TriggerTurnStart, DurationTurns: 2, Actions: drawAction()})
	m.Register(cards.HookDef{ID: "forever", Trigger: cards.TriggerTurnStart, Actions: drawAction()})

	if expired := m.DecayTurn(); len(expired) != 0 {
		t.Errorf("nothing should expire after one turn, got %v", expired)
	}
	expired := m.DecayTurn()
	if len(expired) != 1 || expired[0] != "short" {
		t.Errorf("short hook should expire, got %v", expired)
	}
	if len(m.Active()) != 1 || m.Active()[0].Def.ID != "forever" {
		t.Error("unlimited hook should survive decay")
	}
}

func TestManager_FiringOrderIsRegistrationOrder(t *testing.T) {
	m := newManager()
	for _, id := range []string{"a", "b", "c"} {
		m.Register(cards.HookDef{ID: id, Trigger: cards.TriggerCardPlayed, Actions: drawAction()})
	}
	fired, _ := m.Fire(cards.TriggerCardPlayed, &stubEnv{})
	if len(fired) != 3 || fired[0].HookID != "a" || fired[1].HookID != "b" || fired[2].HookID != "c" {
		t.Errorf("firing order should be registration order, got %v", fired)
	}
}

func TestManager_RegisterAssignsID(t *testing.T) {
	m := newManager()
	id := m.Register(cards.HookDef{Trigger: cards.TriggerTurnEnd, Actions: drawAction()})
	if id == "" {
		t.Error("expected a generated hook id")
	}
}

func TestManager_RestoreRoundTrip(t *testing.T) {
	m := newManager()
	m.Register(cards.HookDef{ID: "h1", Trigger: cards.TriggerTurnEnd, MaxTriggers: 3, Actions: drawAction()})
	m.Fire(cards.TriggerTurnEnd, &stubEnv{})

	m2 := newManager()
	m2.Restore(m.Active())

	active := m2.Active()
	if len(active) != 1 || active[0].TriggersLeft != 2 {
		t.Errorf("restore lost trigger budget: %+v", active)
	}
}
