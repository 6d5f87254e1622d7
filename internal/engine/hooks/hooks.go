// Package hooks manages the recurring effects registered on a battle. A
// hook is data: a trigger name, an optional condition, a remaining budget
// and an action list. Firing returns the actions to run; executing them is
// the action executor's job.
package hooks

import (
	"github.com/google/uuid"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
)

// Unlimited marks a hook with no trigger or duration budget.
const Unlimited = -1

// Hook is one registered pending effect with its remaining budget.
type Hook struct {
	Def cards.HookDef `json:"def"`
	// TriggersLeft counts down per firing; Unlimited never decrements.
	TriggersLeft int `json:"triggers_left"`
	// TurnsLeft counts down per turn boundary; Unlimited never decrements.
	TurnsLeft int `json:"turns_left"`
}

func (h *Hook) exhausted() bool {
	return h.TriggersLeft == 0 || h.TurnsLeft == 0
}

// Fired is the result of one hook firing.
type Fired struct {
	HookID  string
	Actions []cards.AtomicAction
}

// Manager stores hooks in registration order, which is also firing order.
type Manager struct {
	hooks []*Hook
	eval  *expr.Evaluator
}

// NewManager creates an empty hook manager evaluating conditions with the
// given evaluator.
func NewManager(eval *expr.Evaluator) *Manager {
	return &Manager{eval: eval}
}

// Register adds a hook and returns its id, assigning one if the definition
// carries none.
func (m *Manager) Register(def cards.HookDef) string {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	h := &Hook{Def: def, TriggersLeft: Unlimited, TurnsLeft: Unlimited}
	if def.MaxTriggers > 0 {
		h.TriggersLeft = def.MaxTriggers
	}
	if def.DurationTurns > 0 {
		h.TurnsLeft = def.DurationTurns
	}
	m.hooks = append(m.hooks, h)
	return def.ID
}

// Unregister removes a hook by id.
func (m *Manager) Unregister(id string) {
	for i, h := range m.hooks {
		if h.Def.ID == id {
			m.hooks = append(m.hooks[:i], m.hooks[i+1:]...)
			return
		}
	}
}

// Fire evaluates every hook registered for the trigger against the given
// context and returns the actions of those whose condition holds, in
// registration order. Each firing consumes one trigger budget unit; hooks
// exhausting their budget are pruned and reported in expired.
func (m *Manager) Fire(trigger cards.Trigger, env expr.Env) (fired []Fired, expired []string) {
	for _, h := range m.hooks {
		if h.Def.Trigger != trigger || h.exhausted() {
			continue
		}
		if !m.eval.Condition(h.Def.Condition.Node, env) {
			continue
		}
		fired = append(fired, Fired{HookID: h.Def.ID, Actions: h.Def.Actions})
		if h.TriggersLeft != Unlimited {
			h.TriggersLeft--
		}
	}
	expired = m.prune()
	return fired, expired
}

// DecayTurn decrements duration-based hooks at the turn boundary and prunes
// the expired ones, returning their ids.
func (m *Manager) DecayTurn() []string {
	for _, h := range m.hooks {
		if h.TurnsLeft != Unlimited {
			h.TurnsLeft--
		}
	}
	return m.prune()
}

func (m *Manager) prune() []string {
	var expired []string
	kept := m.hooks[:0]
	for _, h := range m.hooks {
		if h.exhausted() {
			expired = append(expired, h.Def.ID)
			continue
		}
		kept = append(kept, h)
	}
	m.hooks = kept
	return expired
}

// Active returns a copy of every live hook in registration order.
func (m *Manager) Active() []Hook {
	out := make([]Hook, len(m.hooks))
	for i, h := range m.hooks {
		out[i] = *h
	}
	return out
}

// Restore replaces the manager contents from serialized hooks.
func (m *Manager) Restore(hs []Hook) {
	m.hooks = make([]*Hook, len(hs))
	for i := range hs {
		h := hs[i]
		m.hooks[i] = &h
	}
}
