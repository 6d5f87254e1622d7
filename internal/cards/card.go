// Package cards defines the data schema card content is authored in: card
// templates, their conditional logic chains, atomic actions and hook
// definitions. The engine consumes these as immutable data.
package cards

import (
	"sort"

	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
)

// Trigger names the lifecycle moment a hook fires on.
type Trigger string

const (
	TriggerTurnStart       Trigger = "onTurnStart"
	TriggerTurnEnd         Trigger = "onTurnEnd"
	TriggerCardPlayed      Trigger = "onCardPlayed"
	TriggerBeforeScoreCalc Trigger = "onBeforeScoreCalc"
	TriggerAfterScoreCalc  Trigger = "onAfterScoreCalc"
	TriggerStateSwitch     Trigger = "onStateSwitch"
)

// Valid reports whether t names a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerTurnStart, TriggerTurnEnd, TriggerCardPlayed,
		TriggerBeforeScoreCalc, TriggerAfterScoreCalc, TriggerStateSwitch:
		return true
	}
	return false
}

// ActionKind discriminates the atomic action union.
type ActionKind string

const (
	ActionGainScore         ActionKind = "gainScore"
	ActionModifyGenki       ActionKind = "modifyGenki"
	ActionModifyStamina     ActionKind = "modifyStamina"
	ActionAddBuff           ActionKind = "addBuff"
	ActionRemoveBuff        ActionKind = "removeBuff"
	ActionConsumeBuff       ActionKind = "consumeBuff"
	ActionAddTag            ActionKind = "addTag"
	ActionRemoveTag         ActionKind = "removeTag"
	ActionDrawCards         ActionKind = "drawCards"
	ActionModifyPlayLimit   ActionKind = "modifyPlayLimit"
	ActionModifyMaxTurns    ActionKind = "modifyMaxTurns"
	ActionPlayCardFromZone  ActionKind = "playCardFromZone"
	ActionMoveCard          ActionKind = "moveCard"
	ActionSetBuffMultiplier ActionKind = "setBuffMultiplier"
	ActionRegisterHook      ActionKind = "registerHook"
	ActionPlayRandomCards   ActionKind = "playRandomCards"
)

// Valid reports whether k names a known action kind.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionGainScore, ActionModifyGenki, ActionModifyStamina,
		ActionAddBuff, ActionRemoveBuff, ActionConsumeBuff,
		ActionAddTag, ActionRemoveTag, ActionDrawCards,
		ActionModifyPlayLimit, ActionModifyMaxTurns, ActionPlayCardFromZone,
		ActionMoveCard, ActionSetBuffMultiplier, ActionRegisterHook,
		ActionPlayRandomCards:
		return true
	}
	return false
}

// CardFilter narrows which card instances an action applies to. Zero-value
// fields are wildcards.
type CardFilter struct {
	Rarity string `yaml:"rarity,omitempty" json:"rarity,omitempty"`
	Type   string `yaml:"type,omitempty" json:"type,omitempty"`
	Plan   string `yaml:"plan,omitempty" json:"plan,omitempty"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
}

// AtomicAction is one indivisible state mutation. Which fields are read
// depends on Kind; validation rejects actions missing their kind's
// required fields.
type AtomicAction struct {
	Kind ActionKind `yaml:"kind" json:"kind"`

	// gainScore, modifyGenki, modifyStamina: amount formula.
	// addBuff: stack count formula (defaults to 1).
	Value expr.Expression `yaml:"value,omitempty" json:"value,omitempty"`
	// gainScore only: extra multiplier formula applied to the amount.
	Multiplier expr.Expression `yaml:"multiplier,omitempty" json:"multiplier,omitempty"`

	// Buff-directed kinds.
	Buff     string `yaml:"buff,omitempty" json:"buff,omitempty"`
	Duration int    `yaml:"duration,omitempty" json:"duration,omitempty"`
	Percent  int    `yaml:"percent,omitempty" json:"percent,omitempty"`

	// Tag-directed kinds.
	Tag   string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Turns int    `yaml:"turns,omitempty" json:"turns,omitempty"`

	// drawCards, consumeBuff, moveCard, playRandomCards.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// modifyPlayLimit, modifyMaxTurns.
	Delta int `yaml:"delta,omitempty" json:"delta,omitempty"`

	// Zone-directed kinds. Card is an instance id for playCardFromZone;
	// empty means "first filter match".
	Zone   string      `yaml:"zone,omitempty" json:"zone,omitempty"`
	To     string      `yaml:"to,omitempty" json:"to,omitempty"`
	Card   string      `yaml:"card,omitempty" json:"card,omitempty"`
	Free   bool        `yaml:"free,omitempty" json:"free,omitempty"`
	Filter *CardFilter `yaml:"filter,omitempty" json:"filter,omitempty"`

	// registerHook.
	Hook *HookDef `yaml:"hook,omitempty" json:"hook,omitempty"`
}

// AtomicStep is one conditional step of a card's logic chain. The actions
// run only if When evaluates truthy; an absent When means unconditional.
type AtomicStep struct {
	When expr.Expression `yaml:"when,omitempty" json:"when,omitempty"`
	Do   []AtomicAction  `yaml:"do" json:"do"`
}

// HookDef is a serialized pending effect: trigger, gate, remaining budget
// and the actions to run. Hooks are data, not closures, so they can be
// stored, replayed and tested in isolation.
type HookDef struct {
	ID            string          `yaml:"id,omitempty" json:"id,omitempty"`
	Trigger       Trigger         `yaml:"trigger" json:"trigger"`
	Condition     expr.Expression `yaml:"condition,omitempty" json:"condition,omitempty"`
	DurationTurns int             `yaml:"duration_turns,omitempty" json:"duration_turns,omitempty"`
	MaxTriggers   int             `yaml:"max_triggers,omitempty" json:"max_triggers,omitempty"`
	Actions       []AtomicAction  `yaml:"actions" json:"actions"`
}

// Cost is what playing a card consumes. Genki is paid first; any shortfall
// falls through to stamina.
type Cost struct {
	Genki int `yaml:"genki" json:"genki"`
}

// Card is an immutable template. Zone instances reference it by ID and may
// carry the Enhanced flag selecting the enhanced logic chain.
type Card struct {
	ID                 string       `yaml:"id" json:"id"`
	Name               string       `yaml:"name" json:"name"`
	Rarity             string       `yaml:"rarity" json:"rarity"`
	Type               string       `yaml:"type" json:"type"`
	Plan               string       `yaml:"plan,omitempty" json:"plan,omitempty"`
	Cost               Cost         `yaml:"cost" json:"cost"`
	LogicChain         []AtomicStep `yaml:"logic_chain" json:"logic_chain"`
	LogicChainEnhanced []AtomicStep `yaml:"logic_chain_enhanced,omitempty" json:"logic_chain_enhanced,omitempty"`
}

// Chain returns the logic chain to execute for the given enhancement state,
// falling back to the base chain when no enhanced chain exists.
func (c *Card) Chain(enhanced bool) []AtomicStep {
	if enhanced && len(c.LogicChainEnhanced) > 0 {
		return c.LogicChainEnhanced
	}
	return c.LogicChain
}

// Set is the card registry a session runs against. It is an explicit value
// handed to the engine, never a process-wide singleton.
type Set struct {
	cards  map[string]*Card
	byName map[string]*Card
}

// NewSet builds a registry from validated card templates.
func NewSet(list []Card) *Set {
	s := &Set{
		cards:  make(map[string]*Card, len(list)),
		byName: make(map[string]*Card, len(list)),
	}
	for i := range list {
		c := list[i]
		s.cards[c.ID] = &c
		s.byName[c.Name] = &c
	}
	return s
}

// Get returns the card template with the given id.
func (s *Set) Get(id string) (*Card, bool) {
	c, ok := s.cards[id]
	return c, ok
}

// ByName returns the card template with the given display name.
func (s *Set) ByName(name string) (*Card, bool) {
	c, ok := s.byName[name]
	return c, ok
}

// Len returns the number of templates in the set.
func (s *Set) Len() int {
	return len(s.cards)
}

// All returns every template, sorted by id.
func (s *Set) All() []*Card {
	out := make([]*Card, 0, len(s.cards))
	for _, c := range s.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
