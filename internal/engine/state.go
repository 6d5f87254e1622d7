// Package engine implements the battle session core: the mutable state
// aggregate, the action executor, the turn controller and the public
// operations outer layers consume.
package engine

import (
	"github.com/hatsuboshi/lesson-engine/internal/engine/buffs"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

// Well-known buff ids the engine's own rules key off. Cards may add any
// other buff id freely; only these carry built-in semantics.
const (
	// Concentration and motivation add flat per-stack score bonuses.
	BuffConcentration = "concentration"
	BuffMotivation    = "motivation"

	// Good condition multiplies score by 1.5; excellent condition adds a
	// further +0.1 per raw good-condition stack.
	BuffGoodCondition      = "goodCondition"
	BuffExcellentCondition = "excellentCondition"

	// Good impression settles into score at every turn end.
	BuffGoodImpression = "goodImpression"

	// Heat is zeroed at every turn end.
	BuffHeat = "heat"

	// Full power is the capped gauge whose overflow forces the all-out
	// state at the turn boundary.
	BuffFullPower = "fullPower"

	// Generic percentage multipliers applied last in the score pipeline.
	BuffFinalMultiplier = "finalMultiplier"
	BuffScoreBonus      = "scoreBonus"

	// The three mutually exclusive mental states, stored as buffs so they
	// serialize and emit events like everything else.
	BuffAllOutState   = "alloutState"
	BuffResoluteState = "resoluteState"
	BuffConserveState = "conserveState"
)

// TagNoPlay blocks card plays while set.
const TagNoPlay = "noPlay"

// FullPowerCap is the full-power gauge cap.
const FullPowerCap = 10

// MentalState is the exclusive all-out/resolute/conserve state.
type MentalState string

const (
	StateNone     MentalState = "none"
	StateConserve MentalState = "conserve"
	StateResolute MentalState = "resolute"
	StateAllOut   MentalState = "allout"
)

// stateBuff maps a mental state to its backing buff id.
func stateBuff(m MentalState) string {
	switch m {
	case StateAllOut:
		return BuffAllOutState
	case StateResolute:
		return BuffResoluteState
	case StateConserve:
		return BuffConserveState
	}
	return ""
}

// multiplier returns the exclusive state score multiplier.
func (m MentalState) multiplier() float64 {
	switch m {
	case StateAllOut:
		return 3.0
	case StateResolute:
		return 2.0
	case StateConserve:
		return 0.5
	}
	return 1.0
}

// State is the single mutable aggregate of one battle session. It is
// mutated exclusively through the action executor and the turn controller.
type State struct {
	Genki      int
	MaxGenki   int
	Stamina    int
	MaxStamina int

	Score int

	Turn     int
	MaxTurns int

	PlaysThisTurn int
	PlayLimit     int
	TotalPlays    int

	Buffs *buffs.Store
	Zones *zones.Manager
}

// NewState creates the aggregate for a session starting at turn 1.
func NewState(genki, maxGenki, stamina, maxStamina, maxTurns, playLimit int, deck []zones.Instance) *State {
	return &State{
		Genki:      genki,
		MaxGenki:   maxGenki,
		Stamina:    stamina,
		MaxStamina: maxStamina,
		Turn:       1,
		MaxTurns:   maxTurns,
		PlayLimit:  playLimit,
		Buffs:      buffs.NewStore(),
		Zones:      zones.NewManager(deck),
	}
}

// Mental derives the current exclusive state from the backing buffs.
func (s *State) Mental() MentalState {
	switch {
	case s.Buffs.Has(BuffAllOutState):
		return StateAllOut
	case s.Buffs.Has(BuffResoluteState):
		return StateResolute
	case s.Buffs.Has(BuffConserveState):
		return StateConserve
	}
	return StateNone
}

// SwitchMental is the single guarded transition between the exclusive
// mental states. It removes the other state buffs, sets the target one and
// bumps the switch counters. All state changes, whether from cards or the
// overflow rule, go through here, keeping exclusivity in one place.
func (s *State) SwitchMental(to MentalState) (from MentalState, changed bool) {
	from = s.Mental()
	if from == to {
		return from, false
	}
	for _, id := range []string{BuffAllOutState, BuffResoluteState, BuffConserveState} {
		s.Buffs.Remove(id)
	}
	if id := stateBuff(to); id != "" {
		s.Buffs.Add(id, 1, buffs.PermanentDuration)
		s.Buffs.IncrementSwitch(string(to))
	}
	return from, true
}

// AdjustGenki changes genki by delta, clamped to [0, MaxGenki].
// Returns the value before and after.
func (s *State) AdjustGenki(delta int) (before, after int) {
	before = s.Genki
	s.Genki = clampInt(s.Genki+delta, 0, s.MaxGenki)
	return before, s.Genki
}

// AdjustStamina changes stamina by delta, clamped to [0, MaxStamina].
func (s *State) AdjustStamina(delta int) (before, after int) {
	before = s.Stamina
	s.Stamina = clampInt(s.Stamina+delta, 0, s.MaxStamina)
	return before, s.Stamina
}

// CanPay reports whether the state can cover a genki cost, spilling the
// shortfall onto stamina.
func (s *State) CanPay(genkiCost int) bool {
	if genkiCost <= s.Genki {
		return true
	}
	return genkiCost-s.Genki <= s.Stamina
}

// Pay deducts a genki cost, genki first, stamina covering the shortfall.
// The caller must have checked CanPay.
func (s *State) Pay(genkiCost int) (genkiSpent, staminaSpent int) {
	genkiSpent = genkiCost
	if genkiSpent > s.Genki {
		genkiSpent = s.Genki
	}
	staminaSpent = genkiCost - genkiSpent
	s.Genki -= genkiSpent
	s.Stamina -= staminaSpent
	return genkiSpent, staminaSpent
}

// Clone deep-copies the state aggregate, for dry runs and serialization.
func (s *State) Clone() *State {
	c := *s
	c.Buffs = s.Buffs.Copy()
	zm := zones.NewManager(nil)
	zm.Restore(s.Zones.Snapshot())
	c.Zones = zm
	return &c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
