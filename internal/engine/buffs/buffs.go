// Package buffs owns the buff, tag and switch-counter bookkeeping of one
// battle. It exposes raw stacks for condition checks and effective stacks
// for value calculations; both read the same underlying store.
package buffs

// MultiplierPrefix marks buffs that act as value multipliers for another
// buff. The suffix is the target buff id; Stacks hold the multiplier as a
// percentage (200 means the target's effective stacks read doubled).
const MultiplierPrefix = "valueMult:"

// PermanentDuration marks a buff that persists until explicitly removed.
const PermanentDuration = -1

// Buff is one named stacking modifier on the battle state.
type Buff struct {
	ID       string `json:"id"`
	Stacks   int    `json:"stacks"`
	Duration int    `json:"duration"` // -1 persists; >0 decays one per turn
}

// Copy creates a copy of the buff.
func (b *Buff) Copy() *Buff {
	c := *b
	return &c
}

// Tag is a lightweight boolean marker, optionally expiring.
type Tag struct {
	ID             string `json:"id"`
	RemainingTurns int    `json:"remaining_turns"` // 0 = permanent
}

// Store manages the buff map, tag set and switch counters.
// At most one Buff instance exists per id; additions merge.
type Store struct {
	buffs         map[string]*Buff
	tags          map[string]*Tag
	switches      map[string]int
	totalSwitches int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		buffs:    make(map[string]*Buff),
		tags:     make(map[string]*Tag),
		switches: make(map[string]int),
	}
}

// Add merges stacks and duration into the buff with the given id, creating
// it if absent. A permanent duration on either side keeps the buff
// permanent; otherwise positive durations accumulate. Returns the raw stack
// count before and after.
func (s *Store) Add(id string, stacks, duration int) (before, after int) {
	b, ok := s.buffs[id]
	if !ok {
		if stacks < 0 {
			stacks = 0
		}
		s.buffs[id] = &Buff{ID: id, Stacks: stacks, Duration: duration}
		return 0, stacks
	}
	before = b.Stacks
	b.Stacks += stacks
	if b.Stacks < 0 {
		b.Stacks = 0
	}
	if b.Duration == PermanentDuration || duration == PermanentDuration {
		b.Duration = PermanentDuration
	} else if duration > 0 {
		b.Duration += duration
	}
	return before, b.Stacks
}

// Remove deletes the buff outright. Removing an absent buff is a no-op.
// Returns the raw stacks that were present.
func (s *Store) Remove(id string) int {
	b, ok := s.buffs[id]
	if !ok {
		return 0
	}
	delete(s.buffs, id)
	return b.Stacks
}

// Consume removes up to n stacks from the buff and purges it when the last
// stack goes. Returns how many stacks were actually consumed.
func (s *Store) Consume(id string, n int) int {
	if n <= 0 {
		return 0
	}
	b, ok := s.buffs[id]
	if !ok {
		return 0
	}
	if n > b.Stacks {
		n = b.Stacks
	}
	b.Stacks -= n
	if b.Stacks == 0 {
		delete(s.buffs, id)
	}
	return n
}

// Has reports whether the buff is present with at least one stack.
func (s *Store) Has(id string) bool {
	return s.RawStacks(id) > 0
}

// RawStacks returns the stack count as stored. Condition checks such as
// "own at least 9 stacks of X" read this view.
func (s *Store) RawStacks(id string) int {
	if b, ok := s.buffs[id]; ok {
		return b.Stacks
	}
	return 0
}

// EffectiveStacks returns the stack count after any registered value
// multiplier for the buff is applied. Score and value formulas read this
// view; it never feeds back into the stored stacks.
func (s *Store) EffectiveStacks(id string) int {
	raw := s.RawStacks(id)
	pct := s.RawStacks(MultiplierPrefix + id)
	if pct == 0 {
		return raw
	}
	return raw * pct / 100
}

// Duration returns the remaining duration of the buff, 0 if absent.
func (s *Store) Duration(id string) int {
	if b, ok := s.buffs[id]; ok {
		return b.Duration
	}
	return 0
}

// SetMultiplier registers a value multiplier for the target buff, expressed
// as a percentage. The multiplier is itself a buff so it decays through the
// same turn boundary as everything else.
func (s *Store) SetMultiplier(target string, percent, duration int) {
	id := MultiplierPrefix + target
	s.buffs[id] = &Buff{ID: id, Stacks: percent, Duration: duration}
}

// AddTag sets a tag, refreshing its expiry if already present.
// turns 0 means the tag is permanent.
func (s *Store) AddTag(id string, turns int) {
	s.tags[id] = &Tag{ID: id, RemainingTurns: turns}
}

// RemoveTag clears a tag; absent tags are a no-op.
func (s *Store) RemoveTag(id string) {
	delete(s.tags, id)
}

// HasTag reports whether the tag is set.
func (s *Store) HasTag(id string) bool {
	_, ok := s.tags[id]
	return ok
}

// Tags returns a copy of all set tags.
func (s *Store) Tags() []Tag {
	out := make([]Tag, 0, len(s.tags))
	for _, t := range s.tags {
		out = append(out, *t)
	}
	return out
}

// IncrementSwitch records one entry into the named mental state.
func (s *Store) IncrementSwitch(state string) {
	s.switches[state]++
	s.totalSwitches++
}

// SwitchCount returns how many times the named state was entered.
func (s *Store) SwitchCount(state string) int {
	return s.switches[state]
}

// TotalSwitches returns the total number of state switches.
func (s *Store) TotalSwitches() int {
	return s.totalSwitches
}

// Expired lists what a decay step purged, for event emission.
type Expired struct {
	Buffs []string
	Tags  []string
}

// DecayTurn runs the turn-boundary decay: every buff with a positive
// duration loses one turn and is purged at zero; permanent buffs are
// untouched. Tags with a positive expiry decay the same way.
func (s *Store) DecayTurn() Expired {
	var exp Expired
	for id, b := range s.buffs {
		if b.Duration <= 0 {
			continue
		}
		b.Duration--
		if b.Duration == 0 {
			delete(s.buffs, id)
			exp.Buffs = append(exp.Buffs, id)
		}
	}
	for id, t := range s.tags {
		if t.RemainingTurns <= 0 {
			continue
		}
		t.RemainingTurns--
		if t.RemainingTurns == 0 {
			delete(s.tags, id)
			exp.Tags = append(exp.Tags, id)
		}
	}
	return exp
}

// All returns a copy of every buff, multipliers included.
func (s *Store) All() []Buff {
	out := make([]Buff, 0, len(s.buffs))
	for _, b := range s.buffs {
		out = append(out, *b)
	}
	return out
}

// SwitchCounts returns a copy of the per-state switch counters.
func (s *Store) SwitchCounts() map[string]int {
	out := make(map[string]int, len(s.switches))
	for k, v := range s.switches {
		out[k] = v
	}
	return out
}

// Copy creates a deep copy of the store.
func (s *Store) Copy() *Store {
	c := NewStore()
	for id, b := range s.buffs {
		c.buffs[id] = b.Copy()
	}
	for id, t := range s.tags {
		tc := *t
		c.tags[id] = &tc
	}
	for k, v := range s.switches {
		c.switches[k] = v
	}
	c.totalSwitches = s.totalSwitches
	return c
}

// Restore replaces the store contents from serialized buffs, tags and
// switch counters.
func (s *Store) Restore(bs []Buff, ts []Tag, switches map[string]int, total int) {
	s.buffs = make(map[string]*Buff, len(bs))
	for i := range bs {
		b := bs[i]
		s.buffs[b.ID] = &b
	}
	s.tags = make(map[string]*Tag, len(ts))
	for i := range ts {
		t := ts[i]
		s.tags[t.ID] = &t
	}
	s.switches = make(map[string]int, len(switches))
	for k, v := range switches {
		s.switches[k] = v
	}
	s.totalSwitches = total
}
