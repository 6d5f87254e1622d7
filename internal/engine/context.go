package engine

import (
	"github.com/hatsuboshi/lesson-engine/internal/engine/buffs"
	"github.com/hatsuboshi/lesson-engine/internal/engine/rng"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

// Context is an immutable snapshot of one battle state, assembled for
// expression evaluation, hook filtering and external inspection. It never
// reaches back into the live state.
type Context struct {
	Genki         int
	MaxGenki      int
	Stamina       int
	MaxStamina    int
	Score         int
	Turn          int
	MaxTurns      int
	PlaysThisTurn int
	PlayLimit     int
	TotalPlays    int
	Mental        MentalState

	Buffs         []buffs.Buff
	Tags          []buffs.Tag
	ZoneCounts    map[zones.Zone]int
	RarityCounts  map[string]int
	SwitchCounts  map[string]int
	TotalSwitches int

	// CardName is the display name of the card under evaluation; empty
	// outside card logic.
	CardName string

	buffIndex map[string]buffs.Buff
	src       rng.Source
}

// BuildContext assembles a snapshot from the state, the session randomness
// source and the card currently being evaluated.
func BuildContext(s *State, src rng.Source, cardName string) *Context {
	allBuffs := s.Buffs.All()
	index := make(map[string]buffs.Buff, len(allBuffs))
	for _, b := range allBuffs {
		index[b.ID] = b
	}
	zc := make(map[zones.Zone]int, 5)
	for _, z := range []zones.Zone{zones.ZoneDeck, zones.ZoneHand, zones.ZoneDiscard, zones.ZoneReserve, zones.ZoneRemoved} {
		zc[z] = s.Zones.Count(z)
	}
	return &Context{
		Genki:         s.Genki,
		MaxGenki:      s.MaxGenki,
		Stamina:       s.Stamina,
		MaxStamina:    s.MaxStamina,
		Score:         s.Score,
		Turn:          s.Turn,
		MaxTurns:      s.MaxTurns,
		PlaysThisTurn: s.PlaysThisTurn,
		PlayLimit:     s.PlayLimit,
		TotalPlays:    s.TotalPlays,
		Mental:        s.Mental(),
		Buffs:         allBuffs,
		Tags:          s.Buffs.Tags(),
		ZoneCounts:    zc,
		RarityCounts:  s.Zones.RarityCounts(),
		SwitchCounts:  s.Buffs.SwitchCounts(),
		TotalSwitches: s.Buffs.TotalSwitches(),
		CardName:      cardName,
		buffIndex:     index,
		src:           src,
	}
}

// Var resolves the named numeric context variables the expression language
// exposes.
func (c *Context) Var(name string) (float64, bool) {
	switch name {
	case "genki":
		return float64(c.Genki), true
	case "maxGenki":
		return float64(c.MaxGenki), true
	case "stamina":
		return float64(c.Stamina), true
	case "maxStamina":
		return float64(c.MaxStamina), true
	case "score":
		return float64(c.Score), true
	case "turn":
		return float64(c.Turn), true
	case "maxTurns":
		return float64(c.MaxTurns), true
	case "remainingTurns":
		return float64(c.MaxTurns - c.Turn), true
	case "playsThisTurn":
		return float64(c.PlaysThisTurn), true
	case "playLimit":
		return float64(c.PlayLimit), true
	case "totalPlays":
		return float64(c.TotalPlays), true
	case "totalSwitches":
		return float64(c.TotalSwitches), true
	case "deckCount":
		return float64(c.ZoneCounts[zones.ZoneDeck]), true
	case "handCount":
		return float64(c.ZoneCounts[zones.ZoneHand]), true
	case "discardCount":
		return float64(c.ZoneCounts[zones.ZoneDiscard]), true
	case "reserveCount":
		return float64(c.ZoneCounts[zones.ZoneReserve]), true
	case "removedCount":
		return float64(c.ZoneCounts[zones.ZoneRemoved]), true
	}
	return 0, false
}

// HasTag reports whether the tag was set when the snapshot was taken.
func (c *Context) HasTag(id string) bool {
	for _, t := range c.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// HasBuff reports whether the buff had at least one raw stack.
func (c *Context) HasBuff(id string) bool {
	return c.buffIndex[id].Stacks > 0
}

// BuffStacks returns the raw stack view; conditions always read raw.
func (c *Context) BuffStacks(id string) int {
	return c.buffIndex[id].Stacks
}

// BuffDuration returns the remaining duration of a buff.
func (c *Context) BuffDuration(id string) int {
	return c.buffIndex[id].Duration
}

// EffectiveStacks returns the multiplier-adjusted stack view used by value
// calculations. The multiplier buffs are part of the snapshot, so this
// stays consistent with the moment the snapshot was taken.
func (c *Context) EffectiveStacks(id string) int {
	raw := c.buffIndex[id].Stacks
	pct := c.buffIndex[buffs.MultiplierPrefix+id].Stacks
	if pct == 0 {
		return raw
	}
	return raw * pct / 100
}

// RarityInHand returns how many cards of the rarity were in hand.
func (c *Context) RarityInHand(rarity string) int {
	return c.RarityCounts[rarity]
}

// SwitchCount returns how many times the named state was entered.
func (c *Context) SwitchCount(state string) int {
	return c.SwitchCounts[state]
}

// Rand draws from the session's single randomness source.
func (c *Context) Rand() float64 {
	if c.src == nil {
		return 0
	}
	return c.src.Float64()
}

// NameMatches reports whether the card under evaluation has the given name.
func (c *Context) NameMatches(name string) bool {
	return c.CardName != "" && c.CardName == name
}
