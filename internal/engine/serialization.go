package engine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/buffs"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
	"github.com/hatsuboshi/lesson-engine/internal/engine/hooks"
	"github.com/hatsuboshi/lesson-engine/internal/engine/rng"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

// SessionSnapshot is the complete serializable battle state. Everything a
// resumed session needs is here; the event log is history, not state, and
// is not carried.
type SessionSnapshot struct {
	Version int `json:"version"`

	Genki         int `json:"genki"`
	MaxGenki      int `json:"max_genki"`
	Stamina       int `json:"stamina"`
	MaxStamina    int `json:"max_stamina"`
	Score         int `json:"score"`
	Turn          int `json:"turn"`
	MaxTurns      int `json:"max_turns"`
	PlaysThisTurn int `json:"plays_this_turn"`
	PlayLimit     int `json:"play_limit"`
	TotalPlays    int `json:"total_plays"`

	Seed     int64 `json:"seed"`
	HandSize int   `json:"hand_size"`
	Finished bool  `json:"finished"`

	Buffs         []buffs.Buff                    `json:"buffs"`
	Tags          []buffs.Tag                     `json:"tags"`
	SwitchCounts  map[string]int                  `json:"switch_counts,omitempty"`
	TotalSwitches int                             `json:"total_switches"`
	Zones         map[zones.Zone][]zones.Instance `json:"zones"`
	Hooks         []hooks.Hook                    `json:"hooks,omitempty"`
}

const snapshotVersion = 1

// Save serializes the session to JSON.
func (e *Engine) Save() ([]byte, error) {
	snap := e.snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func (e *Engine) snapshot() *SessionSnapshot {
	s := e.state
	return &SessionSnapshot{
		Version:       snapshotVersion,
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
		Seed:          e.seed,
		HandSize:      e.turn.drawPerTurn,
		Finished:      e.finished,
		Buffs:         s.Buffs.All(),
		Tags:          s.Buffs.Tags(),
		SwitchCounts:  s.Buffs.SwitchCounts(),
		TotalSwitches: s.Buffs.TotalSwitches(),
		Zones:         s.Zones.Snapshot(),
		Hooks:         e.hooks.Active(),
	}
}

// Load resumes a session from a snapshot produced by Save. The card set
// must contain every template the snapshot's zones reference.
func Load(data []byte, set *cards.Set, logger *zap.Logger) (*Engine, error) {
	var snap SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, insts := range snap.Zones {
		for _, inst := range insts {
			if _, ok := set.Get(inst.TemplateID); !ok {
				return nil, fmt.Errorf("%w: snapshot references unknown card %s", ErrCardNotFound, inst.TemplateID)
			}
		}
	}

	state := NewState(snap.Genki, snap.MaxGenki, snap.Stamina, snap.MaxStamina, snap.MaxTurns, snap.PlayLimit, nil)
	state.Score = snap.Score
	state.Turn = snap.Turn
	state.PlaysThisTurn = snap.PlaysThisTurn
	state.TotalPlays = snap.TotalPlays
	state.Buffs.Restore(snap.Buffs, snap.Tags, snap.SwitchCounts, snap.TotalSwitches)
	state.Zones.Restore(snap.Zones)

	src := rng.New(snap.Seed)
	eval := expr.NewEvaluator(logger)
	hm := hooks.NewManager(eval)
	hm.Restore(snap.Hooks)
	log := events.NewLog()
	exec := newExecutor(state, set, eval, src, hm, log, logger)

	return &Engine{
		logger:   logger,
		set:      set,
		src:      src,
		seed:     snap.Seed,
		eval:     eval,
		state:    state,
		hooks:    hm,
		log:      log,
		exec:     exec,
		turn:     &turnController{x: exec, drawPerTurn: snap.HandSize},
		finished: snap.Finished,
	}, nil
}

// Checksum computes a sha256 over a canonical representation of the
// snapshot, independent of map iteration order. Equal states hash equal.
func (s *SessionSnapshot) Checksum() string {
	sum := sha256.Sum256([]byte(s.canonical()))
	return hex.EncodeToString(sum[:])
}

func (s *SessionSnapshot) canonical() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "STATE:%d|%d|%d|%d|%d|%d|%d|%d|%d|%d|%t\n",
		s.Genki, s.MaxGenki, s.Stamina, s.MaxStamina, s.Score,
		s.Turn, s.MaxTurns, s.PlaysThisTurn, s.PlayLimit, s.TotalPlays, s.Finished)

	bs := make([]buffs.Buff, len(s.Buffs))
	copy(bs, s.Buffs)
	sort.Slice(bs, func(i, j int) bool { return bs[i].ID < bs[j].ID })
	for _, b := range bs {
		fmt.Fprintf(&buf, "BUFF:%s|%d|%d\n", b.ID, b.Stacks, b.Duration)
	}

	ts := make([]buffs.Tag, len(s.Tags))
	copy(ts, s.Tags)
	sort.Slice(ts, func(i, j int) bool { return ts[i].ID < ts[j].ID })
	for _, t := range ts {
		fmt.Fprintf(&buf, "TAG:%s|%d\n", t.ID, t.RemainingTurns)
	}

	states := make([]string, 0, len(s.SwitchCounts))
	for st := range s.SwitchCounts {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		fmt.Fprintf(&buf, "SWITCH:%s=%d\n", st, s.SwitchCounts[st])
	}
	fmt.Fprintf(&buf, "SWITCH_TOTAL:%d\n", s.TotalSwitches)

	// Zone order matters (deck draws from the front), so instances keep
	// their stored order; only the zone names are sorted. Instance ids are
	// arbitrary identity, not state, and stay out of the hash so two
	// sessions with the same seed and setup hash equal.
	zoneNames := make([]string, 0, len(s.Zones))
	for z := range s.Zones {
		zoneNames = append(zoneNames, string(z))
	}
	sort.Strings(zoneNames)
	for _, z := range zoneNames {
		ids := make([]string, 0, len(s.Zones[zones.Zone(z)]))
		for _, inst := range s.Zones[zones.Zone(z)] {
			id := inst.TemplateID
			if inst.Enhanced {
				id += "+"
			}
			ids = append(ids, id)
		}
		fmt.Fprintf(&buf, "ZONE:%s:%s\n", z, strings.Join(ids, ","))
	}

	// Hooks fire in registration order; keep it.
	for i, h := range s.Hooks {
		fmt.Fprintf(&buf, "HOOK:%d|%s|%s|%d|%d\n",
			i, h.Def.ID, string(h.Def.Trigger), h.TriggersLeft, h.TurnsLeft)
	}

	return buf.String()
}
