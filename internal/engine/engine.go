package engine

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
	"github.com/hatsuboshi/lesson-engine/internal/engine/hooks"
	"github.com/hatsuboshi/lesson-engine/internal/engine/rng"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

var (
	// ErrCardNotFound means the instance id is not in the expected zone.
	ErrCardNotFound = errors.New("card not found")
	// ErrInsufficientResources means genki plus stamina cannot cover a cost.
	ErrInsufficientResources = errors.New("insufficient resources")
	// ErrPlayLimitReached means this turn's play budget is spent.
	ErrPlayLimitReached = errors.New("play limit reached")
	// ErrPlaysBlocked means a tag currently forbids card plays.
	ErrPlaysBlocked = errors.New("plays blocked")
	// ErrSessionOver means the turn cap was reached.
	ErrSessionOver = errors.New("session over")
)

// DeckEntry puts Count copies of a card template into the opening deck.
type DeckEntry struct {
	CardID   string `yaml:"card_id" json:"card_id" mapstructure:"card_id"`
	Count    int    `yaml:"count" json:"count" mapstructure:"count"`
	Enhanced bool   `yaml:"enhanced,omitempty" json:"enhanced,omitempty" mapstructure:"enhanced"`
}

// Config holds the per-session parameters.
type Config struct {
	InitialGenki   int         `yaml:"initial_genki"`
	MaxGenki       int         `yaml:"max_genki"`
	InitialStamina int         `yaml:"initial_stamina"`
	MaxStamina     int         `yaml:"max_stamina"`
	MaxTurns       int         `yaml:"max_turns"`
	HandSize       int         `yaml:"hand_size"`
	PlayLimit      int         `yaml:"play_limit"`
	Seed           int64       `yaml:"seed"`
	Deck           []DeckEntry `yaml:"deck"`
}

// Normalize fills unset fields with the standard session parameters.
func (c *Config) Normalize() {
	if c.MaxGenki == 0 {
		c.MaxGenki = 50
	}
	if c.MaxStamina == 0 {
		c.MaxStamina = 30
	}
	if c.InitialStamina == 0 {
		c.InitialStamina = c.MaxStamina
	}
	if c.MaxTurns == 0 {
		c.MaxTurns = 8
	}
	if c.HandSize == 0 {
		c.HandSize = 3
	}
	if c.PlayLimit == 0 {
		c.PlayLimit = 1
	}
}

// Engine runs one battle session. It is single-threaded by design: one
// logical thread of control mutates the session, and every mutation goes
// through the action executor or the turn controller.
type Engine struct {
	logger *zap.Logger
	set    *cards.Set
	src    rng.Source
	seed   int64
	eval   *expr.Evaluator
	state  *State
	hooks  *hooks.Manager
	log    *events.Log
	exec   *executor
	turn   *turnController

	finished bool
}

// New constructs a session: validates the deck against the card set,
// shuffles it and draws the opening hand.
func New(cfg Config, set *cards.Set, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Normalize()
	if set == nil || set.Len() == 0 {
		return nil, fmt.Errorf("card set is empty")
	}
	if len(cfg.Deck) == 0 {
		return nil, fmt.Errorf("deck is empty")
	}

	var deck []zones.Instance
	for _, entry := range cfg.Deck {
		tpl, ok := set.Get(entry.CardID)
		if !ok {
			return nil, fmt.Errorf("%w: deck references unknown card %s", ErrCardNotFound, entry.CardID)
		}
		count := entry.Count
		if count <= 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			deck = append(deck, zones.Instance{
				InstanceID: uuid.NewString(),
				TemplateID: tpl.ID,
				Rarity:     tpl.Rarity,
				Enhanced:   entry.Enhanced,
			})
		}
	}

	src := rng.New(cfg.Seed)
	eval := expr.NewEvaluator(logger)
	state := NewState(cfg.InitialGenki, cfg.MaxGenki, cfg.InitialStamina, cfg.MaxStamina, cfg.MaxTurns, cfg.PlayLimit, deck)
	hm := hooks.NewManager(eval)
	log := events.NewLog()
	exec := newExecutor(state, set, eval, src, hm, log, logger)

	e := &Engine{
		logger: logger,
		set:    set,
		src:    src,
		seed:   cfg.Seed,
		eval:   eval,
		state:  state,
		hooks:  hm,
		log:    log,
		exec:   exec,
		turn:   &turnController{x: exec, drawPerTurn: cfg.HandSize},
	}

	state.Zones.Shuffle(src)
	log.Append(events.EventSessionStarted, map[string]any{
		"turns": cfg.MaxTurns, "deck": len(deck), "seed": cfg.Seed,
	})
	exec.draw(cfg.HandSize)

	logger.Info("session started",
		zap.Int("deck_size", len(deck)),
		zap.Int("max_turns", cfg.MaxTurns),
		zap.Int64("seed", cfg.Seed),
	)
	return e, nil
}

// PlayCard plays a card from hand by instance id. On a typed failure
// (unknown card, blocked plays, spent play budget, unpayable cost) the
// state is left untouched and no events are emitted.
func (e *Engine) PlayCard(instanceID string) ([]events.Event, error) {
	if e.finished {
		return nil, ErrSessionOver
	}
	inst, zone, found := e.state.Zones.Find(instanceID)
	if !found || zone != zones.ZoneHand {
		return nil, fmt.Errorf("%w: %s is not in hand", ErrCardNotFound, instanceID)
	}
	mark := e.log.Len()
	if err := e.exec.playInstance(inst, zones.ZoneHand, false); err != nil {
		return nil, err
	}
	return e.log.Since(mark), nil
}

// EndTurn advances the session across one turn boundary and returns the
// events it emitted. After the final turn the session is finished and
// further calls return nothing.
func (e *Engine) EndTurn() []events.Event {
	if e.finished {
		return nil
	}
	mark := e.log.Len()
	if !e.turn.EndTurn() {
		e.finished = true
		e.logger.Info("session finished", zap.Int("score", e.state.Score))
	}
	return e.log.Since(mark)
}

// Snapshot returns a read-only view of the current battle state.
func (e *Engine) Snapshot() *Context {
	return BuildContext(e.state, e.src, "")
}

// Hand returns the card instances currently in hand, in draw order.
func (e *Engine) Hand() []zones.Instance {
	return e.state.Zones.Cards(zones.ZoneHand)
}

// Events returns the full event log so far.
func (e *Engine) Events() []events.Event {
	return e.log.All()
}

// EventsSince returns the events recorded after the given cursor.
func (e *Engine) EventsSince(cursor int) []events.Event {
	return e.log.Since(cursor)
}

// Finished reports whether the turn cap was reached.
func (e *Engine) Finished() bool {
	return e.finished
}

// PredictScore dry-runs a hand card's logic chain against a copy of the
// state and reports the score it would gain, without mutating the session,
// consuming randomness or emitting events. Random draws in the preview
// resolve to zero.
func (e *Engine) PredictScore(instanceID string) (int, error) {
	inst, zone, found := e.state.Zones.Find(instanceID)
	if !found || zone != zones.ZoneHand {
		return 0, fmt.Errorf("%w: %s is not in hand", ErrCardNotFound, instanceID)
	}
	tpl, ok := e.set.Get(inst.TemplateID)
	if !ok {
		return 0, fmt.Errorf("%w: template %s", ErrCardNotFound, inst.TemplateID)
	}

	clone := e.state.Clone()
	previewHooks := hooks.NewManager(e.eval)
	previewHooks.Restore(e.hooks.Active())
	preview := newExecutor(clone, e.set, e.eval, &rng.Scripted{}, previewHooks, events.NewLog(), zap.NewNop())

	before := clone.Score
	preview.playDepth = 1 // keep nested plays bounded the same way
	for _, step := range tpl.Chain(inst.Enhanced) {
		if !e.eval.Condition(step.When.Node, BuildContext(clone, preview.src, tpl.Name)) {
			continue
		}
		for _, a := range step.Do {
			preview.Execute(a, tpl.Name)
		}
	}
	return clone.Score - before, nil
}
