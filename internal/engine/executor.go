package engine

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/buffs"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
	"github.com/hatsuboshi/lesson-engine/internal/engine/hooks"
	"github.com/hatsuboshi/lesson-engine/internal/engine/rng"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

// maxPlayDepth bounds card-plays-card chains so a content loop cannot hang
// a session.
const maxPlayDepth = 8

// executor is the only component that mutates battle state. It interprets
// atomic actions, calls into the state/zone/buff managers and appends an
// event per player-visible change. It is also the panic containment
// boundary: nothing in card play escapes it.
type executor struct {
	state  *State
	set    *cards.Set
	eval   *expr.Evaluator
	src    rng.Source
	hooks  *hooks.Manager
	log    *events.Log
	logger *zap.Logger

	playDepth int
}

func newExecutor(state *State, set *cards.Set, eval *expr.Evaluator, src rng.Source, hm *hooks.Manager, log *events.Log, logger *zap.Logger) *executor {
	return &executor{
		state:  state,
		set:    set,
		eval:   eval,
		src:    src,
		hooks:  hm,
		log:    log,
		logger: logger,
	}
}

// Execute runs one atomic action inside the containment boundary. cardName
// is the display name of the card whose logic is running, empty for hook
// actions.
func (x *executor) Execute(a cards.AtomicAction, cardName string) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("action execution panicked",
				zap.String("kind", string(a.Kind)),
				zap.String("card", cardName),
				zap.Any("panic", r),
			)
			x.log.Append(events.EventExecutorError, map[string]any{
				"kind": string(a.Kind),
				"card": cardName,
			})
		}
	}()
	x.execute(a, cardName)
}

func (x *executor) ctx(cardName string) *Context {
	return BuildContext(x.state, x.src, cardName)
}

func (x *executor) execute(a cards.AtomicAction, cardName string) {
	s := x.state
	switch a.Kind {
	case cards.ActionGainScore:
		env := x.ctx(cardName)
		base := x.eval.Number(a.Value.Node, env)
		if !a.Multiplier.IsZero() {
			base *= x.eval.Number(a.Multiplier.Node, env)
		}
		gained := x.applyScorePipeline(base)
		s.Score += gained
		x.log.Append(events.EventScoreGained, map[string]any{
			"base":   base,
			"gained": gained,
			"score":  s.Score,
		})

	case cards.ActionModifyGenki:
		delta := int(x.eval.Number(a.Value.Node, x.ctx(cardName)))
		before, after := s.AdjustGenki(delta)
		x.log.Append(events.EventGenkiChanged, map[string]any{
			"before": before, "after": after, "delta": delta,
		})

	case cards.ActionModifyStamina:
		delta := int(x.eval.Number(a.Value.Node, x.ctx(cardName)))
		before, after := s.AdjustStamina(delta)
		x.log.Append(events.EventStaminaChanged, map[string]any{
			"before": before, "after": after, "delta": delta,
		})

	case cards.ActionAddBuff:
		x.addBuff(a, cardName)

	case cards.ActionRemoveBuff:
		if isStateBuff(a.Buff) {
			// Removing an inactive state is the same no-op as removing any
			// zero-stack buff; only the active state goes through the
			// guarded transition.
			if stateForBuff(a.Buff) == s.Mental() {
				x.switchMental(StateNone, "")
			}
			return
		}
		stacks := s.Buffs.Remove(a.Buff)
		if stacks > 0 {
			x.log.Append(events.EventBuffRemoved, map[string]any{
				"buff": a.Buff, "stacks": stacks,
			})
		}

	case cards.ActionConsumeBuff:
		// State buffs never leave through the raw store, so consuming one
		// is a removal through the guarded transition.
		if isStateBuff(a.Buff) {
			if stateForBuff(a.Buff) == s.Mental() {
				x.switchMental(StateNone, "")
			}
			return
		}
		consumed := s.Buffs.Consume(a.Buff, a.Count)
		x.log.Append(events.EventBuffConsumed, map[string]any{
			"buff": a.Buff, "consumed": consumed, "remaining": s.Buffs.RawStacks(a.Buff),
		})

	case cards.ActionAddTag:
		s.Buffs.AddTag(a.Tag, a.Turns)
		x.log.Append(events.EventTagAdded, map[string]any{
			"tag": a.Tag, "turns": a.Turns,
		})

	case cards.ActionRemoveTag:
		s.Buffs.RemoveTag(a.Tag)
		x.log.Append(events.EventTagRemoved, map[string]any{"tag": a.Tag})

	case cards.ActionDrawCards:
		x.draw(a.Count)

	case cards.ActionModifyPlayLimit:
		before := s.PlayLimit
		s.PlayLimit += a.Delta
		if s.PlayLimit < 0 {
			s.PlayLimit = 0
		}
		x.log.Append(events.EventPlayLimitChanged, map[string]any{
			"before": before, "after": s.PlayLimit,
		})

	case cards.ActionModifyMaxTurns:
		before := s.MaxTurns
		s.MaxTurns += a.Delta
		if s.MaxTurns < s.Turn {
			s.MaxTurns = s.Turn
		}
		x.log.Append(events.EventMaxTurnsChanged, map[string]any{
			"before": before, "after": s.MaxTurns,
		})

	case cards.ActionPlayCardFromZone:
		x.playFromZone(a)

	case cards.ActionMoveCard:
		count := a.Count
		if count == 0 {
			count = 1
		}
		moved := s.Zones.MoveMatching(zones.Zone(a.Zone), zones.Zone(a.To), x.filter(a.Filter), count)
		for _, inst := range moved {
			x.log.Append(events.EventCardMoved, map[string]any{
				"instance": inst.InstanceID, "template": inst.TemplateID,
				"from": a.Zone, "to": a.To,
			})
		}

	case cards.ActionSetBuffMultiplier:
		duration := a.Duration
		if duration == 0 {
			duration = buffs.PermanentDuration
		}
		s.Buffs.SetMultiplier(a.Buff, a.Percent, duration)
		x.log.Append(events.EventMultiplierSet, map[string]any{
			"buff": a.Buff, "percent": a.Percent, "duration": duration,
		})

	case cards.ActionRegisterHook:
		id := x.hooks.Register(*a.Hook)
		x.log.Append(events.EventHookRegistered, map[string]any{
			"hook": id, "trigger": string(a.Hook.Trigger),
		})

	case cards.ActionPlayRandomCards:
		x.playRandom(a)

	default:
		// Validation rejects unknown kinds at load time; reaching here
		// means content bypassed the loader.
		x.logger.Error("unknown action kind reached executor", zap.String("kind", string(a.Kind)))
		x.log.Append(events.EventExecutorError, map[string]any{"kind": string(a.Kind)})
	}
}

func isStateBuff(id string) bool {
	return id == BuffAllOutState || id == BuffResoluteState || id == BuffConserveState
}

func stateForBuff(id string) MentalState {
	switch id {
	case BuffAllOutState:
		return StateAllOut
	case BuffResoluteState:
		return StateResolute
	case BuffConserveState:
		return StateConserve
	}
	return StateNone
}

func (x *executor) addBuff(a cards.AtomicAction, cardName string) {
	s := x.state

	// Mental-state buffs go through the guarded transition, never the raw
	// store, so exclusivity cannot drift.
	if isStateBuff(a.Buff) {
		x.switchMental(stateForBuff(a.Buff), cardName)
		return
	}

	stacks := 1
	if !a.Value.IsZero() {
		stacks = int(x.eval.Number(a.Value.Node, x.ctx(cardName)))
	}
	duration := a.Duration
	if duration == 0 {
		duration = buffs.PermanentDuration
	}
	before, after := s.Buffs.Add(a.Buff, stacks, duration)

	// The full-power gauge is capped; overflow is checked at the turn
	// boundary, not here.
	if a.Buff == BuffFullPower && after > FullPowerCap {
		s.Buffs.Consume(BuffFullPower, after-FullPowerCap)
		after = FullPowerCap
	}

	x.log.Append(events.EventBuffAdded, map[string]any{
		"buff": a.Buff, "before": before, "after": after, "duration": duration,
	})
}

// switchMental runs the guarded transition and fires the state-switch
// hooks, emitting the add/remove events for the backing buffs.
func (x *executor) switchMental(to MentalState, cardName string) {
	s := x.state
	from, changed := s.SwitchMental(to)
	if !changed {
		return
	}
	if id := stateBuff(from); id != "" {
		x.log.Append(events.EventBuffRemoved, map[string]any{"buff": id, "stacks": 1})
	}
	if id := stateBuff(to); id != "" {
		x.log.Append(events.EventBuffAdded, map[string]any{
			"buff": id, "before": 0, "after": 1, "duration": buffs.PermanentDuration,
		})
	}
	x.log.Append(events.EventStateSwitched, map[string]any{
		"from": string(from), "to": string(to),
	})
	x.fireHooks(cards.TriggerStateSwitch, cardName)
}

// fireHooks triggers matching hooks and executes their action lists.
func (x *executor) fireHooks(trigger cards.Trigger, cardName string) {
	fired, expired := x.hooks.Fire(trigger, x.ctx(cardName))
	for _, f := range fired {
		x.log.Append(events.EventHookFired, map[string]any{
			"hook": f.HookID, "trigger": string(trigger),
		})
		for _, a := range f.Actions {
			x.Execute(a, "")
		}
	}
	for _, id := range expired {
		x.log.Append(events.EventHookExpired, map[string]any{"hook": id})
	}
}

func (x *executor) draw(n int) {
	drawn, reshuffled := x.state.Zones.Draw(n, x.src)
	if reshuffled {
		x.log.Append(events.EventDeckReshuffle, map[string]any{
			"deck": x.state.Zones.Count(zones.ZoneDeck) + len(drawn),
		})
	}
	if len(drawn) == 0 {
		return
	}
	ids := make([]string, len(drawn))
	for i, c := range drawn {
		ids[i] = c.InstanceID
	}
	x.log.Append(events.EventCardsDrawn, map[string]any{
		"count": len(drawn), "instances": ids,
	})
}

// filter lowers a card content filter into a zone predicate, resolving
// template fields through the card set.
func (x *executor) filter(f *cards.CardFilter) zones.Filter {
	if f == nil {
		return nil
	}
	return func(inst zones.Instance) bool {
		if f.Rarity != "" && inst.Rarity != f.Rarity {
			return false
		}
		if f.Type == "" && f.Plan == "" && f.Name == "" {
			return true
		}
		tpl, ok := x.set.Get(inst.TemplateID)
		if !ok {
			return false
		}
		if f.Type != "" && tpl.Type != f.Type {
			return false
		}
		if f.Plan != "" && tpl.Plan != f.Plan {
			return false
		}
		if f.Name != "" && tpl.Name != f.Name {
			return false
		}
		return true
	}
}

func (x *executor) playFromZone(a cards.AtomicAction) {
	zone := zones.Zone(a.Zone)
	var target *zones.Instance
	if a.Card != "" {
		for _, c := range x.state.Zones.Matching(zone, nil) {
			if c.InstanceID == a.Card {
				inst := c
				target = &inst
				break
			}
		}
	} else if matches := x.state.Zones.Matching(zone, x.filter(a.Filter)); len(matches) > 0 {
		target = &matches[0]
	}
	if target == nil {
		return
	}
	if err := x.playInstance(*target, zone, a.Free); err != nil {
		x.logger.Warn("nested card play skipped", zap.String("instance", target.InstanceID), zap.Error(err))
	}
}

func (x *executor) playRandom(a cards.AtomicAction) {
	zone := zones.Zone(a.Zone)
	for i := 0; i < a.Count; i++ {
		matches := x.state.Zones.Matching(zone, x.filter(a.Filter))
		if len(matches) == 0 {
			return
		}
		pick := matches[x.src.Intn(len(matches))]
		if err := x.playInstance(pick, zone, a.Free); err != nil {
			x.logger.Warn("random card play skipped", zap.String("instance", pick.InstanceID), zap.Error(err))
			return
		}
	}
}

// playInstance resolves one card play: cost, logic chain, the move to
// discard and the card-played hooks. It is shared by the public PlayCard
// operation and the nested play actions.
func (x *executor) playInstance(inst zones.Instance, from zones.Zone, free bool) error {
	s := x.state

	if x.playDepth >= maxPlayDepth {
		return fmt.Errorf("play chain exceeds depth %d", maxPlayDepth)
	}

	tpl, ok := x.set.Get(inst.TemplateID)
	if !ok {
		return fmt.Errorf("%w: template %s", ErrCardNotFound, inst.TemplateID)
	}

	if !free {
		if s.Buffs.HasTag(TagNoPlay) {
			return ErrPlaysBlocked
		}
		if s.PlaysThisTurn >= s.PlayLimit {
			return ErrPlayLimitReached
		}
		if !s.CanPay(tpl.Cost.Genki) {
			return fmt.Errorf("%w: cost %d, genki %d, stamina %d",
				ErrInsufficientResources, tpl.Cost.Genki, s.Genki, s.Stamina)
		}
		genkiSpent, staminaSpent := s.Pay(tpl.Cost.Genki)
		if genkiSpent > 0 {
			x.log.Append(events.EventGenkiChanged, map[string]any{
				"before": s.Genki + genkiSpent, "after": s.Genki, "delta": -genkiSpent,
			})
		}
		if staminaSpent > 0 {
			x.log.Append(events.EventStaminaChanged, map[string]any{
				"before": s.Stamina + staminaSpent, "after": s.Stamina, "delta": -staminaSpent,
			})
		}
	}

	x.log.Append(events.EventCardPlayed, map[string]any{
		"instance": inst.InstanceID, "template": tpl.ID, "name": tpl.Name,
		"enhanced": inst.Enhanced, "free": free, "zone": string(from),
	})

	x.playDepth++
	for _, step := range tpl.Chain(inst.Enhanced) {
		if !x.eval.Condition(step.When.Node, x.ctx(tpl.Name)) {
			continue
		}
		for _, a := range step.Do {
			x.Execute(a, tpl.Name)
		}
	}
	x.playDepth--

	// The card may have moved itself (or been reshuffled) during its own
	// logic; only settle it into the discard pile if it is still where it
	// was played from.
	if _, z, found := s.Zones.Find(inst.InstanceID); found && z == from {
		if _, err := s.Zones.Move(inst.InstanceID, from, zones.ZoneDiscard, nil); err == nil {
			x.log.Append(events.EventCardMoved, map[string]any{
				"instance": inst.InstanceID, "template": tpl.ID,
				"from": string(from), "to": string(zones.ZoneDiscard),
			})
		}
	}

	if !free {
		s.PlaysThisTurn++
	}
	s.TotalPlays++

	x.fireHooks(cards.TriggerCardPlayed, tpl.Name)
	return nil
}

// applyScorePipeline runs the fixed score-gain ordering. The ordering is
// load-bearing for balance; reordering any stage changes outcomes.
func (x *executor) applyScorePipeline(base float64) int {
	b := x.state.Buffs
	v := base

	// Flat per-stack bonuses, effective view.
	v += float64(b.EffectiveStacks(BuffConcentration))
	v += float64(b.EffectiveStacks(BuffMotivation))

	// Condition bonus: good condition 1.5x, excellent condition adds 0.1x
	// per raw good-condition stack on top.
	if b.Has(BuffGoodCondition) {
		cond := 1.5
		if b.Has(BuffExcellentCondition) {
			cond += 0.1 * float64(b.RawStacks(BuffGoodCondition))
		}
		v *= cond
	}

	// Exclusive mental state multiplier.
	v *= x.state.Mental().multiplier()

	// Generic percentage buffs, final multiplier before bonus.
	if pct := b.RawStacks(BuffFinalMultiplier); pct != 0 {
		v *= 1 + float64(pct)/100
	}
	if pct := b.RawStacks(BuffScoreBonus); pct != 0 {
		v *= 1 + float64(pct)/100
	}

	if v < 0 {
		v = 0
	}
	return int(math.Floor(v))
}
