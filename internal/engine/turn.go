package engine

import (
	"math"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

// turnController sequences the end-of-turn and start-of-turn processing.
// The ordering is a contract: turn-start hooks observe the post-draw,
// post-state-transition context, and impression settlement runs before
// decay so this turn's buff values are the ones applied.
type turnController struct {
	x           *executor
	drawPerTurn int
}

// EndTurn runs one full turn boundary. It returns false when the session
// is over (the turn cap was reached).
func (tc *turnController) EndTurn() bool {
	x := tc.x
	s := x.state

	// Turn-end hooks fire against the pre-settlement context.
	x.fireHooks(cards.TriggerTurnEnd, "")

	// Good-impression settlement, bracketed by the score-calc hooks.
	x.fireHooks(cards.TriggerBeforeScoreCalc, "")
	tc.settleImpression()
	x.fireHooks(cards.TriggerAfterScoreCalc, "")

	// Heat does not survive the turn.
	if stacks := s.Buffs.Remove(BuffHeat); stacks > 0 {
		x.log.Append(events.EventBuffRemoved, map[string]any{
			"buff": BuffHeat, "stacks": stacks,
		})
	}

	// Decay buffs, tags and hooks. Settlement already ran, so this turn's
	// values were applied before anything expired.
	expired := s.Buffs.DecayTurn()
	for _, id := range expired.Buffs {
		x.log.Append(events.EventBuffExpired, map[string]any{"buff": id})
	}
	for _, id := range expired.Tags {
		x.log.Append(events.EventTagExpired, map[string]any{"tag": id})
	}
	for _, id := range x.hooks.DecayTurn() {
		x.log.Append(events.EventHookExpired, map[string]any{"hook": id})
	}

	// The hand does not carry over.
	if discarded := s.Zones.DiscardHand(); len(discarded) > 0 {
		for _, inst := range discarded {
			x.log.Append(events.EventCardMoved, map[string]any{
				"instance": inst.InstanceID, "template": inst.TemplateID,
				"from": string(zones.ZoneHand), "to": string(zones.ZoneDiscard),
			})
		}
		x.log.Append(events.EventHandDiscarded, map[string]any{"count": len(discarded)})
	}

	x.log.Append(events.EventTurnEnded, map[string]any{"turn": s.Turn})

	if s.Turn >= s.MaxTurns {
		x.log.Append(events.EventSessionEnded, map[string]any{
			"turns": s.Turn, "score": s.Score,
		})
		return false
	}

	s.Turn++
	s.PlaysThisTurn = 0
	x.log.Append(events.EventTurnStarted, map[string]any{"turn": s.Turn})

	x.draw(tc.drawPerTurn)

	tc.checkFullPowerOverflow()

	// Turn-start hooks observe the new hand and any state transition.
	x.fireHooks(cards.TriggerTurnStart, "")
	return true
}

// settleImpression converts the good-impression buff into score, applying
// the same two generic percentage buffs as the score pipeline's tail.
func (tc *turnController) settleImpression() {
	s := tc.x.state
	stacks := s.Buffs.EffectiveStacks(BuffGoodImpression)
	if stacks <= 0 {
		return
	}
	v := float64(stacks)
	if pct := s.Buffs.RawStacks(BuffFinalMultiplier); pct != 0 {
		v *= 1 + float64(pct)/100
	}
	if pct := s.Buffs.RawStacks(BuffScoreBonus); pct != 0 {
		v *= 1 + float64(pct)/100
	}
	gained := int(math.Floor(v))
	s.Score += gained
	tc.x.log.Append(events.EventImpressionSettled, map[string]any{
		"stacks": stacks, "gained": gained, "score": s.Score,
	})
}

// overflowBonus is the one-time score grant on entering all-out, scaled by
// the state that was active before the gauge filled.
func overflowBonus(prior MentalState) int {
	switch prior {
	case StateResolute:
		return 60
	case StateConserve:
		return 20
	default:
		return 40
	}
}

// checkFullPowerOverflow transitions to the all-out state when the
// full-power gauge has reached its cap, resetting the gauge.
func (tc *turnController) checkFullPowerOverflow() {
	x := tc.x
	s := x.state
	if s.Buffs.RawStacks(BuffFullPower) < FullPowerCap {
		return
	}
	prior := s.Mental()
	if prior == StateAllOut {
		return
	}

	gauge := s.Buffs.Remove(BuffFullPower)
	x.log.Append(events.EventFullPowerOverflow, map[string]any{
		"gauge": gauge, "prior": string(prior),
	})

	// Emits the all-out buff event, the state-switch event and fires the
	// state-switch hooks; resolute/conserve are cleared inside the guarded
	// transition.
	x.switchMental(StateAllOut, "")

	bonus := overflowBonus(prior)
	s.Score += bonus
	x.log.Append(events.EventScoreGained, map[string]any{
		"base": float64(bonus), "gained": bonus, "score": s.Score,
	})

	before := s.PlayLimit
	s.PlayLimit++
	x.log.Append(events.EventPlayLimitChanged, map[string]any{
		"before": before, "after": s.PlayLimit,
	})
}
