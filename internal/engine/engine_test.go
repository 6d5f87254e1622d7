package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/engine/buffs"
	"github.com/hatsuboshi/lesson-engine/internal/engine/events"
	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
	"github.com/hatsuboshi/lesson-engine/internal/engine/zones"
)

func xp(src string) expr.Expression {
	return expr.Expression{Node: expr.MustParse(src)}
}

func step(actions ...cards.AtomicAction) cards.AtomicStep {
	return cards.AtomicStep{Do: actions}
}

func testSet() *cards.Set {
	return cards.NewSet([]cards.Card{
		{
			ID: "strike", Name: "Strike", Rarity: "N", Type: "active",
			Cost:       cards.Cost{Genki: 2},
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{Kind: cards.ActionGainScore, Value: xp("10")})},
		},
		{
			ID: "focus", Name: "Focus", Rarity: "N", Type: "mental",
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{Kind: cards.ActionAddBuff, Buff: BuffConcentration, Value: xp("5")})},
		},
		{
			ID: "cheer", Name: "Cheer", Rarity: "R", Type: "mental",
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{Kind: cards.ActionAddBuff, Buff: BuffGoodCondition, Value: xp("1"), Duration: 4})},
		},
		{
			ID: "surge", Name: "Surge", Rarity: "SR", Type: "mental",
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{Kind: cards.ActionAddBuff, Buff: BuffAllOutState})},
		},
		{
			ID: "charge", Name: "Charge", Rarity: "R", Type: "mental",
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{Kind: cards.ActionAddBuff, Buff: BuffFullPower, Value: xp("10")})},
		},
		{
			ID: "bigmove", Name: "Big Move", Rarity: "SSR", Type: "active",
			Cost:       cards.Cost{Genki: 100},
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{Kind: cards.ActionGainScore, Value: xp("50")})},
		},
		{
			ID: "watcher", Name: "Watcher", Rarity: "R", Type: "mental",
			LogicChain: []cards.AtomicStep{step(cards.AtomicAction{
				Kind: cards.ActionRegisterHook,
				Hook: &cards.HookDef{
					ID: "watch-once", Trigger: cards.TriggerCardPlayed, MaxTriggers: 1,
					Actions: []cards.AtomicAction{{Kind: cards.ActionGainScore, Value: xp("1")}},
				},
			})},
		},
	})
}

func testConfig(deck ...DeckEntry) Config {
	return Config{
		InitialGenki:   20,
		MaxGenki:       50,
		InitialStamina: 30,
		MaxStamina:     30,
		MaxTurns:       6,
		HandSize:       3,
		PlayLimit:      9,
		Seed:           1,
		Deck:           deck,
	}
}

func newTestEngine(t *testing.T, deck ...DeckEntry) *Engine {
	t.Helper()
	e, err := New(testConfig(deck...), testSet(), nil)
	require.NoError(t, err)
	return e
}

// craftHand rearranges the zones so the named templates are the hand, in
// order, and everything else sits in the deck.
func craftHand(e *Engine, templates ...string) {
	snap := e.state.Zones.Snapshot()
	var all []zones.Instance
	for _, z := range []zones.Zone{zones.ZoneDeck, zones.ZoneHand, zones.ZoneDiscard, zones.ZoneReserve} {
		all = append(all, snap[z]...)
	}
	hand := make([]zones.Instance, 0, len(templates))
	for _, tpl := range templates {
		for i, inst := range all {
			if inst.TemplateID == tpl {
				hand = append(hand, inst)
				all = append(all[:i], all[i+1:]...)
				break
			}
		}
	}
	e.state.Zones.Restore(map[zones.Zone][]zones.Instance{
		zones.ZoneDeck: all,
		zones.ZoneHand: hand,
	})
}

func handInstance(t *testing.T, e *Engine, template string) string {
	t.Helper()
	for _, c := range e.state.Zones.Cards(zones.ZoneHand) {
		if c.TemplateID == template {
			return c.InstanceID
		}
	}
	t.Fatalf("no %s in hand", template)
	return ""
}

func eventTypes(evs []events.Event) []events.Type {
	out := make([]events.Type, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func TestScorePipelineConditionAndState(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 5})
	craftHand(e, "strike")

	e.state.Buffs.Add(BuffGoodCondition, 1, buffs.PermanentDuration)
	_, _ = e.state.SwitchMental(StateAllOut)

	evs, err := e.PlayCard(handInstance(t, e, "strike"))
	require.NoError(t, err)

	// floor(10 * 1.5 * 3.0) = 45
	assert.Equal(t, 45, e.state.Score)
	var gained int
	for _, ev := range evs {
		if ev.Type == events.EventScoreGained {
			gained = ev.Data["gained"].(int)
		}
	}
	assert.Equal(t, 45, gained)
}

func TestScorePipelineFlatBonusBeforeCondition(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 5})
	craftHand(e, "strike")

	e.state.Buffs.Add(BuffConcentration, 4, buffs.PermanentDuration)
	e.state.Buffs.Add(BuffGoodCondition, 1, buffs.PermanentDuration)

	_, err := e.PlayCard(handInstance(t, e, "strike"))
	require.NoError(t, err)

	// floor((10 + 4) * 1.5) = 21: concentration adds before the condition
	// multiplier, not after.
	assert.Equal(t, 21, e.state.Score)
}

func TestScorePipelineExcellentCondition(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 5})
	craftHand(e, "strike")

	e.state.Buffs.Add(BuffGoodCondition, 4, buffs.PermanentDuration)
	e.state.Buffs.Add(BuffExcellentCondition, 1, buffs.PermanentDuration)

	_, err := e.PlayCard(handInstance(t, e, "strike"))
	require.NoError(t, err)

	// floor(10 * (1.5 + 0.1*4)) = 19
	assert.Equal(t, 19, e.state.Score)
}

func TestEndTurnDecaysOncePerCall(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	e.state.Buffs.Add(BuffGoodCondition, 2, 2)

	e.EndTurn()
	assert.True(t, e.state.Buffs.Has(BuffGoodCondition), "one boundary must decay exactly one turn")
	assert.Equal(t, 1, e.state.Buffs.Duration(BuffGoodCondition))

	evs := e.EndTurn()
	assert.False(t, e.state.Buffs.Has(BuffGoodCondition))
	assert.Contains(t, eventTypes(evs), events.EventBuffExpired)
}

func TestEndTurnDiscardsHandAndRedraws(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	before := e.state.Zones.Cards(zones.ZoneHand)
	require.Len(t, before, 3)

	evs := e.EndTurn()
	types := eventTypes(evs)
	assert.Contains(t, types, events.EventCardMoved)
	assert.Contains(t, types, events.EventHandDiscarded)

	after := e.state.Zones.Cards(zones.ZoneHand)
	assert.Len(t, after, 3)
	for _, old := range before {
		for _, now := range after {
			assert.NotEqual(t, old.InstanceID, now.InstanceID, "hand must not carry over")
		}
	}
	assert.Equal(t, 2, e.state.Turn)
	assert.Equal(t, 0, e.state.PlaysThisTurn)
}

func TestFullPowerOverflowAtTurnBoundary(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	e.exec.Execute(cards.AtomicAction{
		Kind: cards.ActionRegisterHook,
		Hook: &cards.HookDef{
			ID: "on-switch", Trigger: cards.TriggerStateSwitch, MaxTriggers: 1,
			Actions: []cards.AtomicAction{{Kind: cards.ActionModifyGenki, Value: xp("5")}},
		},
	}, "")
	e.state.Buffs.Add(BuffFullPower, 10, buffs.PermanentDuration)
	limitBefore := e.state.PlayLimit
	genkiBefore := e.state.Genki
	scoreBefore := e.state.Score

	// The gauge is full mid-turn; nothing happens until the boundary.
	assert.Equal(t, StateNone, e.state.Mental())

	evs := e.EndTurn()
	types := eventTypes(evs)

	assert.Contains(t, types, events.EventFullPowerOverflow)
	assert.Contains(t, types, events.EventStateSwitched)
	assert.Equal(t, StateAllOut, e.state.Mental())
	assert.False(t, e.state.Buffs.Has(BuffFullPower), "gauge resets on overflow")
	assert.Equal(t, limitBefore+1, e.state.PlayLimit)
	assert.Equal(t, scoreBefore+40, e.state.Score)
	assert.Equal(t, genkiBefore+5, e.state.Genki, "state-switch hook must fire on overflow")

	var sawAdd bool
	for _, ev := range evs {
		if ev.Type == events.EventBuffAdded && ev.Data["buff"] == BuffAllOutState {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd, "overflow surfaces as an all-out buff addition")
}

func TestOverflowBonusScalesWithPriorState(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	_, _ = e.state.SwitchMental(StateResolute)
	e.state.Buffs.Add(BuffFullPower, 10, buffs.PermanentDuration)
	scoreBefore := e.state.Score

	e.EndTurn()

	assert.Equal(t, scoreBefore+60, e.state.Score)
	assert.Equal(t, StateAllOut, e.state.Mental())
	assert.False(t, e.state.Buffs.Has(BuffResoluteState), "states stay exclusive through overflow")
}

func TestRemoveInactiveStateBuffIsNoOp(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	_, _ = e.state.SwitchMental(StateResolute)
	cursor := e.log.Len()

	// Zero stacks: removal of a state that is not active changes nothing.
	e.exec.Execute(cards.AtomicAction{Kind: cards.ActionRemoveBuff, Buff: BuffConserveState}, "")
	assert.Equal(t, StateResolute, e.state.Mental(), "removing an inactive state must not clear the active one")
	assert.Empty(t, e.log.Since(cursor))

	// The active state clears through the guarded transition.
	e.exec.Execute(cards.AtomicAction{Kind: cards.ActionRemoveBuff, Buff: BuffResoluteState}, "")
	assert.Equal(t, StateNone, e.state.Mental())
	assert.Contains(t, eventTypes(e.log.Since(cursor)), events.EventStateSwitched)
}

func TestConsumeStateBuffUsesGuardedTransition(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	_, _ = e.state.SwitchMental(StateConserve)
	cursor := e.log.Len()

	e.exec.Execute(cards.AtomicAction{Kind: cards.ActionConsumeBuff, Buff: BuffAllOutState, Count: 1}, "")
	assert.Equal(t, StateConserve, e.state.Mental(), "consuming an inactive state is a no-op")
	assert.Empty(t, e.log.Since(cursor))

	e.exec.Execute(cards.AtomicAction{Kind: cards.ActionConsumeBuff, Buff: BuffConserveState, Count: 1}, "")
	assert.Equal(t, StateNone, e.state.Mental())
	types := eventTypes(e.log.Since(cursor))
	assert.Contains(t, types, events.EventStateSwitched)
	assert.Contains(t, types, events.EventBuffRemoved)
}

func TestHookMaxTriggersSpansSession(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "watcher", Count: 1}, DeckEntry{CardID: "focus", Count: 6})
	craftHand(e, "watcher", "focus", "focus")

	// The card-played trigger fires at the end of the registering play, so
	// the one-shot budget is spent on the watcher itself.
	_, err := e.PlayCard(handInstance(t, e, "watcher"))
	require.NoError(t, err)
	assert.Equal(t, 1, e.state.Score)

	_, err = e.PlayCard(handInstance(t, e, "focus"))
	require.NoError(t, err)
	_, err = e.PlayCard(handInstance(t, e, "focus"))
	require.NoError(t, err)
	assert.Equal(t, 1, e.state.Score, "a spent trigger budget stays spent")
}

func TestPlayCardTypedFailuresLeaveStateUntouched(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "bigmove", Count: 3}, DeckEntry{CardID: "strike", Count: 3})
	craftHand(e, "bigmove", "strike")
	before := e.snapshot().Checksum()
	logLen := e.log.Len()

	_, err := e.PlayCard(handInstance(t, e, "bigmove"))
	assert.ErrorIs(t, err, ErrInsufficientResources)

	_, err = e.PlayCard("no-such-instance")
	assert.ErrorIs(t, err, ErrCardNotFound)

	e.state.Buffs.AddTag(TagNoPlay, 1)
	_, err = e.PlayCard(handInstance(t, e, "strike"))
	assert.ErrorIs(t, err, ErrPlaysBlocked)
	e.state.Buffs.RemoveTag(TagNoPlay)

	e.state.PlaysThisTurn = e.state.PlayLimit
	_, err = e.PlayCard(handInstance(t, e, "strike"))
	assert.ErrorIs(t, err, ErrPlayLimitReached)
	e.state.PlaysThisTurn = 0

	assert.Equal(t, before, e.snapshot().Checksum(), "failed plays must not mutate state")
	assert.Equal(t, logLen, e.log.Len(), "failed plays must not emit events")
}

func TestSessionEndsAtTurnCap(t *testing.T) {
	cfg := testConfig(DeckEntry{CardID: "strike", Count: 10})
	cfg.MaxTurns = 2
	e, err := New(cfg, testSet(), nil)
	require.NoError(t, err)

	e.EndTurn()
	require.False(t, e.Finished())

	evs := e.EndTurn()
	assert.True(t, e.Finished())
	assert.Contains(t, eventTypes(evs), events.EventSessionEnded)

	_, err = e.PlayCard("anything")
	assert.ErrorIs(t, err, ErrSessionOver)
	assert.Empty(t, e.EndTurn())
}

func TestImpressionSettlesAtTurnEnd(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 10})
	e.state.Buffs.Add(BuffGoodImpression, 5, buffs.PermanentDuration)
	e.state.Buffs.Add(BuffScoreBonus, 20, buffs.PermanentDuration)

	evs := e.EndTurn()

	// floor(5 * 1.20) = 6
	assert.Equal(t, 6, e.state.Score)
	assert.Contains(t, eventTypes(evs), events.EventImpressionSettled)
}

func TestPredictScoreIsSideEffectFree(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 5})
	craftHand(e, "strike")
	e.state.Buffs.Add(BuffGoodCondition, 1, buffs.PermanentDuration)
	id := handInstance(t, e, "strike")

	before := e.snapshot().Checksum()
	logLen := e.log.Len()

	predicted, err := e.PredictScore(id)
	require.NoError(t, err)
	assert.Equal(t, 15, predicted)
	assert.Equal(t, before, e.snapshot().Checksum())
	assert.Equal(t, logLen, e.log.Len())

	_, err = e.PlayCard(id)
	require.NoError(t, err)
	assert.Equal(t, predicted, e.state.Score, "prediction matches the deterministic play")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 4}, DeckEntry{CardID: "cheer", Count: 4})
	craftHand(e, "cheer", "strike")
	_, err := e.PlayCard(handInstance(t, e, "cheer"))
	require.NoError(t, err)
	_, err = e.PlayCard(handInstance(t, e, "strike"))
	require.NoError(t, err)
	e.EndTurn()

	data, err := e.Save()
	require.NoError(t, err)

	restored, err := Load(data, testSet(), nil)
	require.NoError(t, err)

	assert.Equal(t, e.snapshot().Checksum(), restored.snapshot().Checksum())
	assert.Equal(t, e.state.Score, restored.state.Score)
	assert.Equal(t, e.state.Turn, restored.state.Turn)
	assert.Equal(t, e.state.Buffs.RawStacks(BuffGoodCondition), restored.state.Buffs.RawStacks(BuffGoodCondition))

	// The restored session keeps playing.
	evs := restored.EndTurn()
	assert.Contains(t, eventTypes(evs), events.EventTurnStarted)
}

func TestLoadRejectsUnknownTemplates(t *testing.T) {
	e := newTestEngine(t, DeckEntry{CardID: "strike", Count: 4})
	data, err := e.Save()
	require.NoError(t, err)

	empty := cards.NewSet([]cards.Card{{ID: "other", Name: "Other"}})
	_, err = Load(data, empty, nil)
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestNewRejectsBadDecks(t *testing.T) {
	_, err := New(testConfig(), testSet(), nil)
	assert.Error(t, err, "empty deck")

	_, err = New(testConfig(DeckEntry{CardID: "missing", Count: 2}), testSet(), nil)
	assert.ErrorIs(t, err, ErrCardNotFound)
}

func TestSeedDeterminism(t *testing.T) {
	run := func() string {
		e := newTestEngine(t,
			DeckEntry{CardID: "strike", Count: 6},
			DeckEntry{CardID: "cheer", Count: 6})
		for i := 0; i < 3; i++ {
			e.EndTurn()
		}
		return e.snapshot().Checksum()
	}
	assert.Equal(t, run(), run(), "same seed, same config, same state")
}
