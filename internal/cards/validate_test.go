package cards

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hatsuboshi/lesson-engine/internal/engine/expr"
)

func validCard() Card {
	return Card{
		ID:     "c-001",
		Name:   "Steady Pace",
		Rarity: "R",
		Type:   "active",
		Cost:   Cost{Genki: 3},
		LogicChain: []AtomicStep{
			{Do: []AtomicAction{
				{Kind: ActionGainScore, Value: expr.Expression{Node: expr.Num(10)}},
			}},
		},
	}
}

func TestValidate_AcceptsValidCard(t *testing.T) {
	c := validCard()
	assert.NoError(t, Validate(&c))
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	c := Card{
		Cost: Cost{Genki: -1},
		LogicChain: []AtomicStep{
			{Do: []AtomicAction{
				{Kind: "explode"},
				{Kind: ActionAddBuff}, // missing buff id
			}},
		},
	}

	err := Validate(&c)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	// id, name, rarity, negative cost, unknown kind, missing buff id.
	assert.Len(t, verr.Violations, 6)
	fields := make(map[string]bool)
	for _, v := range verr.Violations {
		fields[v.Field] = true
	}
	assert.True(t, fields["id"])
	assert.True(t, fields["cost.genki"])
	assert.True(t, fields["logic_chain[0].do[0].kind"])
	assert.True(t, fields["logic_chain[0].do[1].buff"])
}

func TestValidate_HookRules(t *testing.T) {
	c := validCard()
	c.LogicChain[0].Do = append(c.LogicChain[0].Do, AtomicAction{
		Kind: ActionRegisterHook,
		Hook: &HookDef{
			Trigger: "onSolarEclipse",
			Actions: []AtomicAction{
				{Kind: ActionRegisterHook, Hook: &HookDef{Trigger: TriggerTurnEnd}},
			},
		},
	})

	err := Validate(&c)
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	msgs := err.Error()
	assert.Contains(t, msgs, "unknown trigger")
	assert.Contains(t, msgs, "hooks must not register hooks")
}

func TestValidate_ZoneNames(t *testing.T) {
	c := validCard()
	c.LogicChain[0].Do = []AtomicAction{
		{Kind: ActionMoveCard, Zone: "hand", To: "limbo"},
	}
	err := Validate(&c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown zone "limbo"`)
}

func TestValidateSet_DuplicateIDs(t *testing.T) {
	a, b := validCard(), validCard()
	err := ValidateSet([]Card{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate card id")
}

func TestCard_ChainFallback(t *testing.T) {
	c := validCard()
	assert.Len(t, c.Chain(true), 1, "enhanced chain absent: fall back to base")

	c.LogicChainEnhanced = []AtomicStep{
		{Do: []AtomicAction{
			{Kind: ActionGainScore, Value: expr.Expression{Node: expr.Num(20)}},
			{Kind: ActionDrawCards, Count: 1},
		}},
	}
	assert.Len(t, c.Chain(true)[0].Do, 2)
	assert.Len(t, c.Chain(false)[0].Do, 1)
}
