package cards

import (
	"fmt"
	"strings"
)

// Violation is one structural problem found in card data.
type Violation struct {
	CardID  string
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s: %s", v.CardID, v.Field, v.Message)
}

// ValidationError aggregates every violation found in a card or set, so
// authors fix a file in one pass instead of replaying load-crash cycles.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "card validation failed"
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("card validation failed with %d violation(s): %s",
		len(e.Violations), strings.Join(msgs, "; "))
}

func (e *ValidationError) add(cardID, field, format string, args ...any) {
	e.Violations = append(e.Violations, Violation{
		CardID:  cardID,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// errOrNil returns the error only when violations were collected.
func (e *ValidationError) errOrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}

var knownZones = map[string]bool{
	"deck": true, "hand": true, "discard": true, "reserve": true, "removed": true,
}

// Validate checks one card template against the schema, collecting every
// violation. Structurally invalid cards are rejected, never coerced.
func Validate(c *Card) error {
	var e ValidationError
	validateInto(&e, c)
	return e.errOrNil()
}

// ValidateSet checks a whole card list, including id uniqueness.
func ValidateSet(list []Card) error {
	var e ValidationError
	seen := make(map[string]bool, len(list))
	for i := range list {
		c := &list[i]
		if seen[c.ID] && c.ID != "" {
			e.add(c.ID, "id", "duplicate card id")
		}
		seen[c.ID] = true
		validateInto(&e, c)
	}
	return e.errOrNil()
}

func validateInto(e *ValidationError, c *Card) {
	id := c.ID
	if id == "" {
		id = "(missing id)"
		e.add(id, "id", "card id is required")
	}
	if c.Name == "" {
		e.add(id, "name", "card name is required")
	}
	if c.Rarity == "" {
		e.add(id, "rarity", "card rarity is required")
	}
	if c.Cost.Genki < 0 {
		e.add(id, "cost.genki", "cost must not be negative, got %d", c.Cost.Genki)
	}
	if len(c.LogicChain) == 0 {
		e.add(id, "logic_chain", "a card must have at least one step")
	}
	validateChain(e, id, "logic_chain", c.LogicChain)
	validateChain(e, id, "logic_chain_enhanced", c.LogicChainEnhanced)
}

func validateChain(e *ValidationError, cardID, field string, chain []AtomicStep) {
	for i, step := range chain {
		stepField := fmt.Sprintf("%s[%d]", field, i)
		if len(step.Do) == 0 {
			e.add(cardID, stepField+".do", "a step must have at least one action")
		}
		for j, a := range step.Do {
			validateAction(e, cardID, fmt.Sprintf("%s.do[%d]", stepField, j), &a)
		}
	}
}

func validateAction(e *ValidationError, cardID, field string, a *AtomicAction) {
	if !a.Kind.Valid() {
		e.add(cardID, field+".kind", "unknown action kind %q", a.Kind)
		return
	}
	switch a.Kind {
	case ActionGainScore, ActionModifyGenki, ActionModifyStamina:
		if a.Value.IsZero() {
			e.add(cardID, field+".value", "%s requires a value formula", a.Kind)
		}
	case ActionAddBuff, ActionRemoveBuff, ActionConsumeBuff:
		if a.Buff == "" {
			e.add(cardID, field+".buff", "%s requires a buff id", a.Kind)
		}
		if a.Kind == ActionConsumeBuff && a.Count <= 0 {
			e.add(cardID, field+".count", "consumeBuff requires a positive count, got %d", a.Count)
		}
	case ActionAddTag, ActionRemoveTag:
		if a.Tag == "" {
			e.add(cardID, field+".tag", "%s requires a tag id", a.Kind)
		}
	case ActionDrawCards:
		if a.Count <= 0 {
			e.add(cardID, field+".count", "drawCards requires a positive count, got %d", a.Count)
		}
	case ActionModifyPlayLimit, ActionModifyMaxTurns:
		if a.Delta == 0 {
			e.add(cardID, field+".delta", "%s requires a non-zero delta", a.Kind)
		}
	case ActionPlayCardFromZone:
		validateZone(e, cardID, field+".zone", a.Zone)
	case ActionMoveCard:
		validateZone(e, cardID, field+".zone", a.Zone)
		validateZone(e, cardID, field+".to", a.To)
	case ActionSetBuffMultiplier:
		if a.Buff == "" {
			e.add(cardID, field+".buff", "setBuffMultiplier requires a buff id")
		}
		if a.Percent <= 0 {
			e.add(cardID, field+".percent", "setBuffMultiplier requires a positive percent, got %d", a.Percent)
		}
	case ActionRegisterHook:
		if a.Hook == nil {
			e.add(cardID, field+".hook", "registerHook requires a hook definition")
			return
		}
		if !a.Hook.Trigger.Valid() {
			e.add(cardID, field+".hook.trigger", "unknown trigger %q", a.Hook.Trigger)
		}
		if len(a.Hook.Actions) == 0 {
			e.add(cardID, field+".hook.actions", "a hook must have at least one action")
		}
		if a.Hook.DurationTurns < 0 {
			e.add(cardID, field+".hook.duration_turns", "duration must not be negative, got %d", a.Hook.DurationTurns)
		}
		if a.Hook.MaxTriggers < 0 {
			e.add(cardID, field+".hook.max_triggers", "max triggers must not be negative, got %d", a.Hook.MaxTriggers)
		}
		for i, ha := range a.Hook.Actions {
			// Hooks registering hooks would recurse without bound at
			// execution time.
			if ha.Kind == ActionRegisterHook {
				e.add(cardID, fmt.Sprintf("%s.hook.actions[%d]", field, i), "hooks must not register hooks")
				continue
			}
			validateAction(e, cardID, fmt.Sprintf("%s.hook.actions[%d]", field, i), &ha)
		}
	case ActionPlayRandomCards:
		if a.Count <= 0 {
			e.add(cardID, field+".count", "playRandomCards requires a positive count, got %d", a.Count)
		}
		validateZone(e, cardID, field+".zone", a.Zone)
	}
}

func validateZone(e *ValidationError, cardID, field, zone string) {
	if zone == "" {
		e.add(cardID, field, "a zone name is required")
		return
	}
	if !knownZones[zone] {
		e.add(cardID, field, "unknown zone %q", zone)
	}
}
