package expr

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Env is the immutable view an expression is evaluated against. The battle
// context satisfies this; tests provide small fakes.
type Env interface {
	// Var resolves a named numeric context variable (genki, turn, score, ...).
	Var(name string) (float64, bool)
	// HasTag reports whether the tag is present.
	HasTag(id string) bool
	// HasBuff reports whether the buff is present with at least one stack.
	HasBuff(id string) bool
	// BuffStacks returns the raw stack count of a buff, 0 if absent.
	BuffStacks(id string) int
	// BuffDuration returns the remaining duration of a buff, 0 if absent.
	BuffDuration(id string) int
	// RarityInHand returns how many cards of the given rarity are in hand.
	RarityInHand(rarity string) int
	// SwitchCount returns how many times the given mental state was entered.
	SwitchCount(state string) int
	// Rand draws from the session's single randomness source, in [0,1).
	Rand() float64
	// NameMatches reports whether the card under evaluation matches the
	// given display name.
	NameMatches(name string) bool
}

// Evaluator interprets expression trees. A malformed tree never reaches the
// caller as an error: conditions degrade to false, numbers to 0, with a
// logged warning, so one bad card cannot take down a session.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an evaluator logging through the given logger.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{logger: logger}
}

// Condition evaluates the node as a boolean. A nil node is true: cards omit
// a condition to mean "always".
func (e *Evaluator) Condition(n *Node, env Env) bool {
	if n == nil {
		return true
	}
	v, err := e.eval(n, env)
	if err != nil {
		e.logger.Warn("condition evaluation failed, treating as false",
			zap.String("expr", n.String()),
			zap.Error(err),
		)
		return false
	}
	return v != 0
}

// Number evaluates the node as a number. A nil node is 0.
func (e *Evaluator) Number(n *Node, env Env) float64 {
	if n == nil {
		return 0
	}
	v, err := e.eval(n, env)
	if err != nil {
		e.logger.Warn("number evaluation failed, treating as 0",
			zap.String("expr", n.String()),
			zap.Error(err),
		)
		return 0
	}
	return v
}

func (e *Evaluator) eval(n *Node, env Env) (float64, error) {
	if n == nil {
		return 0, nil
	}
	switch n.Op {
	case OpNum:
		return n.Num, nil
	case OpStr:
		return 0, fmt.Errorf("string %q used as number", n.Str)
	case OpVar:
		v, ok := env.Var(n.Name)
		if !ok {
			return 0, fmt.Errorf("unknown variable %q", n.Name)
		}
		return v, nil
	case OpCall:
		return e.call(n, env)
	case OpNot:
		v, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		return boolVal(v == 0), nil
	case OpNeg:
		v, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		return -v, nil
	case "&&":
		l, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		if l == 0 {
			return 0, nil
		}
		r, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		return boolVal(r != 0), nil
	case "||":
		l, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		if l != 0 {
			return 1, nil
		}
		r, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		return boolVal(r != 0), nil
	case "+", "-", "*", "/", "%", "==", "!=", "<", "<=", ">", ">=":
		l, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		r, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		return applyBinary(n.Op, l, r)
	default:
		return 0, fmt.Errorf("unknown operator %q", n.Op)
	}
}

func (e *Evaluator) arg(n *Node, i int, env Env) (float64, error) {
	if i >= len(n.Args) {
		return 0, fmt.Errorf("operator %q missing operand %d", n.Op, i)
	}
	return e.eval(n.Args[i], env)
}

// stringArg resolves an argument that must be a string literal (buff/tag ids).
func stringArg(n *Node, i int) (string, error) {
	if i >= len(n.Args) {
		return "", fmt.Errorf("call %q missing argument %d", n.Name, i)
	}
	a := n.Args[i]
	switch a.Op {
	case OpStr:
		return a.Str, nil
	case OpVar:
		// Bare identifiers inside calls are id references, not variables:
		// hasBuff(goodCondition) reads naturally in card files.
		return a.Name, nil
	default:
		return "", fmt.Errorf("call %q argument %d is not an identifier", n.Name, i)
	}
}

func (e *Evaluator) call(n *Node, env Env) (float64, error) {
	switch n.Name {
	case "rand":
		return env.Rand(), nil
	case "hasTag":
		id, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return boolVal(env.HasTag(id)), nil
	case "hasBuff":
		id, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return boolVal(env.HasBuff(id)), nil
	case "buffStacks":
		id, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return float64(env.BuffStacks(id)), nil
	case "buffDuration":
		id, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return float64(env.BuffDuration(id)), nil
	case "rarityInHand":
		id, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return float64(env.RarityInHand(id)), nil
	case "switchCount":
		id, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return float64(env.SwitchCount(id)), nil
	case "nameIs":
		name, err := stringArg(n, 0)
		if err != nil {
			return 0, err
		}
		return boolVal(env.NameMatches(name)), nil
	case "pct":
		a, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		return a * b / 100, nil
	case "floor":
		v, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		return math.Floor(v), nil
	case "ceil":
		v, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		return math.Ceil(v), nil
	case "round":
		v, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		return math.Round(v), nil
	case "clamp":
		v, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		lo, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		hi, err := e.arg(n, 2, env)
		if err != nil {
			return 0, err
		}
		return math.Min(math.Max(v, lo), hi), nil
	case "min":
		a, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		return math.Min(a, b), nil
	case "max":
		a, err := e.arg(n, 0, env)
		if err != nil {
			return 0, err
		}
		b, err := e.arg(n, 1, env)
		if err != nil {
			return 0, err
		}
		return math.Max(a, b), nil
	default:
		return 0, fmt.Errorf("unknown function %q", n.Name)
	}
}

func applyBinary(op string, l, r float64) (float64, error) {
	switch op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fmt.Errorf("modulo by zero")
		}
		return math.Mod(l, r), nil
	case "==":
		return boolVal(l == r), nil
	case "!=":
		return boolVal(l != r), nil
	case "<":
		return boolVal(l < r), nil
	case "<=":
		return boolVal(l <= r), nil
	case ">":
		return boolVal(l > r), nil
	case ">=":
		return boolVal(l >= r), nil
	}
	return 0, fmt.Errorf("unknown binary operator %q", op)
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
