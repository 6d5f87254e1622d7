package expr

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The compact source syntax card files are authored in, e.g.
//
//	buffStacks(goodCondition) >= 9 && turn < maxTurns
//	pct(score, 30) + buffStacks(motivation) * 2
//
// parses into the same Node tree the yaml/JSON form describes.

var exprLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Number", Pattern: `\d+(\.\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_]\w*`},
	{Name: "Op", Pattern: `\|\||&&|==|!=|<=|>=|[-+*/%<>!(),]`},
})

var parser = participle.MustBuild[disjunction](
	participle.Lexer(exprLexer),
	participle.UseLookahead(2),
)

// Parse parses the compact expression syntax into a Node tree.
func Parse(src string) (*Node, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	d, err := parser.ParseString("", src)
	if err != nil {
		return nil, err
	}
	return d.toNode(), nil
}

// MustParse parses src and panics on failure. For fixed expressions in code.
func MustParse(src string) *Node {
	n, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return n
}

type disjunction struct {
	Left *conjunction   `parser:"@@"`
	Rest []*conjunction `parser:"( '||' @@ )*"`
}

type conjunction struct {
	Left *comparison   `parser:"@@"`
	Rest []*comparison `parser:"( '&&' @@ )*"`
}

type comparison struct {
	Left  *sum   `parser:"@@"`
	Op    string `parser:"( @('==' | '!=' | '<=' | '>=' | '<' | '>')"`
	Right *sum   `parser:"  @@ )?"`
}

type sum struct {
	Left *product   `parser:"@@"`
	Rest []*sumTerm `parser:"@@*"`
}

type sumTerm struct {
	Op   string   `parser:"@('+' | '-')"`
	Term *product `parser:"@@"`
}

type product struct {
	Left *unary      `parser:"@@"`
	Rest []*prodTerm `parser:"@@*"`
}

type prodTerm struct {
	Op   string `parser:"@('*' | '/' | '%')"`
	Term *unary `parser:"@@"`
}

type unary struct {
	Op      string   `parser:"@('!' | '-')?"`
	Operand *primary `parser:"@@"`
}

type primary struct {
	Number *float64     `parser:"  @Number"`
	Str    *string      `parser:"| @String"`
	Call   *call        `parser:"| @@"`
	Ident  *string      `parser:"| @Ident"`
	Sub    *disjunction `parser:"| '(' @@ ')'"`
}

type call struct {
	Name string         `parser:"@Ident"`
	Args []*disjunction `parser:"'(' ( @@ ( ',' @@ )* )? ')'"`
}

func (d *disjunction) toNode() *Node {
	n := d.Left.toNode()
	for _, r := range d.Rest {
		n = Binary("||", n, r.toNode())
	}
	return n
}

func (c *conjunction) toNode() *Node {
	n := c.Left.toNode()
	for _, r := range c.Rest {
		n = Binary("&&", n, r.toNode())
	}
	return n
}

func (c *comparison) toNode() *Node {
	n := c.Left.toNode()
	if c.Op != "" {
		n = Binary(c.Op, n, c.Right.toNode())
	}
	return n
}

func (s *sum) toNode() *Node {
	n := s.Left.toNode()
	for _, t := range s.Rest {
		n = Binary(t.Op, n, t.Term.toNode())
	}
	return n
}

func (p *product) toNode() *Node {
	n := p.Left.toNode()
	for _, t := range p.Rest {
		n = Binary(t.Op, n, t.Term.toNode())
	}
	return n
}

func (u *unary) toNode() *Node {
	n := u.Operand.toNode()
	switch u.Op {
	case "!":
		return &Node{Op: OpNot, Args: []*Node{n}}
	case "-":
		if n.Op == OpNum {
			return Num(-n.Num)
		}
		return &Node{Op: OpNeg, Args: []*Node{n}}
	}
	return n
}

func (p *primary) toNode() *Node {
	switch {
	case p.Number != nil:
		return Num(*p.Number)
	case p.Str != nil:
		return Str(strings.Trim(*p.Str, `"`))
	case p.Call != nil:
		args := make([]*Node, len(p.Call.Args))
		for i, a := range p.Call.Args {
			args[i] = a.toNode()
		}
		return Call(p.Call.Name, args...)
	case p.Ident != nil:
		return Var(*p.Ident)
	case p.Sub != nil:
		return p.Sub.toNode()
	}
	return nil
}
