package expr

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Expression embeds a parsed Node in a card schema field. In yaml and JSON
// card files it is written in the compact string syntax; in memory it is the
// operator tree. An empty expression stays nil, which the evaluator treats
// as "always" / 0 by convention.
type Expression struct {
	Node *Node
}

// IsZero reports whether no expression was supplied.
func (e Expression) IsZero() bool {
	return e.Node == nil
}

func (e *Expression) UnmarshalYAML(value *yaml.Node) error {
	var src string
	if err := value.Decode(&src); err != nil {
		return fmt.Errorf("expression must be a string: %w", err)
	}
	n, err := Parse(src)
	if err != nil {
		return fmt.Errorf("parsing expression %q: %w", src, err)
	}
	e.Node = n
	return nil
}

func (e Expression) MarshalYAML() (interface{}, error) {
	return e.Node.String(), nil
}

func (e *Expression) UnmarshalJSON(b []byte) error {
	var src string
	if err := json.Unmarshal(b, &src); err != nil {
		return fmt.Errorf("expression must be a string: %w", err)
	}
	n, err := Parse(src)
	if err != nil {
		return fmt.Errorf("parsing expression %q: %w", src, err)
	}
	e.Node = n
	return nil
}

func (e Expression) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Node.String())
}
