package cards

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// setFile is the on-disk shape of a card set.
type setFile struct {
	Cards []Card `yaml:"cards"`
}

// LoadSet reads and validates a yaml card set. Validation failures come
// back as a *ValidationError listing every violation in the file.
func LoadSet(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading card set: %w", err)
	}
	return ParseSet(data)
}

// ParseSet parses and validates yaml card set data.
func ParseSet(data []byte) (*Set, error) {
	var file setFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing card set: %w", err)
	}
	if len(file.Cards) == 0 {
		return nil, fmt.Errorf("card set contains no cards")
	}
	if err := ValidateSet(file.Cards); err != nil {
		return nil, err
	}
	return NewSet(file.Cards), nil
}
