package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
)

// Standalone card content linter: loads a yaml card set, runs the schema
// validation and prints a per-card report. Run with
//
//	go run scripts/lint_cards.go data/cards.yaml
func main() {
	path := "data/cards.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolving path: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Card Set Lint ===")
	fmt.Printf("File: %s\n", absPath)

	set, err := cards.LoadSet(absPath)
	if err != nil {
		var verr *cards.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("\n%d violation(s):\n", len(verr.Violations))
			for _, v := range verr.Violations {
				fmt.Printf("  %-20s %-16s %s\n", v.CardID, v.Field, v.Message)
			}
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "loading card set: %v\n", err)
		os.Exit(1)
	}

	byRarity := map[string]int{}
	for _, c := range set.All() {
		byRarity[c.Rarity]++
	}
	fmt.Printf("\nOK: %d cards\n", set.Len())
	for rarity, n := range byRarity {
		fmt.Printf("  %-4s %d\n", rarity, n)
	}
}
