package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/cards"
	"github.com/hatsuboshi/lesson-engine/internal/config"
	"github.com/hatsuboshi/lesson-engine/internal/engine"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	cardsPath  = flag.String("cards", "", "card set file, overrides the configured one")
	runs       = flag.Int("runs", 100, "number of sessions to simulate")
	seed       = flag.Int64("seed", 1, "seed of the first run; run i uses seed+i")
	verbose    = flag.Bool("v", false, "log every engine event")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	setPath := cfg.CardSet
	if *cardsPath != "" {
		setPath = *cardsPath
	}
	set, err := cards.LoadSet(setPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load card set %s: %v\n", setPath, err)
		os.Exit(1)
	}

	scores := make([]int, 0, *runs)
	for i := 0; i < *runs; i++ {
		score, err := simulate(cfg.Session.Engine(*seed+int64(i)), set, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Run %d failed: %v\n", i, err)
			os.Exit(1)
		}
		scores = append(scores, score)
	}

	report(scores)
}

// simulate runs one session under a greedy policy: keep playing whichever
// hand card previews the highest score, then end the turn.
func simulate(cfg engine.Config, set *cards.Set, logger *zap.Logger) (int, error) {
	e, err := engine.New(cfg, set, logger)
	if err != nil {
		return 0, err
	}

	for !e.Finished() {
		for {
			id := bestCard(e)
			if id == "" {
				break
			}
			if _, err := e.PlayCard(id); err != nil {
				break
			}
		}
		e.EndTurn()
	}
	return e.Snapshot().Score, nil
}

// bestCard picks the hand card with the highest predicted score gain.
// Returns empty when no card can be previewed.
func bestCard(e *engine.Engine) string {
	var bestID string
	best := -1
	for _, inst := range e.Hand() {
		predicted, err := e.PredictScore(inst.InstanceID)
		if err != nil {
			continue
		}
		if predicted > best {
			best = predicted
			bestID = inst.InstanceID
		}
	}
	return bestID
}

func report(scores []int) {
	if len(scores) == 0 {
		return
	}
	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)
	total := 0
	for _, s := range sorted {
		total += s
	}
	fmt.Printf("runs:   %d\n", len(sorted))
	fmt.Printf("min:    %d\n", sorted[0])
	fmt.Printf("median: %d\n", sorted[len(sorted)/2])
	fmt.Printf("max:    %d\n", sorted[len(sorted)-1])
	fmt.Printf("mean:   %.1f\n", float64(total)/float64(len(sorted)))
}
