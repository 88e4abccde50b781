// Package proptest provides seeded property-based testing utilities.
//
// A property is run against many randomly generated inputs; failures
// log the seed, and setting PROPTEST_SEED reruns the exact sequence.
//
//	func TestParamOrder(t *testing.T) {
//	    proptest.QuickCheck(t, "params follow placeholders", func(g *proptest.Generator) bool {
//	        n := g.IntRange(1, 100)
//	        return n >= 1 && n <= 100
//	    })
//	}
package proptest

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// Generator wraps a seeded random source. The seed is retained so a
// failing run can be reproduced.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New creates a Generator. A zero seed means seed from the clock.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the generator's seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Config controls property test behavior.
type Config struct {
	// NumTrials is the number of test iterations. Default: 100.
	NumTrials int

	// Seed pins the random seed. Zero means time-based (or the
	// PROPTEST_SEED environment variable when set).
	Seed int64

	// Verbose enables additional logging.
	Verbose bool
}

// effectiveSeed resolves the seed to use: PROPTEST_SEED wins, then the
// config, then the clock.
func effectiveSeed(cfg Config) int64 {
	if envSeed := os.Getenv("PROPTEST_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	if cfg.Seed != 0 {
		return cfg.Seed
	}
	return time.Now().UnixNano()
}

// Check runs a property for cfg.NumTrials random inputs. On failure it
// logs the seed so the run can be replayed with PROPTEST_SEED.
func Check(t *testing.T, name string, cfg Config, prop func(g *Generator) bool) {
	t.Helper()

	if cfg.NumTrials <= 0 {
		cfg.NumTrials = 100
	}
	seed := effectiveSeed(cfg)
	g := New(seed)

	if cfg.Verbose {
		t.Logf("proptest %q: running %d trials with seed %d", name, cfg.NumTrials, seed)
	}
	for i := 0; i < cfg.NumTrials; i++ {
		if !prop(g) {
			t.Errorf("proptest %q failed on trial %d (seed=%d, use PROPTEST_SEED=%d to reproduce)",
				name, i+1, seed, seed)
			return
		}
	}
}

// QuickCheck runs a property with the default 100 trials.
func QuickCheck(t *testing.T, name string, prop func(g *Generator) bool) {
	t.Helper()
	Check(t, name, Config{}, prop)
}
