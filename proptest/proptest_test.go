package proptest

import (
	"strings"
	"testing"
)

func TestGenerator_Deterministic(t *testing.T) {
	// Same seed should produce same sequence
	seed := int64(12345)

	g1 := New(seed)
	g2 := New(seed)

	for i := 0; i < 100; i++ {
		v1 := g1.Intn(1000)
		v2 := g2.Intn(1000)
		if v1 != v2 {
			t.Errorf("same seed produced different values at iteration %d: %d vs %d", i, v1, v2)
		}
	}
}

func TestGenerator_Seed(t *testing.T) {
	seed := int64(99999)
	g := New(seed)
	if g.Seed() != seed {
		t.Errorf("Seed() = %d, want %d", g.Seed(), seed)
	}
}

func TestGenerator_ZeroSeed_UsesTime(t *testing.T) {
	g := New(0)
	if g.Seed() == 0 {
		t.Error("seed 0 should be replaced with time-based seed")
	}
}

func TestIntRange_Bounds(t *testing.T) {
	g := New(42)
	min, max := 10, 20

	for i := 0; i < 1000; i++ {
		n := g.IntRange(min, max)
		if n < min || n > max {
			t.Errorf("IntRange(%d, %d) = %d, out of bounds", min, max, n)
		}
	}
}

func TestInt64Range_Bounds(t *testing.T) {
	g := New(42)
	var min, max int64 = -50, 50

	for i := 0; i < 1000; i++ {
		n := g.Int64Range(min, max)
		if n < min || n > max {
			t.Errorf("Int64Range(%d, %d) = %d, out of bounds", min, max, n)
		}
	}
}

func TestIdentifier_Valid(t *testing.T) {
	g := New(42)
	for i := 0; i < 1000; i++ {
		id := g.Identifier(16)
		if len(id) == 0 || len(id) > 16 {
			t.Fatalf("Identifier(16) = %q, bad length", id)
		}
		if !strings.ContainsRune(CharsetIdentStart, rune(id[0])) {
			t.Fatalf("Identifier(16) = %q, bad first character", id)
		}
		for _, c := range id[1:] {
			if !strings.ContainsRune(CharsetIdentBody, c) {
				t.Fatalf("Identifier(16) = %q, bad character %q", id, c)
			}
		}
	}
}

func TestStringFrom_Charset(t *testing.T) {
	g := New(42)
	for i := 0; i < 500; i++ {
		s := g.StringFrom(CharsetAlphaLower, 12)
		for _, c := range s {
			if !strings.ContainsRune(CharsetAlphaLower, c) {
				t.Fatalf("StringFrom = %q, character %q outside charset", s, c)
			}
		}
	}
}

func TestOneOf_Membership(t *testing.T) {
	g := New(42)
	values := []string{"a", "b", "c"}
	for i := 0; i < 100; i++ {
		v := Pick(g, values)
		if v != "a" && v != "b" && v != "c" {
			t.Fatalf("Pick = %q, not a member", v)
		}
	}
	for i := 0; i < 100; i++ {
		n := OneOf(g, 1, 2, 3)
		if n < 1 || n > 3 {
			t.Fatalf("OneOf = %d, not a member", n)
		}
	}
}

func TestSliceExact_Length(t *testing.T) {
	g := New(42)
	s := SliceExact(g, 7, func(g *Generator) int { return g.Intn(10) })
	if len(s) != 7 {
		t.Errorf("SliceExact length = %d, want 7", len(s))
	}
}

func TestCheck_RunsTrials(t *testing.T) {
	count := 0
	Check(t, "counts trials", Config{NumTrials: 25, Seed: 7}, func(g *Generator) bool {
		count++
		return true
	})
	if count != 25 {
		t.Errorf("Check ran %d trials, want 25", count)
	}
}
