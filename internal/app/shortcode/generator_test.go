package shortcode

import (
	"strings"
	"testing"
)

func TestRandomGenerator_Generate(t *testing.T) {
	g := NewRandomGenerator(DefaultLength)

	t.Run("correct length", func(t *testing.T) {
		if code := g.Generate(); len(code) != 6 {
			t.Errorf("got length %d, want 6", len(code))
		}
	})

	t.Run("base36 alphabet only", func(t *testing.T) {
		long := NewRandomGenerator(200).Generate()
		for _, c := range long {
			if !strings.ContainsRune(Alphabet, c) {
				t.Errorf("code contains non-base36 char: %q", c)
			}
		}
	})

	t.Run("non-positive length uses default", func(t *testing.T) {
		for _, n := range []int{0, -3} {
			gen := NewRandomGenerator(n)
			if gen.Length() != DefaultLength {
				t.Errorf("NewRandomGenerator(%d).Length() = %d, want %d", n, gen.Length(), DefaultLength)
			}
		}
	})

	t.Run("uniqueness over 1000 calls", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for i := 0; i < 1000; i++ {
			code := NewRandomGenerator(10).Generate()
			if _, exists := seen[code]; exists {
				t.Fatalf("duplicate code on iteration %d: %q", i, code)
			}
			seen[code] = struct{}{}
		}
	})
}
