// Package shortcode produces random short codes for new links.
package shortcode

import (
	"crypto/rand"
	"math/big"
)

const (
	// Alphabet is the base-36 alphabet of generated codes.
	Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// DefaultLength is the length used when a non-positive length is configured.
	DefaultLength = 6
)

// Generator produces short codes on demand.
type Generator interface {
	Generate() string
}

// RandomGenerator draws codes uniformly from Alphabet using crypto/rand.
// It is safe for concurrent use.
type RandomGenerator struct {
	length int
}

// NewRandomGenerator returns a generator for codes of the given length.
func NewRandomGenerator(length int) *RandomGenerator {
	if length <= 0 {
		length = DefaultLength
	}
	return &RandomGenerator{length: length}
}

// Length returns the configured code length.
func (g *RandomGenerator) Length() int { return g.length }

// Generate returns a new random code.
func (g *RandomGenerator) Generate() string {
	b := make([]byte, g.length)
	alphabetLen := big.NewInt(int64(len(Alphabet)))

	for i := range b {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken.
			panic("shortcode: crypto/rand failed: " + err.Error())
		}
		b[i] = Alphabet[n.Int64()]
	}

	return string(b)
}
