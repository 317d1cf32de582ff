package codegen

import "math/rand/v2"

// Alphabet is the set of characters short codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the code length used when none is configured.
const DefaultLength = 6

// Generator produces random short codes of a fixed length.
// Codes are not guaranteed unique; the store enforces that.
type Generator struct {
	length int
}

// New creates a generator for codes of the given length
func New(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Length returns the configured code length
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new candidate code.
// Safe for concurrent use: math/rand/v2 top-level functions are goroutine safe.
func (g *Generator) Generate() string {
	b := make([]byte, g.length)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}

// IsValid reports whether code is a non-empty alphanumeric string of at most maxLen bytes.
func IsValid(code string, maxLen int) bool {
	if code == "" || len(code) > maxLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
