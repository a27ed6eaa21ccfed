package model

import (
	"fmt"
	"math/rand"
	"strings"
)

// IDLength is the length of generated snapshot IDs.
const IDLength = 6

const idAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateID returns a new random snapshot ID. taken reports whether a
// candidate ID is already in use; generation retries until it finds a
// free one. With 62^6 candidates, collisions are rare enough that the
// retry loop is effectively a single pass.
func GenerateID(taken func(string) bool) string {
	for {
		b := make([]byte, IDLength)
		for i := range b {
			b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
		}
		id := string(b)
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// ValidateID checks that input has the shape of a snapshot ID. It does
// not check existence, only form.
func ValidateID(input string) error {
	s := strings.TrimSpace(input)
	if s == "" {
		return fmt.Errorf("empty snapshot ID")
	}
	if len(s) != IDLength {
		return fmt.Errorf("invalid snapshot ID %q: must be %d characters", input, IDLength)
	}
	for _, r := range s {
		if !strings.ContainsRune(idAlphabet, r) {
			return fmt.Errorf("invalid snapshot ID %q: must be alphanumeric", input)
		}
	}
	return nil
}
