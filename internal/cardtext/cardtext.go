// Package cardtext derives a stable content identity for a card so imports
// can recognise a question they have seen before, regardless of incidental
// formatting differences in the source file.
package cardtext

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mnemohq/mnemo/internal/domain"
)

// Normalize returns the canonical text of a card: each field lowercased,
// trimmed and with line endings unified, joined by newlines so fields can
// never run together.
func Normalize(c domain.Card) string {
	parts := []string{c.Question, c.Answer, c.Context}
	for i, p := range parts {
		p = strings.ToLower(p)
		p = strings.TrimSpace(p)
		parts[i] = strings.ReplaceAll(p, "\r\n", "\n")
	}
	return strings.Join(parts, "\n")
}

// Hash returns the SHA-256 of the normalized card content as a hex string.
// Two cards differing only in case, surrounding whitespace or line endings
// hash identically.
func Hash(c domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(c)))
	return hex.EncodeToString(sum[:])
}
