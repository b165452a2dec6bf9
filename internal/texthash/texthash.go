// Package texthash fingerprints article content so that formatting and
// punctuation differences do not hide identical text.
package texthash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const separator = "|||"

// NormalizeText lower-cases, replaces every non-alphanumeric rune with a
// space, collapses whitespace runs and trims the result.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}

	lowered := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// ContentHash returns the SHA-256 hex digest of the normalized headline and
// text joined by a separator. The separator keeps headline/body boundaries
// from colliding.
func ContentHash(headline, text string) string {
	combined := NormalizeText(headline) + separator + NormalizeText(text)
	sum := sha256.Sum256([]byte(combined))
	return hex.EncodeToString(sum[:])
}

// Similarity is 1.0 when the digests are identical, 0.0 otherwise.
func Similarity(digest1, digest2 string) float64 {
	if digest1 == digest2 {
		return 1.0
	}
	return 0.0
}
