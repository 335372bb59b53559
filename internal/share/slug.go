package share

import (
	"crypto/rand"
	"fmt"
)

// SlugLength is the number of characters in a generated slug.
const SlugLength = 7

// 64 symbols, so a random byte masked to 6 bits maps without bias.
const slugAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// SlugFunc produces a candidate slug.
type SlugFunc func() (string, error)

// RandomSlug draws a SlugLength slug from the URL-safe base64 alphabet.
func RandomSlug() (string, error) {
	buf := make([]byte, SlugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[b&63]
	}
	return string(buf), nil
}

// ValidSlug reports whether s could have been produced by a slug generator.
// It accepts any non-empty URL-safe string up to 64 characters so that
// slugs from older generators keep resolving.
func ValidSlug(s string) bool {
	if s == "" || len(s) > 64 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
