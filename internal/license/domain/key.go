package domain

import (
	"crypto/rand"
	"regexp"
	"strings"
)

// keyAlphabet excludes visually ambiguous characters (0/O, 1/I).
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	keyPrefix = "SK"
	keyChunks = 4
	keyChunk  = 5
)

var keyPattern = regexp.MustCompile(`^SK(-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{5}){4}$`)

// GenerateKey produces a license key of the form SK-XXXXX-XXXXX-XXXXX-XXXXX.
// The generator does not check for collisions; the unique index on
// licenses.license_key is the authoritative guard and the caller retries on
// a duplicate-key insert.
func GenerateKey() (string, error) {
	bytes := make([]byte, keyChunks*keyChunk)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	parts := make([]string, 0, keyChunks+1)
	parts = append(parts, keyPrefix)
	i := 0
	for c := 0; c < keyChunks; c++ {
		var sb strings.Builder
		for j := 0; j < keyChunk; j++ {
			sb.WriteByte(keyAlphabet[int(bytes[i])%len(keyAlphabet)])
			i++
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "-"), nil
}

// ValidKeyFormat reports whether s looks like a license key. It is a cheap
// pre-filter for user-supplied input, not a substitute for a store lookup.
func ValidKeyFormat(s string) bool {
	return keyPattern.MatchString(strings.ToUpper(strings.TrimSpace(s)))
}
