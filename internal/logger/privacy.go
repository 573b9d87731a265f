package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const defaultHashSalt = "default-salt-change-in-production"

var hashSalt = defaultHashSalt

// InitHashSalt sets the salt used by HashUsername. An empty salt keeps the default.
func InitHashSalt(salt string) {
	if salt == "" {
		hashSalt = defaultHashSalt
		return
	}
	hashSalt = salt
}

// HashUsername creates a privacy-preserving tag for a username so log lines
// can be correlated without naming the account. Case and surrounding spaces
// do not change the result.
func HashUsername(username string) string {
	normalized := strings.ToLower(strings.TrimSpace(username))
	hash := sha256.Sum256([]byte(normalized + ":" + hashSalt))
	return hex.EncodeToString(hash[:])[:8]
}

// SanitizeDescription redacts free text such as expense labels and notes,
// keeping only its shape.
func SanitizeDescription(desc string) string {
	if desc == "" {
		return "<empty>"
	}

	return fmt.Sprintf("<redacted: %d words, %d chars>", len(strings.Fields(desc)), len(desc))
}

// SanitizeText is a general-purpose sanitizer for any user-provided text.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	runes := []rune(text)
	if len(runes) <= 10 {
		return fmt.Sprintf("<%d chars>", len(runes))
	}

	return fmt.Sprintf("%s...<%d chars>", string(runes[:3]), len(runes))
}
