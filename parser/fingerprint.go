package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint derives a content identity from the reviewer, the relative
// time and the first textLen runes of the text.
//
// Two different reviews by the same person, posted at the same relative
// time and starting with the same textLen runes, collapse into one.
func Fingerprint(name, relativeTime, text string, textLen int) string {
	prefix := []rune(NormalizeText(text))
	if textLen > 0 && len(prefix) > textLen {
		prefix = prefix[:textLen]
	}

	h := sha256.New()
	h.Write([]byte(strings.ToLower(NormalizeText(name))))
	h.Write([]byte{0x1f})
	h.Write([]byte(strings.ToLower(NormalizeText(relativeTime))))
	h.Write([]byte{0x1f})
	h.Write([]byte(string(prefix)))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
