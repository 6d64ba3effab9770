package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

const idPrefix = "listing:"

// RecordID returns a stable ID for a listing without one. The same row in the
// same position always yields the same ID; duplicates at different rows differ.
func RecordID(row int, title, description, skills string) string {
	h := sha256.New()
	for _, part := range []string{strconv.Itoa(row), title, description, skills} {
		h.Write([]byte(strings.TrimSpace(part)))
		h.Write([]byte{0})
	}
	return idPrefix + hex.EncodeToString(h.Sum(nil))[:16]
}
