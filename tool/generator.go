package tool

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func GenerateRandomUUID() string {
	return uuid.New().String()
}

// GenerateSessionPassword returns a short random transfer credential.
// Not a long-term secret, it only lives as long as the drop session, but it
// must be unpredictable between sessions so crypto/rand it is.
func GenerateSessionPassword() string {
	b := make([]byte, 8) // 8 bytes = 16 hex chars
	if _, err := rand.Read(b); err != nil {
		return GenerateRandomUUID()[:16] // fallback
	}
	return hex.EncodeToString(b)
}
