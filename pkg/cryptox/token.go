package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// ResetTokenBytes is the entropy of a reset token, 43 characters once encoded.
const ResetTokenBytes = 32

// NewResetToken returns a single-use reset code: ResetTokenBytes from
// crypto/rand, unpadded base64url so it survives copy-paste from an email.
func NewResetToken() (string, error) {
	return randomToken(ResetTokenBytes)
}

func randomToken(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("cryptox: token length %d", n)
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
