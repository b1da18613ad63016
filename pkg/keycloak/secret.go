package keycloak

import (
	"crypto/rand"
	"fmt"
)

// TOTPSecretLength is the length of a generated TOTP shared secret
const TOTPSecretLength = 32

// base32Alphabet is the unpadded Base32 alphabet shared secrets are drawn from
const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

// GenerateTOTPSecret produces a shared secret of the given length drawn
// uniformly at random from the unpadded Base32 alphabet. The secret is enrolled
// both in the provider and in the user's authenticator app, so it must come
// from a cryptographically secure source and must never be logged.
func GenerateTOTPSecret(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("secret length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	secret := make([]byte, length)
	for i, b := range buf {
		// 32 divides 256, so the modulo does not bias the distribution
		secret[i] = base32Alphabet[int(b)%len(base32Alphabet)]
	}

	return string(secret), nil
}
