package keycloak

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlzd/gotp"
)

func TestGenerateTOTPSecret(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		secret, err := GenerateTOTPSecret(TOTPSecretLength)
		require.NoError(t, err)
		assert.Len(t, secret, TOTPSecretLength)
		for _, ch := range secret {
			assert.Contains(t, base32Alphabet, string(ch))
		}
	})

	t.Run("consecutive secrets do not collide", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 200; i++ {
			secret, err := GenerateTOTPSecret(TOTPSecretLength)
			require.NoError(t, err)
			assert.False(t, seen[secret], "secret generated twice")
			seen[secret] = true
		}
	})

	t.Run("generated secret is accepted by a TOTP implementation", func(t *testing.T) {
		secret, err := GenerateTOTPSecret(TOTPSecretLength)
		require.NoError(t, err)
		code := gotp.NewDefaultTOTP(secret).Now()
		assert.Len(t, code, TOTPDigits)
	})

	t.Run("non-positive length is rejected", func(t *testing.T) {
		_, err := GenerateTOTPSecret(0)
		require.Error(t, err)
	})
}
