package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const realmsYAML = `
realms:
  - name: company-a-realm
    base_url: http://localhost:8080
    realm: company-a-realm
    client_id: portal-admin
    client_secret: secret-a
  - name: company-b-realm
    base_url: http://localhost:8080
    realm: company-b-realm
    client_id: portal-admin
    client_secret: secret-b
domain_realms:
  company-a.com: company-a-realm
  company-b.com: company-b-realm
default_realm: company-a-realm
`

func writeRealmsFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "realms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRealmsConfig(t *testing.T) {
	t.Run("valid registry", func(t *testing.T) {
		cfg, err := LoadRealmsConfig(writeRealmsFile(t, realmsYAML))
		require.NoError(t, err)
		require.Len(t, cfg.Realms, 2)
		assert.Equal(t, "company-a-realm", cfg.DefaultRealm)
		assert.Equal(t, "company-b-realm", cfg.DomainRealms["company-b.com"])
		assert.Equal(t, "secret-a", cfg.Realms[0].ClientSecret)
	})

	t.Run("missing credentials are rejected", func(t *testing.T) {
		_, err := LoadRealmsConfig(writeRealmsFile(t, `
realms:
  - name: broken-realm
    base_url: http://localhost:8080
    realm: broken-realm
default_realm: broken-realm
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client_id")
	})

	t.Run("domain mapping to unknown realm is rejected", func(t *testing.T) {
		_, err := LoadRealmsConfig(writeRealmsFile(t, `
realms:
  - name: company-a-realm
    base_url: http://localhost:8080
    realm: company-a-realm
    client_id: portal-admin
    client_secret: secret-a
domain_realms:
  nowhere.io: ghost-realm
default_realm: company-a-realm
`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown realm")
	})

	t.Run("empty registry is rejected", func(t *testing.T) {
		_, err := LoadRealmsConfig(writeRealmsFile(t, `default_realm: x`))
		require.Error(t, err)
	})
}
