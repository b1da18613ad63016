package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// RealmConfig holds the connection settings for one realm's service client
type RealmConfig struct {
	Name         string `yaml:"name"`
	BaseURL      string `yaml:"base_url"`
	Realm        string `yaml:"realm"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// RealmsConfig is the realm registry loaded at startup: the realms the portal
// administers, the email-domain routing table, and the default realm used when
// no domain matches.
type RealmsConfig struct {
	Realms       []RealmConfig     `yaml:"realms"`
	DomainRealms map[string]string `yaml:"domain_realms"`
	DefaultRealm string            `yaml:"default_realm"`
}

// LoadRealmsConfig reads and validates the realm registry from a YAML file
func LoadRealmsConfig(path string) (*RealmsConfig, error) {
	var cfg RealmsConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read realms config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid realms config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the registry for missing or inconsistent entries
func (c *RealmsConfig) Validate() error {
	if len(c.Realms) == 0 {
		return fmt.Errorf("at least one realm must be configured")
	}
	if c.DefaultRealm == "" {
		return fmt.Errorf("default_realm must be set")
	}

	names := make(map[string]bool, len(c.Realms))
	for _, realmCfg := range c.Realms {
		if realmCfg.Name == "" || realmCfg.BaseURL == "" || realmCfg.Realm == "" {
			return fmt.Errorf("realm entries require name, base_url and realm")
		}
		if realmCfg.ClientID == "" || realmCfg.ClientSecret == "" {
			return fmt.Errorf("realm %s: client_id and client_secret are required", realmCfg.Name)
		}
		if names[realmCfg.Name] {
			return fmt.Errorf("duplicate realm name: %s", realmCfg.Name)
		}
		names[realmCfg.Name] = true
	}

	for domain, realmName := range c.DomainRealms {
		if !names[realmName] {
			return fmt.Errorf("domain %s maps to unknown realm: %s", domain, realmName)
		}
	}
	return nil
}
