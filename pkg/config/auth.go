package config

import (
	"fmt"
	"time"
)

// AuthConfig holds the settings for issuing and verifying API bearer tokens.
type AuthConfig struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
}

func (c *AuthConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("auth secret is not configured")
	}
	if len(c.Secret) < 32 {
		return fmt.Errorf("auth secret must be at least 32 bytes, got %d", len(c.Secret))
	}
	if c.TTL <= 0 {
		return fmt.Errorf("auth token TTL is not configured")
	}
	return nil
}
