package config

import "fmt"

// SessionConfig holds the cookie session settings for the web surface.
type SessionConfig struct {
	Secret string `koanf:"secret"`
	Name   string `koanf:"name"`
	Secure bool   `koanf:"secure"`
}

func (c *SessionConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("session secret is not configured")
	}
	if c.Name == "" {
		return fmt.Errorf("session cookie name is not configured")
	}
	return nil
}
