package config

import "fmt"

// StorageConfig holds the settings for the uploaded image store.
type StorageConfig struct {
	Root string `koanf:"root"`
}

func (c *StorageConfig) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("storage root is not configured")
	}
	return nil
}
