package config

import (
	"fmt"
	"strings"
	"time"
)

func validate(c *Config) error {
	if err := c.Universe.validate(); err != nil {
		return err
	}
	if err := c.Hantoo.validate(); err != nil {
		return err
	}
	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := c.Ingest.validate(); err != nil {
		return err
	}
	return nil
}

func (u *UniverseConfig) validate() error {
	if !strings.HasPrefix(u.MasterURL, "http://") && !strings.HasPrefix(u.MasterURL, "https://") {
		return fmt.Errorf("universe.master_url must be an http(s) url")
	}
	return nil
}

func (h *HantooConfig) validate() error {
	if strings.TrimSpace(h.AuthPath) == "" {
		return fmt.Errorf("hantoo.auth_path is required")
	}
	if strings.TrimSpace(h.TokenPath) == "" {
		return fmt.Errorf("hantoo.token_path is required")
	}
	return nil
}

func (s *StorageConfig) validate() error {
	if strings.TrimSpace(s.Bucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	if strings.TrimSpace(s.Prefix) == "" {
		return fmt.Errorf("storage.prefix is required")
	}
	return nil
}

func (i *IngestConfig) validate() error {
	if _, err := time.LoadLocation(i.Timezone); err != nil {
		return fmt.Errorf("ingest.timezone is invalid: %w", err)
	}
	if i.Workers > i.ChunkSize {
		return fmt.Errorf("ingest.workers (%d) cannot exceed ingest.chunk_size (%d)", i.Workers, i.ChunkSize)
	}
	return nil
}
