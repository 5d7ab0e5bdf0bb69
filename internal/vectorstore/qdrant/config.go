package qdrant

import (
	"fmt"
	"time"
)

// Defaults for the Qdrant store.
const (
	DefaultPort        = 6334
	DefaultHNSWEF      = 128
	DefaultUploadBatch = 100
	DefaultTimeout     = 30 * time.Second
)

// Config configures the Qdrant gRPC connection.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
	// HNSWEF is the search-time beam size.
	HNSWEF int
	// UploadBatch caps the points sent per Upsert request.
	UploadBatch int
	Timeout     time.Duration
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.HNSWEF == 0 {
		c.HNSWEF = DefaultHNSWEF
	}
	if c.UploadBatch == 0 {
		c.UploadBatch = DefaultUploadBatch
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("qdrant port out of range: %d", c.Port)
	}
	if c.HNSWEF < 0 {
		return fmt.Errorf("qdrant hnsw_ef must not be negative")
	}
	if c.UploadBatch < 0 {
		return fmt.Errorf("qdrant upload batch must not be negative")
	}
	return nil
}
