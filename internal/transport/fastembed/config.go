// Package fastembed runs sentence-transformer models locally through ONNX.
// Builds without cgo get a stub whose constructor fails with ErrUnavailable.
package fastembed

import "errors"

// ErrUnavailable is returned when the binary was built without cgo.
var ErrUnavailable = errors.New("fastembed: not available (binary built without cgo, use an OpenAI-compatible provider)")

// DefaultModel is the MiniLM checkpoint served by the minilm variant.
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// Config holds the local model settings.
type Config struct {
	Model     string
	CacheDir  string
	MaxLength int
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.CacheDir == "" {
		c.CacheDir = "local_cache"
	}
	if c.MaxLength <= 0 {
		c.MaxLength = 512
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	return c
}

// ModelDimension returns the output size of a supported model.
func ModelDimension(model string) (int, bool) {
	dims := map[string]int{
		"sentence-transformers/all-MiniLM-L6-v2": 384,
		"fast-all-MiniLM-L6-v2":                 384,
		"BAAI/bge-small-en-v1.5":                384,
		"BAAI/bge-base-en-v1.5":                 768,
	}
	dim, ok := dims[model]
	return dim, ok
}
