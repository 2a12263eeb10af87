package reader

import "github.com/tsawler/pdfgraph/core"

// Option configures a Reader.
type Option func(*config)

type config struct {
	strict   bool
	diag     core.Diagnostics
	maxDepth int
	key      []byte
}

func defaultConfig() config {
	return config{
		diag:     core.DiscardDiagnostics,
		maxDepth: 100,
	}
}

// WithStrict makes semantic inconsistencies fatal instead of warnings.
func WithStrict(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithDiagnostics sets where warnings are reported (default: discarded).
func WithDiagnostics(d core.Diagnostics) Option {
	return func(c *config) {
		if d != nil {
			c.diag = d
		}
	}
}

// WithMaxDepth bounds nested object resolution and deep graph walks
// (default: 100).
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithDecryptionKey installs a document key derived elsewhere, so objects
// are decrypted without calling Decrypt.
func WithDecryptionKey(key []byte) Option {
	return func(c *config) {
		c.key = append([]byte(nil), key...)
	}
}
