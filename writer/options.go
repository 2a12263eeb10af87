package writer

import "github.com/tsawler/pdfgraph/core"

// DefaultVersion is the header version written when WithVersion is not given.
const DefaultVersion = "1.7"

// DefaultMaxDepth bounds graph sweeping when no WithMaxDepth option is given.
const DefaultMaxDepth = 1000

// Option configures a Writer.
type Option func(*config)

type config struct {
	version  string
	diag     core.Diagnostics
	strict   bool
	compress bool
	maxDepth int
}

func defaultConfig() config {
	return config{
		version:  DefaultVersion,
		diag:     core.DiscardDiagnostics,
		maxDepth: DefaultMaxDepth,
	}
}

// WithVersion sets the version in the "%PDF-x.y" header line.
func WithVersion(version string) Option {
	return func(c *config) {
		if version != "" {
			c.version = version
		}
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

// WithStrict makes an unresolvable foreign reference fail the sweep
// instead of becoming null.
func WithStrict(strict bool) Option {
	return func(c *config) {
		c.strict = strict
	}
}

// WithCompression Flate-encodes streams that have no filter when the
// document is written.
func WithCompression(compress bool) Option {
	return func(c *config) {
		c.compress = compress
	}
}

// WithMaxDepth bounds the nesting the sweep follows (default: 1000).
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}
