package pdfgraph

import "log/slog"

// Options holds configuration for reading and rewriting a document.
type Options struct {
	strict   bool
	maxDepth int // 0 means the reader and writer defaults

	password    string
	hasPassword bool

	compress   bool
	encrypt    bool
	userPass   string
	ownerPass  string
	encrypt128 bool

	logger *slog.Logger
}

// defaultOptions returns the default options: lenient parsing, library
// depth limits, no password, output written as read.
func defaultOptions() Options {
	return Options{
		strict:     false,
		maxDepth:   0,
		compress:   false,
		encrypt128: true,
	}
}

// clone creates a copy of Options. Options holds no reference types
// besides the logger, which is shared.
func (o Options) clone() Options {
	return o
}
