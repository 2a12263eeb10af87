// Package pdfgraph provides a fluent API for reading PDF files as graphs of
// objects and writing them back out.
//
// Basic usage:
//
//	doc := pdfgraph.Open("document.pdf")
//	defer doc.Close()
//	catalog, warnings, err := doc.Catalog()
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdfgraph.FormatWarnings(warnings))
//	}
//
// The file stays mapped until Close, since references in returned objects
// resolve lazily. Rewrite is terminal: it closes the file itself, so it can
// be chained directly:
//
//	n, _, err := pdfgraph.Open("secret.pdf").
//	    Password("owner").
//	    Strict().
//	    Compress().
//	    Rewrite(out)
//
// For lower-level access, use the reader and writer packages directly.
package pdfgraph

import (
	"strings"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/reader"
)

// Warning is a non-fatal problem found while reading or writing.
type Warning = core.Warning

// Open returns a Document for the named file. The file is opened by the
// first operation that needs it and stays open until Close or a terminal
// operation.
//
// Example:
//
//	doc := pdfgraph.Open("document.pdf")
//	defer doc.Close()
//	objects, warnings, err := doc.Objects()
func Open(filename string) *Document {
	return &Document{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromReader creates a Document from an already-opened reader.Reader.
// The caller is responsible for closing the reader, and the reader's own
// strictness and diagnostics settings apply to it.
//
// Example:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	catalog, _, err := pdfgraph.FromReader(r).Catalog()
func FromReader(r *reader.Reader) *Document {
	return &Document{
		reader:       r,
		ownsReader:   false,
		readerOpened: true,
		options:      defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil.
//
// Example:
//
//	doc := pdfgraph.Open("document.pdf")
//	defer doc.Close()
//	version := pdfgraph.Must(doc.Version())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustValue is a helper that wraps a call to Catalog, Objects or Rewrite
// and panics if the error is non-nil. It discards warnings.
//
// Example:
//
//	n := pdfgraph.MustValue(pdfgraph.Open("in.pdf").Rewrite(out))
func MustValue[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
