package pdfgraph

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/pages"
	"github.com/tsawler/pdfgraph/reader"
	"github.com/tsawler/pdfgraph/security"
	"github.com/tsawler/pdfgraph/writer"
)

// ErrPassword is returned when an encrypted document cannot be opened with
// the configured password.
var ErrPassword = errors.New("pdfgraph: incorrect password")

// Document provides a fluent interface over a PDF file. Each configuration
// method returns a new Document, so a partially configured Document can be
// reused as a template.
type Document struct {
	// Source
	filename string

	// Lifecycle
	reader       *reader.Reader
	ownsReader   bool // true if we opened the reader and should close it
	readerOpened bool
	unlocked     bool

	// Configuration
	options Options

	// Accumulated error (fail-fast)
	err error

	// Warnings reported by the reader and writer
	warnings *core.WarningList
}

// clone creates a shallow copy of the Document with a copy of options.
func (d *Document) clone() *Document {
	return &Document{
		filename:     d.filename,
		reader:       d.reader,
		ownsReader:   d.ownsReader,
		readerOpened: d.readerOpened,
		unlocked:     d.unlocked,
		options:      d.options.clone(),
		err:          d.err,
		warnings:     d.warnings,
	}
}

// diagnostics returns the sink warnings are reported to.
func (d *Document) diagnostics() core.Diagnostics {
	if d.warnings == nil {
		d.warnings = &core.WarningList{}
	}
	if d.options.logger == nil {
		return d.warnings
	}
	return teeDiagnostics{d.warnings, core.LogDiagnostics(d.options.logger)}
}

type teeDiagnostics []core.Diagnostics

func (t teeDiagnostics) Warn(w core.Warning) {
	for _, d := range t {
		d.Warn(w)
	}
}

func (d *Document) collected() []Warning {
	if d.warnings == nil {
		return nil
	}
	return append([]Warning(nil), d.warnings.Warnings...)
}

// ensureReader opens the file if not already open and applies the
// password.
func (d *Document) ensureReader() error {
	if d.err != nil {
		return d.err
	}
	if !d.readerOpened {
		if d.filename == "" {
			return fmt.Errorf("no filename specified")
		}
		opts := []reader.Option{
			reader.WithStrict(d.options.strict),
			reader.WithDiagnostics(d.diagnostics()),
		}
		if d.options.maxDepth > 0 {
			opts = append(opts, reader.WithMaxDepth(d.options.maxDepth))
		}
		r, err := reader.Open(d.filename, opts...)
		if err != nil {
			return fmt.Errorf("failed to open PDF: %w", err)
		}
		d.reader = r
		d.ownsReader = true
		d.readerOpened = true
	}
	return d.unlock()
}

// unlock authenticates an encrypted document, trying the empty user
// password when none was configured.
func (d *Document) unlock() error {
	if d.unlocked || !d.reader.IsEncrypted() {
		return nil
	}
	result, err := d.reader.Decrypt(d.options.password)
	if err != nil {
		return fmt.Errorf("failed to decrypt: %w", err)
	}
	if result == security.NotAuthenticated {
		if d.options.hasPassword {
			return ErrPassword
		}
		return fmt.Errorf("%w: document is encrypted and no password was given", ErrPassword)
	}
	d.unlocked = true
	return nil
}

// Close releases resources associated with the Document.
// It is safe to call Close multiple times.
func (d *Document) Close() error {
	if d.ownsReader && d.reader != nil {
		err := d.reader.Close()
		d.reader = nil
		d.ownsReader = false
		d.readerOpened = false
		return err
	}
	return nil
}

// ============================================================================
// Configuration Methods (return new Document instance)
// ============================================================================

// Strict makes inconsistencies in the file fatal instead of warnings.
//
// Example:
//
//	objects, _, err := pdfgraph.Open("doc.pdf").Strict().Objects()
func (d *Document) Strict() *Document {
	nd := d.clone()
	nd.options.strict = true
	return nd
}

// Lenient repairs inconsistencies where possible and reports them as
// warnings. This is the default.
func (d *Document) Lenient() *Document {
	nd := d.clone()
	nd.options.strict = false
	return nd
}

// MaxDepth bounds nested object resolution and graph copying.
//
// Example:
//
//	catalog, _, err := pdfgraph.Open("doc.pdf").MaxDepth(50).Catalog()
func (d *Document) MaxDepth(n int) *Document {
	nd := d.clone()
	if n <= 0 {
		nd.err = fmt.Errorf("invalid max depth %d", n)
		return nd
	}
	nd.options.maxDepth = n
	return nd
}

// Password sets the user or owner password for an encrypted document.
//
// Example:
//
//	info, _, err := pdfgraph.Open("secret.pdf").Password("owner").Info()
func (d *Document) Password(password string) *Document {
	nd := d.clone()
	nd.options.password = password
	nd.options.hasPassword = true
	return nd
}

// Compress Flate-encodes unfiltered streams when rewriting.
func (d *Document) Compress() *Document {
	nd := d.clone()
	nd.options.compress = true
	return nd
}

// Encrypt protects rewritten output with RC4 and the given passwords.
// use128 selects 128-bit keys instead of 40-bit.
//
// Example:
//
//	_, _, err := pdfgraph.Open("doc.pdf").Encrypt("user", "owner", true).Rewrite(out)
func (d *Document) Encrypt(user, owner string, use128 bool) *Document {
	nd := d.clone()
	nd.options.encrypt = true
	nd.options.userPass = user
	nd.options.ownerPass = owner
	nd.options.encrypt128 = use128
	return nd
}

// Logger also forwards warnings to logger as they are reported.
func (d *Document) Logger(logger *slog.Logger) *Document {
	nd := d.clone()
	nd.options.logger = logger
	return nd
}

// ============================================================================
// Operations
// ============================================================================

// Version returns the version from the file header.
// This does NOT close the reader, allowing further operations.
func (d *Document) Version() (string, error) {
	if err := d.ensureReader(); err != nil {
		return "", err
	}
	return d.reader.Version().String(), nil
}

// Catalog returns the document catalog. References in the returned
// dictionary resolve lazily, so the reader is NOT closed.
//
// Example:
//
//	doc := pdfgraph.Open("document.pdf")
//	defer doc.Close()
//	catalog, warnings, err := doc.Catalog()
func (d *Document) Catalog() (core.Dict, []Warning, error) {
	if err := d.ensureReader(); err != nil {
		return nil, d.collected(), err
	}
	catalog, err := d.reader.Catalog()
	return catalog, d.collected(), err
}

// Info returns the document information dictionary, or nil when there is
// none. The reader is NOT closed.
func (d *Document) Info() (core.Dict, []Warning, error) {
	if err := d.ensureReader(); err != nil {
		return nil, d.collected(), err
	}
	info, err := d.reader.Info()
	return info, d.collected(), err
}

// Objects returns every in-use indirect object in number order.
// The reader is NOT closed.
func (d *Document) Objects() ([]core.IndirectObject, []Warning, error) {
	if err := d.ensureReader(); err != nil {
		return nil, d.collected(), err
	}
	objects, err := d.reader.Objects()
	return objects, d.collected(), err
}

// Pages returns the document's pages in order, with inherited attributes
// resolved through the page tree. The walk uses the configured depth
// limit. The reader is NOT closed.
//
// Example:
//
//	doc := pdfgraph.Open("document.pdf")
//	defer doc.Close()
//	list, _, err := doc.Pages()
//	for _, p := range list {
//	    w, _ := p.Width()
//	}
func (d *Document) Pages() ([]*pages.Page, []Warning, error) {
	if err := d.ensureReader(); err != nil {
		return nil, d.collected(), err
	}
	catalog, err := d.reader.Catalog()
	if err != nil {
		return nil, d.collected(), err
	}
	tree, err := pages.NewCatalog(catalog, d.reader.MaxDepth()).PageTree()
	if err != nil {
		return nil, d.collected(), err
	}
	list, err := tree.Pages()
	return list, d.collected(), err
}

// PageCount returns the number of pages found by walking the page tree.
// The reader is NOT closed.
func (d *Document) PageCount() (int, error) {
	list, _, err := d.Pages()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// Rewrite copies everything reachable from the catalog and the info
// dictionary into a new file written to w, renumbering objects from 1.
// This is a terminal operation that closes the underlying reader.
//
// Example:
//
//	n, warnings, err := pdfgraph.Open("in.pdf").Compress().Rewrite(out)
func (d *Document) Rewrite(w io.Writer) (int64, []Warning, error) {
	defer d.Close()
	if err := d.ensureReader(); err != nil {
		return 0, d.collected(), err
	}

	opts := []writer.Option{
		writer.WithVersion(d.reader.Version().String()),
		writer.WithStrict(d.options.strict),
		writer.WithDiagnostics(d.diagnostics()),
		writer.WithCompression(d.options.compress),
	}
	if d.options.maxDepth > 0 {
		opts = append(opts, writer.WithMaxDepth(d.options.maxDepth))
	}

	out, err := writer.CloneDocument(d.reader, opts...)
	if err != nil {
		return 0, d.collected(), fmt.Errorf("failed to copy document: %w", err)
	}
	if d.options.encrypt {
		if err := out.Encrypt(d.options.userPass, d.options.ownerPass, d.options.encrypt128); err != nil {
			return 0, d.collected(), err
		}
	}

	n, err := out.Write(w)
	if err != nil {
		return n, d.collected(), fmt.Errorf("failed to write document: %w", err)
	}
	return n, d.collected(), nil
}
