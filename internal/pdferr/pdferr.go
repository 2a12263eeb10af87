// Package pdferr defines the error kinds shared by the parsing, codec and
// document packages. Callers outside the module use the re-exports in core.
package pdferr

import "errors"

var (
	// ErrSyntax marks malformed bytes that cannot be parsed.
	ErrSyntax = errors.New("pdf syntax error")

	// ErrCorrupt marks a stream payload that a codec cannot decode.
	ErrCorrupt = errors.New("corrupt stream data")

	// ErrInconsistent marks a semantic inconsistency. Lenient readers
	// recover from these and report a warning instead.
	ErrInconsistent = errors.New("inconsistent pdf structure")

	// ErrUnsupported marks a filter, predictor or feature that is not implemented.
	ErrUnsupported = errors.New("unsupported pdf feature")

	// ErrNotFound marks a lookup of an object that does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrClosed is returned by every operation on a closed document.
	ErrClosed = errors.New("document is closed")

	// ErrForeignReference marks a reference resolved against a document
	// that did not produce it.
	ErrForeignReference = errors.New("reference belongs to another document")

	// ErrCircularReference marks a reference chain that loops back on itself.
	ErrCircularReference = errors.New("circular reference")

	// ErrEncrypted marks an object read from an encrypted document before
	// a decryption key was installed.
	ErrEncrypted = errors.New("document has not been decrypted")

	// ErrDepthExceeded marks a traversal that went deeper than allowed.
	ErrDepthExceeded = errors.New("maximum resolution depth exceeded")
)
