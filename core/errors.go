package core

import "github.com/tsawler/pdfgraph/internal/pdferr"

// Error kinds returned by this package and by the document packages built on
// it. Wrapped errors are matched with errors.Is.
var (
	ErrSyntax            = pdferr.ErrSyntax
	ErrCorrupt           = pdferr.ErrCorrupt
	ErrInconsistent      = pdferr.ErrInconsistent
	ErrUnsupported       = pdferr.ErrUnsupported
	ErrNotFound          = pdferr.ErrNotFound
	ErrClosed            = pdferr.ErrClosed
	ErrForeignReference  = pdferr.ErrForeignReference
	ErrCircularReference = pdferr.ErrCircularReference
	ErrDepthExceeded     = pdferr.ErrDepthExceeded
	ErrEncrypted         = pdferr.ErrEncrypted
)
