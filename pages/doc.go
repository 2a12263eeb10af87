// Package pages walks the PDF page tree.
//
// A document's pages hang off the catalog's /Pages entry as a tree of
// /Pages nodes with /Page leaves. [PageTree] flattens that tree into
// document order:
//
//	catalog := pages.NewCatalog(catalogDict, maxDepth)
//	tree, _ := catalog.PageTree()
//	all, _ := tree.Pages()
//	first, _ := tree.GetPage(0) // 0-indexed
//
// # Bounded Traversal
//
// The walk takes an explicit nesting limit. A tree nested deeper than the
// limit fails with core.ErrDepthExceeded, and a node that lists one of its
// own ancestors among its kids fails with core.ErrCircularReference. A
// page shared by two branches is returned once per occurrence.
//
// # Inherited Attributes
//
// /Resources, /MediaBox, /CropBox and /Rotate may be set on any ancestor
// node. [Page] looks on the page first and then on the nearest ancestor
// that sets the attribute.
//
// References are resolved through their owning document, so the package
// works on dictionaries from a reader or a writer alike.
package pages
