// Package resolver provides PDF indirect reference resolution.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file. This package resolves these references
// through the document that owns them, following chains of references and
// detecting circular dependencies. It works with any core.ReferenceResolver,
// so readers and writers are handled alike.
//
// # Basic Usage
//
// Create a resolver with a document and resolve references:
//
//	res := resolver.NewResolver(doc)
//	obj, err := res.Resolve(ref)
//
// # Deep Resolution
//
// For complete expansion of nested references in dictionaries and arrays:
//
//	resolved, err := res.ResolveDeep(obj)
//
// This recursively resolves all indirect references within the object tree.
//
// # Cycle Detection
//
// A reference that points back into the branch being expanded fails with
// core.ErrCircularReference, and exceeding the maximum depth fails with
// core.ErrDepthExceeded:
//
//	res := resolver.NewResolver(doc, resolver.WithMaxDepth(50))
//
// Structures that are cyclic by construction, like page trees, can be
// expanded with KeepCycles, which leaves back references in place.
package resolver
