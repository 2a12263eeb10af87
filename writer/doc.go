// Package writer builds PDF documents from an append-only list of objects
// and serializes them with a classic cross-reference table.
//
// Objects are numbered from 1 in the order they are added and written
// with generation 0. References to objects in other documents, such as
// those produced by a [reader.Reader], may appear anywhere in the graph:
// before output the writer sweeps everything reachable from the catalog
// and clones each foreign object exactly once, so shared objects stay
// shared and cycles terminate.
//
//	w, err := writer.CloneDocument(r)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := w.Write(out); err != nil {
//	    log.Fatal(err)
//	}
//
// Write is terminal: a writer produces its output once.
package writer
