// Package reader loads existing PDF documents and resolves their objects
// on demand.
//
// # Opening PDF Files
//
// Use [Open] to memory-map a file, or [NewReader] over any io.ReaderAt:
//
//	r, err := reader.Open("document.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// Opening reads the header and the whole cross-reference chain, following
// /Prev and /XRefStm links so that newer revisions override older ones.
// No object is parsed until it is first requested.
//
// # Strictness
//
// A Reader runs in lenient mode by default: inconsistencies such as a
// misplaced xref offset, a missing %%EOF marker or a reference to a free
// object are reported to the configured [core.Diagnostics] and repaired
// where possible. [WithStrict] turns every such inconsistency into an
// error wrapping core.ErrInconsistent.
//
// # Object Resolution
//
// References read from the file are owned by the Reader that produced them:
//
//   - GetObject(num) - load the current generation of an object
//   - ResolveReference(ref) - resolve a reference owned by this reader
//   - Resolve(obj) - resolve if indirect, otherwise return as-is
//   - ResolveDeep(obj) - expand every reachable reference
//   - Objects() - every in-use object in number order
//
// Objects stored in object streams are loaded through their container,
// which is parsed once and kept for later lookups.
//
// # Encryption
//
// Documents protected by the Standard security handler (RC4, 40 or 128
// bit) are opened with [Reader.Decrypt] or [WithDecryptionKey]. Strings
// and stream payloads are decrypted as objects are loaded. Until a key is
// installed, loading any object other than the encryption dictionary
// fails with core.ErrEncrypted.
//
// # Object Caching
//
// Loaded objects are cached by number and generation, so resolving the
// same reference twice returns the same value. The cache is never
// invalidated.
package reader
