// Package core provides the PDF object model together with the lexer,
// parser and cross-reference machinery that read it from bytes.
//
// # Object Types
//
// Every value satisfies the [Object] interface:
//
//   - [Null], [Bool], [Int] and [Real]
//   - [String] for opaque byte strings and [TextString] for strings that
//     decode as PDFDocEncoding or UTF-16BE text
//   - [Name], [Array] and [Dict]
//   - [Stream], a dictionary with a raw payload that is decoded on demand
//   - [IndirectRef], a (number, generation) key resolved through the
//     document that produced it
//
// [Dict.Get] and [Array.Get] follow indirect references; [Dict.Raw] and
// [Array.Raw] return them untouched. Each object writes its canonical form
// with Encode, optionally encrypting strings and stream payloads.
//
// # Parsing
//
// The [Lexer] tokenizes a random-access source and the [Parser] builds
// objects from the tokens, including streams whose /Length is itself an
// indirect object.
//
// # Cross-Reference Sections
//
// [XRefParser] walks the chain of classic tables and cross-reference
// streams from startxref, merging them into one [XRefTable] in which the
// newest definition of an object wins. [ObjectStream] locates objects that
// are stored compressed inside other streams.
//
// # Diagnostics
//
// Recoverable problems are reported through a [Policy]. In strict mode they
// are returned as errors wrapping [ErrInconsistent]; otherwise they are
// passed to the policy's [Diagnostics] sink as a [Warning].
package core
