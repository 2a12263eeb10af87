package core

import "github.com/tsawler/pdfgraph/internal/textenc"

// TextString is a PDF string holding human-readable text. It keeps the
// bytes it was decoded from so it can still be written, or treated as a
// byte string, exactly as it appeared.
type TextString struct {
	text    string
	encoded string
}

// NewTextString returns a text string for s, encoded in PDFDocEncoding when
// every character is representable and UTF-16BE with a byte order mark
// otherwise.
func NewTextString(s string) TextString {
	return TextString{text: s, encoded: string(textenc.EncodeText(s))}
}

// NewStringObject classifies string bytes read from a file. Bytes that are
// UTF-16BE with a byte order mark or valid PDFDocEncoding become a
// TextString; anything else stays an opaque String.
func NewStringObject(b []byte) Object {
	if text, ok := textenc.DecodeText(b); ok {
		return TextString{text: text, encoded: string(b)}
	}
	return String(b)
}

func (t TextString) Type() ObjectType { return ObjText }
func (t TextString) String() string   { return t.text }

// Text returns the decoded text.
func (t TextString) Text() string { return t.text }

// Bytes returns the encoded bytes the text was read from or written as.
func (t TextString) Bytes() []byte { return []byte(t.encoded) }

// AsBytes reinterprets the text string as an opaque byte string.
func (t TextString) AsBytes() String { return String(t.encoded) }
