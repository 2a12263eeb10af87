// Package textenc converts PDF text strings to and from Go strings.
//
// PDF text strings are either PDFDocEncoding (a single-byte encoding close to
// Latin-1) or UTF-16BE introduced by the byte order mark FE FF. The single
// PDFDocEncoding table in this package serves both directions.
package textenc

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrUndefined is returned when a byte or rune has no PDFDocEncoding mapping.
var ErrUndefined = errors.New("textenc: character not representable in PDFDocEncoding")

// utf16BOM marks a UTF-16BE text string.
var utf16BOM = []byte{0xFE, 0xFF}

// undefined marks table slots with no mapping.
const undefined = utf8.RuneError

var pdfDocTable [256]rune

var pdfDocReverse map[rune]byte

func init() {
	for i := range pdfDocTable {
		pdfDocTable[i] = undefined
	}
	pdfDocTable['\t'] = '\t'
	pdfDocTable['\n'] = '\n'
	pdfDocTable['\r'] = '\r'

	accents := []rune{0x02D8, 0x02C7, 0x02C6, 0x02D9, 0x02DD, 0x02DB, 0x02DA, 0x02DC}
	for i, r := range accents {
		pdfDocTable[0x18+i] = r
	}
	for b := 0x20; b < 0x7F; b++ {
		pdfDocTable[b] = rune(b)
	}
	high := []rune{
		0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
		0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018,
		0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160,
		0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E,
	}
	for i, r := range high {
		pdfDocTable[0x80+i] = r
	}
	pdfDocTable[0xA0] = 0x20AC
	for b := 0xA1; b <= 0xFF; b++ {
		if b != 0xAD {
			pdfDocTable[b] = rune(b)
		}
	}

	pdfDocReverse = make(map[rune]byte, 256)
	for b, r := range pdfDocTable {
		if r != undefined {
			pdfDocReverse[r] = byte(b)
		}
	}
}

// PDFDoc is PDFDocEncoding as an x/text encoding. Undefined bytes and
// unmappable runes make the transform fail instead of substituting.
var PDFDoc encoding.Encoding = pdfDocEncoding{}

type pdfDocEncoding struct{}

func (pdfDocEncoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: pdfDocDecoder{}}
}

func (pdfDocEncoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: pdfDocEncoder{}}
}

func (pdfDocEncoding) String() string { return "PDFDocEncoding" }

type pdfDocDecoder struct{ transform.NopResetter }

func (pdfDocDecoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r := pdfDocTable[src[nSrc]]
		if r == undefined {
			return nDst, nSrc, ErrUndefined
		}
		if nDst+utf8.RuneLen(r) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc++
	}
	return nDst, nSrc, nil
}

type pdfDocEncoder struct{ transform.NopResetter }

func (pdfDocEncoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if !atEOF && !utf8.FullRune(src[nSrc:]) {
			return nDst, nSrc, transform.ErrShortSrc
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		b, ok := pdfDocReverse[r]
		if !ok || (r == utf8.RuneError && size == 1) {
			return nDst, nSrc, ErrUndefined
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = b
		nDst++
		nSrc += size
	}
	return nDst, nSrc, nil
}

// DecodePDFDoc decodes PDFDocEncoding bytes.
func DecodePDFDoc(b []byte) (string, error) {
	out, err := PDFDoc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodePDFDoc encodes s in PDFDocEncoding.
func EncodePDFDoc(s string) ([]byte, error) {
	return PDFDoc.NewEncoder().Bytes([]byte(s))
}

// HasBOM reports whether b starts with the UTF-16BE byte order mark.
func HasBOM(b []byte) bool {
	return bytes.HasPrefix(b, utf16BOM)
}

// DecodeText decodes a PDF text string. ok is false when b is neither
// UTF-16BE with a BOM nor valid PDFDocEncoding, in which case the caller
// should keep b as an opaque byte string.
func DecodeText(b []byte) (s string, ok bool) {
	if HasBOM(b) {
		if len(b)%2 != 0 {
			return "", false
		}
		out, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
	s, err := DecodePDFDoc(b)
	if err != nil {
		return "", false
	}
	return s, true
}

// EncodeText encodes s as a PDF text string, preferring PDFDocEncoding and
// falling back to UTF-16BE with a BOM.
func EncodeText(s string) []byte {
	if b, err := EncodePDFDoc(s); err == nil && !HasBOM(b) {
		return b
	}
	out, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Invalid UTF-8 in s; keep the raw bytes.
		return []byte(s)
	}
	return out
}
