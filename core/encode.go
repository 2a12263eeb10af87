package core

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/tsawler/pdfgraph/security"
)

// Serialize returns the canonical unencrypted form of obj.
func Serialize(obj Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, obj, nil); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(w io.Writer, obj Object, key []byte) error {
	if obj == nil {
		_, err := io.WriteString(w, "null")
		return err
	}
	return obj.Encode(w, key)
}

func (n Null) Encode(w io.Writer, _ []byte) error {
	_, err := io.WriteString(w, "null")
	return err
}

func (b Bool) Encode(w io.Writer, _ []byte) error {
	_, err := io.WriteString(w, b.String())
	return err
}

func (i Int) Encode(w io.Writer, _ []byte) error {
	_, err := io.WriteString(w, i.String())
	return err
}

func (r Real) Encode(w io.Writer, _ []byte) error {
	_, err := io.WriteString(w, formatReal(float64(r)))
	return err
}

// formatReal writes the shortest decimal that reads back as f, always
// with a decimal point.
func formatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0.0"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func (n Name) Encode(w io.Writer, _ []byte) error {
	_, err := io.WriteString(w, encodeName(string(n)))
	return err
}

// encodeName escapes bytes that are not regular characters as #xx.
func encodeName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name) + 1)
	sb.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < '!' || c > '~' || c == '#' || isDelimiter(c) {
			fmt.Fprintf(&sb, "#%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func (s String) Encode(w io.Writer, key []byte) error {
	data := []byte(s)
	if key != nil {
		data = security.RC4(key, data)
	}
	return writeHexString(w, data)
}

func (t TextString) Encode(w io.Writer, key []byte) error {
	if key != nil {
		return writeHexString(w, security.RC4(key, []byte(t.encoded)))
	}
	return writeLiteralString(w, []byte(t.encoded))
}

func writeHexString(w io.Writer, data []byte) error {
	_, err := fmt.Fprintf(w, "<%s>", hex.EncodeToString(data))
	return err
}

// writeLiteralString writes data in parentheses, escaping delimiters and
// using octal escapes for bytes outside printable ASCII.
func writeLiteralString(w io.Writer, data []byte) error {
	var buf bytes.Buffer
	buf.Grow(len(data) + 2)
	buf.WriteByte('(')
	for _, c := range data {
		switch {
		case c == '(' || c == ')' || c == '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case c < ' ' || c > '~':
			fmt.Fprintf(&buf, "\\%03o", c)
		default:
			buf.WriteByte(c)
		}
	}
	buf.WriteByte(')')
	_, err := w.Write(buf.Bytes())
	return err
}

func (a Array) Encode(w io.Writer, key []byte) error {
	if _, err := io.WriteString(w, "["); err != nil {
		return err
	}
	for _, obj := range a {
		if _, err := io.WriteString(w, " "); err != nil {
			return err
		}
		if err := encodeValue(w, obj, key); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, " ]")
	return err
}

func (d Dict) Encode(w io.Writer, key []byte) error {
	if _, err := io.WriteString(w, "<<\n"); err != nil {
		return err
	}
	for _, k := range d.Keys() {
		if _, err := fmt.Fprintf(w, "%s ", encodeName(k)); err != nil {
			return err
		}
		if err := encodeValue(w, d[k], key); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, ">>")
	return err
}

// Encode writes the stream dictionary with /Length set to the payload size,
// followed by the payload. Streams are only valid as indirect objects.
func (s *Stream) Encode(w io.Writer, key []byte) error {
	data := s.Data
	if key != nil {
		data = security.RC4(key, data)
	}

	dict := s.Dict.Clone()
	dict["Length"] = Int(len(data))
	if err := dict.Encode(w, key); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "\nstream\n"); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\nendstream")
	return err
}

func (r IndirectRef) Encode(w io.Writer, _ []byte) error {
	_, err := fmt.Fprintf(w, "%d %d R", r.Number, r.Generation)
	return err
}
