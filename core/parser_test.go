package core

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// mockResolver resolves references from a fixed map.
type mockResolver struct {
	objects map[int]Object
}

func (m *mockResolver) ResolveReference(ref IndirectRef) (Object, error) {
	if obj, ok := m.objects[ref.Number]; ok {
		return obj, nil
	}
	return nil, ErrNotFound
}

func parseOne(t *testing.T, input string) Object {
	t.Helper()
	obj, err := NewParser(strings.NewReader(input)).ParseObject()
	if err != nil {
		t.Fatalf("ParseObject(%q) error: %v", input, err)
	}
	return obj
}

// TestParserPrimitives tests parsing of every scalar object type
func TestParserPrimitives(t *testing.T) {
	tests := []struct {
		input string
		want  Object
	}{
		{"null", Null{}},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int(42)},
		{"-17", Int(-17)},
		{"+5", Int(5)},
		{"3.25", Real(3.25)},
		{"-.5", Real(-0.5)},
		{"4.", Real(4)},
		{"/Type", Name("Type")},
		{"/A#20B", Name("A B")},
		{"12 0 R", IndirectRef{Number: 12, Generation: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseOne(t, tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseObject() = %s, want %s", spew.Sdump(got), spew.Sdump(tt.want))
			}
		})
	}
}

// TestParserLiteralStrings tests text classification of literal strings
func TestParserLiteralStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		isText   bool
	}{
		{"octal parens", `(Hi\050there\051)`, "Hi(there)", true},
		{"plain", "(hello)", "hello", true},
		{"pdfdoc bullet", `(\200)`, "•", true},
		{"utf16", `(\376\377\000A)`, "A", true},
		{"binary", `(\000\237)`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := parseOne(t, tt.input)
			text, ok := obj.(TextString)
			if ok != tt.isText {
				t.Fatalf("got %T, text = %v", obj, tt.isText)
			}
			if ok && text.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", text.Text(), tt.wantText)
			}
		})
	}
}

// TestParserHexStrings tests that hex strings are classified like literals
func TestParserHexStrings(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		isText   bool
	}{
		{"ascii", "<48656C6C6F>", "Hello", true},
		{"utf16", "<FEFF0041>", "A", true},
		{"odd digits", "<4142434>", "ABC@", true},
		{"binary", "<009F>", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := parseOne(t, tt.input)
			text, ok := obj.(TextString)
			if ok != tt.isText {
				t.Fatalf("got %s, text = %v", spew.Sdump(obj), tt.isText)
			}
			if ok && text.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", text.Text(), tt.wantText)
			}
			if !ok {
				if s, isStr := obj.(String); !isStr || string(s) != "\x00\x9f" {
					t.Errorf("got %s, want the opaque bytes", spew.Sdump(obj))
				}
			}
		})
	}

	// The encoded bytes are kept, so the hex form is recoverable.
	text := parseOne(t, "<FEFF0041>").(TextString)
	if got := text.Bytes(); string(got) != "\xfe\xff\x00A" {
		t.Errorf("Bytes() = %q", got)
	}
}

// TestParserArray tests array parsing
func TestParserArray(t *testing.T) {
	got := parseOne(t, "[1 2.5 /N (s) [true] 3 0 R]")
	want := Array{Int(1), Real(2.5), Name("N"), NewTextString("s"), Array{Bool(true)}, IndirectRef{Number: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %s, want %s", spew.Sdump(got), spew.Sdump(want))
	}

	empty := parseOne(t, "[]")
	if arr, ok := empty.(Array); !ok || arr.Len() != 0 {
		t.Errorf("[] parsed as %#v", empty)
	}
}

// TestParserDict tests dictionary parsing with nested values
func TestParserDict(t *testing.T) {
	obj := parseOne(t, "<< /Type /Page /MediaBox [0 0 612 792] /Parent 2 0 R /Res << /F 1 >> >>")
	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("got %T, want Dict", obj)
	}

	if name, _ := dict.GetName("Type"); name != "Page" {
		t.Errorf("Type = %v, want Page", name)
	}
	if box, ok := dict.GetArray("MediaBox"); !ok || box.Len() != 4 {
		t.Errorf("MediaBox = %v", dict.Get("MediaBox"))
	}
	if ref, ok := dict.GetIndirectRef("Parent"); !ok || ref.Number != 2 {
		t.Errorf("Parent = %v", dict.Raw("Parent"))
	}
	res, ok := dict.GetDict("Res")
	if !ok {
		t.Fatal("Res is not a dictionary")
	}
	if f, _ := res.GetInt("F"); f != 1 {
		t.Errorf("Res.F = %v, want 1", f)
	}
}

// TestParserDuplicateKeys tests the first-wins duplicate key policy
func TestParserDuplicateKeys(t *testing.T) {
	input := "<< /A 1 /A 2 >>"

	t.Run("lenient", func(t *testing.T) {
		var warnings WarningList
		p := NewParser(strings.NewReader(input))
		p.SetPolicy(Policy{Diag: &warnings})
		obj, err := p.ParseObject()
		if err != nil {
			t.Fatalf("ParseObject() error: %v", err)
		}
		if v, _ := obj.(Dict).GetInt("A"); v != 1 {
			t.Errorf("A = %v, want 1", v)
		}
		if len(warnings.Warnings) != 1 {
			t.Errorf("got %d warnings, want 1", len(warnings.Warnings))
		}
	})

	t.Run("strict", func(t *testing.T) {
		p := NewParser(strings.NewReader(input))
		p.SetPolicy(Policy{Strict: true})
		_, err := p.ParseObject()
		if !errors.Is(err, ErrInconsistent) {
			t.Errorf("ParseObject() error = %v, want ErrInconsistent", err)
		}
	})
}

// TestParserStreams tests stream bodies and the endstream fallback
func TestParserStreams(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		warn  int
	}{
		{"LF", "<< /Length 5 >>\nstream\nhello\nendstream", "hello", 0},
		{"CRLF", "<< /Length 5 >>\nstream\r\nhello\r\nendstream", "hello", 0},
		{"CR", "<< /Length 5 >>stream\rhelloendstream", "hello", 0},
		{"spaces after keyword", "<< /Length 5 >>\nstream   \nhello\nendstream", "hello", 0},
		{"length one too long", "<< /Length 6 >>\nstream\nhelloendstream", "hello", 1},
		{"empty", "<< /Length 0 >>\nstream\n\nendstream", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var warnings WarningList
			p := NewParser(strings.NewReader(tt.input))
			p.SetPolicy(Policy{Diag: &warnings})
			obj, err := p.ParseObject()
			if err != nil {
				t.Fatalf("ParseObject() error: %v", err)
			}
			stream, ok := obj.(*Stream)
			if !ok {
				t.Fatalf("got %T, want *Stream", obj)
			}
			if string(stream.Data) != tt.want {
				t.Errorf("Data = %q, want %q", stream.Data, tt.want)
			}
			if len(warnings.Warnings) != tt.warn {
				t.Errorf("got %d warnings, want %d", len(warnings.Warnings), tt.warn)
			}
		})
	}
}

// TestParserStreamErrors tests malformed stream bodies
func TestParserStreamErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"length far too long", "<< /Length 9 >>\nstream\nhelloendstream"},
		{"length too short", "<< /Length 3 >>\nstream\nhello\nendstream"},
		{"missing length", "<< >>\nstream\nhello\nendstream"},
		{"no eol", "<< /Length 5 >>\nstream hello\nendstream"},
		{"truncated", "<< /Length 50 >>\nstream\nhello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(strings.NewReader(tt.input)).ParseObject()
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("ParseObject() error = %v, want ErrSyntax", err)
			}
		})
	}
}

// TestParseStreamWithIndirectLength tests /Length given as a reference
func TestParseStreamWithIndirectLength(t *testing.T) {
	input := "<< /Length 7 0 R >>\nstream\nabc\nendstream"
	p := NewParser(strings.NewReader(input))
	p.SetReferenceResolver(&mockResolver{objects: map[int]Object{7: Int(3)}})

	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject() error: %v", err)
	}
	if stream := obj.(*Stream); string(stream.Data) != "abc" {
		t.Errorf("Data = %q, want abc", stream.Data)
	}
}

// TestParseStreamWithIndirectLengthNoResolver tests the error without a document
func TestParseStreamWithIndirectLengthNoResolver(t *testing.T) {
	input := "<< /Length 7 0 R >>\nstream\nabc\nendstream"
	_, err := NewParser(strings.NewReader(input)).ParseObject()
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("ParseObject() error = %v, want ErrSyntax", err)
	}
}

// TestParserReferenceOwner tests that parsed references carry their document
func TestParserReferenceOwner(t *testing.T) {
	resolver := &mockResolver{objects: map[int]Object{4: Name("Target")}}
	p := NewParser(strings.NewReader("<< /Ref 4 0 R >>"))
	p.SetReferenceResolver(resolver)

	obj, err := p.ParseObject()
	if err != nil {
		t.Fatalf("ParseObject() error: %v", err)
	}
	dict := obj.(Dict)
	if ref, _ := dict.GetIndirectRef("Ref"); ref.Owner != resolver {
		t.Errorf("Owner = %v, want the parser's resolver", ref.Owner)
	}
	if name, _ := dict.GetName("Ref"); name != "Target" {
		t.Errorf("Get(Ref) = %v, want /Target", dict.Get("Ref"))
	}
}

// TestParserIndirectObject tests "num gen obj ... endobj"
func TestParserIndirectObject(t *testing.T) {
	input := "3 1 obj\n<< /Type /Catalog >>\nendobj\n4 0 obj\n<< /Length 2 >>\nstream\nhi\nendstream\nendobj"
	p := NewParser(strings.NewReader(input))

	first, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject() error: %v", err)
	}
	if first.Ref.Number != 3 || first.Ref.Generation != 1 {
		t.Errorf("Ref = %v, want 3 1 R", first.Ref)
	}
	if typ, _ := first.Object.(Dict).GetName("Type"); typ != "Catalog" {
		t.Errorf("Type = %v, want Catalog", typ)
	}

	second, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("second ParseIndirectObject() error: %v", err)
	}
	if stream, ok := second.Object.(*Stream); !ok || string(stream.Data) != "hi" {
		t.Errorf("second object = %v", second.Object)
	}
}

// TestParserMissingEndobj tests the missing endobj policy
func TestParserMissingEndobj(t *testing.T) {
	input := "5 0 obj\n42\n6 0 obj"

	var warnings WarningList
	p := NewParser(strings.NewReader(input))
	p.SetPolicy(Policy{Diag: &warnings})
	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("lenient ParseIndirectObject() error: %v", err)
	}
	if obj.Object != Int(42) || len(warnings.Warnings) != 1 {
		t.Errorf("got %v with %d warnings", obj.Object, len(warnings.Warnings))
	}

	p = NewParser(strings.NewReader(input))
	p.SetPolicy(Policy{Strict: true})
	if _, err := p.ParseIndirectObject(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("strict ParseIndirectObject() error = %v, want ErrInconsistent", err)
	}
}

// TestParserMultipleObjects tests consecutive objects and comments
func TestParserMultipleObjects(t *testing.T) {
	p := NewParser(strings.NewReader("1 % comment\n/N (s) %another\n[2]"))
	want := []Object{Int(1), Name("N"), NewTextString("s"), Array{Int(2)}}
	for i, w := range want {
		got, err := p.ParseObject()
		if err != nil {
			t.Fatalf("object %d: %v", i, err)
		}
		if !reflect.DeepEqual(got, w) {
			t.Errorf("object %d = %v, want %v", i, got, w)
		}
	}

	_, err := p.ParseObject()
	if !errors.Is(err, io.EOF) || !errors.Is(err, ErrSyntax) {
		t.Errorf("ParseObject() at end = %v, want EOF", err)
	}
}

// TestParserErrors tests malformed objects
func TestParserErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"non-name key", "<< 1 2 >>"},
		{"unterminated array", "[1 2"},
		{"unterminated dict", "<< /A 1"},
		{"unexpected keyword", "endobj"},
		{"stray array end", "]"},
		{"bad number", "-"},
		{"missing value", "<< /A >>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(strings.NewReader(tt.input)).ParseObject()
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("ParseObject() error = %v, want ErrSyntax", err)
			}
		})
	}
}

// TestParserAt tests parsing from an offset of a random-access source
func TestParserAt(t *testing.T) {
	src := strings.NewReader("garbage 7 0 obj (x) endobj")
	p := NewParserAt(src, 8)
	obj, err := p.ParseIndirectObject()
	if err != nil {
		t.Fatalf("ParseIndirectObject() error: %v", err)
	}
	if obj.Ref.Number != 7 {
		t.Errorf("Ref = %v, want 7 0 R", obj.Ref)
	}
	if p.Pos() != int64(src.Size()) {
		t.Errorf("Pos() = %d, want %d", p.Pos(), src.Size())
	}
}

// BenchmarkParserDict benchmarks parsing a page dictionary
func BenchmarkParserDict(b *testing.B) {
	input := "<< /Type /Page /Parent 3 0 R /MediaBox [0 0 612 792] /Contents 5 0 R /Resources << /Font << /F1 6 0 R >> >> >>"
	for i := 0; i < b.N; i++ {
		NewParser(strings.NewReader(input)).ParseObject()
	}
}
