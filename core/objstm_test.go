package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// makeObjectStream builds a Flate-compressed object stream holding the given
// objects in order.
func makeObjectStream(nums []int, bodies []string) *Stream {
	var header, content strings.Builder
	for i, body := range bodies {
		fmt.Fprintf(&header, "%d %d ", nums[i], content.Len())
		content.WriteString(body)
		content.WriteString("\n")
	}
	decoded := header.String() + content.String()
	return &Stream{
		Dict: Dict{
			"Type":   Name("ObjStm"),
			"N":      Int(len(nums)),
			"First":  Int(header.Len()),
			"Filter": Name("FlateDecode"),
		},
		Data: zlibCompress([]byte(decoded)),
	}
}

// TestNewObjectStream tests creating an ObjectStream from a Stream
func TestNewObjectStream(t *testing.T) {
	tests := []struct {
		name      string
		dict      Dict
		wantN     int
		wantFirst int
		wantErr   bool
	}{
		{
			name:      "valid object stream",
			dict:      Dict{"Type": Name("ObjStm"), "N": Int(3), "First": Int(20)},
			wantN:     3,
			wantFirst: 20,
		},
		{
			name:      "with Extends",
			dict:      Dict{"Type": Name("ObjStm"), "N": Int(2), "First": Int(15), "Extends": IndirectRef{Number: 10}},
			wantN:     2,
			wantFirst: 15,
		},
		{name: "missing Type", dict: Dict{"N": Int(3), "First": Int(20)}, wantErr: true},
		{name: "wrong Type", dict: Dict{"Type": Name("XRef"), "N": Int(3), "First": Int(20)}, wantErr: true},
		{name: "missing N", dict: Dict{"Type": Name("ObjStm"), "First": Int(20)}, wantErr: true},
		{name: "negative N", dict: Dict{"Type": Name("ObjStm"), "N": Int(-1), "First": Int(20)}, wantErr: true},
		{name: "missing First", dict: Dict{"Type": Name("ObjStm"), "N": Int(3)}, wantErr: true},
		{name: "bad Extends", dict: Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(4), "Extends": Int(10)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os, err := NewObjectStream(&Stream{Dict: tt.dict})
			if tt.wantErr {
				if !errors.Is(err, ErrSyntax) {
					t.Errorf("NewObjectStream() error = %v, want ErrSyntax", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewObjectStream() error: %v", err)
			}
			if os.N() != tt.wantN || os.First() != tt.wantFirst {
				t.Errorf("N, First = %d, %d, want %d, %d", os.N(), os.First(), tt.wantN, tt.wantFirst)
			}
			if _, ok := tt.dict["Extends"]; ok && (os.Extends() == nil || os.Extends().Number != 10) {
				t.Errorf("Extends() = %v, want 10 0 R", os.Extends())
			}
		})
	}

	if _, err := NewObjectStream(nil); !errors.Is(err, ErrSyntax) {
		t.Errorf("NewObjectStream(nil) error = %v, want ErrSyntax", err)
	}
}

// TestObjectStreamLookup tests that an object is found by number regardless
// of the order the stream is accessed in
func TestObjectStreamLookup(t *testing.T) {
	nums := []int{5, 7, 9}
	bodies := []string{"<< /Type /Font >>", "(seven)", "[1 2 3]"}

	orders := [][]int{{0, 1, 2}, {2, 1, 0}, {1}}
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			os, err := NewObjectStream(makeObjectStream(nums, bodies))
			if err != nil {
				t.Fatalf("NewObjectStream() error: %v", err)
			}
			for _, idx := range order {
				obj, err := os.Lookup(nums[idx], idx, Policy{Strict: true})
				if err != nil {
					t.Fatalf("Lookup(%d, %d) error: %v", nums[idx], idx, err)
				}
				if nums[idx] == 7 {
					if s, ok := obj.(TextString); !ok || s.Text() != "seven" {
						t.Errorf("object 7 = %s", spew.Sdump(obj))
					}
				}
			}
		})
	}
}

// TestObjectStreamByIndex tests direct access and caching
func TestObjectStreamByIndex(t *testing.T) {
	os, err := NewObjectStream(makeObjectStream([]int{10, 11}, []string{"42", "/Name"}))
	if err != nil {
		t.Fatalf("NewObjectStream() error: %v", err)
	}

	obj, num, err := os.GetObjectByIndex(1)
	if err != nil || num != 11 || obj != Name("Name") {
		t.Errorf("GetObjectByIndex(1) = %v, %d, %v", obj, num, err)
	}
	obj, num, err = os.GetObjectByIndex(0)
	if err != nil || num != 10 || obj != Int(42) {
		t.Errorf("GetObjectByIndex(0) = %v, %d, %v", obj, num, err)
	}
	if _, _, err := os.GetObjectByIndex(2); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetObjectByIndex(2) error = %v, want ErrNotFound", err)
	}

	obj, idx, err := os.GetObjectByNumber(11)
	if err != nil || idx != 1 || obj != Name("Name") {
		t.Errorf("GetObjectByNumber(11) = %v, %d, %v", obj, idx, err)
	}
	if _, _, err := os.GetObjectByNumber(12); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetObjectByNumber(12) error = %v, want ErrNotFound", err)
	}
}

// TestObjectStreamIndexMismatch tests an xref index that disagrees with the header
func TestObjectStreamIndexMismatch(t *testing.T) {
	newStream := func() *ObjectStream {
		os, err := NewObjectStream(makeObjectStream([]int{5, 7, 9}, []string{"1", "2", "3"}))
		if err != nil {
			t.Fatalf("NewObjectStream() error: %v", err)
		}
		return os
	}

	t.Run("lenient", func(t *testing.T) {
		warnings := &WarningList{}
		obj, err := newStream().Lookup(7, 2, Policy{Diag: warnings})
		if err != nil || obj != Int(2) {
			t.Errorf("Lookup() = %v, %v, want 2", obj, err)
		}
		if len(warnings.Warnings) != 1 {
			t.Errorf("warnings = %v, want one", warnings.Warnings)
		}
	})

	t.Run("strict", func(t *testing.T) {
		if _, err := newStream().Lookup(7, 2, Policy{Strict: true}); !errors.Is(err, ErrInconsistent) {
			t.Errorf("Lookup() error = %v, want ErrInconsistent", err)
		}
	})

	t.Run("index beyond N", func(t *testing.T) {
		if _, err := newStream().Lookup(7, 3, Policy{}); !errors.Is(err, ErrCorrupt) {
			t.Errorf("Lookup() error = %v, want ErrCorrupt", err)
		}
	})

	t.Run("missing object", func(t *testing.T) {
		if _, err := newStream().Lookup(8, 1, Policy{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("Lookup() error = %v, want ErrNotFound", err)
		}
	})
}

// TestObjectStreamIDs tests listing the objects in header order
func TestObjectStreamIDs(t *testing.T) {
	os, err := NewObjectStream(makeObjectStream([]int{9, 3, 4}, []string{"null", "true", "false"}))
	if err != nil {
		t.Fatalf("NewObjectStream() error: %v", err)
	}

	ids, err := os.ObjectIDs()
	if err != nil {
		t.Fatalf("ObjectIDs() error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 9 || ids[1] != 3 || ids[2] != 4 {
		t.Errorf("ObjectIDs() = %v, want [9 3 4]", ids)
	}

	for num, want := range map[int]bool{3: true, 9: true, 5: false} {
		if got, err := os.ContainsObject(num); err != nil || got != want {
			t.Errorf("ContainsObject(%d) = %v, %v, want %v", num, got, err, want)
		}
	}
}

// TestObjectStreamReferences tests that parsed references carry the resolver
func TestObjectStreamReferences(t *testing.T) {
	resolver := newMapResolver(map[int]Object{3: Int(99)})
	os, err := NewObjectStream(makeObjectStream([]int{4}, []string{"<< /Value 3 0 R >>"}))
	if err != nil {
		t.Fatalf("NewObjectStream() error: %v", err)
	}
	os.SetReferenceResolver(resolver)

	obj, _, err := os.GetObjectByIndex(0)
	if err != nil {
		t.Fatalf("GetObjectByIndex() error: %v", err)
	}
	dict, ok := obj.(Dict)
	if !ok {
		t.Fatalf("object is %T, want Dict", obj)
	}
	if v, ok := dict.GetInt("Value"); !ok || v != 99 {
		t.Errorf("/Value = %v, want 99 through the resolver", dict.Get("Value"))
	}
}

// TestObjectStreamCorrupt tests damaged payloads
func TestObjectStreamCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		n     int
		first int
		want  error
	}{
		{"first past end", "1 0 ", 1, 100, ErrCorrupt},
		{"short header", "1 0 2 ", 2, 6, ErrSyntax},
		{"offset past end", "1 50 x", 1, 5, ErrCorrupt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Stream{
				Dict: Dict{"Type": Name("ObjStm"), "N": Int(tt.n), "First": Int(tt.first)},
				Data: []byte(tt.data),
			}
			os, err := NewObjectStream(s)
			if err != nil {
				t.Fatalf("NewObjectStream() error: %v", err)
			}
			if _, _, err := os.GetObjectByIndex(0); !errors.Is(err, tt.want) {
				t.Errorf("GetObjectByIndex() error = %v, want %v", err, tt.want)
			}
		})
	}

	s := &Stream{Dict: Dict{"Type": Name("ObjStm"), "N": Int(1), "First": Int(0), "Filter": Name("FlateDecode")}, Data: []byte("junk")}
	os, err := NewObjectStream(s)
	if err != nil {
		t.Fatalf("NewObjectStream() error: %v", err)
	}
	if _, err := os.ObjectIDs(); !errors.Is(err, ErrCorrupt) {
		t.Errorf("ObjectIDs() error = %v, want ErrCorrupt", err)
	}
}
