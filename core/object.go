package core

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tsawler/pdfgraph/internal/textenc"
)

// Object represents a PDF object
type Object interface {
	Type() ObjectType
	String() string
	// Encode writes the canonical serialized form of the object. key is the
	// per-object encryption key, or nil when the output is not encrypted.
	Encode(w io.Writer, key []byte) error
}

// ObjectType represents the type of PDF object
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjBool
	ObjInt
	ObjReal
	ObjString
	ObjText
	ObjName
	ObjArray
	ObjDict
	ObjStream
	ObjIndirect
)

// String returns the string representation of the object type
func (t ObjectType) String() string {
	switch t {
	case ObjNull:
		return "Null"
	case ObjBool:
		return "Bool"
	case ObjInt:
		return "Int"
	case ObjReal:
		return "Real"
	case ObjString:
		return "String"
	case ObjText:
		return "Text"
	case ObjName:
		return "Name"
	case ObjArray:
		return "Array"
	case ObjDict:
		return "Dict"
	case ObjStream:
		return "Stream"
	case ObjIndirect:
		return "IndirectRef"
	default:
		return "Unknown"
	}
}

// Null represents a PDF null object
type Null struct{}

func (n Null) Type() ObjectType { return ObjNull }
func (n Null) String() string   { return "null" }

// Bool represents a PDF boolean
type Bool bool

func (b Bool) Type() ObjectType { return ObjBool }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Int represents a PDF integer
type Int int64

func (i Int) Type() ObjectType { return ObjInt }
func (i Int) String() string   { return strconv.FormatInt(int64(i), 10) }

// Real represents a PDF real number. It always serializes with a decimal
// point so it reads back as a Real.
type Real float64

func (r Real) Type() ObjectType { return ObjReal }
func (r Real) String() string   { return formatReal(float64(r)) }

// String represents a PDF byte string whose bytes have no text
// interpretation.
type String string

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string   { return string(s) }

// Text decodes the bytes as a PDF text string, if they are one.
func (s String) Text() (string, bool) {
	return textenc.DecodeText([]byte(s))
}

// Name represents a PDF name
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// Array represents a PDF array
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	var parts []string
	for _, obj := range a {
		parts = append(parts, obj.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the length of the array
func (a Array) Len() int {
	return len(a)
}

// Raw returns the element at index without resolving references, or nil
// when index is out of range.
func (a Array) Raw(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// Get retrieves an element at the given index, following indirect
// references. A reference that cannot be resolved yields Null.
func (a Array) Get(index int) Object {
	return resolveValue(a.Raw(index))
}

// Resolve retrieves an element at the given index, following indirect
// references and reporting resolution errors.
func (a Array) Resolve(index int) (Object, error) {
	return resolveStrict(a.Raw(index))
}

// GetInt retrieves an integer at the given index
func (a Array) GetInt(index int) (Int, bool) {
	i, ok := a.Get(index).(Int)
	return i, ok
}

// GetReal retrieves a number at the given index; integers are converted.
func (a Array) GetReal(index int) (Real, bool) {
	return toReal(a.Get(index))
}

// GetName retrieves a name at the given index
func (a Array) GetName(index int) (Name, bool) {
	n, ok := a.Get(index).(Name)
	return n, ok
}

// GetDict retrieves a dictionary at the given index
func (a Array) GetDict(index int) (Dict, bool) {
	return toDict(a.Get(index))
}

// Dict represents a PDF dictionary
type Dict map[string]Object

func (d Dict) Type() ObjectType { return ObjDict }
func (d Dict) String() string {
	var parts []string
	for _, key := range d.Keys() {
		parts = append(parts, fmt.Sprintf("/%s %s", key, d[key].String()))
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Raw returns the value stored under key without resolving references.
func (d Dict) Raw(key string) Object {
	return d[key]
}

// Get retrieves a value from the dictionary, following indirect references.
// It returns nil for a missing key and Null for a reference that cannot be
// resolved.
func (d Dict) Get(key string) Object {
	return resolveValue(d[key])
}

// Resolve retrieves a value from the dictionary, following indirect
// references and reporting resolution errors.
func (d Dict) Resolve(key string) (Object, error) {
	return resolveStrict(d[key])
}

// GetName retrieves a name value
func (d Dict) GetName(key string) (Name, bool) {
	name, ok := d.Get(key).(Name)
	return name, ok
}

// GetInt retrieves an integer value
func (d Dict) GetInt(key string) (Int, bool) {
	i, ok := d.Get(key).(Int)
	return i, ok
}

// GetDict retrieves a dictionary value. The dictionary of a stream is
// returned for stream values.
func (d Dict) GetDict(key string) (Dict, bool) {
	return toDict(d.Get(key))
}

// GetArray retrieves an array value
func (d Dict) GetArray(key string) (Array, bool) {
	arr, ok := d.Get(key).(Array)
	return arr, ok
}

// GetReal retrieves a number value; integers are converted.
func (d Dict) GetReal(key string) (Real, bool) {
	return toReal(d.Get(key))
}

// GetString retrieves a string value as bytes. Text strings return their
// encoded bytes.
func (d Dict) GetString(key string) (String, bool) {
	switch s := d.Get(key).(type) {
	case String:
		return s, true
	case TextString:
		return String(s.encoded), true
	}
	return "", false
}

// GetText retrieves a string value as text, decoding byte strings that
// carry a valid text encoding.
func (d Dict) GetText(key string) (string, bool) {
	switch s := d.Get(key).(type) {
	case TextString:
		return s.Text(), true
	case String:
		return s.Text()
	}
	return "", false
}

// GetBool retrieves a boolean value
func (d Dict) GetBool(key string) (Bool, bool) {
	b, ok := d.Get(key).(Bool)
	return b, ok
}

// GetStream retrieves a stream value
func (d Dict) GetStream(key string) (*Stream, bool) {
	s, ok := d.Get(key).(*Stream)
	return s, ok
}

// GetIndirectRef retrieves an indirect reference without resolving it
func (d Dict) GetIndirectRef(key string) (IndirectRef, bool) {
	ref, ok := d[key].(IndirectRef)
	return ref, ok
}

// Has checks if a key exists in the dictionary
func (d Dict) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Set sets a value in the dictionary
func (d Dict) Set(key string, value Object) {
	d[key] = value
}

// Delete removes a key from the dictionary
func (d Dict) Delete(key string) {
	delete(d, key)
}

// Keys returns all keys in the dictionary in sorted order
func (d Dict) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the dictionary.
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Stream represents a PDF stream object
type Stream struct {
	Dict    Dict
	Data    []byte // raw (encoded) payload
	decoded []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// ReferenceResolver resolves indirect references for the document that
// produced them. The parser also uses it to resolve indirect stream lengths.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// IndirectRef represents an indirect object reference. Owner is the
// document the reference belongs to; two references are equal only when
// number, generation and owner all match.
type IndirectRef struct {
	Number     int
	Generation int
	Owner      ReferenceResolver
}

func (r IndirectRef) Type() ObjectType { return ObjIndirect }
func (r IndirectRef) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// Key returns the (number, generation) pair without the owner.
func (r IndirectRef) Key() ObjectKey {
	return ObjectKey{Number: r.Number, Generation: r.Generation}
}

// Resolve returns the referenced object through the owning document,
// following chains of references. A chain that revisits a reference fails
// with ErrCircularReference.
func (r IndirectRef) Resolve() (Object, error) {
	if r.Owner == nil {
		return nil, fmt.Errorf("%w: reference %s has no owning document", ErrNotFound, r)
	}

	seen := make(map[IndirectRef]bool)
	cur := r
	for {
		if seen[cur] {
			return nil, fmt.Errorf("%w: %s", ErrCircularReference, r)
		}
		seen[cur] = true

		obj, err := cur.Owner.ResolveReference(cur)
		if err != nil {
			return nil, err
		}
		next, ok := obj.(IndirectRef)
		if !ok {
			return obj, nil
		}
		if next.Owner == nil {
			next.Owner = cur.Owner
		}
		cur = next
	}
}

// ObjectKey identifies an indirect object within one document.
type ObjectKey struct {
	Number     int
	Generation int
}

func (k ObjectKey) String() string {
	return fmt.Sprintf("%d %d", k.Number, k.Generation)
}

// IndirectObject represents an indirect object with its reference
type IndirectObject struct {
	Ref    IndirectRef
	Object Object
}

func resolveValue(obj Object) Object {
	ref, ok := obj.(IndirectRef)
	if !ok {
		return obj
	}
	resolved, err := ref.Resolve()
	if err != nil {
		return Null{}
	}
	return resolved
}

func resolveStrict(obj Object) (Object, error) {
	if ref, ok := obj.(IndirectRef); ok {
		return ref.Resolve()
	}
	return obj, nil
}

func toReal(obj Object) (Real, bool) {
	switch v := obj.(type) {
	case Real:
		return v, true
	case Int:
		return Real(v), true
	}
	return 0, false
}

func toDict(obj Object) (Dict, bool) {
	switch v := obj.(type) {
	case Dict:
		return v, true
	case *Stream:
		return v.Dict, true
	}
	return nil, false
}
