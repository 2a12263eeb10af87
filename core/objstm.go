package core

import (
	"bytes"
	"fmt"
)

// ObjectStream represents a PDF Object Stream (Type /ObjStm), introduced in PDF 1.5.
// Object streams store multiple objects in a single compressed stream. The
// stream is decoded once, on first access.
type ObjectStream struct {
	stream   *Stream
	n        int
	first    int
	extends  *IndirectRef
	objects  map[int]Object
	offsets  []objectStreamOffset
	decoded  []byte
	resolver ReferenceResolver
}

// objectStreamOffset pairs an object number with its byte offset relative to /First.
type objectStreamOffset struct {
	ObjNum int
	Offset int
}

// NewObjectStream creates an ObjectStream from a Stream object.
// The stream must have Type /ObjStm and required entries /N and /First.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("%w: object stream is nil", ErrSyntax)
	}

	if typ, ok := stream.Dict.GetName("Type"); !ok || typ != "ObjStm" {
		return nil, fmt.Errorf("%w: /Type of object stream expected to be /ObjStm, was %v", ErrSyntax, stream.Dict.Get("Type"))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("%w: invalid object stream /N %v", ErrSyntax, stream.Dict.Get("N"))
	}

	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("%w: invalid object stream /First %v", ErrSyntax, stream.Dict.Get("First"))
	}

	var extends *IndirectRef
	switch v := stream.Dict.Raw("Extends").(type) {
	case nil, Null:
	case IndirectRef:
		extends = &v
	default:
		return nil, fmt.Errorf("%w: invalid /Extends type %T", ErrSyntax, v)
	}

	return &ObjectStream{
		stream:  stream,
		n:       int(n),
		first:   int(first),
		extends: extends,
		objects: make(map[int]Object),
	}, nil
}

// SetReferenceResolver sets the document that owns references parsed from
// the stream's objects.
func (os *ObjectStream) SetReferenceResolver(resolver ReferenceResolver) {
	os.resolver = resolver
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

// First returns the byte offset to the first object's data in the decoded stream.
func (os *ObjectStream) First() int {
	return os.first
}

// Extends returns the reference to another object stream this one extends, or nil.
func (os *ObjectStream) Extends() *IndirectRef {
	return os.extends
}

func (os *ObjectStream) decode() error {
	if os.decoded != nil {
		return nil
	}

	decoded, err := os.stream.Decode()
	if err != nil {
		return fmt.Errorf("failed to decode object stream: %w", err)
	}
	if err := os.parseHeader(decoded); err != nil {
		return fmt.Errorf("failed to parse object stream header: %w", err)
	}
	os.decoded = decoded
	return nil
}

// parseHeader parses the N "objNum offset" pairs in front of /First.
func (os *ObjectStream) parseHeader(decoded []byte) error {
	if os.first > len(decoded) {
		return fmt.Errorf("%w: /First %d exceeds decoded length %d", ErrCorrupt, os.first, len(decoded))
	}

	p := NewParser(bytes.NewReader(decoded[:os.first]))
	os.offsets = make([]objectStreamOffset, 0, os.n)
	for i := 0; i < os.n; i++ {
		num, err := p.parseHeaderInt("object number")
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		off, err := p.parseHeaderInt("offset")
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		os.offsets = append(os.offsets, objectStreamOffset{ObjNum: num, Offset: off})
	}
	return nil
}

// GetObjectByIndex extracts an object by its index within the stream (0-based).
// Returns the object and its object number.
func (os *ObjectStream) GetObjectByIndex(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}

	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("%w: index %d out of range [0, %d)", ErrNotFound, index, len(os.offsets))
	}

	if obj, ok := os.objects[index]; ok {
		return obj, os.offsets[index].ObjNum, nil
	}

	offset := os.first + os.offsets[index].Offset
	if offset >= len(os.decoded) {
		return nil, 0, fmt.Errorf("%w: object offset %d exceeds decoded length %d", ErrCorrupt, offset, len(os.decoded))
	}

	p := NewParser(bytes.NewReader(os.decoded[offset:]))
	p.SetReferenceResolver(os.resolver)
	obj, err := p.parseValue(0)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}

	os.objects[index] = obj
	return obj, os.offsets[index].ObjNum, nil
}

// GetObjectByNumber finds and extracts an object by its object number.
// Returns the object and its index within the stream.
func (os *ObjectStream) GetObjectByNumber(objNum int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}

	for i, entry := range os.offsets {
		if entry.ObjNum == objNum {
			obj, _, err := os.GetObjectByIndex(i)
			return obj, i, err
		}
	}

	return nil, 0, fmt.Errorf("%w: object %d not in object stream", ErrNotFound, objNum)
}

// Lookup resolves objNum for a cross-reference entry that places it at
// index. The index must be below /N. When the header lists the object at a
// different index the policy decides whether that is fatal.
func (os *ObjectStream) Lookup(objNum, index int, policy Policy) (Object, error) {
	if index < 0 || index >= os.n {
		return nil, fmt.Errorf("%w: local object index is %d, but a maximum of only %d is allowed", ErrCorrupt, index, os.n-1)
	}

	obj, at, err := os.GetObjectByNumber(objNum)
	if err != nil {
		return nil, err
	}
	if at != index {
		if err := policy.Inconsistent(-1, "object %d is at index %d of its object stream, not %d", objNum, at, index); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

// ObjectIDs returns the object numbers stored in this stream in header order.
func (os *ObjectStream) ObjectIDs() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}

	nums := make([]int, len(os.offsets))
	for i, entry := range os.offsets {
		nums[i] = entry.ObjNum
	}
	return nums, nil
}

// ContainsObject reports whether the given object number is stored in this stream.
func (os *ObjectStream) ContainsObject(objNum int) (bool, error) {
	if err := os.decode(); err != nil {
		return false, err
	}

	for _, entry := range os.offsets {
		if entry.ObjNum == objNum {
			return true, nil
		}
	}
	return false, nil
}
