package reader

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/edsrzf/mmap-go"
	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/resolver"
)

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

var headerPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// Reader is the document context for an existing PDF. It owns the
// references it produces and resolves them lazily through the merged
// cross-reference table.
type Reader struct {
	src        io.ReaderAt
	size       int64
	closer     func() error
	xrefTable  *core.XRefTable
	trailer    core.Dict
	version    PDFVersion
	objCache   map[core.ObjectKey]core.Object
	objStreams map[int]*core.ObjectStream
	policy     core.Policy
	maxDepth   int
	depth      int
	key        []byte
	closed     bool
}

var _ core.ReferenceResolver = (*Reader)(nil)

// NewReader reads the header and cross-reference chain of the size bytes
// in src. Objects are parsed on first access.
func NewReader(src io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Reader{
		src:        src,
		size:       size,
		objCache:   make(map[core.ObjectKey]core.Object),
		objStreams: make(map[int]*core.ObjectStream),
		policy:     core.Policy{Strict: cfg.strict, Diag: cfg.diag},
		maxDepth:   cfg.maxDepth,
		key:        cfg.key,
	}

	version, err := r.parseHeader()
	if err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	r.version = version

	xp := core.NewXRefParser(src, size)
	xp.SetPolicy(r.policy)
	xp.SetReferenceResolver(r)
	table, err := xp.ParseAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load xref: %w", err)
	}
	r.xrefTable = table
	r.trailer = table.Trailer

	return r, nil
}

// Open memory-maps a PDF file read-only and returns a Reader over it.
// Close unmaps the file.
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: %s is empty", core.ErrSyntax, filename)
	}

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to map file: %w", err)
	}

	r, err := NewReader(bytes.NewReader(m), int64(len(m)), opts...)
	if err != nil {
		m.Unmap()
		file.Close()
		return nil, err
	}
	r.closer = func() error {
		uerr := m.Unmap()
		if cerr := file.Close(); uerr == nil {
			uerr = cerr
		}
		return uerr
	}
	return r, nil
}

// Close releases the underlying file. Every later call on the Reader, and
// on references it produced, fails with ErrClosed.
func (r *Reader) Close() error {
	if r.closed {
		return core.ErrClosed
	}
	r.closed = true
	r.objCache = nil
	r.objStreams = nil
	if r.closer != nil {
		return r.closer()
	}
	return nil
}

func (r *Reader) checkOpen() error {
	if r.closed {
		return fmt.Errorf("%w: reader", core.ErrClosed)
	}
	return nil
}

// parseHeader finds "%PDF-x.y" in the first kilobyte. A header that does
// not start the file is an inconsistency.
func (r *Reader) parseHeader() (PDFVersion, error) {
	n := int64(1024)
	if r.size < n {
		n = r.size
	}
	header := make([]byte, n)
	read, err := r.src.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}
	header = header[:read]

	loc := headerPattern.FindSubmatchIndex(header)
	if loc == nil {
		return PDFVersion{}, fmt.Errorf("%w: no %%PDF- header in the first %d bytes", core.ErrSyntax, read)
	}
	if loc[0] != 0 {
		if err := r.policy.Inconsistent(int64(loc[0]), "PDF header does not start the file"); err != nil {
			return PDFVersion{}, err
		}
	}

	major, _ := strconv.Atoi(string(header[loc[2]:loc[3]]))
	minor, _ := strconv.Atoi(string(header[loc[4]:loc[5]]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// Version returns the PDF version
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the merged trailer dictionary
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// XRefTable returns the merged cross-reference table
// Exposed for debugging/inspection
func (r *Reader) XRefTable() *core.XRefTable {
	return r.xrefTable
}

// FileSize returns the size of the PDF file in bytes
func (r *Reader) FileSize() int64 {
	return r.size
}

// NumObjects returns the trailer /Size.
func (r *Reader) NumObjects() int {
	size, _ := r.trailer.GetInt("Size")
	return int(size)
}

// Policy returns the strictness and warning sink the reader was opened with.
func (r *Reader) Policy() core.Policy {
	return r.policy
}

// MaxDepth returns the recursion limit used for nested resolution.
func (r *Reader) MaxDepth() int {
	return r.maxDepth
}

// ResolveReference returns the object ref points to. The reference must
// belong to this reader. Free and undefined objects resolve to Null with a
// warning, or fail with ErrNotFound in strict mode.
func (r *Reader) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if ref.Owner != nil && ref.Owner != core.ReferenceResolver(r) {
		return nil, fmt.Errorf("%w: %s belongs to another document", core.ErrForeignReference, ref)
	}
	return r.getObject(ref.Number, ref.Generation, true)
}

// GetObject loads object num at the generation its cross-reference entry
// records. Unlike ResolveReference an undefined object is always an error.
func (r *Reader) GetObject(num int) (core.Object, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	entry, ok := r.xrefTable.Get(num)
	if !ok {
		return nil, fmt.Errorf("%w: object %d not found in xref table", core.ErrNotFound, num)
	}
	return r.getObject(num, entry.Generation, false)
}

// Ref returns a reference owned by this reader.
func (r *Reader) Ref(num, gen int) core.IndirectRef {
	return core.IndirectRef{Number: num, Generation: gen, Owner: r}
}

// missing applies the policy for objects that are free or not defined.
func (r *Reader) missing(num, gen int, lenient bool, why string) (core.Object, error) {
	if r.policy.Strict || !lenient {
		return nil, fmt.Errorf("%w: object %d %d %s", core.ErrNotFound, num, gen, why)
	}
	r.policy.Warn(-1, "object %d %d %s, using null", num, gen, why)
	return core.Null{}, nil
}

func (r *Reader) getObject(num, gen int, lenient bool) (core.Object, error) {
	key := core.ObjectKey{Number: num, Generation: gen}
	if obj, ok := r.objCache[key]; ok {
		return obj, nil
	}
	if r.xrefTable == nil {
		return nil, fmt.Errorf("%w: object %d %d requested while reading cross-references", core.ErrNotFound, num, gen)
	}

	if r.depth >= r.maxDepth {
		return nil, fmt.Errorf("%w: resolving object %d %d nested more than %d levels", core.ErrDepthExceeded, num, gen, r.maxDepth)
	}
	r.depth++
	defer func() { r.depth-- }()

	entry, ok := r.xrefTable.Get(num)
	if !ok {
		return r.missing(num, gen, lenient, "is not defined")
	}

	var obj core.Object
	var err error
	switch entry.Type {
	case core.XRefFree:
		return r.missing(num, gen, lenient, "is free")
	case core.XRefCompressed:
		if gen != 0 {
			return r.missing(num, gen, lenient, "is not defined")
		}
		obj, err = r.loadCompressed(num, entry)
	default:
		if entry.Generation != gen {
			return r.missing(num, gen, lenient, "is not defined")
		}
		obj, err = r.loadObject(num, gen, entry)
	}
	if err != nil {
		return nil, err
	}

	if err := r.cacheObject(key, obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// cacheObject stores obj. Replacing a cached object means the same object
// was loaded twice, which only a malformed file can cause.
func (r *Reader) cacheObject(key core.ObjectKey, obj core.Object) error {
	if _, ok := r.objCache[key]; ok {
		if err := r.policy.Inconsistent(-1, "overwriting cache for %d %d", key.Number, key.Generation); err != nil {
			return err
		}
	}
	r.objCache[key] = obj
	return nil
}

// loadObject parses an object stored at a byte offset and checks its
// header against the reference.
func (r *Reader) loadObject(num, gen int, entry *core.XRefEntry) (core.Object, error) {
	p := core.NewParserAt(r.src, entry.Offset)
	p.SetReferenceResolver(r)
	p.SetPolicy(r.policy)

	iobj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse object %d %d at offset %d: %w", num, gen, entry.Offset, err)
	}
	if iobj.Ref.Number != num || iobj.Ref.Generation != gen {
		if err := r.policy.Inconsistent(entry.Offset, "expected object ID (%d %d) does not match actual (%d %d)",
			num, gen, iobj.Ref.Number, iobj.Ref.Generation); err != nil {
			return nil, err
		}
	}

	if r.isEncryptRef(num, gen) || isXRefStream(iobj.Object) {
		return iobj.Object, nil
	}
	if r.key != nil {
		return r.decryptObject(iobj.Object, num, gen), nil
	}
	if r.IsEncrypted() {
		return nil, fmt.Errorf("%w: object %d %d", core.ErrEncrypted, num, gen)
	}
	return iobj.Object, nil
}

// loadCompressed reads an object from the object stream its entry names.
func (r *Reader) loadCompressed(num int, entry *core.XRefEntry) (core.Object, error) {
	objStm, ok := r.objStreams[entry.Stream]
	if !ok {
		obj, err := r.getObject(entry.Stream, 0, false)
		if err != nil {
			return nil, fmt.Errorf("failed to load object stream %d for object %d: %w", entry.Stream, num, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			return nil, fmt.Errorf("%w: object stream %d is %T", core.ErrSyntax, entry.Stream, obj)
		}
		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, fmt.Errorf("object stream %d: %w", entry.Stream, err)
		}
		objStm.SetReferenceResolver(r)
		r.objStreams[entry.Stream] = objStm
	}

	obj, err := objStm.Lookup(num, entry.Index, r.policy)
	if err != nil {
		return nil, fmt.Errorf("object %d in object stream %d: %w", num, entry.Stream, err)
	}
	return obj, nil
}

func isXRefStream(obj core.Object) bool {
	s, ok := obj.(*core.Stream)
	if !ok {
		return false
	}
	typ, _ := s.Dict.GetName("Type")
	return typ == "XRef"
}

// Resolve resolves an object if it's an indirect reference, otherwise returns it as-is
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return r.ResolveReference(ref)
	}
	return obj, nil
}

// ResolveDeep expands every reference reachable from obj. References that
// point back into the branch being expanded, such as /Parent links, are
// kept as references.
func (r *Reader) ResolveDeep(obj core.Object) (core.Object, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	res := resolver.NewResolver(r, resolver.WithMaxDepth(r.maxDepth), resolver.KeepCycles())
	return res.ResolveDeep(obj)
}

// Catalog returns the document catalog (trailer /Root).
func (r *Reader) Catalog() (core.Dict, error) {
	return r.trailerDict("Root", true)
}

// Info returns the document information dictionary, or nil when the
// trailer has none.
func (r *Reader) Info() (core.Dict, error) {
	return r.trailerDict("Info", false)
}

func (r *Reader) trailerDict(key string, required bool) (core.Dict, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	raw := r.trailer.Raw(key)
	if raw == nil {
		if required {
			return nil, fmt.Errorf("%w: trailer missing /%s entry", core.ErrNotFound, key)
		}
		return nil, nil
	}

	obj, err := r.Resolve(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: /%s is %T, not a dictionary", core.ErrSyntax, key, obj)
	}
	return dict, nil
}

// Objects returns every in-use object, including objects stored in object
// streams, in ascending object number order.
func (r *Reader) Objects() ([]core.IndirectObject, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	nums := r.xrefTable.InUseObjects()
	objects := make([]core.IndirectObject, 0, len(nums))
	for _, num := range nums {
		entry, _ := r.xrefTable.Get(num)
		gen := entry.Generation
		if entry.Type == core.XRefCompressed {
			gen = 0
		}
		obj, err := r.getObject(num, gen, false)
		if err != nil {
			return nil, err
		}
		objects = append(objects, core.IndirectObject{Ref: r.Ref(num, gen), Object: obj})
	}
	return objects, nil
}

// CacheSize returns the number of cached objects
func (r *Reader) CacheSize() int {
	return len(r.objCache)
}
