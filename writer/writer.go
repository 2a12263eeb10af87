package writer

import (
	"bufio"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/security"
)

// defaultPermissions grants every Standard handler permission.
const defaultPermissions int32 = -4

// Writer is the document context for a PDF being built. Objects are kept in
// an append-only list and numbered from 1 in the order they were added;
// every object is written with generation 0.
type Writer struct {
	objects  []core.Object
	root     core.Object
	info     core.Object
	id       core.Array
	encrypt  *core.IndirectRef
	key      []byte
	version  string
	policy   core.Policy
	compress bool
	maxDepth int

	// external maps foreign references to their local clones.
	external map[externalKey]core.IndirectRef
	// swept records local objects already visited by the current sweep.
	swept map[int]bool
	// pending holds object numbers waiting to be swept.
	pending []int
	written bool
}

// externalKey identifies an object in another document context.
type externalKey struct {
	owner      core.ReferenceResolver
	generation int
	number     int
}

var _ core.ReferenceResolver = (*Writer)(nil)

// New creates an empty writer.
func New(opts ...Option) *Writer {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Writer{
		version:  cfg.version,
		policy:   core.Policy{Strict: cfg.strict, Diag: cfg.diag},
		compress: cfg.compress,
		maxDepth: cfg.maxDepth,
		external: make(map[externalKey]core.IndirectRef),
		swept:    make(map[int]bool),
	}
}

// AddObject appends obj and returns the reference that addresses it.
func (w *Writer) AddObject(obj core.Object) core.IndirectRef {
	w.objects = append(w.objects, obj)
	return w.ref(len(w.objects))
}

func (w *Writer) ref(num int) core.IndirectRef {
	return core.IndirectRef{Number: num, Generation: 0, Owner: w}
}

func (w *Writer) owns(ref core.IndirectRef) bool {
	return ref.Owner == core.ReferenceResolver(w)
}

// NumObjects returns the number of objects added so far.
func (w *Writer) NumObjects() int {
	return len(w.objects)
}

// GetObject returns the object ref addresses. The reference must have been
// produced by this writer.
func (w *Writer) GetObject(ref core.IndirectRef) (core.Object, error) {
	if err := w.checkRef(ref); err != nil {
		return nil, err
	}
	obj := w.objects[ref.Number-1]
	if obj == nil {
		return nil, fmt.Errorf("%w: object %s has no value yet", core.ErrNotFound, ref)
	}
	return obj, nil
}

func (w *Writer) checkRef(ref core.IndirectRef) error {
	if ref.Owner != nil && !w.owns(ref) {
		return fmt.Errorf("%w: %s belongs to another document", core.ErrForeignReference, ref)
	}
	if ref.Generation != 0 || ref.Number < 1 || ref.Number > len(w.objects) {
		return fmt.Errorf("%w: object %s is not in this writer", core.ErrNotFound, ref)
	}
	return nil
}

// ResolveReference makes the writer usable as the owner of its references.
func (w *Writer) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return w.GetObject(ref)
}

// SetObject replaces the object ref addresses. Adding nil and setting the
// value later lets objects refer to each other.
func (w *Writer) SetObject(ref core.IndirectRef, obj core.Object) error {
	if err := w.checkRef(ref); err != nil {
		return err
	}
	w.objects[ref.Number-1] = obj
	return nil
}

// SetRoot sets the document catalog. ref may belong to another document,
// in which case the catalog and everything it reaches is cloned on output.
func (w *Writer) SetRoot(ref core.IndirectRef) {
	w.root = ref
}

// Root returns the catalog reference, or false when none was set.
func (w *Writer) Root() (core.IndirectRef, bool) {
	ref, ok := w.root.(core.IndirectRef)
	return ref, ok
}

// SetInfo sets the document information dictionary.
func (w *Writer) SetInfo(ref core.IndirectRef) {
	w.info = ref
}

// SetID sets the two file identifiers written to the trailer /ID.
func (w *Writer) SetID(id0, id1 []byte) {
	w.id = core.Array{core.String(id0), core.String(id1)}
}

// Encrypt protects the output with the Standard security handler using
// RC4, 128-bit when use128 is set and 40-bit otherwise. An empty owner
// password defaults to the user password. A random file identifier is
// generated unless SetID was called.
func (w *Writer) Encrypt(user, owner string, use128 bool) error {
	if w.written {
		return fmt.Errorf("%w: writer output already produced", core.ErrClosed)
	}
	if owner == "" {
		owner = user
	}
	if w.id == nil {
		id0, id1 := make([]byte, 16), make([]byte, 16)
		if _, err := rand.Read(id0); err != nil {
			return fmt.Errorf("failed to generate file ID: %w", err)
		}
		if _, err := rand.Read(id1); err != nil {
			return fmt.Errorf("failed to generate file ID: %w", err)
		}
		w.SetID(id0, id1)
	}

	id0 := []byte(w.id[0].(core.String))
	params, key := security.NewStandard([]byte(user), []byte(owner), id0, use128, defaultPermissions)

	dict := core.Dict{
		"Filter": core.Name("Standard"),
		"V":      core.Int(params.V),
		"R":      core.Int(params.R),
		"O":      core.String(params.O),
		"U":      core.String(params.U),
		"P":      core.Int(params.P),
	}
	if params.V == 2 {
		dict["Length"] = core.Int(params.Length)
	}
	ref := w.AddObject(dict)
	w.encrypt = &ref
	w.key = key
	return nil
}

// Write serializes the document: every object in number order, a classic
// cross-reference table and the trailer. It returns the number of bytes
// written. Output is terminal; a second call fails with ErrClosed.
func (w *Writer) Write(out io.Writer) (int64, error) {
	if w.written {
		return 0, fmt.Errorf("%w: writer output already produced", core.ErrClosed)
	}
	if w.root == nil {
		return 0, fmt.Errorf("%w: no document catalog set", core.ErrNotFound)
	}
	w.written = true

	if err := w.prepare(); err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(out)
	cw := &countingWriter{w: bw}

	fmt.Fprintf(cw, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", w.version)

	offsets := make([]int64, len(w.objects))
	for i, obj := range w.objects {
		num := i + 1
		offsets[i] = cw.n
		fmt.Fprintf(cw, "%d 0 obj\n", num)
		if obj == nil {
			obj = core.Null{}
		}
		if err := obj.Encode(cw, w.objectKey(num)); err != nil {
			return cw.n, fmt.Errorf("failed to write object %d: %w", num, err)
		}
		io.WriteString(cw, "\nendobj\n")
	}

	xrefOffset := cw.n
	fmt.Fprintf(cw, "xref\n0 %d\n", len(w.objects)+1)
	fmt.Fprintf(cw, "%010d %05d f \n", 0, 65535)
	for _, off := range offsets {
		fmt.Fprintf(cw, "%010d %05d n \n", off, 0)
	}

	io.WriteString(cw, "trailer\n")
	if err := w.trailer().Encode(cw, nil); err != nil {
		return cw.n, fmt.Errorf("failed to write trailer: %w", err)
	}
	fmt.Fprintf(cw, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	if cw.err != nil {
		return cw.n, fmt.Errorf("failed to write document: %w", cw.err)
	}
	if err := bw.Flush(); err != nil {
		return cw.n, fmt.Errorf("failed to write document: %w", err)
	}
	return cw.n, nil
}

// prepare sweeps the catalog, the info dictionary and every object in the
// list so that the output holds only local references.
func (w *Writer) prepare() error {
	if w.info == nil {
		w.info = w.AddObject(core.Dict{"Producer": core.NewTextString("pdfgraph")})
	}

	w.swept = make(map[int]bool)
	w.pending = nil
	var err error
	if w.root, err = w.sweep(w.root, 0); err == nil {
		err = w.drain()
	}
	if err != nil {
		return fmt.Errorf("failed to sweep catalog: %w", err)
	}
	if _, ok := w.root.(core.IndirectRef); !ok {
		return fmt.Errorf("%w: document catalog could not be resolved", core.ErrNotFound)
	}
	if w.info, err = w.sweep(w.info, 0); err == nil {
		err = w.drain()
	}
	if err != nil {
		return fmt.Errorf("failed to sweep info dictionary: %w", err)
	}
	for i := 0; i < len(w.objects); i++ {
		if _, err = w.sweep(w.ref(i+1), 0); err == nil {
			err = w.drain()
		}
		if err != nil {
			return fmt.Errorf("failed to sweep object %d: %w", i+1, err)
		}
	}

	if w.compress {
		for i, obj := range w.objects {
			s, ok := obj.(*core.Stream)
			if !ok || s.Dict.Has("Filter") {
				continue
			}
			if err := s.FlateEncode(); err != nil {
				return fmt.Errorf("failed to compress object %d: %w", i+1, err)
			}
		}
	}
	return nil
}

func (w *Writer) objectKey(num int) []byte {
	if w.key == nil || (w.encrypt != nil && w.encrypt.Number == num) {
		return nil
	}
	return security.ObjectKey(w.key, num, 0)
}

func (w *Writer) trailer() core.Dict {
	trailer := core.Dict{
		"Size": core.Int(len(w.objects) + 1),
		"Root": w.root,
		"Info": w.info,
	}
	if w.id != nil {
		trailer["ID"] = w.id
	}
	if w.encrypt != nil {
		trailer["Encrypt"] = *w.encrypt
	}
	return trailer
}

// countingWriter tracks the output offset and keeps the first error.
type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
