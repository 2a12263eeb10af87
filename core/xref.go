package core

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/tdewolff/parse/v2/strconv"
)

// XRefType classifies a cross-reference entry.
type XRefType int

const (
	XRefFree       XRefType = iota // free list entry
	XRefInUse                      // object stored at a byte offset
	XRefCompressed                 // object stored inside an object stream
)

func (t XRefType) String() string {
	switch t {
	case XRefFree:
		return "free"
	case XRefInUse:
		return "in-use"
	case XRefCompressed:
		return "compressed"
	}
	return fmt.Sprintf("XRefType(%d)", int(t))
}

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Type       XRefType
	Offset     int64 // Byte offset in file (in use) or next free object number (free)
	Generation int   // Generation number; always 0 for compressed objects
	Stream     int   // Object number of the containing object stream (compressed)
	Index      int   // Index within the containing object stream (compressed)
}

// InUse reports whether the entry locates an object.
func (e *XRefEntry) InUse() bool {
	return e.Type != XRefFree
}

// xrefKind records which encoding a section was read from.
type xrefKind int

const (
	xrefTable xrefKind = iota
	xrefStream
)

// XRefTable maps object numbers to their locations. A table built by
// ParseAll holds the merged view of every section in the update chain.
type XRefTable struct {
	Entries map[int]*XRefEntry // Map from object number to XRef entry
	Trailer Dict               // Trailer dictionary
	kind    xrefKind
}

// NewXRefTable creates a new empty XRef table
func NewXRefTable() *XRefTable {
	return &XRefTable{
		Entries: make(map[int]*XRefEntry),
		Trailer: make(Dict),
	}
}

// Get retrieves an XRef entry by object number
func (x *XRefTable) Get(objNum int) (*XRefEntry, bool) {
	entry, ok := x.Entries[objNum]
	return entry, ok
}

// Set adds or replaces an XRef entry
func (x *XRefTable) Set(objNum int, entry *XRefEntry) {
	x.Entries[objNum] = entry
}

// Add records entry unless objNum is already defined. Sections are read
// newest first, so an existing entry always comes from a later update.
func (x *XRefTable) Add(objNum int, entry *XRefEntry) bool {
	if _, ok := x.Entries[objNum]; ok {
		return false
	}
	x.Entries[objNum] = entry
	return true
}

// Size returns the number of entries in the table
func (x *XRefTable) Size() int {
	return len(x.Entries)
}

// InUseObjects returns the numbers of all in-use and compressed objects in
// ascending order.
func (x *XRefTable) InUseObjects() []int {
	var nums []int
	for num, e := range x.Entries {
		if e.InUse() {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)
	return nums
}

// merge folds an older section into x. Entries never overwrite, and
// trailer keys are kept from the first section that defines them.
func (x *XRefTable) merge(section *XRefTable) {
	for num, entry := range section.Entries {
		x.Add(num, entry)
	}

	keys := section.Trailer.Keys()
	if section.kind == xrefStream {
		keys = []string{"Root", "Encrypt", "Info", "ID", "Size"}
	}
	for _, key := range keys {
		if key == "Prev" || key == "XRefStm" {
			continue
		}
		if v, ok := section.Trailer[key]; ok && !x.Trailer.Has(key) {
			x.Trailer[key] = v
		}
	}
}

// XRefParser reads cross-reference sections from a random-access source.
type XRefParser struct {
	src      io.ReaderAt
	size     int64
	policy   Policy
	resolver ReferenceResolver
}

// NewXRefParser creates a new XRef parser over size bytes of r.
func NewXRefParser(r io.ReaderAt, size int64) *XRefParser {
	return &XRefParser{src: r, size: size}
}

// SetPolicy sets the strictness and warning sink.
func (x *XRefParser) SetPolicy(policy Policy) {
	x.policy = policy
}

// SetReferenceResolver sets the document that owns references found in
// trailers and xref stream dictionaries.
func (x *XRefParser) SetReferenceResolver(resolver ReferenceResolver) {
	x.resolver = resolver
}

func (x *XRefParser) parserAt(offset int64) *Parser {
	p := NewParserAt(x.src, offset)
	p.SetPolicy(x.policy)
	p.SetReferenceResolver(x.resolver)
	return p
}

// FindXRef finds the byte offset of the first cross-reference section from
// the "startxref" keyword in the last 1024 bytes of the file.
func (x *XRefParser) FindXRef() (int64, error) {
	if x.size <= 0 {
		return 0, fmt.Errorf("%w: cannot read an empty file", ErrSyntax)
	}

	readSize := int64(1024)
	if x.size < readSize {
		readSize = x.size
	}
	base := x.size - readSize
	buf := make([]byte, readSize)
	n, err := x.src.ReadAt(buf, base)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	buf = buf[:n]

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("%w: startxref not found", ErrSyntax)
	}
	rest := buf[idx+len("startxref"):]

	if !bytes.Contains(rest, []byte("%%EOF")) {
		if err := x.policy.Inconsistent(base+int64(idx), "EOF marker not found"); err != nil {
			return 0, err
		}
	}

	digits := bytes.TrimLeft(rest, "\x00\t\n\f\r ")
	offset, n := strconv.ParseUint(digits)
	if n == 0 {
		return 0, fmt.Errorf("%w: invalid startxref offset", ErrSyntax)
	}
	return int64(offset), nil
}

// ParseAll walks the cross-reference chain starting at startxref and
// returns the merged table. For a classic section the /XRefStm stream is
// read before /Prev. Offsets already visited end the walk.
func (x *XRefParser) ParseAll() (*XRefTable, error) {
	start, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	merged := NewXRefTable()
	visited := make(map[int64]bool)
	pending := []int64{start}

	for len(pending) > 0 {
		offset := pending[0]
		pending = pending[1:]
		if visited[offset] {
			x.policy.Warn(offset, "cross-reference chain revisits offset %d", offset)
			continue
		}
		visited[offset] = true

		section, err := x.ParseXRef(offset)
		if err != nil {
			return nil, err
		}
		merged.merge(section)

		var next []int64
		if section.kind == xrefTable {
			if stm, ok := section.Trailer.Raw("XRefStm").(Int); ok {
				next = append(next, int64(stm))
			}
		}
		if prev, ok := section.Trailer.Raw("Prev").(Int); ok {
			next = append(next, int64(prev))
		}
		pending = append(next, pending...)
	}

	return merged, nil
}

// ParseXRef parses the single cross-reference section at offset, which may
// be a classic table or a cross-reference stream. An offset that points
// slightly off a section is repaired with a warning.
func (x *XRefParser) ParseXRef(offset int64) (*XRefTable, error) {
	offset, err := x.locateSection(offset)
	if err != nil {
		return nil, err
	}

	var b [1]byte
	if _, err := x.src.ReadAt(b[:], offset); err != nil {
		return nil, fmt.Errorf("%w: reading cross-reference section at %d: %v", ErrSyntax, offset, err)
	}
	if b[0] == 'x' {
		return x.parseTable(offset)
	}
	return x.parseStream(offset)
}

// locateSection checks that offset starts "xref" or an object number. It
// otherwise looks for "xref" within 10 bytes either side, then for a digit
// within the next 5 bytes.
func (x *XRefParser) locateSection(offset int64) (int64, error) {
	if offset < 0 || offset >= x.size {
		return 0, fmt.Errorf("%w: cross-reference offset %d outside file", ErrSyntax, offset)
	}

	var b [1]byte
	x.src.ReadAt(b[:], offset)
	if b[0] == 'x' || isDigit(b[0]) {
		return offset, nil
	}

	from := offset - 10
	if from < 0 {
		from = 0
	}
	window := make([]byte, 20)
	n, _ := x.src.ReadAt(window, from)
	if i := bytes.Index(window[:n], []byte("xref")); i >= 0 {
		fixed := from + int64(i)
		x.policy.Warn(offset, "cross-reference table found at %d instead of %d", fixed, offset)
		return fixed, nil
	}

	ahead := make([]byte, 5)
	n, _ = x.src.ReadAt(ahead, offset)
	for i := 0; i < n; i++ {
		if isDigit(ahead[i]) {
			fixed := offset + int64(i)
			x.policy.Warn(offset, "cross-reference stream found at %d instead of %d", fixed, offset)
			return fixed, nil
		}
	}

	return 0, fmt.Errorf("%w: could not find cross-reference section at offset %d", ErrSyntax, offset)
}

// parseTable parses a classic "xref" table and its trailer. Rows are read
// as tokens, so 19, 20 and 21 byte rows are all accepted.
func (x *XRefParser) parseTable(offset int64) (*XRefTable, error) {
	p := x.parserAt(offset)
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "xref" {
		return nil, syntaxError(tok.Pos, "expected xref keyword")
	}

	table := NewXRefTable()
	table.kind = xrefTable
	firstStart := -1

	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenKeyword && string(tok.Value) == "trailer" {
			p.tok = nil
			break
		}

		start, err := p.parseHeaderInt("subsection start")
		if err != nil {
			return nil, err
		}
		count, err := p.parseHeaderInt("subsection count")
		if err != nil {
			return nil, err
		}
		if firstStart < 0 {
			firstStart = start
		}

		for i := 0; i < count; i++ {
			entry, err := x.parseRow(p)
			if err != nil {
				return nil, fmt.Errorf("cross-reference entry %d: %w", start+i, err)
			}
			table.Add(start+i, entry)
		}
	}

	trailer, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse trailer: %w", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, syntaxError(offset, "trailer is %T, not a dictionary", trailer)
	}
	table.Trailer = dict

	if firstStart > 0 && !x.policy.Strict {
		x.zeroIndex(table, firstStart)
	}
	return table, nil
}

// parseRow reads one "offset generation n|f" row.
func (x *XRefParser) parseRow(p *Parser) (*XRefEntry, error) {
	off, err := p.parseHeaderInt("offset")
	if err != nil {
		return nil, err
	}
	gen, err := p.parseHeaderInt("generation")
	if err != nil {
		return nil, err
	}
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword {
		switch string(tok.Value) {
		case "n":
			return &XRefEntry{Type: XRefInUse, Offset: int64(off), Generation: gen}, nil
		case "f":
			return &XRefEntry{Type: XRefFree, Offset: int64(off), Generation: gen}, nil
		}
	}
	return nil, syntaxError(tok.Pos, "entry state should be 'n' or 'f', found %q", tok.Value)
}

// zeroIndex corrects a table whose numbering starts at start although its
// first object is really object 0. The first in-use object's header decides.
func (x *XRefParser) zeroIndex(table *XRefTable, start int) {
	for _, num := range table.InUseObjects() {
		entry := table.Entries[num]
		if entry.Generation == 65535 {
			continue
		}
		id, _, err := x.readObjectHeader(entry.Offset)
		if err != nil || id != num-start {
			return
		}

		x.policy.Warn(entry.Offset, "cross-reference table not zero-indexed, shifting object numbers by %d", start)
		shifted := make(map[int]*XRefEntry, len(table.Entries))
		for n, e := range table.Entries {
			shifted[n-start] = e
		}
		table.Entries = shifted
		return
	}
}

// readObjectHeader reads the "num gen obj" header at offset.
func (x *XRefParser) readObjectHeader(offset int64) (int, int, error) {
	p := x.parserAt(offset)
	num, err := p.parseHeaderInt("object number")
	if err != nil {
		return 0, 0, err
	}
	gen, err := p.parseHeaderInt("generation number")
	if err != nil {
		return 0, 0, err
	}
	return num, gen, nil
}
