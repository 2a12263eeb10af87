package pages

import (
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

// DefaultMaxDepth bounds page tree nesting when no limit is given.
const DefaultMaxDepth = 1000

// inheritable lists the page attributes a page takes from its ancestors.
var inheritable = []string{"Resources", "MediaBox", "CropBox", "Rotate"}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     core.Dict
	maxDepth int
}

// NewCatalog wraps a catalog dictionary. maxDepth bounds the page tree
// walk; zero or less selects DefaultMaxDepth.
func NewCatalog(dict core.Dict, maxDepth int) *Catalog {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Catalog{dict: dict, maxDepth: maxDepth}
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Version returns the /Version entry, which overrides the header version
// when present.
func (c *Catalog) Version() string {
	name, _ := c.dict.GetName("Version")
	return string(name)
}

// PageTree returns the page tree rooted at /Pages.
func (c *Catalog) PageTree() (*PageTree, error) {
	obj, err := c.dict.Resolve("Pages")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: catalog missing /Pages entry", core.ErrNotFound)
	}
	root, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: invalid /Pages type %s", core.ErrCorrupt, obj.Type())
	}
	tree := NewPageTree(root, c.maxDepth)
	if ref, ok := c.dict.Raw("Pages").(core.IndirectRef); ok {
		tree.rootRef = &ref
	}
	return tree, nil
}

// Metadata returns the metadata stream, or nil when there is none.
func (c *Catalog) Metadata() (*core.Stream, error) {
	obj, err := c.dict.Resolve("Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Metadata: %w", err)
	}
	switch v := obj.(type) {
	case nil, core.Null:
		return nil, nil
	case *core.Stream:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: invalid /Metadata type %s", core.ErrCorrupt, obj.Type())
	}
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     core.Dict
	rootRef  *core.IndirectRef
	maxDepth int
	pages    []*Page // flattened on first use
}

// NewPageTree creates a page tree from the root /Pages dictionary.
func NewPageTree(root core.Dict, maxDepth int) *PageTree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &PageTree{root: root, maxDepth: maxDepth}
}

// Count returns the /Count recorded in the tree root. It may disagree with
// the number of leaves in a damaged file; len(Pages()) is authoritative.
func (t *PageTree) Count() (int, error) {
	count, ok := t.root.GetInt("Count")
	if !ok {
		return 0, fmt.Errorf("%w: page tree missing /Count entry", core.ErrNotFound)
	}
	return int(count), nil
}

// GetPage returns the page at the given index (0-based)
func (t *PageTree) GetPage(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("%w: page index %d out of range [0, %d)", core.ErrNotFound, index, len(pages))
	}
	return pages[index], nil
}

// Pages flattens the tree into document order. Nesting deeper than the
// tree's limit fails with ErrDepthExceeded and a node that is its own
// ancestor fails with ErrCircularReference.
func (t *PageTree) Pages() ([]*Page, error) {
	if t.pages != nil {
		return t.pages, nil
	}
	w := walker{
		maxDepth: t.maxDepth,
		path:     make(map[core.IndirectRef]bool),
		pages:    make([]*Page, 0),
	}
	if t.rootRef != nil {
		w.path[*t.rootRef] = true
	}
	if err := w.visit(t.root, t.rootRef, core.Dict{}, 0); err != nil {
		return nil, fmt.Errorf("failed to traverse page tree: %w", err)
	}
	t.pages = w.pages
	return t.pages, nil
}

// walker carries state for one flattening pass.
type walker struct {
	maxDepth int
	// path holds the references on the branch being walked.
	path  map[core.IndirectRef]bool
	pages []*Page
}

func (w *walker) visit(node core.Dict, ref *core.IndirectRef, inherited core.Dict, depth int) error {
	if depth > w.maxDepth {
		return fmt.Errorf("%w: page tree nested deeper than %d", core.ErrDepthExceeded, w.maxDepth)
	}

	typ, _ := node.GetName("Type")
	if typ == "" && node.Has("Kids") {
		typ = "Pages"
	}
	if typ != "Pages" {
		w.pages = append(w.pages, &Page{dict: node, ref: ref, inherited: inherited})
		return nil
	}

	// A node's own attributes override those it inherits.
	attrs := inherited
	copied := false
	for _, key := range inheritable {
		if v := node.Raw(key); v != nil {
			if !copied {
				attrs, copied = inherited.Clone(), true
			}
			attrs[key] = v
		}
	}

	kids, err := node.Resolve("Kids")
	if err != nil {
		return fmt.Errorf("failed to resolve /Kids: %w", err)
	}
	arr, ok := kids.(core.Array)
	if !ok {
		return fmt.Errorf("%w: Pages node missing /Kids array", core.ErrCorrupt)
	}

	for i := range arr {
		kidRef, isRef := arr.Raw(i).(core.IndirectRef)
		if isRef {
			if w.path[kidRef] {
				return fmt.Errorf("%w: page tree node %s is its own ancestor", core.ErrCircularReference, kidRef)
			}
		}
		kidObj, err := arr.Resolve(i)
		if err != nil {
			return fmt.Errorf("failed to resolve kid %d: %w", i, err)
		}
		kid, ok := kidObj.(core.Dict)
		if !ok {
			return fmt.Errorf("%w: invalid kid %d type %s", core.ErrCorrupt, i, kidObj.Type())
		}

		var rp *core.IndirectRef
		if isRef {
			rp = &kidRef
			w.path[kidRef] = true
		}
		err = w.visit(kid, rp, attrs, depth+1)
		if isRef {
			delete(w.path, kidRef)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Page represents a single PDF page
type Page struct {
	dict      core.Dict
	ref       *core.IndirectRef
	inherited core.Dict // attributes collected from ancestor nodes
}

// Dict returns the page dictionary as stored in the file.
func (p *Page) Dict() core.Dict {
	return p.dict
}

// Ref returns the page's reference, or false for a direct kid.
func (p *Page) Ref() (core.IndirectRef, bool) {
	if p.ref == nil {
		return core.IndirectRef{}, false
	}
	return *p.ref, true
}

// attr looks up an inheritable attribute on the page, then its ancestors.
func (p *Page) attr(key string) (core.Object, error) {
	if v := p.dict.Raw(key); v != nil {
		return p.dict.Resolve(key)
	}
	return p.inherited.Resolve(key)
}

// MediaBox returns the page media box [x1 y1 x2 y2]
func (p *Page) MediaBox() ([]float64, error) {
	return p.box("MediaBox")
}

// CropBox returns the crop box, falling back to the media box.
func (p *Page) CropBox() ([]float64, error) {
	box, err := p.box("CropBox")
	if err != nil {
		return p.MediaBox()
	}
	return box, nil
}

func (p *Page) box(name string) ([]float64, error) {
	obj, err := p.attr(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: %s not found", core.ErrNotFound, name)
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return nil, fmt.Errorf("%w: invalid %s %s", core.ErrCorrupt, name, obj)
	}
	box := make([]float64, 4)
	for i := range arr {
		v, ok := arr.GetReal(i)
		if !ok {
			return nil, fmt.Errorf("%w: invalid %s element %s", core.ErrCorrupt, name, arr[i])
		}
		box[i] = float64(v)
	}
	return box, nil
}

// Resources returns the page resources dictionary, or an empty dictionary
// when neither the page nor an ancestor has one.
func (p *Page) Resources() (core.Dict, error) {
	obj, err := p.attr("Resources")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Resources: %w", err)
	}
	if obj == nil {
		return core.Dict{}, nil
	}
	dict, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: invalid Resources type %s", core.ErrCorrupt, obj.Type())
	}
	return dict, nil
}

// Contents returns the page content streams in order. A page without
// /Contents has none.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj, err := p.dict.Resolve("Contents")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Contents: %w", err)
	}
	switch v := obj.(type) {
	case nil, core.Null:
		return nil, nil
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		streams := make([]*core.Stream, 0, len(v))
		for i := range v {
			elem, err := v.Resolve(i)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
			}
			s, ok := elem.(*core.Stream)
			if !ok {
				return nil, fmt.Errorf("%w: contents[%d] is %s", core.ErrCorrupt, i, elem.Type())
			}
			streams = append(streams, s)
		}
		return streams, nil
	default:
		return nil, fmt.Errorf("%w: invalid Contents type %s", core.ErrCorrupt, obj.Type())
	}
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270.
func (p *Page) Rotate() int {
	obj, err := p.attr("Rotate")
	if err != nil {
		return 0
	}
	rotate, ok := obj.(core.Int)
	if !ok {
		return 0
	}
	r := int(rotate) % 360
	if r < 0 {
		r += 360
	}
	return r - r%90
}

// Width returns the page width (from MediaBox)
func (p *Page) Width() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[2] - box[0], nil
}

// Height returns the page height (from MediaBox)
func (p *Page) Height() (float64, error) {
	box, err := p.MediaBox()
	if err != nil {
		return 0, err
	}
	return box[3] - box[1], nil
}
