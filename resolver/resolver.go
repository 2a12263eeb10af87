package resolver

import (
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

// DefaultMaxDepth bounds recursion when no WithMaxDepth option is given.
const DefaultMaxDepth = 100

// ObjectResolver resolves indirect references in PDF objects
// It can recursively resolve references in dictionaries and arrays
type ObjectResolver struct {
	reader     core.ReferenceResolver
	visited    map[core.IndirectRef]bool // Cycle detection
	maxDepth   int                       // Maximum recursion depth
	depth      int                       // Current recursion depth
	keepCycles bool
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		if depth > 0 {
			r.maxDepth = depth
		}
	}
}

// KeepCycles leaves a reference that points back into the branch being
// resolved as an IndirectRef instead of failing with ErrCircularReference.
// Page trees, whose nodes point at their /Parent, need this.
func KeepCycles() Option {
	return func(r *ObjectResolver) {
		r.keepCycles = true
	}
}

// NewResolver creates a new object resolver. References without an owner
// are resolved through reader.
func NewResolver(reader core.ReferenceResolver, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		visited:  make(map[core.IndirectRef]bool),
		maxDepth: DefaultMaxDepth,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// MaxDepth returns the configured recursion limit.
func (r *ObjectResolver) MaxDepth() int {
	return r.maxDepth
}

// Resolve follows obj if it is an indirect reference. Nested references in
// dictionaries and arrays are left alone.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, false)
}

// ResolveDeep recursively resolves all indirect references in dictionaries and arrays
// This will fully expand the object tree
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	defer r.Reset()
	return r.resolve(obj, true)
}

func (r *ObjectResolver) descend(obj core.Object, deep bool) (core.Object, error) {
	r.depth++
	defer func() { r.depth-- }()
	return r.resolve(obj, deep)
}

func (r *ObjectResolver) resolve(obj core.Object, deep bool) (core.Object, error) {
	if r.depth >= r.maxDepth {
		return nil, fmt.Errorf("%w: maximum recursion depth (%d) exceeded", core.ErrDepthExceeded, r.maxDepth)
	}

	switch v := obj.(type) {
	case core.IndirectRef:
		if v.Owner == nil {
			v.Owner = r.reader
		}
		if r.visited[v] {
			if r.keepCycles {
				return v, nil
			}
			return nil, fmt.Errorf("%w: object %d %d R", core.ErrCircularReference, v.Number, v.Generation)
		}
		if v.Owner == nil {
			return nil, fmt.Errorf("%w: reference %s has no owning document", core.ErrNotFound, v)
		}

		// Unmarked on return, so shared objects in sibling branches resolve.
		r.visited[v] = true
		defer delete(r.visited, v)

		resolved, err := v.Owner.ResolveReference(v)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve reference %d %d R: %w", v.Number, v.Generation, err)
		}

		if _, chained := resolved.(core.IndirectRef); chained || deep {
			return r.descend(resolved, deep)
		}
		return resolved, nil

	case core.Dict:
		if !deep {
			return v, nil
		}

		resolved := make(core.Dict, len(v))
		for key, value := range v {
			resolvedValue, err := r.descend(value, true)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve dict key %s: %w", key, err)
			}
			resolved[key] = resolvedValue
		}
		return resolved, nil

	case core.Array:
		if !deep {
			return v, nil
		}

		resolved := make(core.Array, len(v))
		for i, elem := range v {
			resolvedElem, err := r.descend(elem, true)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve array element %d: %w", i, err)
			}
			resolved[i] = resolvedElem
		}
		return resolved, nil

	case *core.Stream:
		if !deep {
			return v, nil
		}

		resolvedDict, err := r.descend(v.Dict, true)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream dict: %w", err)
		}

		// The payload is shared with the original stream.
		return &core.Stream{
			Dict: resolvedDict.(core.Dict),
			Data: v.Data,
		}, nil

	default:
		return obj, nil
	}
}

// Reset clears the visited set and depth counter
func (r *ObjectResolver) Reset() {
	r.visited = make(map[core.IndirectRef]bool)
	r.depth = 0
}

// ResolveDict is a convenience method for resolving dictionaries
// It resolves the dictionary and all its values (deep resolution)
func (r *ObjectResolver) ResolveDict(dict core.Dict) (core.Dict, error) {
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Dict), nil
}

// ResolveArray is a convenience method for resolving arrays
// It resolves all elements in the array (deep resolution)
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	return resolved.(core.Array), nil
}

// ResolveReference resolves a single indirect reference, following chains
// of references but not nested ones.
func (r *ObjectResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return r.Resolve(ref)
}

// ResolveReferenceDeep resolves a reference and all nested references
func (r *ObjectResolver) ResolveReferenceDeep(ref core.IndirectRef) (core.Object, error) {
	return r.ResolveDeep(ref)
}

// GetObjectResolvedDeep fully resolves object number num, generation 0.
func (r *ObjectResolver) GetObjectResolvedDeep(num int) (core.Object, error) {
	return r.ResolveDeep(core.IndirectRef{Number: num, Owner: r.reader})
}
