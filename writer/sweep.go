package writer

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

// sweep returns obj with every reference made local. Containers are
// copied, streams nested in containers are promoted to objects of their
// own, and foreign references are cloned once per source object. Objects
// reached through a reference are queued for drain rather than followed.
func (w *Writer) sweep(obj core.Object, depth int) (core.Object, error) {
	if depth > w.maxDepth {
		return nil, fmt.Errorf("%w: object graph nested more than %d levels", core.ErrDepthExceeded, w.maxDepth)
	}

	switch v := obj.(type) {
	case core.Dict:
		out := make(core.Dict, len(v))
		for _, key := range v.Keys() {
			value, err := w.sweepMember(v[key], depth)
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil

	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			value, err := w.sweepMember(elem, depth)
			if err != nil {
				return nil, err
			}
			out[i] = value
		}
		return out, nil

	case *core.Stream:
		// /Length is recomputed on output.
		dict := v.Dict.Clone()
		dict.Delete("Length")
		swept, err := w.sweep(dict, depth+1)
		if err != nil {
			return nil, err
		}
		return &core.Stream{Dict: swept.(core.Dict), Data: v.Data}, nil

	case core.IndirectRef:
		if v.Owner == nil || w.owns(v) {
			return w.sweepLocal(v)
		}
		return w.clone(v)
	}
	return obj, nil
}

// sweepMember sweeps a dictionary or array value. Streams cannot be direct
// values, so a swept stream is added as an object and referenced.
func (w *Writer) sweepMember(obj core.Object, depth int) (core.Object, error) {
	value, err := w.sweep(obj, depth+1)
	if err != nil {
		return nil, err
	}
	if s, ok := value.(*core.Stream); ok {
		ref := w.AddObject(s)
		w.swept[ref.Number] = true
		return ref, nil
	}
	return value, nil
}

// sweepLocal queues the object a local reference points to, once.
func (w *Writer) sweepLocal(ref core.IndirectRef) (core.Object, error) {
	ref.Owner = w
	if w.swept[ref.Number] {
		return ref, nil
	}
	if _, err := w.GetObject(ref); err != nil {
		return nil, err
	}
	w.swept[ref.Number] = true
	w.pending = append(w.pending, ref.Number)
	return ref, nil
}

// clone copies a foreign object into the writer. The local slot is
// reserved and recorded before the object is swept, so cycles and shared
// objects in the source map to a single clone. The slot holds the source
// object until drain sweeps it.
func (w *Writer) clone(ref core.IndirectRef) (core.Object, error) {
	key := externalKey{owner: ref.Owner, generation: ref.Generation, number: ref.Number}
	if local, ok := w.external[key]; ok {
		return local, nil
	}

	obj, err := ref.Owner.ResolveReference(ref)
	if err != nil {
		if errors.Is(err, core.ErrClosed) {
			return nil, fmt.Errorf("cloning %s: %w", ref, err)
		}
		if ierr := w.policy.Inconsistent(-1, "unable to resolve foreign object %s, using null: %v", ref, err); ierr != nil {
			return nil, fmt.Errorf("cloning %s: %w", ref, err)
		}
		return core.Null{}, nil
	}

	local := w.AddObject(obj)
	w.external[key] = local
	w.swept[local.Number] = true
	w.pending = append(w.pending, local.Number)
	return local, nil
}

// drain sweeps queued objects until none are left. Each object starts at
// depth zero: the limit bounds direct nesting, not the length of
// reference chains.
func (w *Writer) drain() error {
	for len(w.pending) > 0 {
		num := w.pending[0]
		w.pending = w.pending[1:]
		swept, err := w.sweep(w.objects[num-1], 0)
		if err != nil {
			return fmt.Errorf("object %d: %w", num, err)
		}
		w.objects[num-1] = swept
	}
	return nil
}

// Import clones the foreign object ref points to, together with every
// object it reaches, and returns the local reference. Importing the same
// object twice returns the same reference. A local reference is returned
// unchanged.
func (w *Writer) Import(ref core.IndirectRef) (core.IndirectRef, error) {
	if w.written {
		return core.IndirectRef{}, fmt.Errorf("%w: writer output already produced", core.ErrClosed)
	}
	if ref.Owner == nil || w.owns(ref) {
		if _, err := w.GetObject(ref); err != nil {
			return core.IndirectRef{}, err
		}
		return w.ref(ref.Number), nil
	}

	obj, err := w.clone(ref)
	if err != nil {
		return core.IndirectRef{}, err
	}
	if err := w.drain(); err != nil {
		w.pending = nil
		return core.IndirectRef{}, err
	}
	local, ok := obj.(core.IndirectRef)
	if !ok {
		return core.IndirectRef{}, fmt.Errorf("%w: foreign object %s could not be resolved", core.ErrNotFound, ref)
	}
	return local, nil
}

// Source is a document whose trailer graph can be cloned.
type Source interface {
	core.ReferenceResolver
	Trailer() core.Dict
}

// CloneDocument creates a writer holding a copy of the catalog and info
// dictionary of src and everything they reach.
func CloneDocument(src Source, opts ...Option) (*Writer, error) {
	w := New(opts...)
	trailer := src.Trailer()

	root, ok := trailer.Raw("Root").(core.IndirectRef)
	if !ok {
		return nil, fmt.Errorf("%w: source trailer has no /Root reference", core.ErrNotFound)
	}
	local, err := w.Import(withOwner(root, src))
	if err != nil {
		return nil, fmt.Errorf("failed to clone catalog: %w", err)
	}
	w.SetRoot(local)

	if info, ok := trailer.Raw("Info").(core.IndirectRef); ok {
		local, err := w.Import(withOwner(info, src))
		if err != nil {
			return nil, fmt.Errorf("failed to clone info dictionary: %w", err)
		}
		w.SetInfo(local)
	}
	return w, nil
}

func withOwner(ref core.IndirectRef, owner core.ReferenceResolver) core.IndirectRef {
	if ref.Owner == nil {
		ref.Owner = owner
	}
	return ref
}
