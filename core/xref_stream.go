package core

import "fmt"

// parseStream parses a cross-reference stream object (PDF 1.5). Entry
// fields are big-endian integers whose widths come from /W; a width of 0
// selects the field's default.
func (x *XRefParser) parseStream(offset int64) (*XRefTable, error) {
	p := x.parserAt(offset)
	iobj, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("reading cross-reference stream at %d: %w", offset, err)
	}

	stream, ok := iobj.Object.(*Stream)
	if !ok {
		return nil, syntaxError(offset, "cross-reference stream object is %T", iobj.Object)
	}
	if typ, _ := stream.Dict.GetName("Type"); typ != "XRef" {
		return nil, syntaxError(offset, "the type of this object should be /XRef, found %v", stream.Dict.Get("Type"))
	}

	widths, err := x.streamWidths(stream.Dict, offset)
	if err != nil {
		return nil, err
	}
	index, err := streamIndex(stream.Dict, offset)
	if err != nil {
		return nil, err
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding cross-reference stream at %d: %w", offset, err)
	}

	table := NewXRefTable()
	table.kind = xrefStream
	table.Trailer = stream.Dict

	rowLen := widths[0] + widths[1] + widths[2]
	pos := 0
	for i := 0; i < len(index); i += 2 {
		start, count := index[i], index[i+1]
		for id := start; id < start+count; id++ {
			if pos+rowLen > len(data) {
				return nil, fmt.Errorf("%w: cross-reference stream at %d truncated at object %d", ErrCorrupt, offset, id)
			}
			row := data[pos : pos+rowLen]
			pos += rowLen

			typ := readField(row, 0, widths, 1)
			f1 := readField(row, 1, widths, 0)
			f2 := readField(row, 2, widths, 0)

			switch typ {
			case 0:
				table.Add(id, &XRefEntry{Type: XRefFree, Offset: f1, Generation: int(f2)})
			case 1:
				table.Add(id, &XRefEntry{Type: XRefInUse, Offset: f1, Generation: int(f2)})
			case 2:
				table.Add(id, &XRefEntry{Type: XRefCompressed, Stream: int(f1), Index: int(f2)})
			default:
				if err := x.policy.Inconsistent(offset, "unknown cross-reference entry type %d for object %d", typ, id); err != nil {
					return nil, err
				}
			}
		}
	}

	// Some producers do not list the stream itself.
	table.Add(iobj.Ref.Number, &XRefEntry{Type: XRefInUse, Offset: offset, Generation: iobj.Ref.Generation})
	return table, nil
}

// streamWidths reads /W. Fewer than three widths is a syntax error; extra
// widths are an inconsistency.
func (x *XRefParser) streamWidths(dict Dict, offset int64) ([3]int, error) {
	var widths [3]int
	w, ok := dict.GetArray("W")
	if !ok || len(w) < 3 {
		return widths, syntaxError(offset, "insufficient number of /W entries: %v", dict.Get("W"))
	}
	if len(w) > 3 {
		if err := x.policy.Inconsistent(offset, "excess number of /W entries: %v", w); err != nil {
			return widths, err
		}
	}
	for i := range widths {
		v, ok := w.GetInt(i)
		if !ok || v < 0 || v > 8 {
			return widths, syntaxError(offset, "invalid /W entry %v", w.Get(i))
		}
		widths[i] = int(v)
	}
	return widths, nil
}

// streamIndex reads /Index, defaulting to a single subsection [0 Size].
func streamIndex(dict Dict, offset int64) ([]int, error) {
	arr, ok := dict.GetArray("Index")
	if !ok {
		size, ok := dict.GetInt("Size")
		if !ok {
			return nil, syntaxError(offset, "cross-reference stream missing /Size")
		}
		arr = Array{Int(0), size}
	}
	if len(arr)%2 != 0 {
		return nil, syntaxError(offset, "odd number of /Index entries")
	}

	index := make([]int, len(arr))
	for i := range arr {
		v, ok := arr.GetInt(i)
		if !ok || v < 0 {
			return nil, syntaxError(offset, "invalid /Index entry %v", arr.Get(i))
		}
		index[i] = int(v)
	}
	return index, nil
}

// readField returns field i of row, or def when its width is zero.
func readField(row []byte, i int, widths [3]int, def int64) int64 {
	if widths[i] == 0 {
		return def
	}
	start := 0
	for j := 0; j < i; j++ {
		start += widths[j]
	}
	return readBigEndianInt(row[start : start+widths[i]])
}

// readBigEndianInt decodes an unsigned big-endian integer.
func readBigEndianInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}
