package filters

import (
	"bytes"
)

const (
	lzwClear     = 256
	lzwEOD       = 257
	lzwFirstCode = 258
	lzwMaxCodes  = 4096
	lzwMaxWidth  = 12
)

// LZWDecode decompresses LZW data with 9 to 12 bit codes packed MSB first.
// EarlyChange (default 1) makes the code width grow one code early, the
// way TIFF writers do. The EOD code is required.
func LZWDecode(data []byte, params Params) ([]byte, error) {
	early := lzwEarlyChange(params)
	br := &bitReader{data: data}

	var out bytes.Buffer
	table := newLZWTable()
	width := 9
	var prev []byte

	for {
		code, ok := br.read(width)
		if !ok {
			return nil, corrupt("LZWDecode: missing end-of-data code")
		}

		switch code {
		case lzwClear:
			table = table[:lzwFirstCode]
			width = 9
			prev = nil
			continue
		case lzwEOD:
			return out.Bytes(), nil
		}

		var entry []byte
		switch {
		case code < len(table):
			entry = table[code]
		case code == len(table) && prev != nil:
			entry = append(append([]byte(nil), prev...), prev[0])
		default:
			return nil, corrupt("LZWDecode: invalid code %d", code)
		}
		out.Write(entry)

		if prev != nil && len(table) < lzwMaxCodes {
			table = append(table, append(append([]byte(nil), prev...), entry[0]))
		}
		prev = entry

		if len(table)+early >= 1<<width && width < lzwMaxWidth {
			width++
		}
	}
}

// LZWEncode compresses data into an LZW code stream that starts with a
// clear code, resets before the table overflows, and ends with EOD.
func LZWEncode(data []byte, params Params) ([]byte, error) {
	early := lzwEarlyChange(params)
	bw := &bitWriter{}

	var dict map[string]int
	var next, width int
	reset := func() {
		dict = make(map[string]int)
		next = lzwFirstCode
		width = 9
	}
	reset()
	bw.write(lzwClear, width)

	if len(data) == 0 {
		bw.write(lzwEOD, width)
		return bw.bytes(), nil
	}

	current := string(data[:1])
	currentCode := int(data[0])
	for _, b := range data[1:] {
		candidate := current + string([]byte{b})
		if code, ok := dict[candidate]; ok {
			current, currentCode = candidate, code
			continue
		}

		bw.write(currentCode, width)
		dict[candidate] = next
		next++
		if next+early > 1<<width && width < lzwMaxWidth {
			width++
		}
		if next+early >= lzwMaxCodes {
			bw.write(lzwClear, width)
			reset()
		}

		current, currentCode = string([]byte{b}), int(b)
	}

	bw.write(currentCode, width)
	// The decoder still adds an entry for the final code, which may widen EOD.
	next++
	if next+early > 1<<width && width < lzwMaxWidth {
		width++
	}
	bw.write(lzwEOD, width)
	return bw.bytes(), nil
}

func lzwEarlyChange(params Params) int {
	if getIntParam(params, "EarlyChange", 1) == 0 {
		return 0
	}
	return 1
}

func newLZWTable() [][]byte {
	table := make([][]byte, lzwFirstCode, lzwMaxCodes)
	for i := 0; i < 256; i++ {
		table[i] = []byte{byte(i)}
	}
	return table
}

// bitReader reads MSB-first codes of variable width.
type bitReader struct {
	data  []byte
	pos   int
	acc   uint32
	nbits uint
}

func (r *bitReader) read(width int) (int, bool) {
	for r.nbits < uint(width) {
		if r.pos >= len(r.data) {
			return 0, false
		}
		r.acc = r.acc<<8 | uint32(r.data[r.pos])
		r.pos++
		r.nbits += 8
	}
	r.nbits -= uint(width)
	code := int(r.acc>>r.nbits) & (1<<width - 1)
	r.acc &= 1<<r.nbits - 1
	return code, true
}

// bitWriter packs MSB-first codes of variable width.
type bitWriter struct {
	buf   bytes.Buffer
	acc   uint32
	nbits uint
}

func (w *bitWriter) write(code, width int) {
	w.acc = w.acc<<uint(width) | uint32(code)
	w.nbits += uint(width)
	for w.nbits >= 8 {
		w.nbits -= 8
		w.buf.WriteByte(byte(w.acc >> w.nbits))
	}
	w.acc &= 1<<w.nbits - 1
}

func (w *bitWriter) bytes() []byte {
	if w.nbits > 0 {
		w.buf.WriteByte(byte(w.acc << (8 - w.nbits)))
		w.nbits = 0
		w.acc = 0
	}
	return w.buf.Bytes()
}
