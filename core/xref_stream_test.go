package core

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

// xrefRows packs rows into big-endian fields of the given widths.
func xrefRows(w [3]int, rows [][3]int64) []byte {
	var data bytes.Buffer
	for _, row := range rows {
		for i, width := range w {
			for j := width - 1; j >= 0; j-- {
				data.WriteByte(byte(row[i] >> (8 * j)))
			}
		}
	}
	return data.Bytes()
}

// xrefStream writes object num as a cross-reference stream. extra is added
// to the stream dictionary.
func (p *testPDF) xrefStream(num int, extra string, w [3]int, rows [][3]int64) int64 {
	data := xrefRows(w, rows)
	off := int64(p.Len())
	p.offsets[num] = off
	fmt.Fprintf(p, "%d 0 obj\n<< /Type /XRef /W [%d %d %d] /Length %d %s >>\nstream\n", num, w[0], w[1], w[2], len(data), extra)
	p.Write(data)
	p.WriteString("\nendstream\nendobj\n")
	return off
}

// TestParseXRefStream tests a cross-reference stream with all entry types
func TestParseXRefStream(t *testing.T) {
	p := newTestPDF()
	p.obj(1, "<< /Type /Catalog >>")
	p.obj(2, "(two)")
	p.obj(3, "<< /Type /ObjStm /N 1 /First 4 /Length 0 >>\nstream\n\nendstream")

	off := int64(p.Len())
	rows := [][3]int64{
		{0, 0, 65535},
		{1, p.offsets[1], 0},
		{1, p.offsets[2], 0},
		{1, p.offsets[3], 0},
		{2, 3, 0},
		{1, off, 0},
	}
	p.xrefStream(5, "/Size 6 /Root 1 0 R", [3]int{1, 2, 2}, rows)
	p.startxref(off)

	table, err := p.parser().ParseAll()
	if err != nil {
		t.Fatalf("ParseAll() error: %v", err)
	}

	want := map[int]XRefEntry{
		0: {Type: XRefFree, Generation: 65535},
		1: {Type: XRefInUse, Offset: p.offsets[1]},
		2: {Type: XRefInUse, Offset: p.offsets[2]},
		3: {Type: XRefInUse, Offset: p.offsets[3]},
		4: {Type: XRefCompressed, Stream: 3, Index: 0},
		5: {Type: XRefInUse, Offset: off},
	}
	if table.Size() != len(want) {
		t.Fatalf("Size() = %d, want %d", table.Size(), len(want))
	}
	for num, w := range want {
		if got, ok := table.Get(num); !ok || *got != w {
			t.Errorf("entry %d = %+v, want %+v", num, got, w)
		}
	}

	if !table.Trailer.Has("Root") || !table.Trailer.Has("Size") {
		t.Errorf("trailer = %v, want /Root and /Size", table.Trailer)
	}
	if table.Trailer.Has("W") || table.Trailer.Has("Type") {
		t.Errorf("trailer = %v, stream-only keys leaked", table.Trailer)
	}
}

// TestParseXRefStreamIndex tests /Index subsections and the implicit self entry
func TestParseXRefStreamIndex(t *testing.T) {
	p := newTestPDF()
	off := p.xrefStream(20, "/Size 21 /Index [2 1 10 2]", [3]int{1, 1, 1}, [][3]int64{
		{1, 40, 0},
		{2, 7, 3},
		{0, 0, 1},
	})

	table, err := p.parser().ParseXRef(off)
	if err != nil {
		t.Fatalf("ParseXRef() error: %v", err)
	}
	want := map[int]XRefEntry{
		2:  {Type: XRefInUse, Offset: 40},
		10: {Type: XRefCompressed, Stream: 7, Index: 3},
		11: {Type: XRefFree, Generation: 1},
		20: {Type: XRefInUse, Offset: off},
	}
	if table.Size() != len(want) {
		t.Fatalf("Size() = %d, want %d", table.Size(), len(want))
	}
	for num, w := range want {
		if got, ok := table.Get(num); !ok || *got != w {
			t.Errorf("entry %d = %+v, want %+v", num, got, w)
		}
	}
}

// TestParseXRefStreamDefaults tests zero-width fields
func TestParseXRefStreamDefaults(t *testing.T) {
	p := newTestPDF()
	off := p.xrefStream(3, "/Size 3", [3]int{0, 2, 0}, [][3]int64{
		{0, 100, 0},
		{0, 200, 0},
		{0, 300, 0},
	})

	table, err := p.parser().ParseXRef(off)
	if err != nil {
		t.Fatalf("ParseXRef() error: %v", err)
	}
	for i, want := range []int64{100, 200, 300} {
		e, ok := table.Get(i)
		if !ok || e.Type != XRefInUse || e.Offset != want || e.Generation != 0 {
			t.Errorf("entry %d = %+v, want in use at %d", i, e, want)
		}
	}
}

// TestParseXRefStreamCompressed tests a Flate stream with a PNG predictor
func TestParseXRefStreamCompressed(t *testing.T) {
	rows := [][3]int64{
		{0, 0, 65535},
		{1, 15, 0},
		{1, 300, 0},
		{2, 9, 4},
	}
	s := &Stream{
		Dict: Dict{"Type": Name("XRef"), "Size": Int(4), "W": Array{Int(1), Int(2), Int(2)}},
		Data: xrefRows([3]int{1, 2, 2}, rows),
	}
	if err := s.EncodeWith("FlateDecode", Dict{"Predictor": Int(12), "Columns": Int(5)}); err != nil {
		t.Fatalf("EncodeWith() error: %v", err)
	}

	p := newTestPDF()
	off := int64(p.Len())
	p.WriteString("9 0 obj\n")
	if err := s.Encode(p, nil); err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	p.WriteString("\nendobj\n")
	p.startxref(off)

	table, err := p.parser().ParseAll()
	if err != nil {
		t.Fatalf("ParseAll() error: %v", err)
	}
	if e, _ := table.Get(2); e == nil || e.Offset != 300 {
		t.Errorf("entry 2 = %+v, want offset 300", e)
	}
	if e, _ := table.Get(3); e == nil || e.Type != XRefCompressed || e.Stream != 9 || e.Index != 4 {
		t.Errorf("entry 3 = %+v, want compressed in 9 at 4", e)
	}
}

// TestParseXRefStreamErrors tests malformed cross-reference streams
func TestParseXRefStreamErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *testPDF) int64
		want  error
	}{
		{
			name: "short W",
			build: func(p *testPDF) int64 {
				off := int64(p.Len())
				p.WriteString("1 0 obj\n<< /Type /XRef /Size 1 /W [1 2] /Length 3 >>\nstream\nabc\nendstream\nendobj\n")
				return off
			},
			want: ErrSyntax,
		},
		{
			name: "wide field",
			build: func(p *testPDF) int64 {
				return p.xrefStream(1, "/Size 0", [3]int{1, 9, 1}, nil)
			},
			want: ErrSyntax,
		},
		{
			name: "odd index",
			build: func(p *testPDF) int64 {
				return p.xrefStream(1, "/Size 1 /Index [0 1 5]", [3]int{1, 1, 1}, [][3]int64{{1, 1, 0}})
			},
			want: ErrSyntax,
		},
		{
			name: "missing size",
			build: func(p *testPDF) int64 {
				return p.xrefStream(1, "", [3]int{1, 1, 1}, [][3]int64{{1, 1, 0}})
			},
			want: ErrSyntax,
		},
		{
			name: "truncated",
			build: func(p *testPDF) int64 {
				return p.xrefStream(1, "/Size 3", [3]int{1, 1, 1}, [][3]int64{{1, 1, 0}, {1, 2, 0}})
			},
			want: ErrCorrupt,
		},
		{
			name: "wrong type",
			build: func(p *testPDF) int64 {
				off := int64(p.Len())
				p.WriteString("1 0 obj\n<< /Type /ObjStm /Length 0 >>\nstream\n\nendstream\nendobj\n")
				return off
			},
			want: ErrSyntax,
		},
		{
			name: "not a stream",
			build: func(p *testPDF) int64 {
				off := int64(p.Len())
				p.WriteString("1 0 obj\n<< /Type /XRef >>\nendobj\n")
				return off
			},
			want: ErrSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPDF()
			off := tt.build(p)
			if _, err := p.parser().ParseXRef(off); !errors.Is(err, tt.want) {
				t.Errorf("ParseXRef() error = %v, want %v", err, tt.want)
			}
		})
	}
}

// TestParseXRefStreamInconsistencies tests extra /W entries and unknown
// entry types under both policies
func TestParseXRefStreamInconsistencies(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *testPDF) int64
	}{
		{
			name: "excess W",
			build: func(p *testPDF) int64 {
				data := xrefRows([3]int{1, 1, 1}, [][3]int64{{1, 9, 0}})
				off := int64(p.Len())
				fmt.Fprintf(p, "4 0 obj\n<< /Type /XRef /Size 1 /W [1 1 1 0] /Length %d >>\nstream\n", len(data))
				p.Write(data)
				p.WriteString("\nendstream\nendobj\n")
				return off
			},
		},
		{
			name: "unknown type",
			build: func(p *testPDF) int64 {
				return p.xrefStream(4, "/Size 2", [3]int{1, 1, 1}, [][3]int64{{1, 9, 0}, {7, 0, 0}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" lenient", func(t *testing.T) {
			p := newTestPDF()
			off := tt.build(p)
			warnings := &WarningList{}
			x := p.parser()
			x.SetPolicy(Policy{Diag: warnings})
			table, err := x.ParseXRef(off)
			if err != nil {
				t.Fatalf("ParseXRef() error: %v", err)
			}
			if e, ok := table.Get(0); !ok || e.Offset != 9 {
				t.Errorf("entry 0 = %+v, want offset 9", e)
			}
			if _, ok := table.Get(1); ok {
				t.Error("entry with unknown type should be skipped")
			}
			if len(warnings.Warnings) != 1 {
				t.Errorf("warnings = %v, want one", warnings.Warnings)
			}
		})
		t.Run(tt.name+" strict", func(t *testing.T) {
			p := newTestPDF()
			off := tt.build(p)
			x := p.parser()
			x.SetPolicy(Policy{Strict: true})
			if _, err := x.ParseXRef(off); !errors.Is(err, ErrInconsistent) {
				t.Errorf("ParseXRef() error = %v, want ErrInconsistent", err)
			}
		})
	}
}

// TestParseAllHybrid tests a classic table with an /XRefStm stream, which
// is read before /Prev
func TestParseAllHybrid(t *testing.T) {
	p := newTestPDF()
	p.obj(1, "<< /Type /Catalog >>")
	p.obj(4, "(old four)")
	old4 := p.offsets[4]
	older := p.table("<< /Size 5 /Root 1 0 R >>", 1, 4)

	p.obj(2, "<< /Type /ObjStm /N 2 /First 8 /Length 0 >>\nstream\n\nendstream")
	stm := p.xrefStream(6, "/Size 7 /Index [1 1 4 1]", [3]int{1, 2, 1}, [][3]int64{
		{2, 2, 1},
		{2, 2, 0},
	})

	p.obj(1, "<< /Type /Catalog /Version /1.7 >>")
	newer := p.table(fmt.Sprintf("<< /Size 7 /Root 1 0 R /XRefStm %d /Prev %d >>", stm, older), 1)
	p.startxref(newer)

	table, err := p.parser().ParseAll()
	if err != nil {
		t.Fatalf("ParseAll() error: %v", err)
	}

	if e, _ := table.Get(1); e == nil || e.Type != XRefInUse || e.Offset != p.offsets[1] {
		t.Errorf("entry 1 = %+v, want the table's in-use entry", e)
	}
	if e, _ := table.Get(4); e == nil || e.Type != XRefCompressed || e.Stream != 2 {
		t.Errorf("entry 4 = %+v, want compressed from /XRefStm, not offset %d", e, old4)
	}
	if e, _ := table.Get(6); e == nil || e.Offset != stm {
		t.Errorf("entry 6 = %+v, want the stream itself", e)
	}
	if table.Trailer.Has("XRefStm") || table.Trailer.Has("Prev") {
		t.Errorf("trailer = %v, chain keys should be dropped", table.Trailer)
	}
}

// TestParseXRefStreamRepair tests an offset a few bytes before the stream
func TestParseXRefStreamRepair(t *testing.T) {
	p := newTestPDF()
	p.obj(1, "<< >>")
	p.WriteString("\n\n")
	off := p.xrefStream(2, "/Size 2 /Index [1 1]", [3]int{1, 2, 1}, [][3]int64{{1, p.offsets[1], 0}})
	p.startxref(off - 2)

	warnings := &WarningList{}
	x := p.parser()
	x.SetPolicy(Policy{Diag: warnings})
	table, err := x.ParseAll()
	if err != nil {
		t.Fatalf("ParseAll() error: %v", err)
	}
	if e, ok := table.Get(1); !ok || e.Offset != p.offsets[1] {
		t.Errorf("entry 1 = %+v", e)
	}
	if len(warnings.Warnings) != 1 {
		t.Errorf("warnings = %v, want one repair warning", warnings.Warnings)
	}
}

// TestReadBigEndianInt tests field decoding
func TestReadBigEndianInt(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
	}{
		{nil, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x01, 0x00}, 256},
		{[]byte{0x00, 0x01, 0x02}, 258},
		{[]byte{0xff, 0xff, 0xff, 0xff}, 4294967295},
	}
	for _, tt := range tests {
		if got := readBigEndianInt(tt.in); got != tt.want {
			t.Errorf("readBigEndianInt(% x) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
