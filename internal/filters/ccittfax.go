package filters

import (
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/image/ccitt"
)

// TIFF tag numbers used by the CCITT wrapper.
const (
	tiffImageWidth      = 256
	tiffImageLength     = 257
	tiffBitsPerSample   = 258
	tiffCompression     = 259
	tiffPhotometric     = 262
	tiffStripOffsets    = 273
	tiffRowsPerStrip    = 278
	tiffStripByteCounts = 279

	tiffShort = 3
	tiffLong  = 4
)

// CCITTFaxDecode wraps CCITT Group 3/4 fax data in a minimal little-endian
// TIFF container so image consumers can decode it. The payload itself is
// not expanded; use [CCITTRaster] for that.
//
// Parameters from the PDF decode parameters dictionary:
//   - K: Group selector (-1=Group4, 0=Group3 1D, >0=Group3 2D)
//   - Columns: Image width in pixels (default 1728)
//   - Rows: Image height, falling back to Height (the stream's /Height)
func CCITTFaxDecode(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", getIntParam(params, "Height", 0))
	compression := 3
	if getIntParam(params, "K", 0) == -1 {
		compression = 4
	}

	type entry struct {
		tag, typ uint16
		value    uint32
	}
	entries := []entry{
		{tiffImageWidth, tiffLong, uint32(columns)},
		{tiffImageLength, tiffLong, uint32(rows)},
		{tiffBitsPerSample, tiffShort, 1},
		{tiffCompression, tiffShort, uint32(compression)},
		{tiffPhotometric, tiffShort, 0},
		{tiffStripOffsets, tiffLong, 0},
		{tiffRowsPerStrip, tiffLong, uint32(rows)},
		{tiffStripByteCounts, tiffLong, uint32(len(data))},
	}
	headerLen := 8 + 2 + len(entries)*12 + 4
	entries[5].value = uint32(headerLen)

	var buf bytes.Buffer
	buf.Grow(headerLen + len(data))
	buf.WriteString("II")
	le := binary.LittleEndian
	var scratch [4]byte
	writeU16 := func(v uint16) {
		le.PutUint16(scratch[:2], v)
		buf.Write(scratch[:2])
	}
	writeU32 := func(v uint32) {
		le.PutUint32(scratch[:], v)
		buf.Write(scratch[:])
	}

	writeU16(42)
	writeU32(8)
	writeU16(uint16(len(entries)))
	for _, e := range entries {
		writeU16(e.tag)
		writeU16(e.typ)
		writeU32(1)
		if e.typ == tiffShort {
			writeU16(uint16(e.value))
			writeU16(0)
		} else {
			writeU32(e.value)
		}
	}
	writeU32(0)
	buf.Write(data)
	return buf.Bytes(), nil
}

// CCITTRaster expands CCITT Group 3/4 fax data into packed 1-bit rows.
//
// Parameters from the PDF decode parameters dictionary:
//   - K: Group selector (-1=Group4, 0=Group3 1D, >0=Group3 2D)
//   - Columns: Image width in pixels (default 1728)
//   - Rows: Image height in pixels (default 0, uses AutoDetectHeight)
//   - BlackIs1: Bit interpretation (default false, maps to ccitt.Options.Invert)
func CCITTRaster(data []byte, params Params) ([]byte, error) {
	columns := getIntParam(params, "Columns", 1728)
	rows := getIntParam(params, "Rows", 0)
	k := getIntParam(params, "K", 0)
	blackIs1 := getBoolParam(params, "BlackIs1", false)

	sf := ccitt.Group3
	if k < 0 {
		sf = ccitt.Group4
	}

	if rows == 0 {
		rows = ccitt.AutoDetectHeight
	}

	opts := &ccitt.Options{Invert: blackIs1}
	reader := ccitt.NewReader(bytes.NewReader(data), ccitt.MSB, sf, columns, rows, opts)
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, corrupt("CCITT data: %v", err)
	}
	return out, nil
}
