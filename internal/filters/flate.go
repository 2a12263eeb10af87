package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"github.com/tsawler/pdfgraph/internal/pdferr"
)

// FlateDecode decompresses Flate (zlib/deflate) compressed data.
// This is the most common compression filter in PDFs. It optionally applies
// a predictor algorithm for image data decompression.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	decompressed, err := zlibDecompress(data)
	if err != nil {
		return nil, err
	}

	predictor := getIntParam(params, "Predictor", 1)
	if predictor == 1 {
		return decompressed, nil
	}

	decompressed, err = applyPredictor(decompressed, predictor, params)
	if err != nil {
		return nil, fmt.Errorf("predictor failed: %w", err)
	}
	return decompressed, nil
}

// FlateEncode compresses data with zlib. When a PNG predictor (10-15) is
// requested every row is written with the Up filter; predictor 2 applies
// TIFF horizontal differencing.
func FlateEncode(data []byte, params Params) ([]byte, error) {
	predictor := getIntParam(params, "Predictor", 1)
	switch {
	case predictor == 1:
	case predictor == 2:
		encoded, err := encodeTIFFPredictor2(data, params)
		if err != nil {
			return nil, err
		}
		data = encoded
	case predictor >= 10 && predictor <= 15:
		encoded, err := encodePNGUp(data, params)
		if err != nil {
			return nil, err
		}
		data = encoded
	default:
		return nil, fmt.Errorf("%w: predictor %d", pdferr.ErrUnsupported, predictor)
	}

	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compression failed: %w", err)
	}
	return buf.Bytes(), nil
}

// zlibDecompress decompresses zlib-compressed data using the standard library.
func zlibDecompress(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, corrupt("zlib header: %v", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, corrupt("zlib data: %v", err)
	}

	return buf.Bytes(), nil
}

// rowGeometry returns the bytes per pixel (at least one) and the number of
// data bytes per row for the sample layout described by params.
func rowGeometry(params Params) (bpp, rowLen int) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)

	bpp = (colors*bpc + 7) / 8
	if bpp < 1 {
		bpp = 1
	}
	rowLen = (columns*colors*bpc + 7) / 8
	return bpp, rowLen
}

// applyPredictor reverses prediction. Predictor 1 is identity, 2 is TIFF
// Predictor 2, and 10-15 are PNG predictors where each row names its own
// algorithm.
func applyPredictor(data []byte, predictor int, params Params) ([]byte, error) {
	switch {
	case predictor == 1:
		return data, nil
	case predictor == 2:
		return applyTIFFPredictor2(data, params)
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(data, params)
	}
	return nil, fmt.Errorf("%w: predictor %d", pdferr.ErrUnsupported, predictor)
}

// applyTIFFPredictor2 applies TIFF Predictor 2, which predicts each sample
// from the sample to its left.
func applyTIFFPredictor2(data []byte, params Params) ([]byte, error) {
	colors := getIntParam(params, "Colors", 1)
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("%w: TIFF predictor with %d bits per component", pdferr.ErrUnsupported, bpc)
	}

	_, rowSize := rowGeometry(params)
	if rowSize == 0 || len(data)%rowSize != 0 {
		return nil, corrupt("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	result := make([]byte, len(data))
	for rowStart := 0; rowStart < len(data); rowStart += rowSize {
		for col := 0; col < rowSize; col++ {
			idx := rowStart + col
			if col < colors {
				result[idx] = data[idx]
			} else {
				result[idx] = data[idx] + result[idx-colors]
			}
		}
	}

	return result, nil
}

func encodeTIFFPredictor2(data []byte, params Params) ([]byte, error) {
	colors := getIntParam(params, "Colors", 1)
	if bpc := getIntParam(params, "BitsPerComponent", 8); bpc != 8 {
		return nil, fmt.Errorf("%w: TIFF predictor with %d bits per component", pdferr.ErrUnsupported, bpc)
	}
	_, rowSize := rowGeometry(params)
	if rowSize == 0 || len(data)%rowSize != 0 {
		return nil, fmt.Errorf("%w: data size %d is not a multiple of row size %d", pdferr.ErrUnsupported, len(data), rowSize)
	}

	result := make([]byte, len(data))
	for rowStart := 0; rowStart < len(data); rowStart += rowSize {
		for col := 0; col < rowSize; col++ {
			idx := rowStart + col
			if col < colors {
				result[idx] = data[idx]
			} else {
				result[idx] = data[idx] - data[idx-colors]
			}
		}
	}
	return result, nil
}

// applyPNGPredictor reverses PNG row filters. Each row starts with a tag
// byte (0-4) naming the filter used for that row, and the output of every
// row feeds the prediction of the next one.
func applyPNGPredictor(data []byte, params Params) ([]byte, error) {
	bpp, rowLen := rowGeometry(params)
	stride := rowLen + 1

	if len(data)%stride != 0 {
		return nil, corrupt("data size %d is not a multiple of row size %d", len(data), stride)
	}

	numRows := len(data) / stride
	result := make([]byte, numRows*rowLen)
	prev := make([]byte, rowLen)

	for row := 0; row < numRows; row++ {
		tag := data[row*stride]
		in := data[row*stride+1 : (row+1)*stride]
		out := result[row*rowLen : (row+1)*rowLen]

		if err := decodePNGRow(out, in, prev, tag, bpp); err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		prev = out
	}

	return result, nil
}

// decodePNGRow decodes a single PNG-filtered row into out.
// Filter types: 0=None, 1=Sub (left), 2=Up (above), 3=Average, 4=Paeth.
func decodePNGRow(out, in, prev []byte, tag byte, bpp int) error {
	for i := range in {
		var left, upLeft byte
		up := prev[i]
		if i >= bpp {
			left = out[i-bpp]
			upLeft = prev[i-bpp]
		}

		var predicted byte
		switch tag {
		case 0:
		case 1:
			predicted = left
		case 2:
			predicted = up
		case 3:
			predicted = byte((int(left) + int(up)) / 2)
		case 4:
			predicted = paethPredictor(left, up, upLeft)
		default:
			return corrupt("unknown PNG filter type %d", tag)
		}

		out[i] = in[i] + predicted
	}
	return nil
}

// encodePNGUp writes every row with the PNG Up filter.
func encodePNGUp(data []byte, params Params) ([]byte, error) {
	_, rowLen := rowGeometry(params)
	if rowLen == 0 || len(data)%rowLen != 0 {
		return nil, fmt.Errorf("%w: data size %d is not a multiple of row size %d", pdferr.ErrUnsupported, len(data), rowLen)
	}

	out := make([]byte, 0, len(data)+len(data)/rowLen)
	prev := make([]byte, rowLen)
	for start := 0; start < len(data); start += rowLen {
		row := data[start : start+rowLen]
		out = append(out, 2)
		for i, b := range row {
			out = append(out, b-prev[i])
		}
		prev = row
	}
	return out, nil
}

// paethPredictor implements the Paeth predictor algorithm from the PNG specification.
// It selects the neighbor (left, above, or upper-left) closest to a linear prediction.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))

	if pa <= pb && pa <= pc {
		return a
	} else if pb <= pc {
		return b
	}
	return c
}

// abs returns the absolute value of an integer.
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
