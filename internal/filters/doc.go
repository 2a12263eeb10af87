// Package filters implements the PDF stream filters.
//
// Every filter is registered under its long name and, where one exists,
// its abbreviated inline-image name. [Lookup] returns a [Codec] for either
// spelling; [Decode] and [Encode] are shortcuts over the registry.
//
// # Supported Filters
//
// FlateDecode (zlib/deflate), with TIFF and PNG predictors:
//
//	decoded, err := filters.FlateDecode(data, params)
//
// The Predictor parameter specifies the algorithm:
//   - 1: No prediction (default)
//   - 2: TIFF Predictor 2
//   - 10-15: PNG predictors (None, Sub, Up, Average, Paeth)
//
// ASCIIHexDecode and ASCII85Decode decode text encodings of binary data.
// LZWDecode honours EarlyChange. RunLengthDecode handles PackBits runs.
// All of these can also encode.
//
// CCITTFaxDecode wraps the fax payload in a TIFF container; DCTDecode,
// JPXDecode and JBIG2Decode pass image data through unchanged. The identity
// Crypt filter is accepted.
//
// # Decode Parameters
//
// Filters accept a Params map for additional parameters:
//
//	params := filters.Params{
//	    "Predictor": 12,
//	    "Columns":   100,
//	    "Colors":    3,
//	}
//	decoded, err := filters.FlateDecode(data, params)
//
// Failures wrap pdferr.ErrCorrupt for undecodable data and
// pdferr.ErrUnsupported for filters or parameters that are not implemented.
package filters
