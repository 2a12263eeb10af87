package filters

import (
	"fmt"

	"github.com/tsawler/pdfgraph/internal/pdferr"
)

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
// Names are stored as strings without the leading slash.
type Params map[string]interface{}

// Codec converts stream payloads in both directions. Codecs that only pass
// data through for a downstream consumer return an ErrUnsupported error from
// Encode.
type Codec interface {
	Decode(data []byte, params Params) ([]byte, error)
	Encode(data []byte, params Params) ([]byte, error)
}

// codecFuncs adapts a pair of plain functions to the Codec interface.
type codecFuncs struct {
	decode func([]byte, Params) ([]byte, error)
	encode func([]byte, Params) ([]byte, error)
}

func (c codecFuncs) Decode(data []byte, params Params) ([]byte, error) {
	return c.decode(data, params)
}

func (c codecFuncs) Encode(data []byte, params Params) ([]byte, error) {
	if c.encode == nil {
		return nil, fmt.Errorf("%w: encoding not available for this filter", pdferr.ErrUnsupported)
	}
	return c.encode(data, params)
}

// Canonical filter names.
const (
	Flate     = "FlateDecode"
	ASCIIHex  = "ASCIIHexDecode"
	ASCII85   = "ASCII85Decode"
	LZW       = "LZWDecode"
	RunLength = "RunLengthDecode"
	CCITTFax  = "CCITTFaxDecode"
	DCT       = "DCTDecode"
	JPX       = "JPXDecode"
	JBIG2     = "JBIG2Decode"
	Crypt     = "Crypt"
)

// abbreviations maps the short names allowed in inline images and
// tolerated in stream dictionaries.
var abbreviations = map[string]string{
	"Fl":  Flate,
	"AHx": ASCIIHex,
	"A85": ASCII85,
	"LZW": LZW,
	"RL":  RunLength,
	"CCF": CCITTFax,
	"DCT": DCT,
}

var registry = map[string]Codec{
	Flate:     codecFuncs{decode: FlateDecode, encode: FlateEncode},
	ASCIIHex:  codecFuncs{decode: ignoreParams(ASCIIHexDecode), encode: ignoreParams(ASCIIHexEncode)},
	ASCII85:   codecFuncs{decode: ignoreParams(ASCII85Decode), encode: ignoreParams(ASCII85Encode)},
	LZW:       codecFuncs{decode: LZWDecode, encode: LZWEncode},
	RunLength: codecFuncs{decode: ignoreParams(RunLengthDecode), encode: ignoreParams(RunLengthEncode)},
	CCITTFax:  codecFuncs{decode: CCITTFaxDecode},
	DCT:       codecFuncs{decode: passthrough},
	JPX:       codecFuncs{decode: passthrough},
	JBIG2:     codecFuncs{decode: passthrough},
	Crypt:     codecFuncs{decode: CryptDecode},
}

// Canonical returns the long form of a filter name.
func Canonical(name string) string {
	if long, ok := abbreviations[name]; ok {
		return long
	}
	return name
}

// Lookup returns the codec registered for name, which may be a long or an
// abbreviated filter name.
func Lookup(name string) (Codec, error) {
	codec, ok := registry[Canonical(name)]
	if !ok {
		return nil, fmt.Errorf("%w: filter %s", pdferr.ErrUnsupported, name)
	}
	return codec, nil
}

// CanEncode reports whether the named filter can produce encoded output.
func CanEncode(name string) bool {
	c, ok := registry[Canonical(name)].(codecFuncs)
	return ok && c.encode != nil
}

// Decode runs data through the named filter.
func Decode(name string, data []byte, params Params) ([]byte, error) {
	codec, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return codec.Decode(data, params)
}

// Encode runs data through the named filter in the encoding direction.
func Encode(name string, data []byte, params Params) ([]byte, error) {
	codec, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return codec.Encode(data, params)
}

func ignoreParams(fn func([]byte) ([]byte, error)) func([]byte, Params) ([]byte, error) {
	return func(data []byte, _ Params) ([]byte, error) {
		return fn(data)
	}
}

// passthrough hands image payloads to their consumer unchanged.
func passthrough(data []byte, _ Params) ([]byte, error) {
	return data, nil
}

// CryptDecode implements the Crypt filter. Only the identity crypt filter is
// supported, which is selected when neither Name nor Type is present.
func CryptDecode(data []byte, params Params) ([]byte, error) {
	if _, ok := params["Name"]; ok {
		return nil, fmt.Errorf("%w: named crypt filters", pdferr.ErrUnsupported)
	}
	if _, ok := params["Type"]; ok {
		return nil, fmt.Errorf("%w: named crypt filters", pdferr.ErrUnsupported)
	}
	return data, nil
}

// corrupt wraps a codec failure so callers can test for pdferr.ErrCorrupt.
func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", pdferr.ErrCorrupt, fmt.Sprintf(format, args...))
}

// getIntParam extracts an integer parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to an integer.
func getIntParam(params Params, key string, defaultValue int) int {
	if params == nil {
		return defaultValue
	}

	obj, ok := params[key]
	if !ok {
		return defaultValue
	}

	switch v := obj.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}

// getBoolParam extracts a boolean parameter from Params, returning defaultValue
// if the parameter is missing or cannot be converted to a boolean.
func getBoolParam(params Params, key string, defaultValue bool) bool {
	if params == nil {
		return defaultValue
	}

	if v, ok := params[key].(bool); ok {
		return v
	}
	return defaultValue
}
