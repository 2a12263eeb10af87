package core

import (
	"fmt"

	"github.com/tsawler/pdfgraph/internal/filters"
)

// Filters returns the stream's filter chain in decode order together with
// the decode parameters for each filter. A missing or null parameter entry
// yields a nil Dict.
func (s *Stream) Filters() ([]Name, []Dict, error) {
	var names []Name
	switch f := s.Dict.Get("Filter").(type) {
	case nil, Null:
		return nil, nil, nil
	case Name:
		names = []Name{f}
	case Array:
		for i := range f {
			name, ok := f.Get(i).(Name)
			if !ok {
				return nil, nil, fmt.Errorf("%w: filter %d is %T, not a name", ErrSyntax, i, f.Get(i))
			}
			names = append(names, name)
		}
	default:
		return nil, nil, fmt.Errorf("%w: invalid /Filter type %T", ErrSyntax, f)
	}

	params := make([]Dict, len(names))
	switch p := s.Dict.Get("DecodeParms").(type) {
	case Dict:
		if len(params) > 0 {
			params[0] = p
		}
	case Array:
		for i := range params {
			params[i], _ = p.GetDict(i)
		}
	}
	return names, params, nil
}

// Decode decodes the stream data according to the Filter(s) specified in the
// stream dictionary, applying a chain left to right. The result is cached
// until the stream is changed through SetDecoded or EncodeWith.
func (s *Stream) Decode() ([]byte, error) {
	if s.decoded != nil {
		return s.decoded, nil
	}

	names, params, err := s.Filters()
	if err != nil {
		return nil, err
	}

	data := s.Data
	for i, name := range names {
		data, err = filters.Decode(string(name), data, s.filterParams(name, params[i]))
		if err != nil {
			return nil, fmt.Errorf("filter %d (%s) failed: %w", i, name, err)
		}
	}

	if data == nil {
		data = []byte{}
	}
	s.decoded = data
	return data, nil
}

// SetDecoded replaces the stream content. The data is re-encoded through
// the existing filter chain, which must consist of encodable filters only.
func (s *Stream) SetDecoded(data []byte) error {
	names, params, err := s.Filters()
	if err != nil {
		return err
	}

	encoded := data
	for i := len(names) - 1; i >= 0; i-- {
		encoded, err = filters.Encode(string(names[i]), encoded, s.filterParams(names[i], params[i]))
		if err != nil {
			return fmt.Errorf("re-encoding with %s: %w", names[i], err)
		}
	}

	s.Data = encoded
	s.decoded = append([]byte(nil), data...)
	return nil
}

// EncodeWith encodes the current payload with one more filter, which is
// placed in front of the existing chain.
func (s *Stream) EncodeWith(name Name, params Dict) error {
	encoded, err := filters.Encode(string(name), s.Data, s.filterParams(name, params))
	if err != nil {
		return fmt.Errorf("encoding with %s: %w", name, err)
	}

	names, oldParams, err := s.Filters()
	if err != nil {
		return err
	}

	if len(names) == 0 {
		s.Dict.Set("Filter", name)
		if params != nil {
			s.Dict.Set("DecodeParms", params)
		}
	} else {
		chain := Array{name}
		parms := Array{dictOrNull(params)}
		hasParms := params != nil
		for i, n := range names {
			chain = append(chain, n)
			parms = append(parms, dictOrNull(oldParams[i]))
			hasParms = hasParms || oldParams[i] != nil
		}
		s.Dict.Set("Filter", chain)
		if hasParms {
			s.Dict.Set("DecodeParms", parms)
		} else {
			s.Dict.Delete("DecodeParms")
		}
	}

	if s.decoded == nil && len(names) == 0 {
		s.decoded = s.Data
	}
	s.Data = encoded
	return nil
}

// FlateEncode compresses the payload with FlateDecode.
func (s *Stream) FlateEncode() error {
	return s.EncodeWith(filters.Flate, nil)
}

func dictOrNull(d Dict) Object {
	if d == nil {
		return Null{}
	}
	return d
}

// filterParams converts decode parameters for the codec. CCITTFaxDecode
// also receives the image height from the stream dictionary.
func (s *Stream) filterParams(name Name, dict Dict) filters.Params {
	params := dictToParams(dict)
	if filters.Canonical(string(name)) == filters.CCITTFax {
		if h, ok := s.Dict.GetInt("Height"); ok {
			if params == nil {
				params = make(filters.Params)
			}
			params["Height"] = int(h)
		}
	}
	return params
}

// dictToParams converts a core.Dict to filters.Params, translating PDF object
// types to Go primitive types (Int->int, Real->float64, Bool->bool, etc.).
func dictToParams(dict Dict) filters.Params {
	if dict == nil {
		return nil
	}

	params := make(filters.Params)
	for k := range dict {
		switch obj := dict.Get(k).(type) {
		case Int:
			params[k] = int(obj)
		case Real:
			params[k] = float64(obj)
		case Bool:
			params[k] = bool(obj)
		case String:
			params[k] = string(obj)
		case TextString:
			params[k] = obj.Text()
		case Name:
			params[k] = string(obj)
		default:
			params[k] = obj
		}
	}
	return params
}
