package filters

import (
	"bytes"
	"encoding/hex"
	"math"
	"strings"
)

// ASCIIHexDecode decodes ASCII hexadecimal encoded data.
// Each pair of hexadecimal digits (0-9, A-F, a-f) represents one byte.
// Whitespace is ignored and > marks end of data; a final odd digit is
// treated as if followed by 0. Data without the > marker is corrupt.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	var result bytes.Buffer
	var high byte
	pending := false

	for _, c := range data {
		if isWhitespace(c) {
			continue
		}
		if c == '>' {
			if pending {
				result.WriteByte(high << 4)
			}
			return result.Bytes(), nil
		}

		d, err := hexDigitToByte(c)
		if err != nil {
			return nil, err
		}
		if pending {
			result.WriteByte(high<<4 | d)
			pending = false
		} else {
			high = d
			pending = true
		}
	}

	return nil, corrupt("ASCIIHexDecode: missing end-of-data marker")
}

// ASCIIHexEncode encodes data as uppercase hexadecimal digits followed by
// the > end-of-data marker.
func ASCIIHexEncode(data []byte) ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(data)), hex.EncodedLen(len(data))+1)
	hex.Encode(out, data)
	return append(bytes.ToUpper(out), '>'), nil
}

// ASCII85Decode decodes ASCII base-85 (Ascii85) encoded data.
// Each group of 5 ASCII characters (! to u, values 33-117) represents 4 bytes.
// The special character 'z' represents four zero bytes and is only valid
// between groups. The sequence ~> marks end of data and an optional leading
// <~ is skipped.
func ASCII85Decode(data []byte) ([]byte, error) {
	var result bytes.Buffer

	data = bytes.TrimLeft(data, " \t\r\n\f\x00")
	data = bytes.TrimPrefix(data, []byte("<~"))

	digits := make([]byte, 0, 5)
	flush := func() error {
		numBytes := len(digits) - 1
		for len(digits) < 5 {
			digits = append(digits, 84) // 'u' - '!'
		}
		value := uint64(0)
		for _, d := range digits {
			value = value*85 + uint64(d)
		}
		if value > math.MaxUint32 {
			return corrupt("ASCII85Decode: group %q exceeds 32 bits", digitsText(digits))
		}
		for j := 0; j < numBytes; j++ {
			result.WriteByte(byte(value >> (24 - j*8)))
		}
		digits = digits[:0]
		return nil
	}

	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case isWhitespace(c):
			continue
		case c == '~':
			if i+1 < len(data) && data[i+1] != '>' {
				return nil, corrupt("ASCII85Decode: invalid end-of-data marker")
			}
			if len(digits) == 1 {
				return nil, corrupt("ASCII85Decode: final group has a single character")
			}
			if len(digits) > 0 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			return result.Bytes(), nil
		case c == 'z':
			if len(digits) != 0 {
				return nil, corrupt("ASCII85Decode: 'z' inside a group")
			}
			result.Write([]byte{0, 0, 0, 0})
		case c >= '!' && c <= 'u':
			digits = append(digits, c-'!')
			if len(digits) == 5 {
				if err := flush(); err != nil {
					return nil, err
				}
			}
		default:
			return nil, corrupt("ASCII85Decode: invalid character %q", c)
		}
	}

	// Tolerate a missing ~> like most readers do.
	if len(digits) == 1 {
		return nil, corrupt("ASCII85Decode: final group has a single character")
	}
	if len(digits) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}
	return result.Bytes(), nil
}

func digitsText(digits []byte) string {
	b := make([]byte, len(digits))
	for i, d := range digits {
		b[i] = d + '!'
	}
	return string(b)
}

// ASCII85Encode encodes data as Ascii85 terminated by ~>. Complete groups of
// four zero bytes are written as 'z'.
func ASCII85Encode(data []byte) ([]byte, error) {
	var sb strings.Builder
	sb.Grow(len(data)*5/4 + 7)

	for i := 0; i < len(data); i += 4 {
		n := len(data) - i
		if n > 4 {
			n = 4
		}
		var group [4]byte
		copy(group[:], data[i:i+n])
		value := uint32(group[0])<<24 | uint32(group[1])<<16 | uint32(group[2])<<8 | uint32(group[3])

		if n == 4 && value == 0 {
			sb.WriteByte('z')
			continue
		}

		var chars [5]byte
		for j := 4; j >= 0; j-- {
			chars[j] = byte(value%85) + '!'
			value /= 85
		}
		sb.Write(chars[:n+1])
	}

	sb.WriteString("~>")
	return []byte(sb.String()), nil
}

// hexDigitToByte converts a hexadecimal character to its numeric value (0-15).
func hexDigitToByte(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, corrupt("invalid hex digit: %q", c)
	}
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
