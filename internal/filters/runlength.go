package filters

import "bytes"

// RunLengthDecode decodes PackBits-style run-length data. A length byte
// 0-127 copies the next n+1 bytes, 129-255 repeats the next byte 257-n
// times, and 128 ends the data.
func RunLengthDecode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out.Bytes(), nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, corrupt("RunLengthDecode: literal run past end of data")
			}
			out.Write(data[i : i+n+1])
			i += n + 1
		default:
			if i >= len(data) {
				return nil, corrupt("RunLengthDecode: repeat run past end of data")
			}
			out.Write(bytes.Repeat(data[i:i+1], 257-n))
			i++
		}
	}
	// EOD is frequently omitted by writers.
	return out.Bytes(), nil
}

// RunLengthEncode encodes data with runs of up to 128 bytes and appends the
// EOD marker.
func RunLengthEncode(data []byte) ([]byte, error) {
	var out bytes.Buffer
	i := 0
	for i < len(data) {
		run := 1
		for i+run < len(data) && run < 128 && data[i+run] == data[i] {
			run++
		}
		if run >= 2 {
			out.WriteByte(byte(257 - run))
			out.WriteByte(data[i])
			i += run
			continue
		}

		start := i
		for i < len(data) && i-start < 128 {
			if i+1 < len(data) && data[i+1] == data[i] {
				break
			}
			i++
		}
		if i == start {
			i++
		}
		out.WriteByte(byte(i - start - 1))
		out.Write(data[start:i])
	}
	out.WriteByte(128)
	return out.Bytes(), nil
}
