// Package security implements the legacy RC4 encryption used by the PDF
// Standard security handler (revisions 2 and 3): password authentication,
// document key derivation and the per-object key schedule.
package security

import (
	"crypto/md5"
	"crypto/rc4"
)

// RC4 encrypts or decrypts data with key. RC4 is symmetric, so the same
// call reverses itself.
func RC4(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		// Only an empty or over-long key fails; derived keys are 5 to 16 bytes.
		return append([]byte(nil), data...)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}

// ObjectKey derives the key for one indirect object from the document key:
// MD5 of the document key, the low three bytes of the object number and the
// low two bytes of the generation (little-endian), truncated to the
// document key length plus five, at most 16 bytes.
func ObjectKey(docKey []byte, number, generation int) []byte {
	h := md5.New()
	h.Write(docKey)
	h.Write([]byte{
		byte(number), byte(number >> 8), byte(number >> 16),
		byte(generation), byte(generation >> 8),
	})
	sum := h.Sum(nil)

	n := len(docKey) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}
