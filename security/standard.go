package security

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"github.com/tsawler/pdfgraph/internal/pdferr"
)

// padding is the fixed 32-byte string passwords are padded with.
var padding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// Params holds the Standard security handler entries of an encryption
// dictionary together with the first file identifier.
type Params struct {
	V               int
	R               int
	Length          int // key length in bits
	O               []byte
	U               []byte
	P               int32
	ID0             []byte
	EncryptMetadata bool
}

// AuthResult reports which password opened a document.
type AuthResult int

const (
	NotAuthenticated AuthResult = iota
	UserPassword
	OwnerPassword
)

func (a AuthResult) String() string {
	switch a {
	case UserPassword:
		return "user"
	case OwnerPassword:
		return "owner"
	default:
		return "none"
	}
}

// KeyLength returns the document key length in bytes.
func (p Params) KeyLength() int {
	if p.R < 3 {
		return 5
	}
	bits := p.Length
	if bits == 0 {
		bits = 40
	}
	return bits / 8
}

func (p Params) validate() error {
	if p.V != 1 && p.V != 2 {
		return fmt.Errorf("%w: encryption algorithm V=%d", pdferr.ErrUnsupported, p.V)
	}
	if p.R != 2 && p.R != 3 {
		return fmt.Errorf("%w: standard security handler revision %d", pdferr.ErrUnsupported, p.R)
	}
	if n := p.KeyLength(); n < 5 || n > 16 {
		return fmt.Errorf("%w: key length of %d bytes", pdferr.ErrUnsupported, n)
	}
	return nil
}

func padPassword(password []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, password)
	copy(out[n:], padding)
	return out
}

func xorKey(key []byte, v byte) []byte {
	out := make([]byte, len(key))
	for i, b := range key {
		out[i] = b ^ v
	}
	return out
}

// ComputeKey derives the document key from a user password.
func ComputeKey(p Params, password []byte) []byte {
	keyLen := p.KeyLength()

	h := md5.New()
	h.Write(padPassword(password))
	h.Write(p.O)
	var perms [4]byte
	binary.LittleEndian.PutUint32(perms[:], uint32(p.P))
	h.Write(perms[:])
	h.Write(p.ID0)
	if p.R >= 3 && !p.EncryptMetadata {
		h.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	sum := h.Sum(nil)

	if p.R >= 3 {
		for i := 0; i < 50; i++ {
			next := md5.Sum(sum[:keyLen])
			sum = next[:]
		}
	}
	return sum[:keyLen]
}

// ownerKey derives the RC4 key that protects the O entry.
func ownerKey(p Params, owner []byte) []byte {
	sum := md5.Sum(padPassword(owner))
	digest := sum[:]
	if p.R >= 3 {
		for i := 0; i < 50; i++ {
			next := md5.Sum(digest)
			digest = next[:]
		}
	}
	return digest[:p.KeyLength()]
}

// ComputeO computes the O entry. An empty owner password falls back to
// the user password.
func ComputeO(p Params, owner, user []byte) []byte {
	if len(owner) == 0 {
		owner = user
	}
	key := ownerKey(p, owner)
	out := RC4(key, padPassword(user))
	if p.R >= 3 {
		for i := 1; i <= 19; i++ {
			out = RC4(xorKey(key, byte(i)), out)
		}
	}
	return out
}

// ComputeU computes the U entry and the document key for a user password.
func ComputeU(p Params, user []byte) (u, key []byte) {
	key = ComputeKey(p, user)
	if p.R < 3 {
		return RC4(key, padding), key
	}

	h := md5.New()
	h.Write(padding)
	h.Write(p.ID0)
	out := RC4(key, h.Sum(nil))
	for i := 1; i <= 19; i++ {
		out = RC4(xorKey(key, byte(i)), out)
	}
	return append(out, make([]byte, 16)...), key
}

// checkUser returns the document key when password is the user password.
func checkUser(p Params, password []byte) ([]byte, bool) {
	u, key := ComputeU(p, password)
	n := 32
	if p.R >= 3 {
		n = 16
	}
	if len(p.U) < n || len(u) < n {
		return nil, false
	}
	return key, bytes.Equal(u[:n], p.U[:n])
}

// recoverUserPassword decrypts the padded user password from O using the
// owner password.
func recoverUserPassword(p Params, owner []byte) []byte {
	key := ownerKey(p, owner)
	if p.R < 3 {
		return RC4(key, p.O)
	}
	out := p.O
	for i := 19; i >= 0; i-- {
		out = RC4(xorKey(key, byte(i)), out)
	}
	return out
}

// Authenticate tries password as the user password and then as the owner
// password. It returns the document key and which password matched; a
// wrong password is not an error and yields NotAuthenticated.
func Authenticate(p Params, password []byte) ([]byte, AuthResult, error) {
	if err := p.validate(); err != nil {
		return nil, NotAuthenticated, err
	}
	if key, ok := checkUser(p, password); ok {
		return key, UserPassword, nil
	}
	if key, ok := checkUser(p, recoverUserPassword(p, password)); ok {
		return key, OwnerPassword, nil
	}
	return nil, NotAuthenticated, nil
}

// NewStandard builds Standard handler parameters for writing. use128
// selects 128-bit RC4 (V=2, R=3) instead of 40-bit RC4 (V=1, R=2). It
// returns the parameters and the document key.
func NewStandard(user, owner, id0 []byte, use128 bool, permissions int32) (Params, []byte) {
	p := Params{V: 1, R: 2, Length: 40, P: permissions, ID0: id0, EncryptMetadata: true}
	if use128 {
		p.V, p.R, p.Length = 2, 3, 128
	}
	p.O = ComputeO(p, owner, user)
	u, key := ComputeU(p, user)
	p.U = u
	return p, key
}
