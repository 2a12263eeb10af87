package reader

import (
	"bytes"
	"fmt"

	"github.com/tsawler/pdfgraph/core"
	"github.com/tsawler/pdfgraph/security"
)

// IsEncrypted reports whether the trailer has an /Encrypt entry.
func (r *Reader) IsEncrypted() bool {
	return r.trailer.Has("Encrypt")
}

// EncryptDict returns the encryption dictionary, or nil for an unencrypted
// document. The dictionary itself is never decrypted.
func (r *Reader) EncryptDict() (core.Dict, error) {
	return r.trailerDict("Encrypt", false)
}

// FileID returns the two file identifiers from the trailer /ID array.
func (r *Reader) FileID() (id0, id1 []byte, ok bool) {
	ids, found := r.trailer.GetArray("ID")
	if !found || ids.Len() < 2 {
		return nil, nil, false
	}
	id0, ok0 := stringBytes(ids.Get(0))
	id1, ok1 := stringBytes(ids.Get(1))
	return id0, id1, ok0 && ok1
}

// SetDecryptionKey installs the document key. Cached objects are never
// replaced, so the key must be installed before any object other than the
// encryption dictionary has been loaded. Installing the same key again is
// a no-op.
func (r *Reader) SetDecryptionKey(key []byte) error {
	if r.key != nil {
		if bytes.Equal(r.key, key) {
			return nil
		}
		return fmt.Errorf("%w: a different decryption key is already installed", core.ErrInconsistent)
	}
	for k, obj := range r.objCache {
		if !r.isEncryptRef(k.Number, k.Generation) && !isXRefStream(obj) {
			return fmt.Errorf("%w: object %d %d was loaded before the decryption key", core.ErrInconsistent, k.Number, k.Generation)
		}
	}
	r.key = append([]byte(nil), key...)
	return nil
}

// Decrypt authenticates password with the Standard security handler,
// first as the user password and then as the owner password. On success
// the derived key is installed. A wrong password is reported as
// security.NotAuthenticated, not as an error.
func (r *Reader) Decrypt(password string) (security.AuthResult, error) {
	if err := r.checkOpen(); err != nil {
		return security.NotAuthenticated, err
	}
	enc, err := r.EncryptDict()
	if err != nil {
		return security.NotAuthenticated, err
	}
	if enc == nil {
		return security.NotAuthenticated, fmt.Errorf("%w: document is not encrypted", core.ErrNotFound)
	}

	params, err := r.securityParams(enc)
	if err != nil {
		return security.NotAuthenticated, err
	}
	key, result, err := security.Authenticate(params, []byte(password))
	if err != nil || result == security.NotAuthenticated {
		return result, err
	}
	if err := r.SetDecryptionKey(key); err != nil {
		return security.NotAuthenticated, err
	}
	return result, nil
}

func (r *Reader) securityParams(enc core.Dict) (security.Params, error) {
	if filter, _ := enc.GetName("Filter"); filter != "Standard" {
		return security.Params{}, fmt.Errorf("%w: security handler %v", core.ErrUnsupported, enc.Get("Filter"))
	}

	v, _ := enc.GetInt("V")
	rev, _ := enc.GetInt("R")
	length, _ := enc.GetInt("Length")
	perms, _ := enc.GetInt("P")
	o, okO := stringBytes(enc.Get("O"))
	u, okU := stringBytes(enc.Get("U"))
	if !okO || !okU {
		return security.Params{}, fmt.Errorf("%w: encryption dictionary without /O or /U", core.ErrSyntax)
	}
	id0, _, _ := r.FileID()

	encryptMetadata := true
	if b, ok := enc.GetBool("EncryptMetadata"); ok {
		encryptMetadata = bool(b)
	}

	return security.Params{
		V:               int(v),
		R:               int(rev),
		Length:          int(length),
		O:               o,
		U:               u,
		P:               int32(perms),
		ID0:             id0,
		EncryptMetadata: encryptMetadata,
	}, nil
}

// isEncryptRef reports whether num gen is the trailer's /Encrypt object.
func (r *Reader) isEncryptRef(num, gen int) bool {
	ref, ok := r.trailer.Raw("Encrypt").(core.IndirectRef)
	return ok && ref.Number == num && ref.Generation == gen
}

// decryptObject decrypts every string and stream payload in obj with the
// key for object num gen.
func (r *Reader) decryptObject(obj core.Object, num, gen int) core.Object {
	return decryptValue(obj, security.ObjectKey(r.key, num, gen))
}

func decryptValue(obj core.Object, key []byte) core.Object {
	switch v := obj.(type) {
	case core.String:
		return core.NewStringObject(security.RC4(key, []byte(v)))
	case core.TextString:
		return core.NewStringObject(security.RC4(key, v.Bytes()))
	case core.Array:
		out := make(core.Array, len(v))
		for i, elem := range v {
			out[i] = decryptValue(elem, key)
		}
		return out
	case core.Dict:
		out := make(core.Dict, len(v))
		for k, elem := range v {
			out[k] = decryptValue(elem, key)
		}
		return out
	case *core.Stream:
		return &core.Stream{
			Dict: decryptValue(v.Dict, key).(core.Dict),
			Data: security.RC4(key, v.Data),
		}
	}
	return obj
}

func stringBytes(obj core.Object) ([]byte, bool) {
	switch s := obj.(type) {
	case core.String:
		return []byte(s), true
	case core.TextString:
		return s.Bytes(), true
	}
	return nil, false
}
