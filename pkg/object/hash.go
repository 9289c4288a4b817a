package object

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// HashSize is the length in bytes of a raw object hash.
const HashSize = sha1.Size

// Hash is the 20-byte SHA-1 digest of an object's canonical bytes.
type Hash [HashSize]byte

// ZeroHash is the all-zero hash. It never names a stored object.
var ZeroHash Hash

// HashBytes computes the SHA-1 of data. For objects, data must be the full
// canonical encoding including the "type len\0" header.
func HashBytes(data []byte) Hash {
	return Hash(sha1.Sum(data))
}

// HashObject computes the hash of the envelope "type len\0content".
func HashObject(objType ObjectType, content []byte) Hash {
	h := sha1.New()
	fmt.Fprintf(h, "%s %d\x00", objType, len(content))
	h.Write(content)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ParseHash decodes a 40-character lower- or upper-case hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*HashSize {
		return h, fmt.Errorf("parse hash %q: invalid length %d", s, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return h, nil
}

// HashFromBytes copies a raw 20-byte slice into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length: %d bytes", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// String returns the lower-case hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the abbreviated 7-character hex form used in diff headers
// and commit summaries.
func (h Hash) Short() string {
	return h.String()[:7]
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}
