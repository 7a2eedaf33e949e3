package fic

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// digestChunkSize is the read buffer used while hashing.
const digestChunkSize = 4096

// fingerprintLen is the length of a hex encoded SHA-256 digest.
const fingerprintLen = sha256.Size * 2

// Fingerprint is the lowercase hex SHA-256 digest of a file's content.
// The zero value is not a valid fingerprint.
type Fingerprint struct {
	hex string
}

// ParseFingerprint validates s as a 64 character lowercase hex digest.
func ParseFingerprint(s string) (Fingerprint, error) {
	if len(s) != fingerprintLen {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: want %d hex characters, got %d", s, fingerprintLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Fingerprint{}, fmt.Errorf("fingerprint %q: invalid character %q at offset %d", s, c, i)
		}
	}
	return Fingerprint{hex: s}, nil
}

// MustParseFingerprint is like ParseFingerprint but panics on error.
// Intended for tests and constants.
func MustParseFingerprint(s string) Fingerprint {
	fp, err := ParseFingerprint(s)
	if err != nil {
		panic(err)
	}
	return fp
}

// String returns the lowercase hex form.
func (f Fingerprint) String() string {
	return f.hex
}

// IsZero reports whether f was never assigned a digest.
func (f Fingerprint) IsZero() bool {
	return f.hex == ""
}

// Digest computes the fingerprint of everything read from r.
// r is consumed in fixed-size chunks so memory use does not grow with the
// input. Any read error yields ErrUnreadable and no fingerprint; a partial
// digest is never returned.
func Digest(r io.Reader) (Fingerprint, error) {
	h := sha256.New()
	buf := make([]byte, digestChunkSize)
	// Hide any WriterTo on r so reads stay bounded by buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{r}, buf); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return Fingerprint{hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// DigestBytes returns the fingerprint of data.
func DigestBytes(data []byte) Fingerprint {
	sum := sha256.Sum256(data)
	return Fingerprint{hex: hex.EncodeToString(sum[:])}
}
