package testutil

import (
	"crypto/sha256"
	"encoding/hex"

	"fic-go/internal/fic"
)

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
// It is computed independently of fic.Digest so tests can check one against
// the other.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// FP returns the fingerprint of data.
func FP(data string) fic.Fingerprint {
	return fic.MustParseFingerprint(SHA256Hex([]byte(data)))
}
