package testutil

import (
	"fic-go/internal/encryption"
	"fic-go/internal/fic"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() fic.Encryptor {
	return encryption.NewTestEncryptor()
}
