package encryption

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"

	"fic-go/internal/fic"
)

// sealMagic opens every blob sealed by TestEncryptor.
var sealMagic = []byte("FICSEAL1")

// sealMask is XORed over the sealed payload so path names in a baseline
// do not show up in the stored bytes.
const sealMask = 0x5a

// sealHeaderLen is the magic plus the SHA-256 of the plaintext.
var sealHeaderLen = len(sealMagic) + sha256.Size

var (
	// ErrNotSealed is returned when a blob was not produced by TestEncryptor.
	ErrNotSealed = errors.New("blob is not sealed")

	// ErrSealDamaged is returned when a sealed blob fails its checksum.
	ErrSealDamaged = errors.New("sealed blob is damaged")
)

// TestEncryptor seals baselines without real cryptography, for tests and
// the "test" encryption type. A sealed blob is
//
//	FICSEAL1 | sha256(plaintext) | plaintext XOR 0x5a
//
// so output is deterministic, never readable as JSON, and truncation or
// bit flips are detected on open. Unlock requires the passphrase given to
// Setup, if any.
type TestEncryptor struct {
	mu         sync.Mutex
	passphrase string
	hasKey     bool
}

var _ fic.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a TestEncryptor with no passphrase set.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.passphrase = passphrase
	e.hasKey = true
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	plain, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading baseline: %w", err)
	}
	sum := sha256.Sum256(plain)

	sealed := make([]byte, 0, sealHeaderLen+len(plain))
	sealed = append(sealed, sealMagic...)
	sealed = append(sealed, sum[:]...)
	for _, b := range plain {
		sealed = append(sealed, b^sealMask)
	}
	if _, err := w.Write(sealed); err != nil {
		return fmt.Errorf("writing sealed baseline: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (fic.DecryptionContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hasKey && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return testOpener{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// testOpener opens blobs sealed by TestEncryptor.
type testOpener struct{}

func (testOpener) Decrypt(r io.Reader, w io.Writer) error {
	sealed, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading sealed baseline: %w", err)
	}
	if len(sealed) < len(sealMagic) || !bytes.Equal(sealed[:len(sealMagic)], sealMagic) {
		return ErrNotSealed
	}
	if len(sealed) < sealHeaderLen {
		return fmt.Errorf("%w: %w", ErrSealDamaged, io.ErrUnexpectedEOF)
	}

	want := sealed[len(sealMagic):sealHeaderLen]
	plain := make([]byte, len(sealed)-sealHeaderLen)
	for i, b := range sealed[sealHeaderLen:] {
		plain[i] = b ^ sealMask
	}
	if sum := sha256.Sum256(plain); !bytes.Equal(sum[:], want) {
		return ErrSealDamaged
	}

	if _, err := w.Write(plain); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}
	return nil
}
