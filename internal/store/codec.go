package store

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"fic-go/internal/fic"
)

// encodeSnapshot renders s as a JSON object mapping path to hex fingerprint.
// Keys are sorted and the output is indented with four spaces so the file
// stays human-inspectable and byte-stable for equal snapshots.
// JSON strings cannot carry arbitrary bytes, so a path that is not valid
// UTF-8 is refused instead of being stored under a mangled key.
func encodeSnapshot(s fic.Snapshot) ([]byte, error) {
	raw := make(map[string]string, len(s))
	for p, fp := range s {
		if !utf8.ValidString(p) {
			return nil, fmt.Errorf("encoding baseline: %w: %q", fic.ErrInvalidPathName, p)
		}
		raw[p] = fp.String()
	}
	data, err := json.MarshalIndent(raw, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding baseline: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeSnapshot parses data produced by encodeSnapshot. Anything that is
// not an object of path to valid fingerprint wraps fic.ErrCorrupt.
func decodeSnapshot(data []byte) (fic.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: baseline is not a JSON object", fic.ErrCorrupt)
	}

	var raw map[string]string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", fic.ErrCorrupt, err)
	}

	s := make(fic.Snapshot, len(raw))
	for p, h := range raw {
		if p == "" {
			return nil, fmt.Errorf("%w: empty path identifier", fic.ErrCorrupt)
		}
		fp, err := fic.ParseFingerprint(h)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", fic.ErrCorrupt, p, err)
		}
		s[p] = fp
	}
	return s, nil
}

// Option configures a blob store (FileStore or S3Store).
type Option func(*blobCodec)

// WithEncryption seals saved baselines with enc. Loading asks passphrase
// for the key that unlocks the private key.
func WithEncryption(enc fic.Encryptor, passphrase fic.PassphraseFunc) Option {
	return func(c *blobCodec) {
		c.encryptor = enc
		c.passphrase = passphrase
	}
}

// blobCodec turns snapshots into stored bytes and back, optionally through
// an Encryptor.
type blobCodec struct {
	encryptor  fic.Encryptor
	passphrase fic.PassphraseFunc
}

func newBlobCodec(opts []Option) blobCodec {
	var c blobCodec
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c blobCodec) encrypted() bool {
	return c.encryptor != nil
}

func (c blobCodec) marshal(s fic.Snapshot) ([]byte, error) {
	data, err := encodeSnapshot(s)
	if err != nil {
		return nil, err
	}
	if c.encryptor == nil {
		return data, nil
	}
	var sealed bytes.Buffer
	if err := c.encryptor.Encrypt(bytes.NewReader(data), &sealed); err != nil {
		return nil, fmt.Errorf("encrypting baseline: %w", err)
	}
	return sealed.Bytes(), nil
}

func (c blobCodec) unmarshal(data []byte) (fic.Snapshot, error) {
	if c.encryptor == nil {
		return decodeSnapshot(data)
	}
	if c.passphrase == nil {
		return nil, fmt.Errorf("baseline is encrypted but no passphrase source is configured")
	}
	passphrase, err := c.passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dec, err := c.encryptor.Unlock(passphrase)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	var plain bytes.Buffer
	if err := dec.Decrypt(bytes.NewReader(data), &plain); err != nil {
		return nil, fmt.Errorf("%w: decrypting baseline: %w", fic.ErrCorrupt, err)
	}
	return decodeSnapshot(plain.Bytes())
}
