package encryption

import (
	"fmt"

	"fic-go/internal/config"
	"fic-go/internal/fic"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// It returns nil and no error when baselines are stored in the clear.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (fic.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		if cfg.PublicKeyPath == "" || cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("age encryption requires public_key_path and private_key_path")
		}
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
