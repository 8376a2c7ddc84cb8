package encryption

import (
	"fmt"

	"photovault/internal/config"
	"photovault/internal/photo"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration
// type. Type "none" returns (nil, nil): backups are stored in plaintext.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (photo.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
