package encryption

import (
	"fmt"

	"docshare/internal/config"
	"docshare/internal/hier"
)

// NewEncryptorFromConfig creates the Encryptor selected by cfg.Type.
// It returns nil for "none" (or no type), meaning content is stored as uploaded.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (hier.Encryptor, error) {
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
