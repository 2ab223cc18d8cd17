package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks cfg using struct tags, then the rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	if cfg.BlobStore.DialTimeout != "" {
		d, err := time.ParseDuration(cfg.BlobStore.DialTimeout)
		if err != nil {
			return fmt.Errorf("blob_store.dial_timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("blob_store.dial_timeout: must be positive")
		}
	}

	if (cfg.BlobStore.S3AccessKey == "") != (cfg.BlobStore.S3SecretKey == "") {
		return fmt.Errorf("blob_store: s3_access_key and s3_secret_key must be set together")
	}
	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
