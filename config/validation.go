package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate = validator.New()

// Validate checks the configuration against its struct tags and the rules
// that can't be expressed in tags.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	if cfg.CacheSize > 0 && cfg.CacheTTL == 0 {
		return fmt.Errorf("config: cache_ttl must be set when cache_size is %d", cfg.CacheSize)
	}
	return nil
}

// formatValidationError reduces validator errors to the first failure
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("config: %s failed on '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return fmt.Errorf("config: %w", err)
}
