package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags and custom cross-field
// rules. Returns an error if validation fails, with actionable messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateReuseAddressExclusivity(); err != nil {
		return err
	}
	if err := c.validateAcceptPerCoreRequiresReusePort(); err != nil {
		return err
	}
	if err := c.validateStaticCacheLimits(); err != nil {
		return err
	}

	return nil
}

// validateReuseAddressExclusivity enforces §6: ReuseAddress and
// ExclusiveAddressUse are mutually exclusive.
func (c *Config) validateReuseAddressExclusivity() error {
	if c.Server.ReuseAddress && c.Server.ExclusiveAddressUse {
		return errors.New("server: reuse_address and exclusive_address_use are mutually exclusive")
	}
	return nil
}

// validateAcceptPerCoreRequiresReusePort enforces §4.9: per-core acceptor
// fan-out requires OS-level reuse-port.
func (c *Config) validateAcceptPerCoreRequiresReusePort() error {
	if c.Server.AcceptPerCore && !c.Server.ReusePort {
		return errors.New("server: accept_per_core requires reuse_port")
	}
	return nil
}

// validateStaticCacheLimits ensures a single cached file can't exceed the
// total cache budget, which would make MaxTotalCacheBytes unsatisfiable.
func (c *Config) validateStaticCacheLimits() error {
	if c.Static.Root == "" {
		return nil
	}
	if c.Static.MaxCachedFileBytes > c.Static.MaxTotalCacheBytes {
		return fmt.Errorf(
			"static: max_cached_file_bytes (%s) exceeds max_total_cache_bytes (%s)",
			humanize.Bytes(uint64(c.Static.MaxCachedFileBytes)),
			humanize.Bytes(uint64(c.Static.MaxTotalCacheBytes)),
		)
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
