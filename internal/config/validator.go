package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers the application validation rules.
// Must be called before validating AppConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("trace_output", validateTraceOutput); err != nil {
		return fmt.Errorf("failed to register trace_output validator: %w", err)
	}
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}

// validateTraceOutput accepts "stderr", "stdout" or "file://<absolute-path>".
func validateTraceOutput(fl validator.FieldLevel) bool {
	output := fl.Field().String()
	if output == "stderr" || output == "stdout" {
		return true
	}
	if strings.HasPrefix(output, "file://") {
		path := strings.TrimPrefix(output, "file://")
		return path != "" && filepath.IsAbs(path)
	}
	return false
}

// validateDuration accepts any positive time.ParseDuration string.
func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the AppConfig using struct tags and cross-field rules.
func (c *AppConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validateLoopbackAddr(); err != nil {
		return err
	}
	if err := c.validateDistinctFiles(); err != nil {
		return err
	}
	return nil
}

// validateLoopbackAddr keeps the API off the network: it has no
// authentication beyond the client address.
func (c *AppConfig) validateLoopbackAddr() error {
	host, port, err := net.SplitHostPort(c.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("server.http_addr: %w", err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("server.http_addr: invalid port %q", port)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("server.http_addr: %q is not a loopback address", c.Server.HTTPAddr)
}

// validateDistinctFiles rejects configurations that point two stores at the
// same file.
func (c *AppConfig) validateDistinctFiles() error {
	if filepath.Clean(c.Database.Path) == filepath.Clean(c.Sessions.File) {
		return errors.New("database.path and sessions.file must be different files")
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

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as 250ms", field)
	case "trace_output":
		return fmt.Sprintf("%s must be 'stderr', 'stdout' or 'file://<absolute-path>'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
