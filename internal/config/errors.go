package config

import "fmt"

// ConfigError describes a configuration problem and how to fix it.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeFileUnreadable = "CONFIG_FILE_UNREADABLE"
	ErrCodeFileInvalid    = "CONFIG_FILE_INVALID"
	ErrCodeInvalidBrush   = "INVALID_BRUSH"
	ErrCodeInvalidValue   = "INVALID_VALUE"
)

func errFileUnreadable(path string, err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeFileUnreadable,
		Message: fmt.Sprintf("Cannot read configuration file %s: %v", path, err),
		Action:  "Check the path passed with -config or remove the flag to use defaults",
	}
}

func errFileInvalid(path string, err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeFileInvalid,
		Message: fmt.Sprintf("Configuration file %s is not valid YAML: %v", path, err),
		Action:  "Fix the syntax error reported above",
	}
}

func errInvalidBrush(err error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidBrush,
		Message: err.Error(),
		Action:  "Use a #rrggbb colour or palette name, a width between 1 and 20, and cap round or square",
	}
}

func errInvalidValue(field string, value any, want string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid %s: %v", field, value),
		Action:  fmt.Sprintf("Set %s to %s", field, want),
	}
}
