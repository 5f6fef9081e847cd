// internal/errors/errors.go
package errors

import "fmt"

// ErrInvalidRepoFormat is returned when a repository string in the config is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrMalformedRecord is returned when a record fetched from GitHub lacks the fields
// needed to store it.
type ErrMalformedRecord struct {
	Kind   string
	Reason string
}

func (e *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.Kind, e.Reason)
}

// ErrMissingConfig is returned when a required configuration value is absent.
type ErrMissingConfig struct {
	Field string
}

func (e *ErrMissingConfig) Error() string {
	return fmt.Sprintf("%s is a required configuration field", e.Field)
}
