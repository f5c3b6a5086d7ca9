package provider

import (
	"errors"
	"fmt"
	"strings"
)

// ProviderError describes a failed provider call. Transient marks failures
// that may succeed when repeated.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 5)
	parts = append(parts, "provider error")

	if name := strings.TrimSpace(e.Provider); name != "" {
		parts = append(parts, name)
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether err carries a ProviderError marked transient.
func IsTransient(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr) && providerErr.Transient
}
