package ingest

import (
	"errors"
	"fmt"
)

// ConfigError reports a missing or invalid setting detected at run time.
type ConfigError struct {
	Setting string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s", e.Setting, e.Reason)
}

// ErrMissingAPIKey is returned by Run when no Similarweb API key is configured.
var ErrMissingAPIKey = &ConfigError{Setting: "SIMILARWEB_API_KEY", Reason: "not set"}

// IsConfigError reports whether err wraps a *ConfigError.
func IsConfigError(err error) bool {
	var cerr *ConfigError
	return errors.As(err, &cerr)
}
