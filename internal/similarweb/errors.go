package similarweb

import (
	"errors"
	"fmt"
)

// GatewayError reports a failed visits call for one domain. StatusCode is 0
// when the request never produced a response.
type GatewayError struct {
	Domain     string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("similarweb error for %s: %v", e.Domain, e.Err)
	}
	return fmt.Sprintf("similarweb error for %s: %d %s", e.Domain, e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IsGatewayError reports whether err wraps a *GatewayError.
func IsGatewayError(err error) bool {
	var gerr *GatewayError
	return errors.As(err, &gerr)
}
