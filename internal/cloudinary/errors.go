package cloudinary

import (
	"errors"
	"fmt"
)

var ErrMissingCredentials = errors.New("cloudinary credentials are not configured")

// ConfigurationError reports missing or rejected account credentials.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("cloudinary configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// RemoteCallError wraps a failed call to the service. StatusCode is zero when
// no response was received.
type RemoteCallError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteCallError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status=%d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}
