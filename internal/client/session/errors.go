package session

import (
	"errors"
	"fmt"
)

// ErrSessionExpired means the stored credentials were discarded and the
// user has to log in again.
var ErrSessionExpired = errors.New("session expired")

var errNoRefreshToken = errors.New("no refresh token stored")

// RefreshError is a failed refresh exchange. StatusCode is 0 when the
// exchange did not produce an HTTP response.
//
// Every RefreshError also matches ErrSessionExpired.
type RefreshError struct {
	StatusCode int
	Err        error
}

func (e *RefreshError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("token refresh failed: status %d: %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("token refresh failed: status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("token refresh failed: %v", e.Err)
	default:
		return "token refresh failed"
	}
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool {
	return target == ErrSessionExpired
}
