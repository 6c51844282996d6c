package aftership

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrInvalidArgument marks caller mistakes (empty tracking number, missing
// identity). It is returned before any request is sent.
var ErrInvalidArgument = errors.New("aftership: invalid argument")

// APIError is returned for non-2xx responses. Body keeps the raw response
// text with the server's structured error.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("aftership http %d: %s", e.StatusCode, e.Body)
}

// NotFound reports the AfterShip "tracking does not exist" answer.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound || e.Code == 4004
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		e.Code = int(env.Meta.Code)
		e.Type = string(env.Meta.Type)
		e.Message = string(env.Meta.Message)
	}
	return e
}

// IsNotFound unwraps err looking for a not-found APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
