package cart

import (
	"errors"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
)

var (
	ErrCartResolution = errors.New("cart resolution failed")
	ErrCartLoad       = errors.New("cart load failed")
	ErrCartMutation   = errors.New("cart mutation failed")
)

// Error is what every Service method returns on failure. Message is ready to
// show to the user; errors.Is matches the operation sentinel and errors.As
// reaches the underlying *apiclient.Error.
type Error struct {
	Op      error
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error { return []error{e.Op, e.Err} }

func fail(op error, fallback string, err error) *Error {
	return &Error{Op: op, Message: apiclient.Message(err, fallback), Err: err}
}

// resolutionMessage prefers the create failure's server message, then the
// lookup failure's, then the generic fallback.
func resolutionMessage(createErr, lookupErr error) string {
	for _, err := range []error{createErr, lookupErr} {
		var apiErr *apiclient.Error
		if errors.As(err, &apiErr) && apiErr.Detail != "" {
			return apiErr.Detail
		}
	}
	return apiclient.Message(createErr, "could not load or create cart")
}
