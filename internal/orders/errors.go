package orders

import (
	"errors"

	"github.com/ariefcatur/go-storefront-sync/internal/apiclient"
)

var (
	ErrOrdersLoad   = errors.New("orders load failed")
	ErrStatusLoad   = errors.New("order statuses load failed")
	ErrStatusUpdate = errors.New("order status update failed")
)

// Error carries a user-presentable Message. errors.Is matches the operation
// sentinel, errors.As reaches the *apiclient.Error underneath.
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
