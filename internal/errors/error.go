package errors

import (
	"errors"
)

var (
	ErrEmptyAuth          = errors.New("missing authorization")
	ErrEmptySubject       = errors.New("missing subject")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("please sign in to place an order")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("resource belongs to another user")
	ErrCacheMiss          = errors.New("cache miss")
	ErrUserAlreadyExists  = errors.New("user with this email already exists")
	ErrInternal           = errors.New("something went wrong on our side, please try again")
)

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrIllegalTransition    = errors.New("illegal transition of checkout step")
	ErrSubmissionInProgress = errors.New("order submission is already in progress")
	ErrCheckoutNotFound     = errors.New("checkout session not found")
	ErrCreateOrder          = errors.New("failed creating order")
	ErrMissingOrderID       = errors.New("order was created without an id")
	ErrPartialOrder         = errors.New("some items could not be added to the order")
	ErrProductUnavailable   = errors.New("product is not available")
)
