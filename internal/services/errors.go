package services

import "errors"

// Business-rule errors surfaced by the services. Handlers map these to HTTP
// statuses with errors.Is.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrIllegalTransition   = errors.New("illegal order status transition")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrEmailRegistered     = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
)
