package repositories

import "errors"

// Sentinel errors returned by repositories. Callers match them with
// errors.Is instead of parsing error strings.
var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrUserNotFound      = errors.New("user not found")
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderStatusStale  = errors.New("order status changed concurrently")
	ErrReviewNotFound    = errors.New("review not found")
)
