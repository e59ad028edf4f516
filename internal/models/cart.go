package models

import "gorm.io/gorm"

// Cart is the per-user pre-order basket. At most one cart exists per user,
// enforced by the unique index on user_id. Carts are created lazily on the
// first add and emptied atomically on a successful checkout.
type Cart struct {
	ID         string     `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,uuid"`
	UserID     string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	Items      []CartItem `json:"items" gorm:"foreignKey:CartID"`
	gorm.Model            // Embed gorm.Model for CreatedAt, UpdatedAt, DeletedAt
}

// CartItem is a single (product, quantity) line. A cart holds at most one
// line per product; adding the same product again merges quantities.
type CartItem struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	CartID    string `json:"cart_id" gorm:"index:idx_cart_product,unique;type:varchar(36)"`
	ProductID string `json:"product_id" gorm:"index:idx_cart_product,unique;type:varchar(36)"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CartItemView is a fully materialized cart line, including a snapshot of the
// product it refers to. Returned instead of letting callers traverse
// relationships lazily.
type CartItemView struct {
	ID        uint    `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

// CartView is the materialized cart returned to callers. TotalItems and
// TotalPrice are derived from the lines, never stored.
type CartView struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Items      []CartItemView `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPrice float64        `json:"total_price"`
}
