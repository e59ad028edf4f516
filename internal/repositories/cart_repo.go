package repositories

import (
	"gorm.io/gorm"

	"shopapi/internal/models"
)

// CartRepository defines the interface for cart data access. A user has at
// most one cart; line merging is the service's concern, the repository only
// persists lines.
type CartRepository interface {
	GetByUserID(userID string) (*models.Cart, error)
	Create(cart *models.Cart) error
	GetItem(cartID string, itemID uint) (*models.CartItem, error)
	CreateItem(item *models.CartItem) error
	UpdateItemQuantity(itemID uint, quantity int) error
	DeleteItem(cartID string, itemID uint) error
	ClearItems(cartID string) error
	WithTx(tx *gorm.DB) CartRepository
}
