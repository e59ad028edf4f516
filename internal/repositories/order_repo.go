package repositories

import (
	"gorm.io/gorm"

	"shopapi/internal/models"
)

// OrderRepository defines the interface for order data access. Orders are
// never deleted; cancellation is a status transition.
type OrderRepository interface {
	GetAllByUserID(userID string) ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	Create(order *models.Order) error
	UpdateStatus(id string, from, to models.OrderStatus) error
	WithTx(tx *gorm.DB) OrderRepository
}
