package repositories

import (
	"gorm.io/gorm"

	"shopapi/internal/models"
)

// ProductRepository defines the interface for product data access, including
// the stock ledger operations. Reserve and Release must be called through a
// tx-bound repository (WithTx) when they are part of a larger write so that
// the stock mutation commits or rolls back with it.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	Reserve(id string, quantity int) error
	Release(id string, quantity int) error
	WithTx(tx *gorm.DB) ProductRepository
}
