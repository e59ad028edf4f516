package repositories

import "shopapi/internal/models"

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	GetByProductID(productID string) ([]models.Review, error)
	GetByID(id string) (*models.Review, error)
	Create(review *models.Review) error
	Delete(id string) error
}
