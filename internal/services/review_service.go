package services

import (
	"fmt"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
)

// ReviewService handles business logic related to product reviews.
type ReviewService struct {
	reviewRepo  repositories.ReviewRepository
	productRepo repositories.ProductRepository
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviewRepo repositories.ReviewRepository, productRepo repositories.ProductRepository) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		productRepo: productRepo,
	}
}

// CreateReview creates a review for an existing product.
func (s *ReviewService) CreateReview(review *models.Review) error {
	if _, err := s.productRepo.GetByID(review.ProductID); err != nil {
		return err
	}
	return s.reviewRepo.Create(review)
}

// GetProductReviews retrieves all reviews for a product.
func (s *ReviewService) GetProductReviews(productID string) ([]models.Review, error) {
	if _, err := s.productRepo.GetByID(productID); err != nil {
		return nil, err
	}
	return s.reviewRepo.GetByProductID(productID)
}

// DeleteReview deletes a review. Only the author or an admin may delete it;
// anyone else gets a not-found.
func (s *ReviewService) DeleteReview(id, actingUserID string, isAdmin bool) error {
	review, err := s.reviewRepo.GetByID(id)
	if err != nil {
		return err
	}
	if !isAdmin && review.UserID != actingUserID {
		return fmt.Errorf("review %s: %w", id, repositories.ErrReviewNotFound)
	}
	return s.reviewRepo.Delete(id)
}
