package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
)

func setupReviewTest(t *testing.T) (*services.ReviewService, repositories.ProductRepository) {
	t.Helper()
	db := setupTestDB(t)
	productRepo := repositories.NewGORMProductRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)
	return services.NewReviewService(reviewRepo, productRepo), productRepo
}

func TestReviewService_CreateAndList(t *testing.T) {
	service, productRepo := setupReviewTest(t)

	product := &models.Product{Name: "Laptop", Price: 1200.00, Stock: 10}
	require.NoError(t, productRepo.Create(product))

	review := &models.Review{UserID: "user-1", ProductID: product.ID, Rating: 4.5, Comment: "Solid machine"}
	require.NoError(t, service.CreateReview(review))
	assert.NotEmpty(t, review.ID)

	reviews, err := service.GetProductReviews(product.ID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.InDelta(t, 4.5, reviews[0].Rating, 0.001)

	// Reviews for unknown products are rejected.
	err = service.CreateReview(&models.Review{UserID: "user-1", ProductID: "no-such-product", Rating: 3})
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)

	_, err = service.GetProductReviews("no-such-product")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
}

func TestReviewService_DeleteAuthorization(t *testing.T) {
	service, productRepo := setupReviewTest(t)

	product := &models.Product{Name: "Mouse", Price: 25.00, Stock: 50}
	require.NoError(t, productRepo.Create(product))

	review := &models.Review{UserID: "user-1", ProductID: product.ID, Rating: 2, Comment: "Squeaky"}
	require.NoError(t, service.CreateReview(review))

	// A different non-admin user cannot delete it.
	err := service.DeleteReview(review.ID, "user-2", false)
	assert.ErrorIs(t, err, repositories.ErrReviewNotFound)

	// The author can.
	require.NoError(t, service.DeleteReview(review.ID, "user-1", false))

	reviews, err := service.GetProductReviews(product.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
