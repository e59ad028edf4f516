package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/middleware"
	"shopapi/internal/models"
	"shopapi/internal/services"
)

// ReviewHandler handles HTTP requests for product reviews.
type ReviewHandler struct {
	service  *services.ReviewService
	validate *validator.Validate
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the review routes with the Fiber app.
func (h *ReviewHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/products/:id/reviews", h.HandleGetProductReviews)
	router.Post("/products/:id/reviews", h.HandleCreateReview)
	router.Delete("/reviews/:id", h.HandleDeleteReview)
}

// HandleGetProductReviews retrieves all reviews for a product.
func (h *ReviewHandler) HandleGetProductReviews(c *fiber.Ctx) error {
	productID := c.Params("id")
	reviews, err := h.service.GetProductReviews(productID)
	if err != nil {
		log.Printf("Error getting reviews for product %s: %v", productID, err)
		return errorResponse(c, "Could not retrieve reviews", err)
	}
	return c.JSON(reviews)
}

// CreateReviewRequest represents the request body for creating a review.
type CreateReviewRequest struct {
	Rating  float64 `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string  `json:"comment" validate:"omitempty,max=1000"`
}

// HandleCreateReview creates a review for a product.
func (h *ReviewHandler) HandleCreateReview(c *fiber.Ctx) error {
	productID := c.Params("id")

	var req CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing review request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	review := &models.Review{
		UserID:    middleware.UserID(c),
		ProductID: productID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.service.CreateReview(review); err != nil {
		log.Printf("Error creating review for product %s: %v", productID, err)
		return errorResponse(c, "Could not create review", err)
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// HandleDeleteReview deletes a review by its ID.
func (h *ReviewHandler) HandleDeleteReview(c *fiber.Ctx) error {
	reviewID := c.Params("id")

	if err := h.service.DeleteReview(reviewID, middleware.UserID(c), middleware.IsAdmin(c)); err != nil {
		log.Printf("Error deleting review %s: %v", reviewID, err)
		return errorResponse(c, "Could not delete review", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
