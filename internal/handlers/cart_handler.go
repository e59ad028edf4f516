package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/middleware"
	"shopapi/internal/services"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Put("/items/:id", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// HandleGetCart returns the user's cart with derived totals.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	cart, err := h.service.GetCart(userID)
	if err != nil {
		log.Printf("Error getting cart for user %s: %v", userID, err)
		return errorResponse(c, "Could not retrieve cart", err)
	}
	return c.JSON(cart)
}

// AddItemRequest represents the request body for adding a cart line.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// HandleAddItem adds a product to the user's cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing add-to-cart request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	cart, err := h.service.AddItem(userID, req.ProductID, req.Quantity)
	if err != nil {
		log.Printf("Error adding product %s to cart for user %s: %v", req.ProductID, userID, err)
		return errorResponse(c, "Could not add item to cart", err)
	}
	return c.JSON(cart)
}

// UpdateItemRequest represents the request body for updating a cart line.
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// HandleUpdateItem sets the quantity of an existing cart line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	itemID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid cart item ID",
			"error":   err.Error(),
		})
	}

	var req UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing cart update request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	cart, err := h.service.UpdateItem(userID, uint(itemID), req.Quantity)
	if err != nil {
		log.Printf("Error updating cart item %d for user %s: %v", itemID, userID, err)
		return errorResponse(c, "Could not update cart item", err)
	}
	return c.JSON(cart)
}

// HandleRemoveItem removes a line from the user's cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	itemID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid cart item ID",
			"error":   err.Error(),
		})
	}

	cart, err := h.service.RemoveItem(userID, uint(itemID))
	if err != nil {
		log.Printf("Error removing cart item %d for user %s: %v", itemID, userID, err)
		return errorResponse(c, "Could not remove cart item", err)
	}
	return c.JSON(cart)
}

// HandleClearCart removes every line from the user's cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	cleared, err := h.service.Clear(userID)
	if err != nil {
		log.Printf("Error clearing cart for user %s: %v", userID, err)
		return errorResponse(c, "Could not clear cart", err)
	}
	if !cleared {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Cart not found",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
