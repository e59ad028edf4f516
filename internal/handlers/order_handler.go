package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"shopapi/internal/middleware"
	"shopapi/internal/models"
	"shopapi/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app. Generic
// status updates are an admin operation; checkout and cancellation belong to
// the authenticated user.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, admin fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/", h.HandleCheckout)
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/status", admin, h.HandleUpdateOrderStatus)
	orderRoutes.Delete("/:id", h.HandleCancelOrder)
}

// CheckoutRequest represents the request body for checkout.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"required"`
	PaymentMethod   string `json:"payment_method" validate:"required"`
}

// HandleCheckout converts the user's cart into a placed order.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing checkout request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	order, err := h.service.Checkout(userID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		log.Printf("Error during checkout for user %s: %v", userID, err)
		return errorResponse(c, "Checkout failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetOrders retrieves the authenticated user's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	orders, err := h.service.GetUserOrders(userID)
	if err != nil {
		log.Printf("Error getting orders for user %s: %v", userID, err)
		return errorResponse(c, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrder(orderID, middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		return errorResponse(c, "Could not retrieve order", err)
	}
	return c.JSON(order)
}

// UpdateStatusRequest represents the request body for a status update.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus moves an order along the lifecycle.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing status update request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return validationErrorResponse(c, err)
	}

	order, err := h.service.UpdateStatus(orderID, models.OrderStatus(req.Status))
	if err != nil {
		log.Printf("Error updating status for order %s: %v", orderID, err)
		return errorResponse(c, "Could not update order status", err)
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order and restores its stock.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")

	order, err := h.service.Cancel(orderID, middleware.UserID(c), middleware.IsAdmin(c))
	if err != nil {
		log.Printf("Error cancelling order %s: %v", orderID, err)
		return errorResponse(c, "Could not cancel order", err)
	}
	return c.JSON(order)
}
