package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
)

// EventPublisher publishes order lifecycle events, best-effort. Failures are
// logged by the caller and never surfaced to the request.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderService owns the order lifecycle: checkout (cart to order conversion),
// status transitions and cancellation with stock restitution.
//
// Checkout and Cancel run inside a single database transaction so that stock
// debits/credits, the order row and the cart mutation commit or roll back as
// one unit.
type OrderService struct {
	db          *gorm.DB
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	cartRepo    repositories.CartRepository
	publisher   EventPublisher
}

// NewOrderService creates a new OrderService. publisher may be nil, in which
// case no events are emitted.
func NewOrderService(db *gorm.DB, orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, cartRepo repositories.CartRepository, publisher EventPublisher) *OrderService {
	return &OrderService{
		db:          db,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		publisher:   publisher,
	}
}

// Checkout converts the user's cart into a placed order.
//
// The whole sequence runs in one transaction: validate every line against
// current stock, snapshot unit prices into order items, debit stock per line,
// create the order and empty the cart. Any failure rolls everything back, so
// no partial debit or half-created order is ever observable. The stock debit
// itself is a conditional UPDATE (stock >= quantity), which closes the window
// between the validation read and the write under concurrent checkouts.
func (s *OrderService) Checkout(userID, shippingAddress, paymentMethod string) (*models.Order, error) {
	var created *models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		cart, err := cartRepo.GetByUserID(userID)
		if err != nil {
			if errors.Is(err, repositories.ErrCartNotFound) {
				return ErrEmptyCart
			}
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		var totalAmount float64
		orderItems := make([]models.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			product, err := productRepo.GetByID(line.ProductID)
			if err != nil {
				return err
			}
			if product.Stock < line.Quantity {
				return fmt.Errorf("product %s (requested: %d, available: %d): %w",
					product.Name, line.Quantity, product.Stock, repositories.ErrInsufficientStock)
			}

			// Snapshot the unit price; later product price changes must not
			// affect this order.
			orderItems = append(orderItems, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
			totalAmount += product.Price * float64(line.Quantity)
		}

		for _, line := range cart.Items {
			if err := productRepo.Reserve(line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		order := &models.Order{
			ID:              uuid.New().String(),
			UserID:          userID,
			ShippingAddress: shippingAddress,
			PaymentMethod:   paymentMethod,
			Items:           orderItems,
			TotalAmount:     totalAmount,
			Status:          models.OrderStatusPlaced,
		}
		if err := orderRepo.Create(order); err != nil {
			return err
		}

		if err := cartRepo.ClearItems(cart.ID); err != nil {
			return err
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Past the commit point: the invoice notification must not fail the
	// checkout response.
	s.publishEvent("order.created", created)

	return created, nil
}

// GetUserOrders retrieves all orders belonging to a user.
func (s *OrderService) GetUserOrders(userID string) ([]models.Order, error) {
	return s.orderRepo.GetAllByUserID(userID)
}

// GetOrder retrieves a single order. Non-admins may only see their own
// orders; anyone else gets a not-found, not a forbidden, so order IDs leak
// nothing about other users.
func (s *OrderService) GetOrder(orderID, actingUserID string, isAdmin bool) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != actingUserID {
		return nil, fmt.Errorf("order %s: %w", orderID, repositories.ErrOrderNotFound)
	}
	return order, nil
}

// UpdateStatus moves an order along the lifecycle. Only transitions modeled
// in the status table are allowed; regressions (e.g. delivered back to
// placed) and transitions out of a terminal status are rejected.
// Cancellation is excluded here because it must credit stock back, which is
// Cancel's job.
func (s *OrderService) UpdateStatus(orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("status %q: %w", status, ErrInvalidStatus)
	}
	if status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("cancellation goes through the cancel operation: %w", ErrIllegalTransition)
	}

	var updated *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)

		order, err := orderRepo.GetByID(orderID)
		if err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(status) {
			return fmt.Errorf("order %s: %s -> %s: %w", orderID, order.Status, status, ErrIllegalTransition)
		}
		// Compare-and-swap against the status just checked, so a transition
		// committed by a concurrent writer cannot be silently overwritten.
		if err := orderRepo.UpdateStatus(orderID, order.Status, status); err != nil {
			if errors.Is(err, repositories.ErrOrderStatusStale) {
				return fmt.Errorf("order %s: %s -> %s: %w", orderID, order.Status, status, ErrIllegalTransition)
			}
			return err
		}
		order.Status = status
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent("order.status_updated", updated)

	return updated, nil
}

// Cancel cancels an order and credits every line's quantity back to stock,
// all in one transaction. Only the order's owner or an admin may cancel, and
// only while the order is still placed or processing.
func (s *OrderService) Cancel(orderID, actingUserID string, isAdmin bool) (*models.Order, error) {
	var cancelled *models.Order

	err := s.db.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		order, err := orderRepo.GetByID(orderID)
		if err != nil {
			return err
		}
		if !isAdmin && order.UserID != actingUserID {
			return fmt.Errorf("order %s: %w", orderID, repositories.ErrOrderNotFound)
		}
		if !order.Status.Cancellable() {
			return fmt.Errorf("order %s in status %s: %w", orderID, order.Status, ErrOrderNotCancellable)
		}

		for _, item := range order.Items {
			if err := productRepo.Release(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		// The compare-and-swap makes the cancellable check authoritative: if a
		// concurrent transaction moved the order past it, this matches zero
		// rows, the transaction rolls back and the stock credits are undone.
		if err := orderRepo.UpdateStatus(orderID, order.Status, models.OrderStatusCancelled); err != nil {
			if errors.Is(err, repositories.ErrOrderStatusStale) {
				return fmt.Errorf("order %s: %w", orderID, ErrOrderNotCancellable)
			}
			return err
		}
		order.Status = models.OrderStatusCancelled
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent("order.cancelled", cancelled)

	return cancelled, nil
}

// publishEvent emits an order lifecycle event, best-effort. Failures are
// logged and swallowed; they occur after the commit point.
func (s *OrderService) publishEvent(routingKey string, order *models.Order) {
	if s.publisher == nil {
		return
	}

	event := map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
		"total":    order.TotalAmount,
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal %s event for order %s: %v", routingKey, order.ID, err)
		return
	}
	if err := s.publisher.Publish("orders", routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event for order %s: %v", routingKey, order.ID, err)
	}
}
