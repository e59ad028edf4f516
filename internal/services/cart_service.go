package services

import (
	"errors"
	"fmt"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
)

// CartService handles business logic for the per-user shopping cart.
//
// Cart mutations only check stock advisorily: nothing is reserved until
// checkout, so a passing add can still fail later if stock runs out. The
// authoritative check happens inside the checkout transaction.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the materialized cart for a user.
func (s *CartService) GetCart(userID string) (*models.CartView, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(cart)
}

// getOrCreateCart returns the user's cart, creating an empty one on first use.
// At most one cart exists per user (unique index on user_id).
func (s *CartService) getOrCreateCart(userID string) (*models.Cart, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repositories.ErrCartNotFound) {
		return nil, err
	}
	cart = &models.Cart{UserID: userID}
	if err := s.cartRepo.Create(cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem adds quantity of a product to the user's cart, merging into an
// existing line for the same product. The requested total (existing line plus
// new quantity) is checked against current stock.
func (s *CartService) AddItem(userID, productID string, quantity int) (*models.CartView, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.getOrCreateCart(userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(productID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	var existing *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			existing = &cart.Items[i]
			requested += existing.Quantity
			break
		}
	}

	if product.Stock < requested {
		return nil, fmt.Errorf("product %s (requested: %d, available: %d): %w",
			product.Name, requested, product.Stock, repositories.ErrInsufficientStock)
	}

	if existing != nil {
		if err := s.cartRepo.UpdateItemQuantity(existing.ID, requested); err != nil {
			return nil, err
		}
	} else {
		item := &models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: quantity}
		if err := s.cartRepo.CreateItem(item); err != nil {
			return nil, err
		}
	}

	return s.GetCart(userID)
}

// UpdateItem sets the quantity of an existing cart line.
func (s *CartService) UpdateItem(userID string, itemID uint, quantity int) (*models.CartView, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.GetItem(cart.ID, itemID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetByID(item.ProductID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, fmt.Errorf("product %s (requested: %d, available: %d): %w",
			product.Name, quantity, product.Stock, repositories.ErrInsufficientStock)
	}

	if err := s.cartRepo.UpdateItemQuantity(itemID, quantity); err != nil {
		return nil, err
	}
	return s.GetCart(userID)
}

// RemoveItem removes a line from the user's cart.
func (s *CartService) RemoveItem(userID string, itemID uint) (*models.CartView, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if err := s.cartRepo.DeleteItem(cart.ID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(userID)
}

// Clear removes every line from the user's cart. It reports false when the
// user has no cart at all.
func (s *CartService) Clear(userID string) (bool, error) {
	cart, err := s.cartRepo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrCartNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.cartRepo.ClearItems(cart.ID); err != nil {
		return false, err
	}
	return true, nil
}

// buildView materializes a cart into a DTO with resolved product snapshots
// and derived totals.
func (s *CartService) buildView(cart *models.Cart) (*models.CartView, error) {
	view := &models.CartView{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]models.CartItemView, 0, len(cart.Items)),
	}
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(item.ProductID)
		if err != nil {
			return nil, err
		}
		subtotal := product.Price * float64(item.Quantity)
		view.Items = append(view.Items, models.CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
		view.TotalItems += item.Quantity
		view.TotalPrice += subtotal
	}
	return view, nil
}
