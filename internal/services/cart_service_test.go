package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
)

type cartTestEnv struct {
	carts       *services.CartService
	productRepo repositories.ProductRepository
}

func setupCartTest(t *testing.T) *cartTestEnv {
	t.Helper()
	db := setupTestDB(t)
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	return &cartTestEnv{
		carts:       services.NewCartService(cartRepo, productRepo),
		productRepo: productRepo,
	}
}

func (e *cartTestEnv) seedProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, e.productRepo.Create(product))
	return product
}

func TestCartAddItem_CreatesCartLazily(t *testing.T) {
	env := setupCartTest(t)
	product := env.seedProduct(t, "Laptop", 1200.00, 10)

	cart, err := env.carts.AddItem("user-1", product.ID, 2)
	require.NoError(t, err)

	assert.NotEmpty(t, cart.ID)
	assert.Equal(t, "user-1", cart.UserID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, product.ID, cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2, cart.TotalItems)
	assert.InDelta(t, 2400.00, cart.TotalPrice, 0.001)

	// A second add for the same user reuses the same cart.
	again, err := env.carts.AddItem("user-1", product.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, again.ID)
}

func TestCartAddItem_MergesLinesAndChecksStock(t *testing.T) {
	env := setupCartTest(t)
	product := env.seedProduct(t, "Gadget", 30.00, 5)

	cart, err := env.carts.AddItem("user-1", product.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	// Existing 3 plus new 3 exceeds the 5 in stock.
	_, err = env.carts.AddItem("user-1", product.ID, 3)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

	// The cart still holds the original quantity.
	cart, err = env.carts.GetCart("user-1")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	// Adding within the remaining stock merges into one line.
	cart, err = env.carts.AddItem("user-1", product.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartAddItem_Validation(t *testing.T) {
	env := setupCartTest(t)
	product := env.seedProduct(t, "Gadget", 30.00, 5)

	_, err := env.carts.AddItem("user-1", product.ID, 0)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = env.carts.AddItem("user-1", product.ID, -2)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = env.carts.AddItem("user-1", "no-such-product", 1)
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
}

func TestCartUpdateItem(t *testing.T) {
	env := setupCartTest(t)
	product := env.seedProduct(t, "Gadget", 30.00, 5)

	cart, err := env.carts.AddItem("user-1", product.ID, 2)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = env.carts.UpdateItem("user-1", itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)
	assert.Equal(t, 4, cart.TotalItems)

	_, err = env.carts.UpdateItem("user-1", itemID, 6)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

	_, err = env.carts.UpdateItem("user-1", itemID, 0)
	assert.ErrorIs(t, err, services.ErrInvalidQuantity)

	_, err = env.carts.UpdateItem("user-1", 9999, 1)
	assert.ErrorIs(t, err, repositories.ErrCartItemNotFound)

	// Another user's cart cannot reach this line.
	_, err = env.carts.AddItem("user-2", product.ID, 1)
	require.NoError(t, err)
	_, err = env.carts.UpdateItem("user-2", itemID, 1)
	assert.ErrorIs(t, err, repositories.ErrCartItemNotFound)
}

func TestCartRemoveItem(t *testing.T) {
	env := setupCartTest(t)
	laptop := env.seedProduct(t, "Laptop", 1200.00, 10)
	mouse := env.seedProduct(t, "Mouse", 25.00, 50)

	cart, err := env.carts.AddItem("user-1", laptop.ID, 1)
	require.NoError(t, err)
	cart, err = env.carts.AddItem("user-1", mouse.ID, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)

	var laptopItemID uint
	for _, item := range cart.Items {
		if item.ProductID == laptop.ID {
			laptopItemID = item.ID
		}
	}

	cart, err = env.carts.RemoveItem("user-1", laptopItemID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, mouse.ID, cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.TotalItems)
	assert.InDelta(t, 50.00, cart.TotalPrice, 0.001)

	_, err = env.carts.RemoveItem("user-1", laptopItemID)
	assert.ErrorIs(t, err, repositories.ErrCartItemNotFound)
}

func TestCartClear(t *testing.T) {
	env := setupCartTest(t)
	product := env.seedProduct(t, "Gadget", 30.00, 5)

	// No cart yet.
	cleared, err := env.carts.Clear("user-1")
	require.NoError(t, err)
	assert.False(t, cleared)

	_, err = env.carts.AddItem("user-1", product.ID, 2)
	require.NoError(t, err)

	cleared, err = env.carts.Clear("user-1")
	require.NoError(t, err)
	assert.True(t, cleared)

	cart, err := env.carts.GetCart("user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
}

func TestGetCart_NotFound(t *testing.T) {
	env := setupCartTest(t)

	_, err := env.carts.GetCart("user-1")
	assert.ErrorIs(t, err, repositories.ErrCartNotFound)
}
