package services_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
	"shopapi/internal/services"
)

// recordingPublisher captures published order events for assertions.
type recordingPublisher struct {
	routingKeys []string
	bodies      [][]byte
}

func (p *recordingPublisher) Publish(exchange, routingKey string, body []byte) error {
	p.routingKeys = append(p.routingKeys, routingKey)
	p.bodies = append(p.bodies, body)
	return nil
}

// setupTestDB opens an isolated in-memory SQLite database with all models
// migrated. The DSN is keyed by test name so parallel packages don't share
// state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
	))
	return db
}

type orderTestEnv struct {
	db          *gorm.DB
	orders      *services.OrderService
	carts       *services.CartService
	productRepo repositories.ProductRepository
	publisher   *recordingPublisher
}

func setupOrderTest(t *testing.T) *orderTestEnv {
	t.Helper()
	db := setupTestDB(t)
	productRepo := repositories.NewGORMProductRepository(db)
	cartRepo := repositories.NewGORMCartRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	publisher := &recordingPublisher{}
	return &orderTestEnv{
		db:          db,
		orders:      services.NewOrderService(db, orderRepo, productRepo, cartRepo, publisher),
		carts:       services.NewCartService(cartRepo, productRepo),
		productRepo: productRepo,
		publisher:   publisher,
	}
}

func (e *orderTestEnv) seedProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: name, Price: price, Stock: stock}
	require.NoError(t, e.productRepo.Create(product))
	return product
}

func (e *orderTestEnv) productStock(t *testing.T, id string) int {
	t.Helper()
	product, err := e.productRepo.GetByID(id)
	require.NoError(t, err)
	return product.Stock
}

func TestCheckout_Success(t *testing.T) {
	env := setupOrderTest(t)
	laptop := env.seedProduct(t, "Laptop", 1200.00, 10)
	mouse := env.seedProduct(t, "Mouse", 25.00, 50)

	_, err := env.carts.AddItem("user-1", laptop.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.AddItem("user-1", mouse.ID, 3)
	require.NoError(t, err)

	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, models.OrderStatusPlaced, order.Status)
	assert.Equal(t, "1 Main St", order.ShippingAddress)
	assert.Equal(t, "credit_card", order.PaymentMethod)
	assert.Len(t, order.Items, 2)
	assert.InDelta(t, 2*1200.00+3*25.00, order.TotalAmount, 0.001)

	// Stock was debited per line.
	assert.Equal(t, 8, env.productStock(t, laptop.ID))
	assert.Equal(t, 47, env.productStock(t, mouse.ID))

	// The cart is empty afterwards.
	cart, err := env.carts.GetCart("user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, 0, cart.TotalItems)
	assert.Zero(t, cart.TotalPrice)

	// A created event went out after commit.
	require.Len(t, env.publisher.routingKeys, 1)
	assert.Equal(t, "order.created", env.publisher.routingKeys[0])
	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(env.publisher.bodies[0], &event))
	assert.Equal(t, order.ID, event["order_id"])
}

func TestCheckout_EmptyCart(t *testing.T) {
	env := setupOrderTest(t)
	product := env.seedProduct(t, "Keyboard", 75.00, 25)

	// No cart at all.
	_, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	// A cart exists but has no lines.
	_, err = env.carts.AddItem("user-2", product.ID, 1)
	require.NoError(t, err)
	cleared, err := env.carts.Clear("user-2")
	require.NoError(t, err)
	require.True(t, cleared)

	_, err = env.orders.Checkout("user-2", "1 Main St", "credit_card")
	assert.ErrorIs(t, err, services.ErrEmptyCart)

	// No order rows were created either way.
	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.publisher.routingKeys)
}

func TestCheckout_InsufficientStockRollsBackEverything(t *testing.T) {
	env := setupOrderTest(t)
	laptop := env.seedProduct(t, "Laptop", 1200.00, 10)
	monitor := env.seedProduct(t, "Monitor", 200.00, 4)

	_, err := env.carts.AddItem("user-1", laptop.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.AddItem("user-1", monitor.ID, 3)
	require.NoError(t, err)

	// The monitor sells out between cart add and checkout.
	sold := services.ProductUpdate{Stock: intPtr(1)}
	_, err = services.NewProductService(env.productRepo).UpdateProduct(monitor.ID, sold)
	require.NoError(t, err)

	_, err = env.orders.Checkout("user-1", "1 Main St", "credit_card")
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Monitor")

	// Nothing moved: no order, no stock change, cart intact.
	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 10, env.productStock(t, laptop.ID))
	assert.Equal(t, 1, env.productStock(t, monitor.ID))

	cart, err := env.carts.GetCart("user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Empty(t, env.publisher.routingKeys)
}

func TestCheckout_MissingProductRollsBackEverything(t *testing.T) {
	env := setupOrderTest(t)
	laptop := env.seedProduct(t, "Laptop", 1200.00, 10)
	doomed := env.seedProduct(t, "Discontinued", 10.00, 5)

	_, err := env.carts.AddItem("user-1", laptop.ID, 1)
	require.NoError(t, err)
	_, err = env.carts.AddItem("user-1", doomed.ID, 1)
	require.NoError(t, err)

	require.NoError(t, env.productRepo.Delete(doomed.ID))

	_, err = env.orders.Checkout("user-1", "1 Main St", "credit_card")
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)

	assert.Equal(t, 10, env.productStock(t, laptop.ID))
	var count int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCheckout_PriceIsFrozenAtOrderTime(t *testing.T) {
	env := setupOrderTest(t)
	laptop := env.seedProduct(t, "Laptop", 1200.00, 10)

	_, err := env.carts.AddItem("user-1", laptop.ID, 1)
	require.NoError(t, err)

	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.InDelta(t, 1200.00, order.Items[0].Price, 0.001)

	// Reprice the product afterwards.
	_, err = services.NewProductService(env.productRepo).UpdateProduct(laptop.ID, services.ProductUpdate{Price: floatPtr(1500.00)})
	require.NoError(t, err)

	reloaded, err := env.orders.GetOrder(order.ID, "user-1", false)
	require.NoError(t, err)
	assert.InDelta(t, 1200.00, reloaded.Items[0].Price, 0.001)
	assert.InDelta(t, 1200.00, reloaded.TotalAmount, 0.001)
}

func TestCheckout_ContendedStockCannotOversell(t *testing.T) {
	env := setupOrderTest(t)
	gadget := env.seedProduct(t, "Gadget", 30.00, 5)

	_, err := env.carts.AddItem("user-a", gadget.ID, 3)
	require.NoError(t, err)
	_, err = env.carts.AddItem("user-b", gadget.ID, 3)
	require.NoError(t, err)

	_, err = env.orders.Checkout("user-a", "1 Main St", "credit_card")
	require.NoError(t, err)

	_, err = env.orders.Checkout("user-b", "2 Side St", "credit_card")
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

	// Total committed reservations never exceed the original stock.
	assert.Equal(t, 2, env.productStock(t, gadget.ID))

	// The losing cart keeps its lines for a later retry.
	cart, err := env.carts.GetCart("user-b")
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCancel_RestoresStockExactlyOnce(t *testing.T) {
	env := setupOrderTest(t)
	laptop := env.seedProduct(t, "Laptop", 1200.00, 10)
	mouse := env.seedProduct(t, "Mouse", 25.00, 50)

	_, err := env.carts.AddItem("user-1", laptop.ID, 2)
	require.NoError(t, err)
	_, err = env.carts.AddItem("user-1", mouse.ID, 1)
	require.NoError(t, err)

	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)
	require.Equal(t, 8, env.productStock(t, laptop.ID))
	require.Equal(t, 49, env.productStock(t, mouse.ID))

	cancelled, err := env.orders.Cancel(order.ID, "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, env.productStock(t, laptop.ID))
	assert.Equal(t, 50, env.productStock(t, mouse.ID))

	// A second cancel must not credit stock again.
	_, err = env.orders.Cancel(order.ID, "user-1", false)
	assert.ErrorIs(t, err, services.ErrOrderNotCancellable)
	assert.Equal(t, 10, env.productStock(t, laptop.ID))
	assert.Equal(t, 50, env.productStock(t, mouse.ID))

	assert.Contains(t, env.publisher.routingKeys, "order.cancelled")
}

func TestCancel_Authorization(t *testing.T) {
	env := setupOrderTest(t)
	gadget := env.seedProduct(t, "Gadget", 30.00, 5)

	_, err := env.carts.AddItem("user-1", gadget.ID, 1)
	require.NoError(t, err)
	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)

	// A different non-admin user sees a not-found, and nothing changes.
	_, err = env.orders.Cancel(order.ID, "user-2", false)
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
	assert.Equal(t, 4, env.productStock(t, gadget.ID))

	// An admin may cancel on the user's behalf.
	cancelled, err := env.orders.Cancel(order.ID, "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, env.productStock(t, gadget.ID))
}

func TestCancel_IllegalOnceShipped(t *testing.T) {
	env := setupOrderTest(t)
	gadget := env.seedProduct(t, "Gadget", 30.00, 5)

	_, err := env.carts.AddItem("user-1", gadget.ID, 2)
	require.NoError(t, err)
	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)

	_, err = env.orders.UpdateStatus(order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	_, err = env.orders.UpdateStatus(order.ID, models.OrderStatusShipped)
	require.NoError(t, err)

	_, err = env.orders.Cancel(order.ID, "user-1", false)
	assert.ErrorIs(t, err, services.ErrOrderNotCancellable)
	assert.Equal(t, 3, env.productStock(t, gadget.ID))
}

func TestUpdateStatus_TransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		wantErr error
	}{
		{"placed to processing", models.OrderStatusPlaced, models.OrderStatusProcessing, nil},
		{"processing to shipped", models.OrderStatusProcessing, models.OrderStatusShipped, nil},
		{"shipped to delivered", models.OrderStatusShipped, models.OrderStatusDelivered, nil},
		{"placed cannot skip to shipped", models.OrderStatusPlaced, models.OrderStatusShipped, services.ErrIllegalTransition},
		{"placed cannot skip to delivered", models.OrderStatusPlaced, models.OrderStatusDelivered, services.ErrIllegalTransition},
		{"delivered cannot regress to placed", models.OrderStatusDelivered, models.OrderStatusPlaced, services.ErrIllegalTransition},
		{"delivered cannot regress to processing", models.OrderStatusDelivered, models.OrderStatusProcessing, services.ErrIllegalTransition},
		{"shipped cannot regress to processing", models.OrderStatusShipped, models.OrderStatusProcessing, services.ErrIllegalTransition},
		{"cancelled admits nothing", models.OrderStatusCancelled, models.OrderStatusProcessing, services.ErrIllegalTransition},
		{"cancelled cannot be replaced", models.OrderStatusCancelled, models.OrderStatusPlaced, services.ErrIllegalTransition},
	}

	env := setupOrderTest(t)
	gadget := env.seedProduct(t, "Gadget", 30.00, 100)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.carts.AddItem("user-1", gadget.ID, 1)
			require.NoError(t, err)
			order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
			require.NoError(t, err)

			// Force the starting status directly; legality of the path into
			// it is covered by the other cases.
			require.NoError(t, env.db.Model(&models.Order{}).Where("id = ?", order.ID).Update("status", tt.from).Error)

			updated, err := env.orders.UpdateStatus(order.ID, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, updated.Status)
		})
	}
}

func TestUpdateStatus_RejectsCancellationAndUnknownStatus(t *testing.T) {
	env := setupOrderTest(t)
	gadget := env.seedProduct(t, "Gadget", 30.00, 5)

	_, err := env.carts.AddItem("user-1", gadget.ID, 1)
	require.NoError(t, err)
	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)

	// Cancellation must go through Cancel so stock is credited back.
	_, err = env.orders.UpdateStatus(order.ID, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, services.ErrIllegalTransition)
	assert.Equal(t, 4, env.productStock(t, gadget.ID))

	_, err = env.orders.UpdateStatus(order.ID, models.OrderStatus("misplaced"))
	assert.ErrorIs(t, err, services.ErrInvalidStatus)

	_, err = env.orders.UpdateStatus("no-such-order", models.OrderStatusProcessing)
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}

func TestGetOrder_OwnerScoping(t *testing.T) {
	env := setupOrderTest(t)
	gadget := env.seedProduct(t, "Gadget", 30.00, 5)

	_, err := env.carts.AddItem("user-1", gadget.ID, 1)
	require.NoError(t, err)
	order, err := env.orders.Checkout("user-1", "1 Main St", "credit_card")
	require.NoError(t, err)

	got, err := env.orders.GetOrder(order.ID, "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.orders.GetOrder(order.ID, "user-2", false)
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)

	got, err = env.orders.GetOrder(order.ID, "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
