package repositories_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shopapi/internal/models"
	"shopapi/internal/repositories"
)

func setupOrderRepo(t *testing.T) (*gorm.DB, repositories.OrderRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db, repositories.NewGORMOrderRepository(db)
}

func TestOrderRepository_UpdateStatusCompareAndSwap(t *testing.T) {
	_, repo := setupOrderRepo(t)

	order := &models.Order{UserID: "user-1", TotalAmount: 90.00, Status: models.OrderStatusPlaced}
	require.NoError(t, repo.Create(order))

	// A stale expected status matches zero rows and leaves the order alone.
	// This is what stops two overlapping cancellations, or a cancellation
	// racing a status update, from both getting past the same gate.
	err := repo.UpdateStatus(order.ID, models.OrderStatusProcessing, models.OrderStatusShipped)
	assert.ErrorIs(t, err, repositories.ErrOrderStatusStale)

	got, err := repo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPlaced, got.Status)

	// With the expected status matching, the swap goes through.
	require.NoError(t, repo.UpdateStatus(order.ID, models.OrderStatusPlaced, models.OrderStatusProcessing))
	got, err = repo.GetByID(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, got.Status)

	// The previous expected status is now stale in turn.
	err = repo.UpdateStatus(order.ID, models.OrderStatusPlaced, models.OrderStatusCancelled)
	assert.ErrorIs(t, err, repositories.ErrOrderStatusStale)

	// Unknown orders are reported distinctly.
	err = repo.UpdateStatus("no-such-id", models.OrderStatusPlaced, models.OrderStatusProcessing)
	assert.ErrorIs(t, err, repositories.ErrOrderNotFound)
}
