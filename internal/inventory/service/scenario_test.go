package service

import (
	"context"
	"testing"

	"github.com/maestranza/maestranza-backend/internal/inventory/consumers"
	"github.com/maestranza/maestranza-backend/internal/inventory/domain"
	"github.com/maestranza/maestranza-backend/internal/inventory/events"
	"github.com/maestranza/maestranza-backend/pkg/errors"
	"github.com/maestranza/maestranza-backend/pkg/logger"
	"github.com/maestranza/maestranza-backend/pkg/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newBusEnv wires the services over an in-process bus with the alert
// consumer registered, as the service runs without RabbitMQ
func newBusEnv(t *testing.T) *testEnv {
	t.Helper()
	bus := messaging.NewLocalBus(events.Source, logger.NewNop())
	env := newTestEnv(t, bus)
	consumers.NewAlertConsumer(env.orders, logger.NewNop()).Register(bus)
	return env
}

func TestScenario_LowStockExitGeneratesOrder(t *testing.T) {
	env := newBusEnv(t)
	productID := env.seedProduct(8, 5)

	_, err := env.stock.ApplyExit(userCtx("u1"), ExitInput{ProductID: productID, Quantity: 5, Reason: domain.ExitInternalUse})
	require.NoError(t, err)
	assert.Equal(t, 3, env.stockOf(productID))

	require.Len(t, env.db.alerts, 1)
	var alert domain.Alert
	for _, a := range env.db.alerts {
		alert = a
	}
	assert.Equal(t, domain.AlertPending, alert.State)
	assert.True(t, alert.UsedForOrder)
	require.NotNil(t, alert.OrderID)

	order := env.db.orders[*alert.OrderID]
	assert.Equal(t, productID, order.ProductID)
	assert.Equal(t, 10, order.QuantityOrdered)
	assert.Equal(t, domain.OrderPending, order.State)

	for _, a := range env.db.audit {
		if a.Model == domain.ModelOrder {
			assert.Nil(t, a.UserID, "orders from events are attributed to the system")
		}
	}

	_, created, err := env.alerts.EvaluateProduct(context.Background(), productID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, env.db.alerts, 1)
	assert.Len(t, env.db.orders, 1)
}

func TestScenario_OrderCompletionRestocksAndClosesLoop(t *testing.T) {
	env := newBusEnv(t)
	productID := env.seedProduct(8, 5)

	_, err := env.stock.ApplyExit(context.Background(), ExitInput{ProductID: productID, Quantity: 6, Reason: domain.ExitLoss})
	require.NoError(t, err)
	require.Len(t, env.db.orders, 1)
	var orderID string
	for id := range env.db.orders {
		orderID = id
	}

	_, err = env.orders.Transition(context.Background(), orderID, domain.OrderCompleted)
	require.NoError(t, err)
	assert.Equal(t, 12, env.stockOf(productID))
	assert.Empty(t, env.openAlerts(productID))

	_, err = env.stock.ApplyExit(context.Background(), ExitInput{ProductID: productID, Quantity: 9, Reason: domain.ExitInternalUse})
	require.NoError(t, err)
	assert.Len(t, env.openAlerts(productID), 1)
	assert.Len(t, env.db.orders, 2, "a fresh alert produces a fresh order")
}

func TestScenario_CancelledOrderReopensLifecycle(t *testing.T) {
	env := newBusEnv(t)
	productID := env.seedProduct(8, 5)

	_, err := env.stock.ApplyExit(context.Background(), ExitInput{ProductID: productID, Quantity: 5, Reason: domain.ExitInternalUse})
	require.NoError(t, err)
	require.Len(t, env.db.orders, 1)
	var orderID string
	for id := range env.db.orders {
		orderID = id
	}

	_, err = env.orders.Transition(context.Background(), orderID, domain.OrderCancelled)
	require.NoError(t, err)
	assert.Empty(t, env.openAlerts(productID))

	_, err = env.stock.ApplyExit(context.Background(), ExitInput{ProductID: productID, Quantity: 3, Reason: domain.ExitInternalUse})
	require.NoError(t, err)
	assert.Equal(t, 0, env.stockOf(productID))
	assert.Len(t, env.db.alerts, 2)
	assert.Len(t, env.openAlerts(productID), 1)
	assert.Len(t, env.db.orders, 2, "the new alert produces a new order")

	retried, err := env.alerts.RetryUnprocessedAlerts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, retried)
}

func TestScenario_ExitLargerThanStock(t *testing.T) {
	env := newBusEnv(t)
	productID := env.seedProduct(5, 2)

	_, err := env.stock.ApplyExit(context.Background(), ExitInput{ProductID: productID, Quantity: 10, Reason: domain.ExitInternalUse})
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	assert.Equal(t, 5, env.stockOf(productID))
	assert.Empty(t, env.db.alerts)
	assert.Empty(t, env.db.orders)
}

func TestScenario_KitWithDuplicateProductIsNotPersisted(t *testing.T) {
	env := newBusEnv(t)
	bolt := env.seedProduct(10, 2)
	nut := env.seedProduct(10, 2)

	_, err := env.kits.CreateKit(context.Background(), KitInput{
		Name: "Kit anclaje",
		Items: []KitItemInput{
			{ProductID: bolt, Quantity: 4},
			{ProductID: nut, Quantity: 4},
			{ProductID: bolt, Quantity: 2},
		},
	})
	assert.True(t, errors.Is(err, errors.ErrDuplicate))
	assert.Empty(t, env.db.kits)
	assert.Empty(t, env.db.kitItems)
}

func TestScenario_ConsumerFailureKeepsAlertForRetry(t *testing.T) {
	env := newBusEnv(t)
	productID := env.seedProduct(8, 5)
	l := env.db.lots[env.db.products[productID].LotID]
	supplierID := *l.SupplierID
	l.SupplierID = nil
	env.db.lots[l.ID] = l

	_, err := env.stock.ApplyExit(context.Background(), ExitInput{ProductID: productID, Quantity: 5, Reason: domain.ExitInternalUse})
	require.NoError(t, err)
	require.Len(t, env.openAlerts(productID), 1)
	assert.Empty(t, env.db.orders)

	l.SupplierID = &supplierID
	env.db.lots[l.ID] = l

	n, err := env.alerts.RetryUnprocessedAlerts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, env.db.orders, 1)
}
