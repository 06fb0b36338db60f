//go:build integration

package db_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/cryptocascade/internal/db"
	"github.com/ajitpratap0/cryptocascade/internal/db/testhelpers"
)

func setupIntegrationDB(t *testing.T) *testhelpers.PostgresContainer {
	t.Helper()
	if os.Getenv("SKIP_TESTCONTAINERS") != "" {
		t.Skip("Skipping testcontainers integration test")
	}
	tc := testhelpers.SetupTestDatabase(t)
	require.NoError(t, tc.ApplySchema())
	return tc
}

func TestPositionLifecycle(t *testing.T) {
	tc := setupIntegrationDB(t)
	ctx := context.Background()

	pos := &db.Position{
		ID:            "binance_BTCUSDT_1700000000000",
		SlotID:        "slot_1",
		Venue:         "binance",
		Symbol:        "BTCUSDT",
		Side:          db.PositionSideLong,
		EntryPrice:    42000,
		Quantity:      0.01,
		NotionalQuote: 420,
		TakeProfit:    42378,
		StopLoss:      40572,
		EntryTime:     time.Now(),
	}
	require.NoError(t, tc.DB.InsertPosition(ctx, pos))

	open, err := tc.DB.GetOpenPositions(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "slot_1", open[0].SlotID)
	assert.Nil(t, open[0].ExitTime)

	require.NoError(t, tc.DB.ClosePosition(ctx, pos.ID, 42378, "take_profit", 3.78, 0.84, 2.94))

	closed, err := tc.DB.GetPosition(ctx, pos.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ExitTime)
	require.NotNil(t, closed.RealizedPnl)
	assert.InDelta(t, 2.94, *closed.RealizedPnl, 1e-9)
	assert.Equal(t, "take_profit", *closed.CloseReason)

	// Closing twice must fail rather than overwrite the realized P&L.
	err = tc.DB.ClosePosition(ctx, pos.ID, 42378, "take_profit", 3.78, 0.84, 2.94)
	assert.Error(t, err)

	open, err = tc.DB.GetOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestListAndCountPositionsBySlot(t *testing.T) {
	tc := setupIntegrationDB(t)
	ctx := context.Background()

	for i, slot := range []string{"slot_1", "slot_1", "slot_2"} {
		pos := &db.Position{
			ID:            uuid.NewString(),
			SlotID:        slot,
			Venue:         "binance",
			Symbol:        "ETHUSDT",
			Side:          db.PositionSideShort,
			EntryPrice:    2200,
			Quantity:      0.1,
			NotionalQuote: 220,
			TakeProfit:    2180,
			StopLoss:      2270,
			EntryTime:     time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, tc.DB.InsertPosition(ctx, pos))
	}

	slot1 := "slot_1"
	positions, err := tc.DB.ListPositions(ctx, &slot1, true, 0, 0)
	require.NoError(t, err)
	assert.Len(t, positions, 2)

	count, err := tc.DB.CountPositions(ctx, &slot1, true)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	total, err := tc.DB.CountPositions(ctx, nil, false)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestOrderPersistenceWithSlotAttribution(t *testing.T) {
	tc := setupIntegrationDB(t)
	ctx := context.Background()

	slotID := "slot_3"
	order := &db.Order{
		ID:       uuid.New(),
		SlotID:   &slotID,
		Symbol:   "BTCUSDT",
		Venue:    "binance",
		Side:     db.OrderSideBuy,
		Type:     db.OrderTypeMarket,
		Status:   db.OrderStatusNew,
		Quantity: 0.005,
		PlacedAt: time.Now(),
	}
	require.NoError(t, tc.DB.InsertOrder(ctx, order))

	filledAt := time.Now()
	require.NoError(t, tc.DB.UpdateOrderStatus(ctx, order.ID, db.OrderStatusFilled, 0.005, 210, &filledAt, nil, nil))
	require.NoError(t, tc.DB.AttachOrderToPosition(ctx, order.ID, "binance_BTCUSDT_1700000000001"))

	got, err := tc.DB.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, db.OrderStatusFilled, got.Status)
	require.NotNil(t, got.SlotID)
	assert.Equal(t, slotID, *got.SlotID)
	require.NotNil(t, got.PositionID)
	assert.Equal(t, "binance_BTCUSDT_1700000000001", *got.PositionID)

	bySlot, err := tc.DB.GetOrdersBySlot(ctx, slotID)
	require.NoError(t, err)
	assert.Len(t, bySlot, 1)

	trade := &db.Trade{
		OrderID:       order.ID,
		Symbol:        "BTCUSDT",
		Venue:         "binance",
		Side:          db.OrderSideBuy,
		Price:         42000,
		Quantity:      0.005,
		QuoteQuantity: 210,
		Commission:    0.21,
		ExecutedAt:    filledAt,
	}
	require.NoError(t, tc.DB.InsertTrade(ctx, trade))

	fills, err := tc.DB.GetTradesByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.InDelta(t, 0.21, fills[0].Commission, 1e-9)
}
