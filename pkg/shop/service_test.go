package shop_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"snackstand/pkg/inventory"
	"snackstand/pkg/order"
	"snackstand/pkg/shop"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newStand builds a service over temp files seeded with the given stock and
// returns the repositories so tests can inspect persisted state directly.
func newStand(t *testing.T, stock map[string]int) (*shop.Service, *inventory.Repository, *order.Ledger) {
	t.Helper()
	dir := t.TempDir()

	inv := inventory.NewRepository(filepath.Join(dir, "stock.json"), zap.NewNop())
	ledger := order.NewLedger(filepath.Join(dir, "orders.json"), zap.NewNop())

	items := make(map[string]inventory.Item, len(stock))
	for name, count := range stock {
		items[name] = inventory.Item{Stock: count}
	}
	require.NoError(t, inv.Save(items))

	svc := shop.NewService(inv, ledger, zap.NewNop())
	t.Cleanup(svc.Close)
	return svc, inv, ledger
}

func currentStock(t *testing.T, inv *inventory.Repository) map[string]int {
	t.Helper()
	items, err := inv.Load()
	require.NoError(t, err)
	out := make(map[string]int, len(items))
	for name, item := range items {
		out[name] = item.Stock
	}
	return out
}

func TestPlaceOrderSingleItemDecrementsStock(t *testing.T) {
	svc, inv, ledger := newStand(t, map[string]int{"chips": 2})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Alex", PickupMethod: "Pickup", Item: "chips",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"chips": 1}, currentStock(t, inv))

	orders, err := ledger.Load()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "chips", orders[0].Item)
	assert.Equal(t, "Alex", orders[0].Name)
	assert.Equal(t, "Pickup", orders[0].PickupMethod)
	assert.NotEmpty(t, orders[0].ID)
	assert.False(t, orders[0].Delivered)
}

func TestPlaceOrderCartCreatesOneRecordPerUnit(t *testing.T) {
	svc, inv, ledger := newStand(t, map[string]int{"chips": 5, "soda": 5})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name:         "Sam",
		PickupMethod: "Delivery",
		Cart:         map[string]string{"chips": "2", "soda": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"chips": 3, "soda": 4}, currentStock(t, inv))

	orders, err := ledger.Load()
	require.NoError(t, err)
	require.Len(t, orders, 3)

	perItem := map[string]int{}
	ids := map[string]bool{}
	for _, o := range orders {
		perItem[o.Item]++
		ids[o.ID] = true
		assert.Equal(t, orders[0].Time, o.Time, "all units of one submission share a timestamp")
	}
	assert.Equal(t, map[string]int{"chips": 2, "soda": 1}, perItem)
	assert.Len(t, ids, 3, "every unit carries its own identifier")
}

func TestPlaceOrderCartOvercommitRejectedInFull(t *testing.T) {
	svc, inv, ledger := newStand(t, map[string]int{"chips": 5})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam",
		Cart: map[string]string{"chips": "10"},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	assert.Equal(t, map[string]int{"chips": 5}, currentStock(t, inv))
	orders, err := ledger.Load()
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderCartNoPartialReservation(t *testing.T) {
	svc, inv, ledger := newStand(t, map[string]int{"chips": 5, "soda": 0})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam",
		Cart: map[string]string{"chips": "1", "soda": "1"},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	assert.Equal(t, map[string]int{"chips": 5, "soda": 0}, currentStock(t, inv),
		"the valid chips entry must not be reserved when soda fails")
	orders, err := ledger.Load()
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderUnknownItem(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 5})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam",
		Cart: map[string]string{"pretzels": "1"},
	})
	require.ErrorIs(t, err, inventory.ErrItemNotFound)
	assert.Equal(t, map[string]int{"chips": 5}, currentStock(t, inv))
}

func TestPlaceOrderSingleItemOutOfStock(t *testing.T) {
	svc, _, _ := newStand(t, map[string]int{"chips": 0})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam", Item: "chips",
	})
	require.ErrorIs(t, err, inventory.ErrOutOfStock)
}

func TestPlaceOrderWhileClosed(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 5})

	assert.False(t, svc.Toggle(), "toggle from the initial open state closes the stand")

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam", Item: "chips",
	})
	require.ErrorIs(t, err, shop.ErrStoreClosed)
	assert.Equal(t, map[string]int{"chips": 5}, currentStock(t, inv))

	assert.True(t, svc.Toggle(), "a second toggle reopens")
	require.NoError(t, svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam", Item: "chips",
	}))
}

func TestPlaceOrderNameValidation(t *testing.T) {
	svc, _, ledger := newStand(t, map[string]int{"chips": 5})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "  <b></b>  ", Item: "chips",
	})
	require.ErrorIs(t, err, shop.ErrInvalidName, "a name that is empty after sanitizing is rejected")

	long := ""
	for i := 0; i < 60; i++ {
		long += "a"
	}
	require.NoError(t, svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "<script>alert(1)</script>" + long, Item: "chips",
	}))

	orders, err := ledger.Load()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Name, 50, "names are truncated to 50 characters")
	assert.NotContains(t, orders[0].Name, "<")
}

func TestPlaceOrderPickupMethodDefaults(t *testing.T) {
	svc, _, ledger := newStand(t, map[string]int{"chips": 5})

	require.NoError(t, svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam", PickupMethod: "Teleport", Item: "chips",
	}))

	orders, err := ledger.Load()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Pickup", orders[0].PickupMethod)
}

func TestPlaceOrderCartFiltering(t *testing.T) {
	svc, inv, ledger := newStand(t, map[string]int{"chips": 5})

	err := svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam",
		Cart: map[string]string{"chips": "zero", "soda": "-3"},
	})
	require.ErrorIs(t, err, shop.ErrEmptyCart,
		"non-numeric and non-positive quantities are dropped, leaving nothing to order")

	assert.Equal(t, map[string]int{"chips": 5}, currentStock(t, inv))
	orders, err := ledger.Load()
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrderCartQuantityClamped(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 99})

	require.NoError(t, svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam",
		Cart: map[string]string{"chips": "500"},
	}))

	assert.Equal(t, map[string]int{"chips": 0}, currentStock(t, inv),
		"an oversized quantity is clamped to 99 before validation")
}

func TestCompleteOrderOnce(t *testing.T) {
	svc, _, ledger := newStand(t, map[string]int{"chips": 5})

	require.NoError(t, svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam", Item: "chips",
	}))
	orders, err := svc.Orders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	id := orders[0].ID

	require.NoError(t, svc.CompleteOrder(context.Background(), id))

	persisted, err := ledger.Load()
	require.NoError(t, err)
	assert.True(t, persisted[0].Delivered)

	err = svc.CompleteOrder(context.Background(), id)
	require.ErrorIs(t, err, order.ErrAlreadyDelivered)
}

func TestCompleteOrderDoesNotTouchStock(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 5})

	require.NoError(t, svc.PlaceOrder(context.Background(), shop.Submission{
		Name: "Sam", Item: "chips",
	}))
	assert.Equal(t, map[string]int{"chips": 4}, currentStock(t, inv),
		"stock moves at order time")

	orders, err := svc.Orders(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.CompleteOrder(context.Background(), orders[0].ID))

	assert.Equal(t, map[string]int{"chips": 4}, currentStock(t, inv),
		"fulfillment is a pure status transition")
}

func TestCompleteUnknownOrder(t *testing.T) {
	svc, _, _ := newStand(t, map[string]int{"chips": 5})

	err := svc.CompleteOrder(context.Background(), "no-such-id")
	require.ErrorIs(t, err, order.ErrUnknownOrder)
}

func TestAdjustStock(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 5, "soda": 2})

	require.NoError(t, svc.AdjustStock(context.Background(), map[string]string{
		"chips":    "7",
		"soda":     "junk",
		"pretzels": "3",
	}))

	assert.Equal(t, map[string]int{"chips": 7, "soda": 2}, currentStock(t, inv),
		"unparsable values leave the item unchanged and unknown names are ignored")
}

func TestAdjustStockClamps(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 5, "soda": 5})

	require.NoError(t, svc.AdjustStock(context.Background(), map[string]string{
		"chips": "-4",
		"soda":  "500",
	}))

	assert.Equal(t, map[string]int{"chips": 0, "soda": 99}, currentStock(t, inv))
}

func TestAdjustStockIdempotent(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 5})

	require.NoError(t, svc.AdjustStock(context.Background(), map[string]string{"chips": "8"}))
	require.NoError(t, svc.AdjustStock(context.Background(), map[string]string{"chips": "8"}))

	assert.Equal(t, map[string]int{"chips": 8}, currentStock(t, inv))
}

func TestAdjustStockPreservesOpaqueFields(t *testing.T) {
	svc, inv, _ := newStand(t, nil)

	require.NoError(t, inv.Save(map[string]inventory.Item{
		"chips": {Stock: 5, Extra: map[string]json.RawMessage{
			"allergies": json.RawMessage(`["gluten"]`),
		}},
	}))

	require.NoError(t, svc.AdjustStock(context.Background(), map[string]string{"chips": "2"}))

	items, err := inv.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, items["chips"].Stock)
	assert.JSONEq(t, `["gluten"]`, string(items["chips"].Extra["allergies"]),
		"descriptive fields survive a rewrite")
}

// TestConcurrentOrdersNeverOversell hammers the last units from many
// goroutines; the service loop must hand out exactly the available stock.
func TestConcurrentOrdersNeverOversell(t *testing.T) {
	svc, inv, ledger := newStand(t, map[string]int{"chips": 5})

	const attempts = 20
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.PlaceOrder(context.Background(), shop.Submission{
				Name: "Sam", Item: "chips",
			})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, inventory.ErrOutOfStock)
		}
	}
	assert.Equal(t, 5, succeeded, "exactly the available units are sold")
	assert.Equal(t, map[string]int{"chips": 0}, currentStock(t, inv))

	orders, err := ledger.Load()
	require.NoError(t, err)
	assert.Len(t, orders, 5)
}

func TestStockNeverNegative(t *testing.T) {
	svc, inv, _ := newStand(t, map[string]int{"chips": 2, "soda": 1})

	subs := []shop.Submission{
		{Name: "A", Item: "chips"},
		{Name: "B", Cart: map[string]string{"chips": "2"}},
		{Name: "C", Item: "soda"},
		{Name: "D", Cart: map[string]string{"soda": "1", "chips": "1"}},
		{Name: "E", Item: "chips"},
	}
	for _, sub := range subs {
		svc.PlaceOrder(context.Background(), sub)
	}

	for name, count := range currentStock(t, inv) {
		assert.GreaterOrEqual(t, count, 0, "stock for %s must never go negative", name)
	}
}
