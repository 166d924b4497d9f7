package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JAAFAR1996/fish-web-sub001/internal/catalog"
	"github.com/JAAFAR1996/fish-web-sub001/internal/stock"
)

type memStore struct {
	mu    sync.Mutex
	cart  *Cart
	items map[string]*Item
}

func newMemStore() *memStore { return &memStore{items: map[string]*Item{}} }

func (m *memStore) ActiveCart(ctx context.Context, userID string) (*Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil {
		m.cart = &Cart{ID: "cart-1", UserID: userID, Status: StatusActive}
	}
	return m.cart, nil
}

func (m *memStore) ItemQuantity(ctx context.Context, cartID, productID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[productID]; ok {
		return it.Quantity, nil
	}
	return 0, nil
}

func (m *memStore) UpsertItem(ctx context.Context, cartID, productID string, qty int, unitPrice int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[productID]; ok {
		it.Quantity = qty
		it.UnitPrice = unitPrice
		return nil
	}
	m.items[productID] = &Item{CartID: cartID, ProductID: productID, Quantity: qty, UnitPrice: unitPrice}
	return nil
}

func (m *memStore) DeleteItem(ctx context.Context, cartID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, productID)
	return nil
}

func (m *memStore) Items(ctx context.Context, cartID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	return out, nil
}

func (m *memStore) SyncUnitPrice(ctx context.Context, cartID, productID string, unitPrice int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[productID]; ok {
		it.UnitPrice = unitPrice
	}
	return nil
}

func (m *memStore) SetSavedForLater(ctx context.Context, cartID, productID string, saved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[productID]; ok {
		it.SavedForLater = saved
	}
	return nil
}

func (m *memStore) unitPrice(productID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[productID]; ok {
		return it.UnitPrice
	}
	return 0
}

type memCatalog struct {
	products map[string]catalog.Product
	sales    map[string]catalog.FlashSale
}

func (c *memCatalog) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memCatalog) GetActiveFlashSale(ctx context.Context, productID string) (*catalog.FlashSale, error) {
	s, ok := c.sales[productID]
	if !ok || !s.ActiveAt(time.Now().UTC()) {
		return nil, nil
	}
	return &s, nil
}

func activeSale(productID string, flashPrice int64, limit, sold int) catalog.FlashSale {
	now := time.Now().UTC()
	return catalog.FlashSale{
		ID:         "fs-" + productID,
		ProductID:  productID,
		FlashPrice: flashPrice,
		StockLimit: limit,
		StockSold:  sold,
		StartsAt:   now.Add(-time.Hour),
		EndsAt:     now.Add(time.Hour),
		IsActive:   true,
	}
}

func newTestService(store *memStore, cat *memCatalog) *Service {
	return &Service{
		Store:           store,
		Catalog:         cat,
		MaxQtyPerLine:   10,
		FreeShippingMin: 500000,
		FlatShippingFee: 25000,
	}
}

// Tank heater 100, flash sale 75 aktif sekarang, qty 3 ke cart kosong:
// harga yang ke-snapshot harga flash, subtotal 225.
func TestAddItemFlashPriceScenario(t *testing.T) {
	store := newMemStore()
	cat := &memCatalog{
		products: map[string]catalog.Product{"heater": {ID: "heater", Name: "Tank Heater", Price: 100, Stock: 20}},
		sales:    map[string]catalog.FlashSale{"heater": activeSale("heater", 75, 10, 0)},
	}
	svc := newTestService(store, cat)

	res, err := svc.AddItem(context.Background(), "u1", "heater", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Applied)
	assert.Equal(t, 3, res.FinalQuantity)
	assert.Equal(t, int64(75), res.UnitPrice)
	assert.False(t, res.Clamped)

	sum, err := svc.View(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, int64(225), sum.Totals.Subtotal)
}

func TestAddItemClampsToCapAndStock(t *testing.T) {
	store := newMemStore()
	cat := &memCatalog{products: map[string]catalog.Product{
		"p1": {ID: "p1", Price: 1000, Stock: 20},
		"p2": {ID: "p2", Price: 1000, Stock: 4},
	}}
	svc := newTestService(store, cat)
	ctx := context.Background()

	// cap per line = 10: 8 + 5 -> cuma 2 yang ke-apply
	_, err := svc.AddItem(ctx, "u1", "p1", 8)
	require.NoError(t, err)
	res, err := svc.AddItem(ctx, "u1", "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 10, res.FinalQuantity)
	assert.True(t, res.Clamped)

	// sudah mentok -> QuantityExceeded, bukan silent drop
	_, err = svc.AddItem(ctx, "u1", "p1", 1)
	assert.ErrorIs(t, err, stock.ErrQuantityExceeded)

	// stok 4 membatasi duluan sebelum cap
	res, err = svc.AddItem(ctx, "u1", "p2", 9)
	require.NoError(t, err)
	assert.Equal(t, 4, res.FinalQuantity)
	assert.True(t, res.Clamped)
}

func TestAddItemClampsToFlashPoolRemaining(t *testing.T) {
	store := newMemStore()
	cat := &memCatalog{
		products: map[string]catalog.Product{"p1": {ID: "p1", Price: 1000, Stock: 20}},
		sales:    map[string]catalog.FlashSale{"p1": activeSale("p1", 750, 5, 3)},
	}
	svc := newTestService(store, cat)

	res, err := svc.AddItem(context.Background(), "u1", "p1", 6)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FinalQuantity) // sisa pool flash cuma 2
	assert.Equal(t, int64(750), res.UnitPrice)
}

func TestAddItemValidation(t *testing.T) {
	store := newMemStore()
	cat := &memCatalog{products: map[string]catalog.Product{"p1": {ID: "p1", Price: 100, Stock: 5}}}
	svc := newTestService(store, cat)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 0)
	assert.ErrorIs(t, err, stock.ErrInvalidQuantity)
	_, err = svc.AddItem(ctx, "u1", "p1", -2)
	assert.ErrorIs(t, err, stock.ErrInvalidQuantity)
	_, err = svc.AddItem(ctx, "u1", "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateQuantityZeroRemovesRow(t *testing.T) {
	store := newMemStore()
	cat := &memCatalog{products: map[string]catalog.Product{"p1": {ID: "p1", Price: 100, Stock: 5}}}
	svc := newTestService(store, cat)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(ctx, "u1", "p1", 0))
	q, err := store.ItemQuantity(ctx, "cart-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, q) // row-nya hilang, bukan qty nol

	// di atas stok -> error typed, tidak clamp diam-diam
	_, err = svc.AddItem(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u1", "p1", 9), stock.ErrInsufficientStock)
}

// Snapshot basi ketahuan pas read: harga fresh dipakai di response, dan
// store di-sync async tanpa nge-block read.
func TestViewResyncsStalePrice(t *testing.T) {
	store := newMemStore()
	cat := &memCatalog{
		products: map[string]catalog.Product{"p1": {ID: "p1", Name: "Air Pump", Price: 100, Stock: 5}},
		sales:    map[string]catalog.FlashSale{"p1": activeSale("p1", 75, 10, 0)},
	}
	svc := newTestService(store, cat)
	ctx := context.Background()

	// snapshot lama pakai harga list
	require.NoError(t, store.UpsertItem(ctx, "cart-1", "p1", 2, 100))
	_, err := store.ActiveCart(ctx, "u1")
	require.NoError(t, err)

	sum, err := svc.View(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sum.Lines, 1)
	assert.Equal(t, int64(75), sum.Lines[0].UnitPrice)
	assert.True(t, sum.Lines[0].PriceChanged)
	assert.Equal(t, int64(150), sum.Totals.Subtotal)

	assert.Eventually(t, func() bool { return store.unitPrice("p1") == 75 },
		time.Second, 10*time.Millisecond, "price sync should land")
}

func TestComputeTotals(t *testing.T) {
	svc := newTestService(newMemStore(), &memCatalog{})

	lines := []Line{
		{ProductID: "a", Quantity: 2, UnitPrice: 100000, LineTotal: 200000},
		{ProductID: "b", Quantity: 1, UnitPrice: 50000, LineTotal: 50000},
		{ProductID: "c", Quantity: 3, UnitPrice: 99000, LineTotal: 297000, SavedForLater: true},
	}
	tot := svc.ComputeTotals(lines)
	assert.Equal(t, int64(250000), tot.Subtotal) // saved-for-later tidak ikut
	assert.Equal(t, int64(25000), tot.Shipping)
	assert.Equal(t, int64(275000), tot.Total)
	assert.False(t, tot.FreeShipping)

	lines[1].LineTotal = 300000
	tot = svc.ComputeTotals(lines)
	assert.Equal(t, int64(500000), tot.Subtotal)
	assert.Equal(t, int64(0), tot.Shipping)
	assert.True(t, tot.FreeShipping)

	tot = svc.ComputeTotals(nil)
	assert.Equal(t, int64(0), tot.Total)
	assert.Equal(t, int64(0), tot.Shipping)
}
