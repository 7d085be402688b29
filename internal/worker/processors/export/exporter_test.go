package export

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stocksync/internal/logger"
	"stocksync/internal/models"
	"stocksync/internal/services/clover"
	"stocksync/internal/worker/processors/validation"
)

type mockRemote struct {
	mu         sync.Mutex
	created    []clover.ItemPayload
	updated    map[string]clover.ItemPayload
	quantities map[string]int
	failOn     map[string]error
	nextID     int
}

func newMockRemote() *mockRemote {
	return &mockRemote{
		updated:    make(map[string]clover.ItemPayload),
		quantities: make(map[string]int),
		failOn:     make(map[string]error),
	}
}

func (m *mockRemote) CreateItem(ctx context.Context, payload clover.ItemPayload) (*clover.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[payload.SKU]; err != nil {
		return nil, err
	}
	m.created = append(m.created, payload)
	m.nextID++
	return &clover.Item{ID: fmt.Sprintf("R%d", m.nextID), Name: payload.Name}, nil
}

func (m *mockRemote) UpdateItem(ctx context.Context, itemID string, payload clover.ItemPayload) (*clover.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[payload.SKU]; err != nil {
		return nil, err
	}
	m.updated[itemID] = payload
	return &clover.Item{ID: itemID}, nil
}

func (m *mockRemote) SetItemQuantity(ctx context.Context, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn[itemID]; err != nil {
		return err
	}
	m.quantities[itemID] = quantity
	return nil
}

type mockProducts struct {
	mu       sync.Mutex
	products map[string]*models.Product
	order    []string
	listErr  error
}

func newMockProducts(products ...models.Product) *mockProducts {
	m := &mockProducts{products: make(map[string]*models.Product)}
	for i := range products {
		p := products[i]
		m.products[p.ID] = &p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *mockProducts) ListActive(ctx context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Product
	for _, id := range m.order {
		if p := m.products[id]; p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProducts) SetCloverID(ctx context.Context, productID, cloverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return errors.New("not found")
	}
	p.CloverID = &cloverID
	return nil
}

type mockInventory struct {
	rows []models.Inventory
}

func (m *mockInventory) ListLinked(ctx context.Context, locationID string) ([]models.Inventory, error) {
	var out []models.Inventory
	for _, row := range m.rows {
		if locationID == "" || row.LocationID == locationID {
			out = append(out, row)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func newTestExporter(products ProductStore, inventory InventoryStore, withValidator bool) *Exporter {
	log := logger.NewNop()
	var v *validation.Validator
	if withValidator {
		v = validation.New(log)
	}
	return New(products, inventory, v, 4, log)
}

func TestSyncProducts_CreateThenUpdate(t *testing.T) {
	products := newMockProducts(models.Product{ID: "p1", SKU: "ABC123", Name: "Widget", Price: 19.99, Cost: 10.00, IsActive: true})
	remote := newMockRemote()
	exporter := newTestExporter(products, &mockInventory{}, true)
	ctx := context.Background()

	report, err := exporter.SyncProducts(ctx, remote)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, "Synced 1/1 products", report.Message())

	require.Len(t, remote.created, 1)
	assert.Equal(t, int64(1999), remote.created[0].Price)
	assert.Equal(t, int64(1000), remote.created[0].Cost)
	assert.Equal(t, "R1", *products.products["p1"].CloverID)
	assert.Equal(t, "R1", report.Results[0].CloverID)

	report, err = exporter.SyncProducts(ctx, remote)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Len(t, remote.created, 1, "second push must not create again")
	assert.Contains(t, remote.updated, "R1")
}

func TestSyncProducts_PartialFailureIsolation(t *testing.T) {
	var items []models.Product
	for i := 1; i <= 5; i++ {
		items = append(items, models.Product{
			ID:       fmt.Sprintf("p%d", i),
			SKU:      fmt.Sprintf("SKU-%d", i),
			Name:     fmt.Sprintf("Product %d", i),
			Price:    float64(i),
			IsActive: true,
		})
	}
	items[2].Price = math.NaN()

	products := newMockProducts(items...)
	remote := newMockRemote()

	report, err := newTestExporter(products, &mockInventory{}, false).SyncProducts(context.Background(), remote)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 4, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "Synced 4/5 products", report.Message())

	require.Len(t, report.Results, 5)
	for i, res := range report.Results {
		assert.Equal(t, items[i].ID, res.ProductID, "results keep input order")
	}
	assert.Equal(t, StatusFailed, report.Results[2].Status)
	assert.NotEmpty(t, report.Results[2].Error)
	assert.Equal(t, report.Results[2].Error, report.FirstError())
	assert.Equal(t, StatusSuccess, report.Results[3].Status)
	assert.Equal(t, StatusSuccess, report.Results[4].Status)
	assert.Len(t, remote.created, 4)
}

func TestSyncProducts_RemoteFailureRecorded(t *testing.T) {
	products := newMockProducts(
		models.Product{ID: "p1", SKU: "OK", Name: "ok", Price: 1, IsActive: true},
		models.Product{ID: "p2", SKU: "BAD", Name: "bad", Price: 1, IsActive: true, CloverID: strPtr("R77")},
	)
	remote := newMockRemote()
	remote.failOn["BAD"] = &clover.RemoteCatalogError{Op: "update item", Status: 500, Body: "boom"}

	report, err := newTestExporter(products, &mockInventory{}, true).SyncProducts(context.Background(), remote)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Results[1].Error, "500")
}

func TestSyncProducts_ValidationFailure(t *testing.T) {
	products := newMockProducts(models.Product{ID: "p1", SKU: "X", Name: "", Price: 1, IsActive: true})
	remote := newMockRemote()

	report, err := newTestExporter(products, &mockInventory{}, true).SyncProducts(context.Background(), remote)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, remote.created)
}

func TestSyncProducts_SkipsInactive(t *testing.T) {
	products := newMockProducts(
		models.Product{ID: "p1", SKU: "A", Name: "a", Price: 1, IsActive: true},
		models.Product{ID: "p2", SKU: "B", Name: "b", Price: 1, IsActive: false},
	)

	report, err := newTestExporter(products, &mockInventory{}, true).SyncProducts(context.Background(), newMockRemote())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
}

func TestSyncProducts_ListErrorFailsWholeCall(t *testing.T) {
	products := newMockProducts()
	products.listErr = errors.New("db down")

	_, err := newTestExporter(products, &mockInventory{}, true).SyncProducts(context.Background(), newMockRemote())
	assert.Error(t, err)
}

func TestSyncInventory(t *testing.T) {
	linked := &models.Product{ID: "p1", Name: "Widget", CloverID: strPtr("R1")}
	other := &models.Product{ID: "p2", Name: "Gadget", CloverID: strPtr("R2")}
	broken := &models.Product{ID: "p3", Name: "Broken", CloverID: strPtr("R3")}
	inventory := &mockInventory{rows: []models.Inventory{
		{ID: "i1", ProductID: "p1", LocationID: "loc-1", Quantity: 12, Product: linked},
		{ID: "i2", ProductID: "p2", LocationID: "loc-1", Quantity: -4, Product: other},
		{ID: "i3", ProductID: "p3", LocationID: "loc-1", Quantity: 1, Product: broken},
		{ID: "i4", ProductID: "p1", LocationID: "loc-2", Quantity: 99, Product: linked},
	}}
	remote := newMockRemote()
	remote.failOn["R3"] = errors.New("stock endpoint unavailable")

	report, err := newTestExporter(newMockProducts(), inventory, true).SyncInventory(context.Background(), remote, "loc-1")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, "Synced 2/3 inventory items", report.Message())
	assert.Equal(t, 12, remote.quantities["R1"])
	assert.Equal(t, -4, remote.quantities["R2"], "negative stock is pushed as stored")

	require.NotNil(t, report.Results[0].Quantity)
	assert.Equal(t, 12, *report.Results[0].Quantity)
	assert.Equal(t, "Widget", report.Results[0].Name)
	assert.Equal(t, StatusFailed, report.Results[2].Status)
}

func TestSyncInventory_AllLocations(t *testing.T) {
	linked := &models.Product{ID: "p1", Name: "Widget", CloverID: strPtr("R1")}
	inventory := &mockInventory{rows: []models.Inventory{
		{ID: "i1", ProductID: "p1", LocationID: "loc-1", Quantity: 1, Product: linked},
		{ID: "i2", ProductID: "p1", LocationID: "loc-2", Quantity: 2, Product: linked},
		{ID: "i3", ProductID: "p9", LocationID: "loc-2", Quantity: 2},
	}}

	report, err := newTestExporter(newMockProducts(), inventory, true).SyncInventory(context.Background(), newMockRemote(), "")
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Failed)

	var ids []string
	for _, r := range report.Results {
		ids = append(ids, r.InventoryID)
	}
	assert.True(t, sort.StringsAreSorted(ids))
}
