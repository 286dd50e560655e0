package product

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/backend/backendtest"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/repository"
)

type productFixture struct {
	svc        *ProductService
	fake       *backendtest.Fake
	mr         *miniredis.Miniredis
	categoryID uuid.UUID
	productID  uuid.UUID
}

func setupProduct(t *testing.T) productFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fake := backendtest.NewFake()
	categoryID, productID := uuid.New(), uuid.New()
	fake.Seed(
		repository.TableProducts,
		backend.Row{
			"id":             productID,
			"category_id":    categoryID,
			"name":           "Shisha Classic",
			"description":    "Glas-Shisha mit Schlauch und Kopf",
			"price":          "59.90",
			"stock_quantity": 4,
			"is_active":      true,
			"created_at":     time.Now().Add(-time.Hour),
		},
		backend.Row{
			"id":          uuid.New(),
			"category_id": uuid.New(),
			"name":        "Tabak Minze",
			"price":       "14.90",
			"is_active":   true,
			"created_at":  time.Now(),
		},
		backend.Row{
			"id":          uuid.New(),
			"category_id": categoryID,
			"name":        "Ausverkauft",
			"price":       "9.90",
			"is_active":   false,
		},
	)

	return productFixture{
		svc:        NewProductService(repository.New(fake, fake), client),
		fake:       fake,
		mr:         mr,
		categoryID: categoryID,
		productID:  productID,
	}
}

func TestFindProductByIdReadsThroughCache(t *testing.T) {
	f := setupProduct(t)
	c := context.Background()

	actual, err := f.svc.FindProductById(c, f.productID)
	require.NoError(t, err)
	assert.Equal(t, "Shisha Classic", actual.Name)
	assert.True(t, decimal.RequireFromString("59.90").Equal(actual.Price))
	assert.Equal(t, int32(4), actual.Stock)
	assert.True(t, f.mr.Exists(cacheKey(f.productID)))

	_, err = f.fake.Update(c, repository.TableProducts, []backend.Filter{backend.Eq("id", f.productID)}, backend.Row{"name": "Shisha Deluxe"})
	require.NoError(t, err)

	cached, err := f.svc.FindProductById(c, f.productID)
	require.NoError(t, err)
	assert.Equal(t, "Shisha Classic", cached.Name)

	require.NoError(t, f.svc.InvalidateProduct(c, f.productID))
	assert.False(t, f.mr.Exists(cacheKey(f.productID)))

	fresh, err := f.svc.FindProductById(c, f.productID)
	require.NoError(t, err)
	assert.Equal(t, "Shisha Deluxe", fresh.Name)
}

func TestFindProductByIdNotFound(t *testing.T) {
	f := setupProduct(t)

	_, err := f.svc.FindProductById(context.Background(), uuid.New())

	assert.ErrorIs(t, err, inErrors.ErrNotFound)
}

func TestFindProductByIdConcurrentMisses(t *testing.T) {
	f := setupProduct(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actual, err := f.svc.FindProductById(context.Background(), f.productID)
			assert.NoError(t, err)
			assert.Equal(t, f.productID, actual.ID)
		}()
	}
	wg.Wait()
}

func TestFindProducts(t *testing.T) {
	f := setupProduct(t)

	tests := []struct {
		name     string
		param    repository.FindProductsParams
		expected []string
	}{
		{name: "all active", param: repository.FindProductsParams{}, expected: []string{"Tabak Minze", "Shisha Classic"}},
		{name: "by category", param: repository.FindProductsParams{CategoryID: f.categoryID}, expected: []string{"Shisha Classic"}},
		{name: "unknown category", param: repository.FindProductsParams{CategoryID: uuid.New()}, expected: []string{}},
		{name: "search by name", param: repository.FindProductsParams{Query: "shi"}, expected: []string{"Shisha Classic"}},
		{name: "search ignores case", param: repository.FindProductsParams{Query: "MINZE"}, expected: []string{"Tabak Minze"}},
		{name: "search by description", param: repository.FindProductsParams{Query: "schlauch"}, expected: []string{"Shisha Classic"}},
		{name: "search shorter than three characters", param: repository.FindProductsParams{Query: "sh"}, expected: []string{}},
		{name: "search is trimmed before the length check", param: repository.FindProductsParams{Query: "  ta  "}, expected: []string{}},
		{name: "search skips inactive products", param: repository.FindProductsParams{Query: "ausverkauft"}, expected: []string{}},
		{name: "search treats wildcards literally", param: repository.FindProductsParams{Query: "a%e"}, expected: []string{}},
		{name: "search within category", param: repository.FindProductsParams{CategoryID: f.categoryID, Query: "tabak"}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := f.svc.FindProducts(context.Background(), tt.param)
			require.NoError(t, err)
			names := make([]string, 0, len(actual))
			for _, p := range actual {
				names = append(names, p.Name)
			}
			assert.ElementsMatch(t, tt.expected, names)
		})
	}
}

func TestListenProductChangesInvalidates(t *testing.T) {
	f := setupProduct(t)
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.FindProductById(c, f.productID)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ListenProductChanges(c, f.fake, f.svc) }()

	require.Eventually(t, func() bool {
		_, err := f.fake.Update(
			context.Background(),
			repository.TableProducts,
			[]backend.Filter{backend.Eq("id", f.productID)},
			backend.Row{"price": "49.90"},
		)
		return err == nil && !f.mr.Exists(cacheKey(f.productID))
	}, 2*time.Second, 10*time.Millisecond)

	actual, err := f.svc.FindProductById(c, f.productID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("49.90").Equal(actual.Price))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop")
	}
}
