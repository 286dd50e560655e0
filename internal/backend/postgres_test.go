package backend_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	pgxuuid "github.com/vgarvardt/pgx-google-uuid/v5"

	"github.com/Alturino/mallofhookah/internal/backend"
	"github.com/Alturino/mallofhookah/internal/domain"
	"github.com/Alturino/mallofhookah/internal/repository"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	c := context.Background()

	pgContainer, err := postgres.Run(
		c,
		"postgres:16.6-alpine3.21",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_DB":       "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_USER":     "postgres",
		}),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.WithDatabase("postgres"),
		postgres.BasicWaitStrategies(),
		postgres.WithInitScripts(
			filepath.Join("..", "..", "migrations", "000001_create_storefront_tables.up.sql"),
			filepath.Join("..", "..", "migrations", "000002_create_order_procedures.up.sql"),
			filepath.Join("..", "..", "migrations", "000003_create_realtime_triggers.up.sql"),
		),
	)
	if err != nil {
		t.Fatalf("failed running postgres container with error: %s", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed terminating postgres container with error: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(c, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed getting postgres connection string with error: %s", err)
	}
	pgConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed parsing pgx config with error: %s", err)
	}
	pgConfig.AfterConnect = func(c context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	pool, err := pgxpool.NewWithConfig(c, pgConfig)
	if err != nil {
		t.Fatalf("failed creating pool with error: %s", err)
	}
	t.Cleanup(pool.Close)
	if err := pool.Ping(c); err != nil {
		t.Fatalf("failed pinging postgres with error: %s", err)
	}
	return pool
}

func TestPostgresOrderProcedures(t *testing.T) {
	pool := setupPostgres(t)
	c := context.Background()
	pg := backend.NewPostgres(pool, backend.ProcedureCreateOrder, backend.ProcedureAddOrderItem, backend.ProcedureCancelOrder)
	queries := repository.New(pg, pg)

	user, err := pg.Insert(c, repository.TableUsers, backend.Row{"email": "mia@example.de", "password": "x"})
	require.NoError(t, err)
	product, err := pg.Insert(c, repository.TableProducts, backend.Row{"name": "Shisha Classic", "price": "59.90"})
	require.NoError(t, err)
	userID := user["id"].(uuid.UUID)
	productID := product["id"].(uuid.UUID)

	params := repository.CreateOrderParams{
		UserID:         userID,
		IdempotencyKey: uuid.New(),
		Status:         domain.OrderStatusPending,
		CustomerName:   "Mia Schulz",
		CustomerEmail:  "mia@example.de",
		ShippingAddress: domain.ShippingAddress{
			FirstName:    "Mia",
			LastName:     "Schulz",
			AddressLine1: "Lindenhofstraße 3",
			City:         "Bremen",
			PostalCode:   "28237",
			CountryCode:  "DE",
			Phone:        "0421 123456",
		},
		Totals: domain.NewTotals(
			decimal.RequireFromString("59.90"),
			decimal.Zero,
			decimal.RequireFromString("0.19"),
		),
		Currency:       "EUR",
		PaymentMethod:  domain.PaymentPaypal,
		PaymentStatus:  "pending",
		ShippingMethod: domain.DeliveryShipping,
		Source:         "web",
	}

	orderID, err := queries.CreateOrder(c, params)
	require.NoError(t, err)
	again, err := queries.CreateOrder(c, params)
	require.NoError(t, err)
	assert.Equal(t, orderID, again)

	_, err = queries.AddOrderItem(c, repository.AddOrderItemParams{
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: "Shisha Classic",
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("59.90"),
		TaxRate:     decimal.RequireFromString("0.19"),
		Subtotal:    decimal.RequireFromString("59.90"),
	})
	require.NoError(t, err)

	_, err = queries.AddOrderItem(c, repository.AddOrderItemParams{
		OrderID:     uuid.New(),
		ProductID:   productID,
		ProductName: "Shisha Classic",
		Quantity:    1,
		UnitPrice:   decimal.RequireFromString("59.90"),
		Subtotal:    decimal.RequireFromString("59.90"),
	})
	var remote *backend.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "23503", remote.Code)

	order, err := queries.FindOrderById(c, repository.FindOrderByIdParams{UserID: userID, OrderID: orderID})
	require.NoError(t, err)
	assert.Equal(t, params.ShippingAddress, order.ShippingAddress)
	assert.True(t, params.Totals.Total.Equal(order.Totals.Total))

	items, err := queries.FindOrderItemsByOrderId(c, orderID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(1), items[0].Quantity)

	require.NoError(t, queries.CancelOrder(c, orderID, "Bestellung unvollständig"))
	order, err = queries.FindOrderById(c, repository.FindOrderByIdParams{UserID: userID, OrderID: orderID})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, order.Status)
	assert.Equal(t, "Bestellung unvollständig", order.Notes)

	err = queries.CancelOrder(c, uuid.New(), "x")
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "P0002", remote.Code)
}

func TestPostgresRejectsUnexposedProcedure(t *testing.T) {
	pool := setupPostgres(t)
	pg := backend.NewPostgres(pool, backend.ProcedureCreateOrder)

	_, err := pg.Call(context.Background(), backend.ProcedureCancelOrder, map[string]any{"p_order_id": uuid.New(), "p_reason": "x"})

	var remote *backend.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, "42883", remote.Code)
}

func TestPostgresSubscribe(t *testing.T) {
	pool := setupPostgres(t)
	pg := backend.NewPostgres(pool)
	c, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan backend.Change, 16)
	done := make(chan error, 1)
	go func() {
		done <- pg.Subscribe(c, repository.TableProducts, func(change backend.Change) { changes <- change })
	}()

	var received backend.Change
	require.Eventually(t, func() bool {
		if _, err := pg.Insert(context.Background(), repository.TableProducts, backend.Row{"name": "Tabak Minze", "price": "14.90"}); err != nil {
			return false
		}
		select {
		case received = <-changes:
			return true
		case <-time.After(200 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, repository.TableProducts, received.Table)
	assert.Equal(t, backend.ChangeInsert, received.Type)
	assert.Equal(t, "Tabak Minze", received.Record["name"])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}
