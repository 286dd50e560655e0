package checkout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Alturino/mallofhookah/internal/backend"
	inErrors "github.com/Alturino/mallofhookah/internal/errors"
	"github.com/Alturino/mallofhookah/internal/repository"
	"github.com/Alturino/mallofhookah/pkg/response"
)

type mockIdentity struct {
	session backend.Session
	ok      bool
}

func (m mockIdentity) CurrentSession(c context.Context) (backend.Session, bool) {
	return m.session, m.ok
}

func (m mockIdentity) RefreshSession(c context.Context) (backend.Session, error) {
	if !m.ok {
		return backend.Session{}, inErrors.ErrUnauthenticated
	}
	return m.session, nil
}

func (m mockIdentity) OnAuthChange(c context.Context, fn func(backend.AuthEvent)) (func(), error) {
	return func() {}, nil
}

// mockOrderWriter answers CreateOrder with a fixed id.
type mockOrderWriter struct {
	OrderID   uuid.UUID
	CreateErr error
	Added     int
}

func (m *mockOrderWriter) CreateOrder(c context.Context, p repository.CreateOrderParams) (uuid.UUID, error) {
	return m.OrderID, m.CreateErr
}

func (m *mockOrderWriter) AddOrderItem(c context.Context, p repository.AddOrderItemParams) (uuid.UUID, error) {
	m.Added++
	return uuid.New(), nil
}

func (m *mockOrderWriter) CancelOrder(c context.Context, orderID uuid.UUID, reason string) error {
	return nil
}

type mockConfirmations struct {
	mu    sync.Mutex
	Saved []response.Confirmation
	Err   error
}

func (m *mockConfirmations) SaveConfirmation(c context.Context, confirmation response.Confirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved = append(m.Saved, confirmation)
	return m.Err
}
