package usecase_test

import (
	"context"
	"sync"
	"testing"

	"shop/internal/apperr"
	"shop/internal/domain/model"
	"shop/internal/infra/cache"
	repo "shop/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) FindByID(ctx context.Context, cartID int64) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) AddTotalPrice(ctx context.Context, cartID int64, delta int64) error {
	args := m.Called(ctx, cartID, delta)
	return args.Error(0)
}

func (m *CartRepoMock) SetGatewayCustomerID(ctx context.Context, cartID int64, customerID string) error {
	args := m.Called(ctx, cartID, customerID)
	return args.Error(0)
}

func (m *CartRepoMock) Clear(ctx context.Context, cartID int64) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) FindByCartAndProduct(ctx context.Context, cartID int64, productID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartID, productID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) UpsertAddQuantity(ctx context.Context, cartID int64, productID int64, addQty int64) error {
	args := m.Called(ctx, cartID, productID, addQty)
	return args.Error(0)
}

func (m *CartItemRepoMock) AddQuantity(ctx context.Context, cartID int64, productID int64, delta int64) (bool, error) {
	args := m.Called(ctx, cartID, productID, delta)
	return args.Bool(0), args.Error(1)
}

func (m *CartItemRepoMock) DecrementQuantityIfAbove(ctx context.Context, cartID int64, productID int64, amount int64) (bool, error) {
	args := m.Called(ctx, cartID, productID, amount)
	return args.Bool(0), args.Error(1)
}

func (m *CartItemRepoMock) DeleteReturningQuantity(ctx context.Context, cartID int64, productID int64) (int64, error) {
	args := m.Called(ctx, cartID, productID)
	return args.Get(0).(int64), args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateCustomer(ctx context.Context, email string, cardToken string) (string, error) {
	args := m.Called(ctx, email, cardToken)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) CreateCharge(ctx context.Context, amountMinorUnits int64, currency string, customerID string) (string, error) {
	args := m.Called(ctx, amountMinorUnits, currency, customerID)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) UpdateCustomerSource(ctx context.Context, customerID string, cardToken string) error {
	args := m.Called(ctx, customerID, cardToken)
	return args.Error(0)
}

// インメモリのキャッシュ。redisは立てずに済ませる。
type fakeCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{m: map[string][]byte{}}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.m[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, key)
	return nil
}

// =====================
// Helpers
// =====================

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	assert.Error(t, err)
	assert.True(t, apperr.IsKind(err, kind), "expected kind %q, got %v", kind, err)
}
