package backend

import (
	"context"

	"stylehub/internal/model"
)

// Mock implements Backend for testing.
// Each method can be configured via function fields.
type Mock struct {
	ListProductsFunc         func(ctx context.Context, q model.ProductQuery) ([]model.CatalogItem, error)
	GetProductFunc           func(ctx context.Context, id string) (*model.CatalogItem, error)
	ListCategoriesFunc       func(ctx context.Context) ([]string, error)
	LoginFunc                func(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	RegisterFunc             func(ctx context.Context, reg model.Registration) (*model.AuthResponse, error)
	GetRemoteCartFunc        func(ctx context.Context, userID string) (*model.RemoteCart, error)
	AddRemoteCartItemFunc    func(ctx context.Context, userID, productID string, quantity int) error
	UpdateRemoteCartItemFunc func(ctx context.Context, userID string, itemID, quantity int) error
	RemoveRemoteCartItemFunc func(ctx context.Context, userID string, itemID int) error
	ClearRemoteCartFunc      func(ctx context.Context, userID string) error
	CreateOrderFunc          func(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error)
	ListOrdersFunc           func(ctx context.Context, token, userID string) ([]model.Order, error)
	GetOrderFunc             func(ctx context.Context, token, orderID string) (*model.Order, error)
}

// ListProducts calls the configured ListProductsFunc or returns an empty catalog.
func (m *Mock) ListProducts(ctx context.Context, q model.ProductQuery) ([]model.CatalogItem, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, q)
	}
	return []model.CatalogItem{}, nil
}

// GetProduct calls the configured GetProductFunc or returns not found.
func (m *Mock) GetProduct(ctx context.Context, id string) (*model.CatalogItem, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, id)
	}
	return nil, model.NewNotFoundError("product")
}

func (m *Mock) ListCategories(ctx context.Context) ([]string, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return []string{}, nil
}

// Login calls the configured LoginFunc or rejects the credentials.
func (m *Mock) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	return nil, model.NewUnauthorizedError("Invalid credentials")
}

// Register calls the configured RegisterFunc or returns an error.
func (m *Mock) Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, reg)
	}
	return nil, model.NewInternalError(nil)
}

// GetRemoteCart calls the configured GetRemoteCartFunc or returns an empty cart.
func (m *Mock) GetRemoteCart(ctx context.Context, userID string) (*model.RemoteCart, error) {
	if m.GetRemoteCartFunc != nil {
		return m.GetRemoteCartFunc(ctx, userID)
	}
	return &model.RemoteCart{Items: []model.RemoteCartItem{}}, nil
}

func (m *Mock) AddRemoteCartItem(ctx context.Context, userID, productID string, quantity int) error {
	if m.AddRemoteCartItemFunc != nil {
		return m.AddRemoteCartItemFunc(ctx, userID, productID, quantity)
	}
	return nil
}

func (m *Mock) UpdateRemoteCartItem(ctx context.Context, userID string, itemID, quantity int) error {
	if m.UpdateRemoteCartItemFunc != nil {
		return m.UpdateRemoteCartItemFunc(ctx, userID, itemID, quantity)
	}
	return nil
}

func (m *Mock) RemoveRemoteCartItem(ctx context.Context, userID string, itemID int) error {
	if m.RemoveRemoteCartItemFunc != nil {
		return m.RemoveRemoteCartItemFunc(ctx, userID, itemID)
	}
	return nil
}

func (m *Mock) ClearRemoteCart(ctx context.Context, userID string) error {
	if m.ClearRemoteCartFunc != nil {
		return m.ClearRemoteCartFunc(ctx, userID)
	}
	return nil
}

// CreateOrder calls the configured CreateOrderFunc or returns an error.
func (m *Mock) CreateOrder(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, token, req)
	}
	return nil, model.NewInternalError(nil)
}

// ListOrders calls the configured ListOrdersFunc or returns no orders.
func (m *Mock) ListOrders(ctx context.Context, token, userID string) ([]model.Order, error) {
	if m.ListOrdersFunc != nil {
		return m.ListOrdersFunc(ctx, token, userID)
	}
	return []model.Order{}, nil
}

// GetOrder calls the configured GetOrderFunc or returns not found.
func (m *Mock) GetOrder(ctx context.Context, token, orderID string) (*model.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, token, orderID)
	}
	return nil, model.NewNotFoundError("order")
}

// Verify Mock implements Backend interface at compile time.
var _ Backend = (*Mock)(nil)
