// Package backend defines the interface to the remote storefront services.
// The gateway only ever talks to products, accounts, carts and orders
// through it, so sessions can be tested against Mock.
package backend

import (
	"context"

	"stylehub/internal/model"
)

// Backend abstracts the product, user, cart and order services.
//
// Implementations make a single attempt per call. Failures come back as
// *model.APIError carrying the service's own error message where it sent one.
type Backend interface {
	// ListProducts returns the catalog, optionally filtered by category and limited.
	ListProducts(ctx context.Context, q model.ProductQuery) ([]model.CatalogItem, error)

	// GetProduct returns a single product or a not-found error.
	GetProduct(ctx context.Context, id string) (*model.CatalogItem, error)

	ListCategories(ctx context.Context) ([]string, error)

	// Login and Register both return the access token and user record.
	Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error)
	Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error)

	// Remote cart rows are keyed by the cart service's row id, not the product id.
	GetRemoteCart(ctx context.Context, userID string) (*model.RemoteCart, error)
	AddRemoteCartItem(ctx context.Context, userID, productID string, quantity int) error
	UpdateRemoteCartItem(ctx context.Context, userID string, itemID, quantity int) error
	RemoveRemoteCartItem(ctx context.Context, userID string, itemID int) error
	ClearRemoteCart(ctx context.Context, userID string) error

	// CreateOrder places an order from the user's remote cart.
	// The order service empties that cart on success.
	CreateOrder(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error)
	ListOrders(ctx context.Context, token, userID string) ([]model.Order, error)

	// GetOrder returns one order with its items or a not-found error.
	GetOrder(ctx context.Context, token, orderID string) (*model.Order, error)
}
