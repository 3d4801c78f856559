// Package session holds per-shopper storefront state: the cart, the signed-in
// account, and the latest-wins product views. The Manager owns session
// lifecycles; handlers resolve a session per request and call its operations.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stylehub/internal/auth"
	"stylehub/internal/backend"
	"stylehub/internal/cart"
	"stylehub/internal/fetch"
	"stylehub/internal/model"
)

// CheckoutDefaults fill in order fields the shopper did not provide.
type CheckoutDefaults struct {
	PaymentMethod   string
	ShippingAddress string
}

// Session is one shopper's storefront state.
type Session struct {
	ID string

	Cart *cart.Store
	Auth *auth.Session

	Products *fetch.View[[]model.CatalogItem]
	Product  *fetch.View[*model.CatalogItem]

	backend  backend.Backend
	logger   *slog.Logger
	defaults CheckoutDefaults
	now      func() time.Time

	// checkoutMu admits one checkout at a time.
	checkoutMu sync.Mutex

	mu       sync.Mutex
	lastUsed time.Time
}

func newSession(id string, b backend.Backend, authSession *auth.Session, defaults CheckoutDefaults, now func() time.Time, logger *slog.Logger) *Session {
	return &Session{
		ID:       id,
		Cart:     cart.NewStore(),
		Auth:     authSession,
		Products: &fetch.View[[]model.CatalogItem]{},
		Product:  &fetch.View[*model.CatalogItem]{},
		backend:  b,
		logger:   logger.With(slog.String("session_id", id)),
		defaults: defaults,
		now:      now,
		lastUsed: now(),
	}
}

// LastUsed is the time of the most recent access through the Manager.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsed = s.now()
	s.mu.Unlock()
}

// close aborts any in-flight view loads.
func (s *Session) close() {
	s.Products.Cancel()
	s.Product.Cancel()
}

// BrowseProducts loads the product listing into the Products view.
// A newer browse supersedes this one, which then returns model.ErrAborted.
func (s *Session) BrowseProducts(ctx context.Context, q model.ProductQuery) ([]model.CatalogItem, error) {
	return s.Products.Load(ctx, func(ctx context.Context) ([]model.CatalogItem, error) {
		return s.backend.ListProducts(ctx, q)
	})
}

// ViewProduct loads one product into the Product view.
func (s *Session) ViewProduct(ctx context.Context, id string) (*model.CatalogItem, error) {
	return s.Product.Load(ctx, func(ctx context.Context) (*model.CatalogItem, error) {
		return s.backend.GetProduct(ctx, id)
	})
}

// Categories lists the catalog's categories. It is not tied to a view.
func (s *Session) Categories(ctx context.Context) ([]string, error) {
	return s.backend.ListCategories(ctx)
}

// AddProduct fetches the product and adds one unit of it to the cart.
func (s *Session) AddProduct(ctx context.Context, productID string) (cart.Snapshot, error) {
	item, err := s.backend.GetProduct(ctx, productID)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return s.AddItem(*item)
}

// AddItem adds one unit of an already fetched catalog item.
func (s *Session) AddItem(item model.CatalogItem) (cart.Snapshot, error) {
	if err := item.Validate(); err != nil {
		return cart.Snapshot{}, err
	}
	snap := s.Cart.AddItem(item)
	s.logger.Debug("cart item added",
		slog.String("product_id", item.ID),
		slog.Int("item_count", snap.ItemCount()))
	return snap, nil
}

// Login authenticates against the user service and stores the result.
func (s *Session) Login(ctx context.Context, creds model.Credentials) (*model.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	resp, err := s.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.signIn(resp)
}

// Register creates an account and signs the session into it.
func (s *Session) Register(ctx context.Context, reg model.Registration) (*model.User, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	resp, err := s.backend.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return s.signIn(resp)
}

func (s *Session) signIn(resp *model.AuthResponse) (*model.User, error) {
	if err := s.Auth.Login(resp.AccessToken, resp.User); err != nil {
		return nil, model.NewInternalError(fmt.Errorf("storing auth state: %w", err))
	}
	s.logger.Info("signed in", slog.Int("user_id", resp.User.ID))
	return s.Auth.User(), nil
}

// Logout clears the auth state. The cart is kept.
func (s *Session) Logout() error {
	if err := s.Auth.Logout(); err != nil {
		return model.NewInternalError(fmt.Errorf("clearing auth state: %w", err))
	}
	s.logger.Info("signed out")
	return nil
}

// Orders lists the signed-in user's orders.
func (s *Session) Orders(ctx context.Context) ([]model.Order, error) {
	user := s.Auth.User()
	if user == nil {
		return nil, model.NewUnauthorizedError("Please login to view orders")
	}
	return s.backend.ListOrders(ctx, s.Auth.Token(), model.UserKey(user.ID))
}

// Order returns one of the signed-in user's orders. Another user's order
// reads as not found.
func (s *Session) Order(ctx context.Context, id string) (*model.Order, error) {
	user := s.Auth.User()
	if user == nil {
		return nil, model.NewUnauthorizedError("Please login to view orders")
	}
	order, err := s.backend.GetOrder(ctx, s.Auth.Token(), id)
	if err != nil {
		return nil, err
	}
	if order.UserID != model.UserKey(user.ID) {
		s.logger.Warn("order belongs to another user", slog.String("order_id", id))
		return nil, model.NewNotFoundError("order")
	}
	return order, nil
}
