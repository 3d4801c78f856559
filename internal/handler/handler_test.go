package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"stylehub/internal/backend"
	"stylehub/internal/cart"
	"stylehub/internal/model"
	"stylehub/internal/session"
)

var testCatalog = map[string]model.CatalogItem{
	"m-1": {ID: "m-1", Name: "Classic Shirt", Brand: "StyleCraft", Price: 1299, Category: "Men"},
	"w-1": {ID: "w-1", Name: "Floral Dress", Brand: "Bloom", Price: 1899, Category: "Women"},
}

// testBackend serves testCatalog and accepts the password "secret".
func testBackend() *backend.Mock {
	return &backend.Mock{
		ListProductsFunc: func(ctx context.Context, q model.ProductQuery) ([]model.CatalogItem, error) {
			var out []model.CatalogItem
			for _, id := range []string{"m-1", "w-1"} {
				if q.Category == "" || testCatalog[id].Category == q.Category {
					out = append(out, testCatalog[id])
				}
			}
			return out, nil
		},
		GetProductFunc: func(ctx context.Context, id string) (*model.CatalogItem, error) {
			item, ok := testCatalog[id]
			if !ok {
				return nil, model.NewNotFoundError("product")
			}
			return &item, nil
		},
		ListCategoriesFunc: func(ctx context.Context) ([]string, error) {
			return []string{"Men", "Women"}, nil
		},
		LoginFunc: func(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
			if creds.Password != "secret" {
				return nil, model.NewUnauthorizedError("Invalid credentials")
			}
			return &model.AuthResponse{
				User:        model.User{ID: 3, Email: creds.Email, FirstName: "Asha"},
				AccessToken: "jwt-3",
			}, nil
		},
		CreateOrderFunc: func(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error) {
			return &model.OrderConfirmation{
				Message: "Order created successfully",
				Order:   model.Order{ID: "ord-1", UserID: req.UserID, TotalAmount: 1299, Status: "pending"},
			}, nil
		},
	}
}

func testHandler(mock *backend.Mock) (*Handler, http.Handler) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := session.NewManager(mock, session.Options{
		Checkout: session.CheckoutDefaults{PaymentMethod: "cod", ShippingAddress: "Default address"},
	}, logger)
	h := New(manager, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return h, session.Middleware(manager, "v1.0.0", logger)(mux)
}

// client replays the Storefront-Session header the gateway hands out,
// the way a browser would keep a cookie.
type client struct {
	t       *testing.T
	srv     http.Handler
	session string
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if c.session != "" {
		req.Header.Set(session.HeaderName, c.session)
	}
	w := httptest.NewRecorder()
	c.srv.ServeHTTP(w, req)
	if hdr := w.Header().Get(session.HeaderName); hdr != "" {
		c.session = hdr
	}
	return w
}

func errorCode(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error.Code
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) cart.Snapshot {
	t.Helper()
	var snap cart.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode cart: %v\nBody: %s", err, w.Body.String())
	}
	return snap
}

func TestHandleHealth(t *testing.T) {
	_, srv := testHandler(&backend.Mock{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get(session.HeaderName) != "" {
		t.Error("health check opened a session")
	}

	var resp healthResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "ok" {
		t.Errorf("Status = %s, want ok", resp.Status)
	}
}

func TestHandleListProducts(t *testing.T) {
	_, srv := testHandler(testBackend())

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCount  int
	}{
		{"all", "/products", http.StatusOK, 2},
		{"category", "/products?category=Women&limit=8", http.StatusOK, 1},
		{"bad limit", "/products?limit=abc", http.StatusBadRequest, 0},
		{"negative limit", "/products?limit=-1", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, srv: srv}
			w := c.do("GET", tt.path, nil)

			if w.Code != tt.wantStatus {
				t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp productsResponse
			json.NewDecoder(w.Body).Decode(&resp)
			if resp.Count != tt.wantCount || len(resp.Products) != tt.wantCount {
				t.Errorf("Count = %d (%d products), want %d", resp.Count, len(resp.Products), tt.wantCount)
			}
		})
	}
}

func TestHandleListProductsEmpty(t *testing.T) {
	_, srv := testHandler(&backend.Mock{})
	c := &client{t: t, srv: srv}

	w := c.do("GET", "/products", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"products":[]`)) {
		t.Errorf("empty listing not encoded as []: %s", w.Body.String())
	}
}

func TestHandleGetProduct(t *testing.T) {
	_, srv := testHandler(testBackend())

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"found", "m-1", http.StatusOK},
		{"not found", "x-9", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, srv: srv}
			w := c.do("GET", "/products/"+tt.id, nil)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var item model.CatalogItem
				json.NewDecoder(w.Body).Decode(&item)
				if item.ID != tt.id || item.Price != 1299 {
					t.Errorf("product = %+v", item)
				}
			}
		})
	}
}

func TestHandleListCategories(t *testing.T) {
	_, srv := testHandler(testBackend())
	c := &client{t: t, srv: srv}

	w := c.do("GET", "/categories", nil)
	var resp categoriesResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if len(resp.Categories) != 2 {
		t.Errorf("categories = %v", resp.Categories)
	}
}

func TestCartFlow(t *testing.T) {
	_, srv := testHandler(testBackend())
	c := &client{t: t, srv: srv}

	if snap := decodeSnapshot(t, c.do("GET", "/cart", nil)); !snap.IsEmpty() {
		t.Fatalf("new session cart = %+v", snap.Items())
	}

	c.do("POST", "/cart/items", map[string]string{"product_id": "m-1"})
	c.do("POST", "/cart/items", map[string]string{"product_id": "m-1"})
	w := c.do("POST", "/cart/items", map[string]interface{}{
		"item": map[string]interface{}{"id": "s-1", "name": "Sneakers", "price": "2499.0"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add item Status = %d\nBody: %s", w.Code, w.Body.String())
	}
	snap := decodeSnapshot(t, w)
	if snap.Len() != 2 || snap.ItemCount() != 3 || snap.Subtotal() != 2*1299+2499 {
		t.Fatalf("cart = %d lines, %d items, subtotal %d", snap.Len(), snap.ItemCount(), snap.Subtotal())
	}

	snap = decodeSnapshot(t, c.do("PUT", "/cart/items/m-1", map[string]int{"quantity": 5}))
	if li, _ := snap.Find("m-1"); li.Quantity != 5 {
		t.Errorf("m-1 quantity = %d, want 5", li.Quantity)
	}

	snap = decodeSnapshot(t, c.do("PUT", "/cart/items/m-1", map[string]int{"quantity": 0}))
	if _, ok := snap.Find("m-1"); ok {
		t.Error("quantity 0 did not remove the line")
	}

	snap = decodeSnapshot(t, c.do("DELETE", "/cart/items/nope", nil))
	if snap.Len() != 1 {
		t.Errorf("removing an absent line changed the cart: %+v", snap.Items())
	}

	snap = decodeSnapshot(t, c.do("DELETE", "/cart", nil))
	if !snap.IsEmpty() || snap.Subtotal() != 0 {
		t.Errorf("cleared cart = %+v", snap.Items())
	}
}

func TestCartIsPerSession(t *testing.T) {
	_, srv := testHandler(testBackend())
	a := &client{t: t, srv: srv}
	b := &client{t: t, srv: srv}

	a.do("POST", "/cart/items", map[string]string{"product_id": "m-1"})
	if snap := decodeSnapshot(t, b.do("GET", "/cart", nil)); !snap.IsEmpty() {
		t.Error("second session sees the first session's cart")
	}
	if snap := decodeSnapshot(t, a.do("GET", "/cart", nil)); snap.ItemCount() != 1 {
		t.Error("first session lost its cart")
	}
}

func TestHandleAddCartItemErrors(t *testing.T) {
	_, srv := testHandler(testBackend())

	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{"empty body", map[string]string{}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown product", map[string]string{"product_id": "x-9"}, http.StatusNotFound, "NOT_FOUND"},
		{"item without id", map[string]interface{}{"item": map[string]interface{}{"price": 10}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"negative price", map[string]interface{}{"item": map[string]interface{}{"id": "n", "price": -1}}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, srv: srv}
			w := c.do("POST", "/cart/items", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if code := errorCode(w.Body.Bytes()); code != tt.wantCode {
				t.Errorf("Code = %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestHandleInvalidJSON(t *testing.T) {
	_, srv := testHandler(testBackend())

	for _, path := range []string{"/cart/items", "/auth/login", "/checkout"} {
		req := httptest.NewRequest("POST", path, bytes.NewReader([]byte("{invalid")))
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusBadRequest)
		}
	}
}

func TestHandleUpdateCartItemRequiresQuantity(t *testing.T) {
	_, srv := testHandler(testBackend())
	c := &client{t: t, srv: srv}

	w := c.do("PUT", "/cart/items/m-1", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", w.Code)
	}
}

func TestAccountFlow(t *testing.T) {
	_, srv := testHandler(testBackend())
	c := &client{t: t, srv: srv}

	var me accountResponse
	json.NewDecoder(c.do("GET", "/auth/me", nil).Body).Decode(&me)
	if me.Authenticated {
		t.Fatal("new session is signed in")
	}

	w := c.do("POST", "/auth/login", model.Credentials{Email: "asha@example.com", Password: "wrong"})
	if w.Code != http.StatusUnauthorized || errorCode(w.Body.Bytes()) != "UNAUTHORIZED" {
		t.Errorf("bad password: Status = %d Body: %s", w.Code, w.Body.String())
	}

	w = c.do("POST", "/auth/login", model.Credentials{Email: "asha@example.com", Password: "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login Status = %d\nBody: %s", w.Code, w.Body.String())
	}

	json.NewDecoder(c.do("GET", "/auth/me", nil).Body).Decode(&me)
	if !me.Authenticated || me.User == nil || me.User.ID != 3 {
		t.Errorf("me = %+v", me)
	}

	c.do("POST", "/auth/logout", nil)
	me = accountResponse{}
	json.NewDecoder(c.do("GET", "/auth/me", nil).Body).Decode(&me)
	if me.Authenticated {
		t.Error("still signed in after logout")
	}
}

func TestHandleRegister(t *testing.T) {
	mock := testBackend()
	mock.RegisterFunc = func(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
		if reg.Email == "taken@example.com" {
			return nil, model.NewConflictError("User already exists")
		}
		return &model.AuthResponse{User: model.User{ID: 9, Email: reg.Email}, AccessToken: "jwt-9"}, nil
	}
	_, srv := testHandler(mock)

	tests := []struct {
		name       string
		reg        model.Registration
		wantStatus int
	}{
		{"created", model.Registration{Email: "new@example.com", Password: "pw", FirstName: "N", LastName: "U"}, http.StatusCreated},
		{"missing names", model.Registration{Email: "new@example.com", Password: "pw"}, http.StatusBadRequest},
		{"conflict", model.Registration{Email: "taken@example.com", Password: "pw", FirstName: "T", LastName: "U"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, srv: srv}
			w := c.do("POST", "/auth/register", tt.reg)
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d\nBody: %s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestHandleCheckout(t *testing.T) {
	_, srv := testHandler(testBackend())
	c := &client{t: t, srv: srv}

	c.do("POST", "/cart/items", map[string]string{"product_id": "m-1"})

	w := c.do("POST", "/checkout", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("signed out checkout Status = %d, want 401", w.Code)
	}

	c.do("POST", "/auth/login", model.Credentials{Email: "asha@example.com", Password: "secret"})
	w = c.do("POST", "/checkout", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout Status = %d\nBody: %s", w.Code, w.Body.String())
	}

	var conf model.OrderConfirmation
	json.NewDecoder(w.Body).Decode(&conf)
	if conf.Order.ID != "ord-1" || conf.Order.UserID != "3" {
		t.Errorf("confirmation = %+v", conf)
	}

	if snap := decodeSnapshot(t, c.do("GET", "/cart", nil)); !snap.IsEmpty() {
		t.Error("cart not cleared after checkout")
	}

	w = c.do("POST", "/checkout", session.CheckoutRequest{PaymentMethod: "upi"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty cart Status = %d, want 400", w.Code)
	}
}

func TestHandleCheckoutFailureKeepsCart(t *testing.T) {
	mock := testBackend()
	mock.CreateOrderFunc = func(ctx context.Context, token string, req model.OrderRequest) (*model.OrderConfirmation, error) {
		return nil, model.NewUpstreamError("order service", errors.New("connection refused"))
	}
	_, srv := testHandler(mock)
	c := &client{t: t, srv: srv}

	c.do("POST", "/auth/login", model.Credentials{Email: "asha@example.com", Password: "secret"})
	c.do("POST", "/cart/items", map[string]string{"product_id": "w-1"})

	w := c.do("POST", "/checkout", nil)
	if w.Code != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", w.Code)
	}
	if snap := decodeSnapshot(t, c.do("GET", "/cart", nil)); snap.ItemCount() != 1 {
		t.Error("failed checkout changed the cart")
	}
}

func TestHandleListOrders(t *testing.T) {
	mock := testBackend()
	mock.ListOrdersFunc = func(ctx context.Context, token, userID string) ([]model.Order, error) {
		return nil, nil
	}
	_, srv := testHandler(mock)
	c := &client{t: t, srv: srv}

	if w := c.do("GET", "/orders", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("signed out Status = %d, want 401", w.Code)
	}

	c.do("POST", "/auth/login", model.Credentials{Email: "asha@example.com", Password: "secret"})
	w := c.do("GET", "/orders", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte(`"orders":[]`)) {
		t.Errorf("Status = %d Body: %s", w.Code, w.Body.String())
	}
}

func TestHandleGetOrder(t *testing.T) {
	mock := testBackend()
	mock.GetOrderFunc = func(ctx context.Context, token, id string) (*model.Order, error) {
		switch id {
		case "ord-1":
			return &model.Order{ID: "ord-1", UserID: "3", TotalAmount: 2598, Status: "pending",
				Items: []model.OrderItem{{ProductID: "m-1", Quantity: 2, ProductPrice: 1299, ItemTotal: 2598}}}, nil
		case "ord-2":
			return &model.Order{ID: "ord-2", UserID: "7", TotalAmount: 599}, nil
		}
		return nil, model.NewNotFoundError("order")
	}
	_, srv := testHandler(mock)
	c := &client{t: t, srv: srv}

	if w := c.do("GET", "/orders/ord-1", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("signed out Status = %d, want 401", w.Code)
	}

	c.do("POST", "/auth/login", model.Credentials{Email: "asha@example.com", Password: "secret"})

	w := c.do("GET", "/orders/ord-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d Body: %s", w.Code, w.Body.String())
	}
	var order model.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.ID != "ord-1" || order.TotalAmount != 2598 || len(order.Items) != 1 {
		t.Errorf("order = %+v", order)
	}

	for _, id := range []string{"ord-2", "ord-9"} {
		if w := c.do("GET", "/orders/"+id, nil); w.Code != http.StatusNotFound {
			t.Errorf("GET /orders/%s Status = %d, want 404", id, w.Code)
		}
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		mockErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found",
			mockErr:    model.NewNotFoundError("product"),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "upstream error",
			mockErr:    model.NewUpstreamError("product service", errors.New("timeout")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "UPSTREAM_ERROR",
		},
		{
			name:       "rate limit",
			mockErr:    model.NewRateLimitError("product service"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "RATE_LIMITED",
		},
		{
			name:       "aborted",
			mockErr:    model.ErrAborted,
			wantStatus: http.StatusConflict,
			wantCode:   "REQUEST_ABORTED",
		},
		{
			name:       "unexpected",
			mockErr:    errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &backend.Mock{
				GetProductFunc: func(ctx context.Context, id string) (*model.CatalogItem, error) {
					return nil, tt.mockErr
				},
			}
			_, srv := testHandler(mock)
			c := &client{t: t, srv: srv}

			w := c.do("GET", "/products/123", nil)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}
			if code := errorCode(w.Body.Bytes()); code != tt.wantCode {
				t.Errorf("Code = %s, want %s\nBody: %s", code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestRoutesWithoutSessionMiddleware(t *testing.T) {
	h, _ := testHandler(testBackend())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	req := httptest.NewRequest("GET", "/cart", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want 500", w.Code)
	}
}
