// Package services implements backend.Backend over the HTTP/JSON APIs of
// the product, user, cart and order services.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stylehub/internal/backend"
	"stylehub/internal/model"
)

const (
	userAgent = "StyleHub-Gateway/1.0"

	// maxResponseBytes caps how much of any service response is read.
	maxResponseBytes = 1 << 20
)

// Config holds the service base URLs and HTTP settings.
type Config struct {
	ProductURL string
	UserURL    string
	CartURL    string
	OrderURL   string

	// ServiceToken is sent as a bearer token when the call has no user token.
	ServiceToken string

	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client talks to the four storefront services.
// Each call is a single attempt; nothing is retried.
type Client struct {
	httpClient   *http.Client
	productURL   string
	userURL      string
	cartURL      string
	orderURL     string
	serviceToken string
}

// New creates a services client.
func New(cfg Config) (*Client, error) {
	urls := []struct {
		name  string
		value string
	}{
		{"product service URL", cfg.ProductURL},
		{"user service URL", cfg.UserURL},
		{"cart service URL", cfg.CartURL},
		{"order service URL", cfg.OrderURL},
	}
	for _, u := range urls {
		if u.value == "" {
			return nil, fmt.Errorf("%s is required", u.name)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		productURL:   strings.TrimSuffix(cfg.ProductURL, "/"),
		userURL:      strings.TrimSuffix(cfg.UserURL, "/"),
		cartURL:      strings.TrimSuffix(cfg.CartURL, "/"),
		orderURL:     strings.TrimSuffix(cfg.OrderURL, "/"),
		serviceToken: cfg.ServiceToken,
	}, nil
}

// === Product service ===

func (c *Client) ListProducts(ctx context.Context, q model.ProductQuery) ([]model.CatalogItem, error) {
	params := url.Values{}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/products"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.productURL+path, nil, "")
	if err != nil {
		return nil, err
	}
	var items []model.CatalogItem
	if err := c.do(req, "product service", "products", &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	return items, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*model.CatalogItem, error) {
	if id == "" {
		return nil, model.NewValidationError("id", "product id required")
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.productURL+"/products/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	var item model.CatalogItem
	if err := c.do(req, "product service", "product", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.productURL+"/categories", nil, "")
	if err != nil {
		return nil, err
	}
	var categories []string
	if err := c.do(req, "product service", "categories", &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

// === User service ===

func (c *Client) Login(ctx context.Context, creds model.Credentials) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

func (c *Client) Register(ctx context.Context, reg model.Registration) (*model.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", reg)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*model.AuthResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.userURL+path, body, "")
	if err != nil {
		return nil, err
	}
	var resp model.AuthResponse
	if err := c.do(req, "user service", "user", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, model.NewUpstreamError("user service", errors.New("response missing access_token"))
	}
	return &resp, nil
}

// === Cart service ===

func (c *Client) cartPath(userID string, parts ...string) string {
	path := c.cartURL + "/cart/" + url.PathEscape(userID)
	for _, p := range parts {
		path += "/" + p
	}
	return path
}

func (c *Client) GetRemoteCart(ctx context.Context, userID string) (*model.RemoteCart, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.cartPath(userID), nil, "")
	if err != nil {
		return nil, err
	}
	var cart model.RemoteCart
	if err := c.do(req, "cart service", "cart", &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []model.RemoteCartItem{}
	}
	return &cart, nil
}

func (c *Client) AddRemoteCartItem(ctx context.Context, userID, productID string, quantity int) error {
	body := map[string]any{"productId": productID, "quantity": quantity}
	req, err := c.newRequest(ctx, http.MethodPost, c.cartPath(userID, "add"), body, "")
	if err != nil {
		return err
	}
	return c.do(req, "cart service", "product", nil)
}

func (c *Client) UpdateRemoteCartItem(ctx context.Context, userID string, itemID, quantity int) error {
	body := map[string]any{"itemId": itemID, "quantity": quantity}
	req, err := c.newRequest(ctx, http.MethodPut, c.cartPath(userID, "update"), body, "")
	if err != nil {
		return err
	}
	return c.do(req, "cart service", "cart item", nil)
}

func (c *Client) RemoveRemoteCartItem(ctx context.Context, userID string, itemID int) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.cartPath(userID, "remove", strconv.Itoa(itemID)), nil, "")
	if err != nil {
		return err
	}
	return c.do(req, "cart service", "cart item", nil)
}

func (c *Client) ClearRemoteCart(ctx context.Context, userID string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.cartPath(userID, "clear"), nil, "")
	if err != nil {
		return err
	}
	return c.do(req, "cart service", "cart", nil)
}

// === Order service ===

func (c *Client) CreateOrder(ctx context.Context, token string, order model.OrderRequest) (*model.OrderConfirmation, error) {
	if err := order.Validate(); err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.orderURL+"/orders", order, token)
	if err != nil {
		return nil, err
	}
	var conf model.OrderConfirmation
	if err := c.do(req, "order service", "order", &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) ListOrders(ctx context.Context, token, userID string) ([]model.Order, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.orderURL+"/orders/"+url.PathEscape(userID), nil, token)
	if err != nil {
		return nil, err
	}
	var orders []model.Order
	if err := c.do(req, "order service", "orders", &orders); err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*model.Order, error) {
	if orderID == "" {
		return nil, model.NewValidationError("order_id", "is required")
	}
	req, err := c.newRequest(ctx, http.MethodGet, c.orderURL+"/orders/detail/"+url.PathEscape(orderID), nil, token)
	if err != nil {
		return nil, err
	}
	var order model.Order
	if err := c.do(req, "order service", "order", &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// === HTTP helpers ===

// newRequest creates a JSON request. token overrides the service token.
func (c *Client) newRequest(ctx context.Context, method, target string, body any, token string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token == "" {
		token = c.serviceToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// do executes the request and decodes the response into result.
// resource names what a 404 refers to.
func (c *Client) do(req *http.Request, service, resource string, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Cancellation is the caller's doing, not the service's.
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return model.NewUpstreamError(service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return model.NewUpstreamError(service, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return parseError(service, resource, resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return model.NewUpstreamError(service, fmt.Errorf("parsing response: %w", err))
		}
	}
	return nil
}

// parseError converts a {error: string} body into a model.APIError.
// The service's message is kept so the shopper sees what the service said.
func parseError(service, resource string, statusCode int, body []byte) error {
	var svcErr model.ServiceError
	json.Unmarshal(body, &svcErr) // best effort
	msg := svcErr.Error

	switch {
	case statusCode == http.StatusBadRequest:
		if msg == "" {
			msg = "invalid request"
		}
		return model.NewBadRequestError(msg)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		if msg == "" {
			msg = "authentication failed"
		}
		return model.NewUnauthorizedError(msg)
	case statusCode == http.StatusNotFound:
		apiErr := model.NewNotFoundError(resource)
		if msg != "" {
			apiErr.Message = msg
		}
		return apiErr
	case statusCode == http.StatusConflict:
		if msg == "" {
			msg = "conflict"
		}
		return model.NewConflictError(msg)
	case statusCode == http.StatusTooManyRequests:
		return model.NewRateLimitError(service)
	default:
		return model.NewUpstreamError(service, fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

// Verify Client implements Backend interface at compile time.
var _ backend.Backend = (*Client)(nil)
