// MCP transport for the storefront gateway using the official MCP Go SDK.
// Exposes catalog, cart and checkout operations as MCP tools.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"stylehub/internal/cart"
	"stylehub/internal/model"
	"stylehub/internal/session"
)

// === MCP Tool Input/Output Types ===
// MCP requests carry no Storefront-Session header, so every tool names its
// storefront session in session_id. An empty or unknown id opens a session;
// every output echoes the id to use on the next call.

// SessionInput is the input of tools that only need a session.
type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
}

// ListProductsInput is the input schema for list_products.
type ListProductsInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
	Category  string `json:"category,omitempty" jsonschema:"category filter, e.g. Men, Women, Kids"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of products"`
}

// ProductInput is the input schema for get_product, add_to_cart and remove_from_cart.
type ProductInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
	ProductID string `json:"product_id" jsonschema:"product id"`
}

// UpdateCartItemInput is the input schema for update_cart_item.
type UpdateCartItemInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
	ProductID string `json:"product_id" jsonschema:"product id of the cart line"`
	Quantity  int    `json:"quantity" jsonschema:"new quantity; zero or less removes the line"`
}

// LoginInput is the input schema for login.
type LoginInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
	Email     string `json:"email" jsonschema:"account email"`
	Password  string `json:"password" jsonschema:"account password"`
}

// CheckoutInput is the input schema for checkout.
type CheckoutInput struct {
	SessionID       string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
	PaymentMethod   string `json:"payment_method,omitempty" jsonschema:"payment method; defaults to cash on delivery"`
	ShippingAddress string `json:"shipping_address,omitempty" jsonschema:"shipping address; defaults to the account default"`
}

// OrderInput is the input schema for get_order.
type OrderInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"storefront session id returned by a previous call"`
	OrderID   string `json:"order_id" jsonschema:"order id from checkout or list_orders"`
}

// ProductsOutput is the output of list_products.
type ProductsOutput struct {
	SessionID string              `json:"session_id"`
	Products  []model.CatalogItem `json:"products"`
}

// ProductOutput is the output of get_product.
type ProductOutput struct {
	SessionID string            `json:"session_id"`
	Product   model.CatalogItem `json:"product"`
}

// CartOutput is the output of every cart tool.
type CartOutput struct {
	SessionID string         `json:"session_id"`
	Items     []CartLineView `json:"items"`
	Subtotal  model.Amount   `json:"subtotal"`
	ItemCount int            `json:"item_count"`
}

// CartLineView is one cart line as shown to an agent.
type CartLineView struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	Brand     string       `json:"brand"`
	Price     model.Amount `json:"price"`
	Quantity  int          `json:"quantity"`
	LineTotal model.Amount `json:"line_total"`
}

// AccountOutput is the output of login.
type AccountOutput struct {
	SessionID string `json:"session_id"`
	UserID    int    `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
}

// CheckoutOutput is the output of checkout.
type CheckoutOutput struct {
	SessionID   string       `json:"session_id"`
	OrderID     string       `json:"order_id"`
	Status      string       `json:"status"`
	TotalAmount model.Amount `json:"total_amount"`
	Message     string       `json:"message"`
}

// OrdersOutput is the output of list_orders.
type OrdersOutput struct {
	SessionID string        `json:"session_id"`
	Orders    []model.Order `json:"orders"`
}

// OrderOutput is the output of get_order.
type OrderOutput struct {
	SessionID string      `json:"session_id"`
	Order     model.Order `json:"order"`
}

// NewMCPServer creates an MCP server with the storefront tools registered.
// The server exposes the same operations as the REST API but via MCP protocol.
func (h *Handler) NewMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "stylehub-storefront",
			Version: "1.0.0",
		},
		&mcp.ServerOptions{
			Instructions: "StyleHub storefront. Browse the catalog, build a cart and place an order. " +
				"Pass the session_id from each result to the next call to keep the same cart.",
		},
	)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_products",
		Description: "List catalog products, optionally filtered by category.",
	}, h.mcpListProducts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_product",
		Description: "Get one product by id.",
	}, h.mcpGetProduct)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_cart",
		Description: "Get the current cart with subtotal and item count.",
	}, h.mcpGetCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_to_cart",
		Description: "Add one unit of a product to the cart.",
	}, h.mcpAddToCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_cart_item",
		Description: "Set the quantity of a cart line. Zero or less removes it.",
	}, h.mcpUpdateCartItem)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_from_cart",
		Description: "Remove a product from the cart.",
	}, h.mcpRemoveFromCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clear_cart",
		Description: "Remove every line from the cart.",
	}, h.mcpClearCart)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "login",
		Description: "Sign the session in. Required before checkout.",
	}, h.mcpLogin)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "checkout",
		Description: "Place an order for the cart. The session must be signed in.",
	}, h.mcpCheckout)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_orders",
		Description: "List the signed-in user's orders.",
	}, h.mcpListOrders)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order",
		Description: "Get one of the signed-in user's orders with its items.",
	}, h.mcpGetOrder)

	return server
}

// NewMCPHandler returns an HTTP handler for the MCP endpoint.
// Mount this at /mcp on your mux.
func (h *Handler) NewMCPHandler() http.Handler {
	server := h.NewMCPServer()
	return mcp.NewStreamableHTTPHandler(
		func(r *http.Request) *mcp.Server { return server },
		nil,
	)
}

// === Tool Handlers ===

func (h *Handler) mcpListProducts(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListProductsInput,
) (*mcp.CallToolResult, ProductsOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, ProductsOutput{}, err
	}
	if input.Limit < 0 {
		return nil, ProductsOutput{}, fmt.Errorf("limit must not be negative")
	}

	products, err := s.BrowseProducts(ctx, model.ProductQuery{Category: input.Category, Limit: input.Limit})
	if err != nil {
		return nil, ProductsOutput{}, h.mcpError(err)
	}
	if products == nil {
		products = []model.CatalogItem{}
	}

	return nil, ProductsOutput{SessionID: s.ID, Products: products}, nil
}

func (h *Handler) mcpGetProduct(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, ProductOutput, error) {
	if input.ProductID == "" {
		return nil, ProductOutput{}, fmt.Errorf("product_id is required")
	}
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, ProductOutput{}, err
	}

	product, err := s.ViewProduct(ctx, input.ProductID)
	if err != nil {
		return nil, ProductOutput{}, h.mcpError(err)
	}

	return nil, ProductOutput{SessionID: s.ID, Product: *product}, nil
}

func (h *Handler) mcpGetCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, CartOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, CartOutput{}, err
	}
	return nil, cartOutput(s.ID, s.Cart.Snapshot()), nil
}

func (h *Handler) mcpAddToCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, CartOutput, error) {
	if input.ProductID == "" {
		return nil, CartOutput{}, fmt.Errorf("product_id is required")
	}
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, CartOutput{}, err
	}

	snap, err := s.AddProduct(ctx, input.ProductID)
	if err != nil {
		return nil, CartOutput{}, h.mcpError(err)
	}

	return nil, cartOutput(s.ID, snap), nil
}

func (h *Handler) mcpUpdateCartItem(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input UpdateCartItemInput,
) (*mcp.CallToolResult, CartOutput, error) {
	if input.ProductID == "" {
		return nil, CartOutput{}, fmt.Errorf("product_id is required")
	}
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, CartOutput{}, err
	}
	return nil, cartOutput(s.ID, s.Cart.UpdateQuantity(input.ProductID, input.Quantity)), nil
}

func (h *Handler) mcpRemoveFromCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ProductInput,
) (*mcp.CallToolResult, CartOutput, error) {
	if input.ProductID == "" {
		return nil, CartOutput{}, fmt.Errorf("product_id is required")
	}
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, CartOutput{}, err
	}
	return nil, cartOutput(s.ID, s.Cart.RemoveItem(input.ProductID)), nil
}

func (h *Handler) mcpClearCart(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, CartOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, CartOutput{}, err
	}
	return nil, cartOutput(s.ID, s.Cart.Clear()), nil
}

func (h *Handler) mcpLogin(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input LoginInput,
) (*mcp.CallToolResult, AccountOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, AccountOutput{}, err
	}

	user, err := s.Login(ctx, model.Credentials{Email: input.Email, Password: input.Password})
	if err != nil {
		return nil, AccountOutput{}, h.mcpError(err)
	}

	return nil, AccountOutput{
		SessionID: s.ID,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.DisplayName(),
	}, nil
}

func (h *Handler) mcpCheckout(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input CheckoutInput,
) (*mcp.CallToolResult, CheckoutOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, CheckoutOutput{}, err
	}

	conf, err := s.Checkout(ctx, session.CheckoutRequest{
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
	})
	if err != nil {
		return nil, CheckoutOutput{}, h.mcpError(err)
	}

	return nil, CheckoutOutput{
		SessionID:   s.ID,
		OrderID:     conf.Order.ID,
		Status:      conf.Order.Status,
		TotalAmount: conf.Order.TotalAmount,
		Message:     conf.Message,
	}, nil
}

func (h *Handler) mcpListOrders(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionInput,
) (*mcp.CallToolResult, OrdersOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, OrdersOutput{}, err
	}

	orders, err := s.Orders(ctx)
	if err != nil {
		return nil, OrdersOutput{}, h.mcpError(err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return nil, OrdersOutput{SessionID: s.ID, Orders: orders}, nil
}

func (h *Handler) mcpGetOrder(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input OrderInput,
) (*mcp.CallToolResult, OrderOutput, error) {
	s, err := h.mcpSession(input.SessionID)
	if err != nil {
		return nil, OrderOutput{}, err
	}

	order, err := s.Order(ctx, input.OrderID)
	if err != nil {
		return nil, OrderOutput{}, h.mcpError(err)
	}
	return nil, OrderOutput{SessionID: s.ID, Order: *order}, nil
}

// mcpSession resolves the tool's storefront session, opening one when the
// id is empty or no longer live.
func (h *Handler) mcpSession(id string) (*session.Session, error) {
	if id == "" {
		s, err := h.manager.Create()
		if err != nil {
			return nil, h.mcpError(err)
		}
		return s, nil
	}
	s, created, err := h.manager.GetOrCreate(id)
	if err != nil {
		return nil, h.mcpError(err)
	}
	if norm, _ := session.NormalizeID(id); created && norm != s.ID {
		h.logger.Warn("replaced malformed mcp session id",
			slog.String("requested", id),
			slog.String("session_id", s.ID))
	}
	return s, nil
}

func cartOutput(sessionID string, snap cart.Snapshot) CartOutput {
	items := snap.Items()
	out := CartOutput{
		SessionID: sessionID,
		Items:     make([]CartLineView, 0, len(items)),
		Subtotal:  snap.Subtotal(),
		ItemCount: snap.ItemCount(),
	}
	for _, li := range items {
		out.Items = append(out.Items, CartLineView{
			ProductID: li.ID,
			Name:      li.Name,
			Brand:     li.Brand,
			Price:     li.Price,
			Quantity:  li.Quantity,
			LineTotal: li.Total(),
		})
	}
	return out
}

// mcpError converts session errors to MCP-friendly errors.
func (h *Handler) mcpError(err error) error {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
	}
	if errors.Is(err, model.ErrAborted) {
		return fmt.Errorf("REQUEST_ABORTED: request superseded by a newer one")
	}
	// Don't leak internal error details
	h.logger.Error("mcp internal error", "error", err.Error())
	return fmt.Errorf("internal error")
}
