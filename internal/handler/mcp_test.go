package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"stylehub/internal/backend"
	"stylehub/internal/model"
	"stylehub/internal/session"
)

// jsonrpcRequest is a JSON-RPC 2.0 request structure for testing.
type jsonrpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcResponse is a JSON-RPC 2.0 response structure for testing.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolCallParams represents the params for tools/call method.
type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the expected result structure from a tool call.
type callToolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	IsError bool `json:"isError,omitempty"`
}

// mcpClient holds an initialized MCP connection to the handler.
type mcpClient struct {
	t         *testing.T
	mux       http.Handler
	sessionID string
	nextID    int
}

func newMCPClient(t *testing.T, mock *backend.Mock) *mcpClient {
	t.Helper()
	_, srv := testHandler(mock)
	return &mcpClient{t: t, mux: srv, sessionID: initMCPSession(t, srv), nextID: 2}
}

// call invokes a tool and returns the decoded result.
func (c *mcpClient) call(tool string, args interface{}) callToolResult {
	c.t.Helper()

	raw, _ := json.Marshal(args)
	callReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID,
		Method:  "tools/call",
		Params:  toolCallParams{Name: tool, Arguments: raw},
	}
	c.nextID++

	body, _ := json.Marshal(callReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, c.sessionID)
	w := httptest.NewRecorder()

	c.mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		c.t.Fatalf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		c.t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		c.t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != nil {
		c.t.Fatalf("%s: unexpected JSON-RPC error: %+v", tool, resp.Error)
	}

	var result callToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		c.t.Fatalf("Failed to parse result: %v", err)
	}
	return result
}

// decodeText unmarshals the first text content block into v.
func decodeText(t *testing.T, result callToolResult, v interface{}) {
	t.Helper()
	if result.IsError {
		t.Fatalf("Expected success, got error: %+v", result.Content)
	}
	if len(result.Content) == 0 || result.Content[0].Type != "text" {
		t.Fatalf("Expected text content, got %+v", result.Content)
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), v); err != nil {
		t.Fatalf("Failed to parse tool output: %v\nText: %s", err, result.Content[0].Text)
	}
}

func errorText(result callToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	return result.Content[0].Text
}

func TestMCPServerCreation(t *testing.T) {
	h, _ := testHandler(&backend.Mock{})

	if server := h.NewMCPServer(); server == nil {
		t.Fatal("NewMCPServer returned nil")
	}
	if handler := h.NewMCPHandler(); handler == nil {
		t.Fatal("NewMCPHandler returned nil")
	}
}

func TestMCPInitialize(t *testing.T) {
	_, srv := testHandler(&backend.Mock{})

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2026-01-11",
			"clientInfo": map[string]string{
				"name":    "test-client",
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, err := parseSSEResponse(w.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v\nBody: %s", err, string(jsonData))
	}
	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}
	if resp.Result == nil {
		t.Error("Expected result in response")
	}
}

func TestMCPToolsList(t *testing.T) {
	_, srv := testHandler(&backend.Mock{})
	sessionID := initMCPSession(t, srv)

	listReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/list",
	}

	listBody, _ := json.Marshal(listReq)
	listHttpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(listBody))
	setMCPHeaders(listHttpReq, sessionID)
	listW := httptest.NewRecorder()

	srv.ServeHTTP(listW, listHttpReq)

	if listW.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", listW.Code, http.StatusOK, listW.Body.String())
	}

	jsonData, err := parseSSEResponse(listW.Body.String())
	if err != nil {
		t.Fatalf("Failed to parse SSE response: %v", err)
	}

	var resp jsonrpcResponse
	if err := json.Unmarshal(jsonData, &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != nil {
		t.Errorf("Unexpected error: %+v", resp.Error)
	}

	var toolsResult struct {
		Tools []struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(resp.Result, &toolsResult); err != nil {
		t.Fatalf("Failed to parse tools result: %v", err)
	}

	expectedTools := map[string]bool{
		"list_products":    false,
		"get_product":      false,
		"get_cart":         false,
		"add_to_cart":      false,
		"update_cart_item": false,
		"remove_from_cart": false,
		"clear_cart":       false,
		"login":            false,
		"checkout":         false,
		"list_orders":      false,
		"get_order":        false,
	}

	for _, tool := range toolsResult.Tools {
		if _, ok := expectedTools[tool.Name]; ok {
			expectedTools[tool.Name] = true
		}
	}

	for name, found := range expectedTools {
		if !found {
			t.Errorf("Expected tool %q not found in tools list", name)
		}
	}
}

func TestMCPListProducts(t *testing.T) {
	c := newMCPClient(t, testBackend())

	var out ProductsOutput
	decodeText(t, c.call("list_products", map[string]interface{}{"category": "Men"}), &out)

	if out.SessionID == "" {
		t.Error("session_id not returned")
	}
	if len(out.Products) != 1 || out.Products[0].ID != "m-1" {
		t.Errorf("products = %+v", out.Products)
	}
}

func TestMCPGetProduct(t *testing.T) {
	c := newMCPClient(t, testBackend())

	var out ProductOutput
	decodeText(t, c.call("get_product", map[string]string{"product_id": "w-1"}), &out)
	if out.Product.Name != "Floral Dress" || out.Product.Price != 1899 {
		t.Errorf("product = %+v", out.Product)
	}

	result := c.call("get_product", map[string]string{"product_id": "x-9"})
	if !result.IsError || !strings.Contains(errorText(result), "NOT_FOUND") {
		t.Errorf("unknown product result = %+v", result)
	}
}

func TestMCPCartFlow(t *testing.T) {
	c := newMCPClient(t, testBackend())

	var out CartOutput
	decodeText(t, c.call("add_to_cart", map[string]string{"product_id": "m-1"}), &out)
	sessionID := out.SessionID
	if sessionID == "" {
		t.Fatal("session_id not returned")
	}

	decodeText(t, c.call("add_to_cart", map[string]string{"session_id": sessionID, "product_id": "w-1"}), &out)
	decodeText(t, c.call("add_to_cart", map[string]string{"session_id": sessionID, "product_id": "m-1"}), &out)
	if out.SessionID != sessionID || len(out.Items) != 2 || out.ItemCount != 3 || out.Subtotal != 2*1299+1899 {
		t.Fatalf("cart = %+v", out)
	}
	if out.Items[0].ProductID != "m-1" || out.Items[0].Quantity != 2 || out.Items[0].LineTotal != 2598 {
		t.Errorf("first line = %+v", out.Items[0])
	}

	decodeText(t, c.call("update_cart_item", map[string]interface{}{
		"session_id": sessionID, "product_id": "w-1", "quantity": 3,
	}), &out)
	if out.ItemCount != 5 {
		t.Errorf("after update item_count = %d, want 5", out.ItemCount)
	}

	decodeText(t, c.call("remove_from_cart", map[string]string{"session_id": sessionID, "product_id": "m-1"}), &out)
	if len(out.Items) != 1 || out.Items[0].ProductID != "w-1" {
		t.Errorf("after remove = %+v", out.Items)
	}

	decodeText(t, c.call("get_cart", map[string]string{"session_id": sessionID}), &out)
	if out.ItemCount != 3 {
		t.Errorf("get_cart item_count = %d, want 3", out.ItemCount)
	}

	decodeText(t, c.call("clear_cart", map[string]string{"session_id": sessionID}), &out)
	if len(out.Items) != 0 || out.Subtotal != 0 {
		t.Errorf("after clear = %+v", out)
	}

	// A fresh session has its own empty cart.
	decodeText(t, c.call("get_cart", map[string]string{}), &out)
	if out.SessionID == sessionID {
		t.Error("empty session_id reused an existing session")
	}
}

func TestMCPCheckout(t *testing.T) {
	c := newMCPClient(t, testBackend())

	var cartOut CartOutput
	decodeText(t, c.call("add_to_cart", map[string]string{"product_id": "m-1"}), &cartOut)
	sessionID := cartOut.SessionID

	result := c.call("checkout", map[string]string{"session_id": sessionID})
	if !result.IsError || !strings.Contains(errorText(result), "Please login to checkout") {
		t.Fatalf("signed out checkout = %+v", result)
	}

	result = c.call("login", map[string]string{"session_id": sessionID, "email": "asha@example.com", "password": "wrong"})
	if !result.IsError || !strings.Contains(errorText(result), "UNAUTHORIZED") {
		t.Errorf("bad login = %+v", result)
	}

	var account AccountOutput
	decodeText(t, c.call("login", map[string]string{"session_id": sessionID, "email": "asha@example.com", "password": "secret"}), &account)
	if account.UserID != 3 || account.Name != "Asha" {
		t.Errorf("account = %+v", account)
	}

	var order CheckoutOutput
	decodeText(t, c.call("checkout", map[string]string{"session_id": sessionID, "payment_method": "upi"}), &order)
	if order.OrderID != "ord-1" || order.Status != "pending" || order.TotalAmount != 1299 {
		t.Errorf("order = %+v", order)
	}

	decodeText(t, c.call("get_cart", map[string]string{"session_id": sessionID}), &cartOut)
	if len(cartOut.Items) != 0 {
		t.Error("cart not cleared after checkout")
	}
}

func TestMCPOrders(t *testing.T) {
	mock := testBackend()
	mock.ListOrdersFunc = func(ctx context.Context, token, userID string) ([]model.Order, error) {
		return []model.Order{{ID: "ord-1", UserID: userID, TotalAmount: 1299, Status: "pending"}}, nil
	}
	mock.GetOrderFunc = func(ctx context.Context, token, id string) (*model.Order, error) {
		switch id {
		case "ord-1":
			return &model.Order{ID: "ord-1", UserID: "3", TotalAmount: 1299, Status: "pending",
				Items: []model.OrderItem{{ProductID: "m-1", ProductName: "Classic Shirt", ProductPrice: 1299, Quantity: 1, ItemTotal: 1299}}}, nil
		case "ord-2":
			return &model.Order{ID: "ord-2", UserID: "7"}, nil
		}
		return nil, model.NewNotFoundError("order")
	}
	c := newMCPClient(t, mock)

	var cartOut CartOutput
	decodeText(t, c.call("get_cart", map[string]string{}), &cartOut)
	sessionID := cartOut.SessionID

	result := c.call("get_order", map[string]string{"session_id": sessionID, "order_id": "ord-1"})
	if !result.IsError || !strings.Contains(errorText(result), "UNAUTHORIZED") {
		t.Fatalf("signed out get_order = %+v", result)
	}

	c.call("login", map[string]string{"session_id": sessionID, "email": "asha@example.com", "password": "secret"})

	var list OrdersOutput
	decodeText(t, c.call("list_orders", map[string]string{"session_id": sessionID}), &list)
	if list.SessionID != sessionID || len(list.Orders) != 1 || list.Orders[0].UserID != "3" {
		t.Errorf("list_orders = %+v", list)
	}

	var out OrderOutput
	decodeText(t, c.call("get_order", map[string]string{"session_id": sessionID, "order_id": "ord-1"}), &out)
	if out.Order.ID != "ord-1" || len(out.Order.Items) != 1 || out.Order.Items[0].ProductName != "Classic Shirt" {
		t.Errorf("get_order = %+v", out)
	}

	for _, id := range []string{"ord-2", "ord-9"} {
		result := c.call("get_order", map[string]string{"session_id": sessionID, "order_id": id})
		if !result.IsError || !strings.Contains(errorText(result), "NOT_FOUND") {
			t.Errorf("get_order(%s) = %+v, want NOT_FOUND", id, result)
		}
	}
}

func TestMCPMissingRequiredField(t *testing.T) {
	_, srv := testHandler(&backend.Mock{})
	sessionID := initMCPSession(t, srv)

	args, _ := json.Marshal(map[string]string{})
	callReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      2,
		Method:  "tools/call",
		Params: toolCallParams{
			Name:      "add_to_cart",
			Arguments: args,
		},
	}

	body, _ := json.Marshal(callReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, sessionID)
	w := httptest.NewRecorder()

	srv.ServeHTTP(w, httpReq)

	// Should still return 200, with error in the result
	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want %d\nBody: %s", w.Code, http.StatusOK, w.Body.String())
	}

	jsonData, _ := parseSSEResponse(w.Body.String())
	var resp jsonrpcResponse
	json.Unmarshal(jsonData, &resp)
	if resp.Error == nil && !strings.Contains(string(resp.Result), `"isError":true`) {
		t.Errorf("missing product_id accepted: %s", string(jsonData))
	}
}

// setMCPHeaders sets the required headers for MCP Streamable HTTP requests.
func setMCPHeaders(req *http.Request, sessionID string) {
	req.Header.Set("Content-Type", "application/json")
	// MCP Streamable HTTP requires Accept header with both json and event-stream
	req.Header.Set("Accept", "application/json, text/event-stream")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
}

// parseSSEResponse extracts JSON data from SSE formatted response.
// SSE format: "event: message\ndata: {json}\n\n"
func parseSSEResponse(body string) ([]byte, error) {
	lines := strings.Split(body, "\n")
	for _, line := range lines {
		if strings.HasPrefix(line, "data: ") {
			return []byte(strings.TrimPrefix(line, "data: ")), nil
		}
	}
	// If no SSE format found, assume plain JSON
	return []byte(body), nil
}

// initMCPSession initializes an MCP session and returns the session ID.
func initMCPSession(t *testing.T, mux http.Handler) string {
	t.Helper()

	initReq := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2026-01-11",
			"clientInfo":      map[string]string{"name": "test", "version": "1.0"},
			"capabilities":    map[string]interface{}{},
		},
	}

	body, _ := json.Marshal(initReq)
	httpReq := httptest.NewRequest("POST", "/mcp", bytes.NewReader(body))
	setMCPHeaders(httpReq, "")
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, httpReq)

	if w.Code != http.StatusOK {
		t.Fatalf("Failed to initialize MCP session: %s", w.Body.String())
	}

	return w.Header().Get("Mcp-Session-Id")
}

func TestMCPSessionIDNormalization(t *testing.T) {
	offline := uuid.NewString()

	tests := []struct {
		name     string
		id       string
		wantID   string
		wantWarn bool
	}{
		{"upper-case uuid", strings.ToUpper(offline), offline, false},
		{"canonical uuid", offline, offline, false},
		{"malformed id", "cart-123", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			h := New(session.NewManager(testBackend(), session.Options{}, logger), logger)

			s, err := h.mcpSession(tt.id)
			if err != nil {
				t.Fatalf("mcpSession: %v", err)
			}
			if tt.wantID != "" && s.ID != tt.wantID {
				t.Errorf("session id = %s, want %s", s.ID, tt.wantID)
			}
			warned := strings.Contains(buf.String(), "replaced malformed mcp session id")
			if warned != tt.wantWarn {
				t.Errorf("warned = %v, want %v: %s", warned, tt.wantWarn, buf.String())
			}
		})
	}
}
