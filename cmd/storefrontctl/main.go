// storefrontctl is a CLI for exercising the storefront gateway by hand.
// Each command performs a single operation; the session id the gateway
// hands out is remembered in a file so consecutive commands share a cart.
//
// Commands:
//
//	storefrontctl products [-category NAME] [-limit N]
//	storefrontctl product -id ID
//	storefrontctl add -product ID
//	storefrontctl update -product ID -qty N
//	storefrontctl remove -product ID
//	storefrontctl cart
//	storefrontctl clear
//	storefrontctl login -email EMAIL -password PASSWORD
//	storefrontctl register -email EMAIL -password PASSWORD -first NAME -last NAME
//	storefrontctl logout
//	storefrontctl checkout [-payment METHOD] [-address TEXT]
//	storefrontctl orders
//	storefrontctl order -id ID
//
// Examples:
//
//	storefrontctl add -gateway http://localhost:8080 -product m-1
//	storefrontctl login -email jo@example.com -password secret
//	storefrontctl checkout -payment card
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"stylehub/internal/model"
	"stylehub/internal/session"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Common flags (apply to all commands)
var (
	gatewayURL  string
	sessionFile string
	apiVersion  string
	currency    string
	quiet       bool
	noColor     bool
	verbose     bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

type command struct {
	usage string
	run   func(fs *flag.FlagSet, args []string)
}

var commands = map[string]command{
	"products": {"[-category NAME] [-limit N]", runProducts},
	"product":  {"-id ID", runProduct},
	"add":      {"-product ID", runAdd},
	"update":   {"-product ID -qty N", runUpdate},
	"remove":   {"-product ID", runRemove},
	"cart":     {"", runCart},
	"clear":    {"", runClear},
	"login":    {"-email EMAIL -password PASSWORD", runLogin},
	"register": {"-email EMAIL -password PASSWORD -first NAME -last NAME", runRegister},
	"logout":   {"", runLogout},
	"checkout": {"[-payment METHOD] [-address TEXT]", runCheckout},
	"orders":   {"", runOrders},
	"order":    {"-id ID", runOrder},
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	name := os.Args[1]
	switch name {
	case "-h", "-help", "--help", "help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&gatewayURL, "gateway", envOr("STOREFRONT_URL", "http://localhost:8080"), "Gateway base URL")
	fs.StringVar(&sessionFile, "session-file", envOr("STOREFRONT_SESSION_FILE", ".storefront-session"), "File remembering the session id")
	fs.StringVar(&apiVersion, "api-version", "v1.0.0", "API version sent in the session header")
	fs.StringVar(&currency, "currency", "₹", "Currency symbol for amounts")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - print results only")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: storefrontctl %s %s [options]\n\nOptions:\n", name, cmd.usage)
		fs.PrintDefaults()
	}
	cmd.run(fs, os.Args[2:])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `storefrontctl - StyleHub storefront gateway client

Usage:
  storefrontctl <command> [options]

Commands:
  products  List products, optionally by category
  product   Show one product
  add       Add a product to the cart
  update    Set a cart line's quantity (0 removes it)
  remove    Remove a cart line
  cart      Show the cart
  clear     Empty the cart
  login     Sign the session in
  register  Create an account and sign in
  logout    Sign the session out
  checkout  Place an order for the cart
  orders    List your orders
  order     Show one order with its items

The session id is kept in .storefront-session; delete it to start over.
Run 'storefrontctl <command> -h' for command-specific options.
`)
}

func parse(fs *flag.FlagSet, args []string) {
	fs.Parse(args)
	if noColor {
		disableColors()
	}
}

// =============================================================================
// CATALOG
// =============================================================================

type product struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Brand    string       `json:"brand"`
	Price    model.Amount `json:"price"`
	Category string       `json:"category"`
}

func runProducts(fs *flag.FlagSet, args []string) {
	var category string
	var limit int
	fs.StringVar(&category, "category", "", "Filter by category")
	fs.IntVar(&limit, "limit", 0, "Maximum number of products (0 = all)")
	parse(fs, args)

	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Products []product `json:"products"`
		Count    int       `json:"count"`
	}
	if err := doRequest(http.MethodGet, path, nil, &resp); err != nil {
		fatal("Failed to list products: %v", err)
	}
	for _, p := range resp.Products {
		printProduct(p)
	}
	printInfo("%d products", resp.Count)
}

func runProduct(fs *flag.FlagSet, args []string) {
	var id string
	fs.StringVar(&id, "id", "", "Product ID (required)")
	parse(fs, args)
	if id == "" {
		fs.Usage()
		os.Exit(1)
	}

	var p product
	if err := doRequest(http.MethodGet, "/products/"+url.PathEscape(id), nil, &p); err != nil {
		fatal("Failed to get product: %v", err)
	}
	printProduct(p)
}

func printProduct(p product) {
	fmt.Printf("%s%-10s%s %s%s%s (%s, %s) %s\n",
		colorCyan, p.ID, colorReset, colorBold, p.Name, colorReset, p.Brand, p.Category,
		model.FormatAmount(p.Price, currency))
}

// =============================================================================
// CART
// =============================================================================

type cartView struct {
	Items []struct {
		product
		Quantity int `json:"quantity"`
	} `json:"items"`
	Subtotal  model.Amount `json:"subtotal"`
	ItemCount int          `json:"itemCount"`
}

func runAdd(fs *flag.FlagSet, args []string) {
	var id string
	fs.StringVar(&id, "product", "", "Product ID (required)")
	parse(fs, args)
	if id == "" {
		fs.Usage()
		os.Exit(1)
	}
	cartRequest(http.MethodPost, "/cart/items", map[string]string{"product_id": id}, "Added "+id)
}

func runUpdate(fs *flag.FlagSet, args []string) {
	var id string
	var qty int
	fs.StringVar(&id, "product", "", "Product ID (required)")
	fs.IntVar(&qty, "qty", -1, "New quantity (required, 0 removes)")
	parse(fs, args)
	if id == "" || qty < 0 {
		fs.Usage()
		os.Exit(1)
	}
	cartRequest(http.MethodPut, "/cart/items/"+url.PathEscape(id), map[string]int{"quantity": qty}, "Updated "+id)
}

func runRemove(fs *flag.FlagSet, args []string) {
	var id string
	fs.StringVar(&id, "product", "", "Product ID (required)")
	parse(fs, args)
	if id == "" {
		fs.Usage()
		os.Exit(1)
	}
	cartRequest(http.MethodDelete, "/cart/items/"+url.PathEscape(id), nil, "Removed "+id)
}

func runCart(fs *flag.FlagSet, args []string) {
	parse(fs, args)
	cartRequest(http.MethodGet, "/cart", nil, "")
}

func runClear(fs *flag.FlagSet, args []string) {
	parse(fs, args)
	cartRequest(http.MethodDelete, "/cart", nil, "Cart cleared")
}

func cartRequest(method, path string, body any, done string) {
	var c cartView
	if err := doRequest(method, path, body, &c); err != nil {
		fatal("Cart request failed: %v", err)
	}
	if done != "" {
		printSuccess("%s", done)
	}
	for _, item := range c.Items {
		fmt.Printf("  %s%-10s%s %-30s x%d  %s\n", colorCyan, item.ID, colorReset, item.Name,
			item.Quantity, model.FormatAmount(item.Price.Times(item.Quantity), currency))
	}
	fmt.Printf("  %sSubtotal:%s %s (%d items)\n", colorBold, colorReset,
		model.FormatAmount(c.Subtotal, currency), c.ItemCount)
}

// =============================================================================
// ACCOUNT
// =============================================================================

type account struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user"`
}

func runLogin(fs *flag.FlagSet, args []string) {
	var creds model.Credentials
	fs.StringVar(&creds.Email, "email", "", "Account email (required)")
	fs.StringVar(&creds.Password, "password", "", "Account password (required)")
	parse(fs, args)
	if creds.Email == "" || creds.Password == "" {
		fs.Usage()
		os.Exit(1)
	}
	accountRequest(http.MethodPost, "/auth/login", creds)
}

func runRegister(fs *flag.FlagSet, args []string) {
	var reg model.Registration
	fs.StringVar(&reg.Email, "email", "", "Account email (required)")
	fs.StringVar(&reg.Password, "password", "", "Account password (required)")
	fs.StringVar(&reg.FirstName, "first", "", "First name (required)")
	fs.StringVar(&reg.LastName, "last", "", "Last name (required)")
	parse(fs, args)
	if reg.Email == "" || reg.Password == "" || reg.FirstName == "" || reg.LastName == "" {
		fs.Usage()
		os.Exit(1)
	}
	accountRequest(http.MethodPost, "/auth/register", reg)
}

func runLogout(fs *flag.FlagSet, args []string) {
	parse(fs, args)
	accountRequest(http.MethodPost, "/auth/logout", nil)
}

func accountRequest(method, path string, body any) {
	var a account
	if err := doRequest(method, path, body, &a); err != nil {
		fatal("Account request failed: %v", err)
	}
	if !a.Authenticated || a.User == nil {
		printWarning("Signed out")
		return
	}
	printSuccess("Signed in as %s (user %d)", a.User.Email, a.User.ID)
}

// =============================================================================
// CHECKOUT
// =============================================================================

func runCheckout(fs *flag.FlagSet, args []string) {
	var req session.CheckoutRequest
	fs.StringVar(&req.PaymentMethod, "payment", "", "Payment method (gateway default if empty)")
	fs.StringVar(&req.ShippingAddress, "address", "", "Shipping address (gateway default if empty)")
	parse(fs, args)

	var conf model.OrderConfirmation
	if err := doRequest(http.MethodPost, "/checkout", req, &conf); err != nil {
		fatal("Checkout failed: %v", err)
	}
	if quiet {
		fmt.Println(conf.Order.ID)
		return
	}
	printSuccess("Order placed")
	fmt.Printf("  ID:     %s%s%s\n", colorCyan, conf.Order.ID, colorReset)
	fmt.Printf("  Total:  %s\n", model.FormatAmount(conf.Order.TotalAmount, currency))
	fmt.Printf("  Status: %s\n", conf.Order.Status)
}

func runOrders(fs *flag.FlagSet, args []string) {
	parse(fs, args)

	var resp struct {
		Orders []model.Order `json:"orders"`
	}
	if err := doRequest(http.MethodGet, "/orders", nil, &resp); err != nil {
		fatal("Failed to list orders: %v", err)
	}
	for _, o := range resp.Orders {
		fmt.Printf("%s%-12s%s %-10s %s  %s\n", colorCyan, o.ID, colorReset, o.Status,
			model.FormatAmount(o.TotalAmount, currency), o.CreatedAt)
	}
	printInfo("%d orders", len(resp.Orders))
}

func runOrder(fs *flag.FlagSet, args []string) {
	var id string
	fs.StringVar(&id, "id", "", "Order ID (required)")
	parse(fs, args)
	if id == "" {
		fs.Usage()
		os.Exit(1)
	}

	var o model.Order
	if err := doRequest(http.MethodGet, "/orders/"+url.PathEscape(id), nil, &o); err != nil {
		fatal("Failed to get order: %v", err)
	}
	fmt.Printf("%s%s%s %s  %s\n", colorCyan, o.ID, colorReset, o.Status, o.CreatedAt)
	for _, it := range o.Items {
		fmt.Printf("  %-10s %-30s x%-3d %s\n", it.ProductID, it.ProductName, it.Quantity,
			model.FormatAmount(it.ItemTotal, currency))
	}
	fmt.Printf("  Payment:  %s\n", o.PaymentMethod)
	fmt.Printf("  Ship to:  %s\n", o.ShippingAddress)
	fmt.Printf("  %sTotal:    %s%s\n", colorBold, model.FormatAmount(o.TotalAmount, currency), colorReset)
}

// =============================================================================
// HTTP CLIENT
// =============================================================================

// doRequest sends a request carrying the remembered session and decodes
// the JSON response into out. The session id from the response is saved.
func doRequest(method, path string, body, out any) error {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(gatewayURL, "/")+path, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	header, err := session.FormatSessionHeader(session.Header{ID: loadSessionID(), Version: apiVersion})
	if err != nil {
		return fmt.Errorf("building session header: %w", err)
	}
	req.Header.Set(session.HeaderName, header)

	if verbose {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if verbose {
		printResponse(resp.StatusCode, respBody, duration)
	}

	if raw := resp.Header.Get(session.HeaderName); raw != "" {
		if h, err := session.ParseSessionHeader(raw); err == nil && h.ID != "" {
			saveSessionID(h.ID)
		}
	}

	if resp.StatusCode >= 400 {
		return responseError(resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// responseError turns the gateway's error envelope into an error.
func responseError(status int, body []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Code == "" {
		return fmt.Errorf("HTTP %d: %s", status, string(body))
	}
	return fmt.Errorf("HTTP %d %s: %s", status, envelope.Error.Code, envelope.Error.Message)
}

func loadSessionID() string {
	data, err := os.ReadFile(sessionFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			printWarning("Ignoring session file: %v", err)
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveSessionID(id string) {
	if loadSessionID() == id {
		return
	}
	if err := os.WriteFile(sessionFile, []byte(id+"\n"), 0o600); err != nil {
		printWarning("Could not save session id: %v", err)
		return
	}
	printInfo("Session %s", id)
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}
	fmt.Println(pretty.String())
}

func printSuccess(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printWarning(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
	}
}

func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
