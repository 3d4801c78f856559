// Package config handles loading and validation of gateway configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"golang.org/x/mod/semver"

	"stylehub/internal/services"
	"stylehub/internal/session"
	"stylehub/internal/transport"
)

// Config holds all gateway configuration.
// Environment determines whether service settings load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// APIVersion is the Storefront-Session version the gateway speaks.
	APIVersion string

	// GCP settings (required in production)
	GCPProject string
	SecretID   string

	// Services holds the upstream service endpoints (loaded from secrets in production).
	Services ServicesConfig

	UpstreamTransport transport.Kind
	UpstreamTimeout   time.Duration

	SessionIdleTimeout time.Duration
	// AuthStorageDir keeps per-session auth state on disk. Empty keeps it in memory.
	AuthStorageDir string

	DefaultPaymentMethod   string
	DefaultShippingAddress string
}

// ServicesConfig contains the storefront service endpoints.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type ServicesConfig struct {
	ProductURL   string `json:"product_url"`
	UserURL      string `json:"user_url"`
	CartURL      string `json:"cart_url"`
	OrderURL     string `json:"order_url"`
	ServiceToken string `json:"service_token,omitempty"`
}

const (
	defaultPort            = "8080"
	defaultAPIVersion      = "v1.0.0"
	defaultSecretID        = "storefront-services"
	defaultUpstreamTimeout = 15 * time.Second
	defaultIdleTimeout     = 30 * time.Minute
	defaultPaymentMethod   = "cod"
	defaultShippingAddress = "Default address"
)

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all fields and returns an error if any are malformed.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// Otherwise, use ENV vars / Secret Manager approach
	cfg := &Config{
		Port:                   envOrDefault("PORT", defaultPort),
		Environment:            envOrDefault("ENVIRONMENT", "development"),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		APIVersion:             envOrDefault("API_VERSION", defaultAPIVersion),
		GCPProject:             os.Getenv("GCP_PROJECT"),
		SecretID:               envOrDefault("SECRET_ID", defaultSecretID),
		UpstreamTransport:      transport.Kind(envOrDefault("UPSTREAM_TRANSPORT", string(transport.Standard))),
		AuthStorageDir:         os.Getenv("AUTH_STORAGE_DIR"),
		DefaultPaymentMethod:   envOrDefault("DEFAULT_PAYMENT_METHOD", defaultPaymentMethod),
		DefaultShippingAddress: envOrDefault("DEFAULT_SHIPPING_ADDRESS", defaultShippingAddress),
	}

	var err error
	if cfg.UpstreamTimeout, err = durationEnv("UPSTREAM_TIMEOUT", defaultUpstreamTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = durationEnv("SESSION_IDLE_TIMEOUT", defaultIdleTimeout); err != nil {
		return nil, err
	}

	// Load service endpoints based on environment
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading services config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port               string         `json:"port"`
		Environment        string         `json:"environment"`
		LogLevel           string         `json:"log_level"`
		APIVersion         string         `json:"api_version"`
		Services           ServicesConfig `json:"services"`
		UpstreamTransport  string         `json:"upstream_transport"`
		UpstreamTimeout    string         `json:"upstream_timeout"`
		SessionIdleTimeout string         `json:"session_idle_timeout"`
		AuthStorageDir     string         `json:"auth_storage_dir"`
		Checkout           struct {
			PaymentMethod   string `json:"payment_method"`
			ShippingAddress string `json:"shipping_address"`
		} `json:"checkout"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:                   withDefault(fileConfig.Port, defaultPort),
		Environment:            withDefault(fileConfig.Environment, "development"),
		LogLevel:               withDefault(fileConfig.LogLevel, "info"),
		APIVersion:             withDefault(fileConfig.APIVersion, defaultAPIVersion),
		Services:               fileConfig.Services,
		UpstreamTransport:      transport.Kind(withDefault(fileConfig.UpstreamTransport, string(transport.Standard))),
		AuthStorageDir:         fileConfig.AuthStorageDir,
		DefaultPaymentMethod:   withDefault(fileConfig.Checkout.PaymentMethod, defaultPaymentMethod),
		DefaultShippingAddress: withDefault(fileConfig.Checkout.ShippingAddress, defaultShippingAddress),
	}

	if cfg.UpstreamTimeout, err = parseDuration("upstream_timeout", fileConfig.UpstreamTimeout, defaultUpstreamTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = parseDuration("session_idle_timeout", fileConfig.SessionIdleTimeout, defaultIdleTimeout); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches the service endpoints from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applyServicesSecret(result.Payload.Data)
}

// applyServicesSecret decodes a services secret payload.
// Endpoints missing from the secret keep the local defaults.
func (c *Config) applyServicesSecret(data []byte) error {
	c.loadFromEnv()
	if err := json.Unmarshal(data, &c.Services); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads service endpoints from individual environment variables.
// Defaults match the services' local development ports.
func (c *Config) loadFromEnv() {
	c.Services = ServicesConfig{
		ProductURL:   envOrDefault("PRODUCT_SERVICE_URL", "http://localhost:5001"),
		UserURL:      envOrDefault("USER_SERVICE_URL", "http://localhost:5002"),
		CartURL:      envOrDefault("CART_SERVICE_URL", "http://localhost:5003"),
		OrderURL:     envOrDefault("ORDER_SERVICE_URL", "http://localhost:5004"),
		ServiceToken: os.Getenv("SERVICE_TOKEN"),
	}
}

// validate checks that all configuration fields are well-formed.
func (c *Config) validate() error {
	endpoints := []struct {
		name  string
		value string
	}{
		{"product_url", c.Services.ProductURL},
		{"user_url", c.Services.UserURL},
		{"cart_url", c.Services.CartURL},
		{"order_url", c.Services.OrderURL},
	}
	for _, e := range endpoints {
		if e.value == "" {
			return fmt.Errorf("%s is required", e.name)
		}
		u, err := url.Parse(e.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", e.name, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid %s: %q is not an http(s) URL", e.name, e.value)
		}
	}

	if !c.UpstreamTransport.Valid() {
		return fmt.Errorf("unknown upstream transport %q (standard or chrome)", c.UpstreamTransport)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("session idle timeout must be positive")
	}
	if !semver.IsValid(c.APIVersion) {
		return fmt.Errorf("api version %q is not a semantic version", c.APIVersion)
	}

	return nil
}

// BuildServicesConfig creates the services client configuration,
// including the upstream transport.
func (c *Config) BuildServicesConfig() (services.Config, error) {
	rt, err := transport.New(c.UpstreamTransport, c.UpstreamTimeout)
	if err != nil {
		return services.Config{}, err
	}
	return services.Config{
		ProductURL:   strings.TrimSuffix(c.Services.ProductURL, "/"),
		UserURL:      strings.TrimSuffix(c.Services.UserURL, "/"),
		CartURL:      strings.TrimSuffix(c.Services.CartURL, "/"),
		OrderURL:     strings.TrimSuffix(c.Services.OrderURL, "/"),
		ServiceToken: c.Services.ServiceToken,
		Timeout:      c.UpstreamTimeout,
		Transport:    rt,
	}, nil
}

// BuildSessionOptions creates the session manager options.
func (c *Config) BuildSessionOptions() session.Options {
	storage := session.MemoryStorageFactory()
	if c.AuthStorageDir != "" {
		storage = session.FileStorageFactory(c.AuthStorageDir)
	}
	return session.Options{
		IdleTimeout: c.SessionIdleTimeout,
		Storage:     storage,
		Checkout: session.CheckoutDefaults{
			PaymentMethod:   c.DefaultPaymentMethod,
			ShippingAddress: c.DefaultShippingAddress,
		},
	}
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	return parseDuration(key, os.Getenv(key), defaultVal)
}

// parseDuration parses a Go duration string; empty means defaultVal.
func parseDuration(name, val string, defaultVal time.Duration) (time.Duration, error) {
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, val, err)
	}
	return d, nil
}
