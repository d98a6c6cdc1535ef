// Package catalog talks to the remote catalog service. All responses use a
// {success, data} envelope; non-success envelopes and transport failures are
// surfaced as errors to the caller and never reach the cart store or the
// filter pipeline.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"
)

// Client issues requests against the upstream catalog service. A process-wide
// session token, set at login and cleared at logout, is attached as a bearer
// header on every request; without a token the header is omitted.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetToken stores the session token used for outgoing requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken drops the session token.
func (c *Client) ClearToken() {
	c.SetToken("")
}

// Token returns the current session token, empty if not logged in.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// User is the account profile returned by login.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// LoginResult carries the session token and user returned by login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Login authenticates against the upstream service and stores the returned
// token for subsequent requests.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	body := map[string]string{"email": email, "password": password}

	var result LoginResult
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &result); err != nil {
		util.CatalogRequestsTotal.WithLabelValues("login", "error").Inc()
		return nil, err
	}

	c.SetToken(result.Token)
	util.CatalogRequestsTotal.WithLabelValues("login", "ok").Inc()
	return &result, nil
}

type productsPayload struct {
	Products []models.Product `json:"products"`
}

// GetProducts fetches the full product list.
func (c *Client) GetProducts(ctx context.Context) ([]models.Product, error) {
	var payload productsPayload
	if err := c.do(ctx, http.MethodGet, "/products", nil, &payload); err != nil {
		util.CatalogRequestsTotal.WithLabelValues("get_products", "error").Inc()
		return nil, err
	}
	util.CatalogRequestsTotal.WithLabelValues("get_products", "ok").Inc()
	return payload.Products, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+id, nil, &product); err != nil {
		util.CatalogRequestsTotal.WithLabelValues("get_product", "error").Inc()
		return nil, err
	}
	util.CatalogRequestsTotal.WithLabelValues("get_product", "ok").Inc()
	return &product, nil
}

// GetCart fetches the server-side cart mirror. The mirror is not
// authoritative; the local cart store is.
func (c *Client) GetCart(ctx context.Context) (*models.CartSnapshot, error) {
	var snapshot models.CartSnapshot
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &snapshot); err != nil {
		util.CatalogRequestsTotal.WithLabelValues("get_cart", "error").Inc()
		return nil, err
	}
	util.CatalogRequestsTotal.WithLabelValues("get_cart", "ok").Inc()
	return &snapshot, nil
}

// AddToCart writes one cart addition to the server-side mirror.
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) error {
	body := map[string]interface{}{
		"productId": productID,
		"quantity":  quantity,
	}
	if err := c.do(ctx, http.MethodPost, "/cart", body, nil); err != nil {
		util.CatalogRequestsTotal.WithLabelValues("add_to_cart", "error").Inc()
		return err
	}
	util.CatalogRequestsTotal.WithLabelValues("add_to_cart", "ok").Inc()
	return nil
}

// do issues a request, decodes the envelope and unmarshals data into out.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("catalog service returned %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode catalog response: %w", err)
	}

	if !env.Success {
		if env.Message != "" {
			return fmt.Errorf("catalog request rejected: %s", env.Message)
		}
		return fmt.Errorf("catalog request rejected with status %d", resp.StatusCode)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode catalog payload: %w", err)
	}
	return nil
}
