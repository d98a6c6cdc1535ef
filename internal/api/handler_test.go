package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	products []models.Product
}

func (s *stubSource) GetProducts(context.Context) ([]models.Product, error) {
	return s.products, nil
}

func (s *stubSource) GetProduct(_ context.Context, id string) (*models.Product, error) {
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, fmt.Errorf("product not found: %s", id)
}

type stubAuth struct {
	token   string
	fail    bool
	cleared bool
}

func (s *stubAuth) Login(_ context.Context, email, _ string) (*catalog.LoginResult, error) {
	if s.fail {
		return nil, fmt.Errorf("invalid credentials")
	}
	s.token = "tok-1"
	return &catalog.LoginResult{Token: "tok-1", User: catalog.User{ID: "u1", Email: email}}, nil
}

func (s *stubAuth) ClearToken() {
	s.cleared = true
	s.token = ""
}

func catalogFixture() []models.Product {
	return []models.Product{
		{ID: "p1", Name: "Oak Chair", Price: decimal.NewFromInt(40), CategoryID: "furniture"},
		{ID: "p2", Name: "Steel Desk", Price: decimal.NewFromInt(300), CategoryID: "office", Featured: true},
		{ID: "p3", Name: "Oak Table", Price: decimal.NewFromInt(45), CategoryID: "furniture"},
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *stubAuth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	source := &stubSource{products: catalogFixture()}
	carts := cart.NewManager(cart.NewMemoryStorage())
	storefront := service.NewStorefrontService(source, nil, carts, nil)
	auth := &stubAuth{}

	router := gin.New()
	NewHandler(storefront, auth).SetupRoutes(router)
	return router, auth
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestHealthAndReady(t *testing.T) {
	router, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/ready", "", nil).Code)
}

func TestListProductsWithFilters(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/products?search=oak&price=under-50&sort=price-low", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	var data struct {
		Products []models.Product `json:"products"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	require.Equal(t, 2, data.Total)
	assert.Equal(t, "Oak Chair", data.Products[0].Name)
	assert.Equal(t, "Oak Table", data.Products[1].Name)
}

func TestListProductsDefaultSortIsFeaturedFirst(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/products", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	var data struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	require.Len(t, data.Products, 3)
	assert.Equal(t, "Steel Desk", data.Products[0].Name)
}

func TestGetProduct(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/products/p1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/products/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, decodeEnvelope(t, w).Success)
}

func TestListCategories(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/products/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	var data struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, []string{"furniture", "office"}, data.Categories)
}

type cartData struct {
	Items []models.CartLine `json:"items"`
	Count int               `json:"count"`
	Total json.Number       `json:"total"`
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) cartData {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success)

	dec := json.NewDecoder(strings.NewReader(string(env.Data)))
	dec.UseNumber()
	var data cartData
	require.NoError(t, dec.Decode(&data))
	return data
}

func TestCartAddMergeAndTotals(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{"X-Session-ID": "s1"}

	w := doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p1","quantity":2}`, headers)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p1","quantity":3}`, headers)
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeCart(t, w)
	require.Len(t, data.Items, 1)
	assert.Equal(t, 5, data.Items[0].Quantity)
	assert.Equal(t, 5, data.Count)
	assert.Equal(t, "200", data.Total.String())
}

func TestCartAddUnknownProduct(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"nope","quantity":1}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCartSetQuantityToZeroRemoves(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{"X-Session-ID": "s1"}

	doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p1","quantity":2}`, headers)

	w := doRequest(router, http.MethodPatch, "/api/v1/cart/p1", `{"quantity":0}`, headers)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeCart(t, w)
	assert.Empty(t, data.Items)
	assert.Equal(t, 0, data.Count)
	assert.Equal(t, "0", data.Total.String())
}

func TestCartSessionsAreIsolated(t *testing.T) {
	router, _ := newTestRouter(t)

	doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p1","quantity":1}`,
		map[string]string{"X-Session-ID": "s1"})

	w := doRequest(router, http.MethodGet, "/api/v1/cart", "",
		map[string]string{"X-Session-ID": "s2"})
	data := decodeCart(t, w)
	assert.Empty(t, data.Items)
}

func TestCartRemoveAndClear(t *testing.T) {
	router, _ := newTestRouter(t)
	headers := map[string]string{"X-Session-ID": "s1"}

	doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p1","quantity":1}`, headers)
	doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p2","quantity":1}`, headers)

	w := doRequest(router, http.MethodDelete, "/api/v1/cart/p1", "", headers)
	data := decodeCart(t, w)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "p2", data.Items[0].ProductID)

	w = doRequest(router, http.MethodDelete, "/api/v1/cart", "", headers)
	data = decodeCart(t, w)
	assert.Empty(t, data.Items)
	assert.Equal(t, 0, data.Count)
}

func TestCartTotalRoundedToTwoPlaces(t *testing.T) {
	gin.SetMode(gin.TestMode)

	price, err := decimal.NewFromString("19.995")
	require.NoError(t, err)
	source := &stubSource{products: []models.Product{
		{ID: "p1", Name: "Widget", Price: price, CategoryID: "misc"},
	}}
	carts := cart.NewManager(cart.NewMemoryStorage())
	storefront := service.NewStorefrontService(source, nil, carts, nil)

	router := gin.New()
	NewHandler(storefront, &stubAuth{}).SetupRoutes(router)

	w := doRequest(router, http.MethodPost, "/api/v1/cart", `{"productId":"p1","quantity":1}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	data := decodeCart(t, w)
	assert.Equal(t, "20", data.Total.String(), "presentation rounds to two places")
}

func TestLoginAndLogout(t *testing.T) {
	router, auth := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"user@example.com","password":"hunter2"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	env := decodeEnvelope(t, w)
	require.True(t, env.Success)
	assert.Equal(t, "tok-1", auth.token)

	w = doRequest(router, http.MethodPost, "/api/v1/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, auth.cleared)
}

func TestLoginFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	source := &stubSource{products: catalogFixture()}
	carts := cart.NewManager(cart.NewMemoryStorage())
	storefront := service.NewStorefrontService(source, nil, carts, nil)

	router := gin.New()
	NewHandler(storefront, &stubAuth{fail: true}).SetupRoutes(router)

	w := doRequest(router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"user@example.com","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/auth/login", `{"email":"not-an-email"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
