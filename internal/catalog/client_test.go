package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second)
}

func TestLoginStoresToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user@example.com", body["email"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"token": "tok-123",
				"user":  map[string]string{"id": "u1", "email": "user@example.com"},
			},
		})
	})

	result, err := client.Login(context.Background(), "user@example.com", "hunter2")
	require.NoError(t, err)

	assert.Equal(t, "tok-123", result.Token)
	assert.Equal(t, "u1", result.User.ID)
	assert.Equal(t, "tok-123", client.Token(), "token slot updated after login")
}

func TestBearerHeaderAttachedWhenTokenSet(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"products": []interface{}{}},
		})
	})

	_, err := client.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "no token means no Authorization header")

	client.SetToken("tok-456")
	_, err = client.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-456", gotAuth)

	client.ClearToken()
	_, err = client.GetProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "logout clears the token slot")
}

func TestGetProducts(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"products": []map[string]interface{}{
					{"id": "p1", "name": "Lamp", "price": 19.5, "categoryId": "lighting", "featured": false},
					{"id": "p2", "name": "Desk", "price": 300, "categoryId": "furniture", "featured": true},
				},
			},
		})
	})

	products, err := client.GetProducts(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "Lamp", products[0].Name)
	assert.True(t, products[1].Featured)
	assert.Equal(t, "19.5", products[0].Price.String())
}

func TestGetProduct(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/p1", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": "p1", "name": "Lamp", "price": 19.5, "categoryId": "lighting"},
		})
	})

	product, err := client.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", product.Name)
}

func TestNonSuccessEnvelopeIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "invalid credentials",
		})
	})

	_, err := client.Login(context.Background(), "user@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.Empty(t, client.Token(), "failed login must not set a token")
}

func TestServerErrorIsAnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetProducts(context.Background())
	assert.Error(t, err)
}

func TestAddToCart(t *testing.T) {
	var got map[string]interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/cart", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})

	err := client.AddToCart(context.Background(), "p1", 2)
	require.NoError(t, err)
	assert.Equal(t, "p1", got["productId"])
	assert.Equal(t, float64(2), got["quantity"])
}
