package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultSession = "anonymous"

// Authenticator handles login against the upstream service and owns the
// process-wide session token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*catalog.LoginResult, error)
	ClearToken()
}

// Handler contains the HTTP handlers.
type Handler struct {
	storefront *service.StorefrontService
	auth       Authenticator
}

// NewHandler creates a new HTTP handler.
func NewHandler(storefront *service.StorefrontService, auth Authenticator) *Handler {
	return &Handler{
		storefront: storefront,
		auth:       auth,
	}
}

// SetupRoutes registers all routes on the router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.login)
		v1.POST("/auth/logout", h.logout)

		v1.GET("/products", h.listProducts)
		v1.GET("/products/categories", h.listCategories)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart", h.addToCart)
		v1.PATCH("/cart/:productId", h.setQuantity)
		v1.DELETE("/cart/:productId", h.removeFromCart)
		v1.DELETE("/cart", h.clearCart)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func sessionID(c *gin.Context) string {
	if id := c.GetHeader("X-Session-ID"); id != "" {
		return id
	}
	return defaultSession
}

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid login request")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Login failed")
		return
	}

	respondOK(c, http.StatusOK, result)
}

func (h *Handler) logout(c *gin.Context) {
	h.auth.ClearToken()
	respondOK(c, http.StatusOK, gin.H{"loggedOut": true})
}

// filterStateFromQuery maps list query parameters onto a FilterState.
// Unknown enum values fall back to defaults via Normalize.
func filterStateFromQuery(c *gin.Context) models.FilterState {
	state := models.FilterState{
		SearchTerm:  c.Query("search"),
		Category:    c.Query("category"),
		PriceBucket: c.Query("price"),
		SortKey:     c.Query("sort"),
	}
	return state.Normalize()
}

func (h *Handler) listProducts(c *gin.Context) {
	state := filterStateFromQuery(c)

	products, err := h.storefront.ListProducts(c.Request.Context(), state)
	if err != nil {
		respondError(c, http.StatusBadGateway, "Failed to load products")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
	})
}

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.storefront.Categories(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusBadGateway, "Failed to load categories")
		return
	}

	respondOK(c, http.StatusOK, gin.H{"categories": categories})
}

func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.storefront.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, http.StatusNotFound, "Product not found")
		return
	}

	respondOK(c, http.StatusOK, product)
}

// cartResponse renders a snapshot with the monetary total rounded to two
// places. Rounding happens only here, at the presentation edge.
func cartResponse(snapshot models.CartSnapshot) gin.H {
	return gin.H{
		"items": snapshot.Items,
		"count": snapshot.Count,
		"total": snapshot.Total.Round(2),
	}
}

func (h *Handler) getCart(c *gin.Context) {
	snapshot := h.storefront.GetCart(c.Request.Context(), sessionID(c))
	respondOK(c, http.StatusOK, cartResponse(snapshot))
}

type addToCartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot, err := h.storefront.AddToCart(c.Request.Context(), sessionID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, http.StatusNotFound, "Product not found")
		return
	}

	respondOK(c, http.StatusCreated, cartResponse(snapshot))
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) setQuantity(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	snapshot := h.storefront.SetQuantity(c.Request.Context(), sessionID(c), c.Param("productId"), req.Quantity)
	respondOK(c, http.StatusOK, cartResponse(snapshot))
}

func (h *Handler) removeFromCart(c *gin.Context) {
	snapshot := h.storefront.RemoveFromCart(c.Request.Context(), sessionID(c), c.Param("productId"))
	respondOK(c, http.StatusOK, cartResponse(snapshot))
}

func (h *Handler) clearCart(c *gin.Context) {
	snapshot := h.storefront.ClearCart(c.Request.Context(), sessionID(c))
	respondOK(c, http.StatusOK, cartResponse(snapshot))
}

// prometheusMiddleware records request counts and latency.
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
