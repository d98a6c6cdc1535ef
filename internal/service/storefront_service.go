package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/pipeline"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ProductSource supplies products from the upstream catalog.
type ProductSource interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// ProductCache is an optional read-through cache over the product list.
type ProductCache interface {
	Get(ctx context.Context) ([]models.Product, bool)
	Set(ctx context.Context, products []models.Product)
}

// CartEventPublisher publishes cart activity events.
type CartEventPublisher interface {
	PublishItemAdded(ctx context.Context, sessionID, productID string, quantity int) error
	PublishQuantityChanged(ctx context.Context, sessionID, productID string, quantity int) error
	PublishItemRemoved(ctx context.Context, sessionID, productID string) error
	PublishCleared(ctx context.Context, sessionID string) error
}

// StorefrontService combines the catalog, the filter/sort pipeline and the
// per-session cart stores. Event publishing is fire-and-forget: a publish
// failure never fails the cart mutation.
type StorefrontService struct {
	source    ProductSource
	cache     ProductCache
	carts     *cart.Manager
	publisher CartEventPublisher
	logger    *zap.Logger
}

// NewStorefrontService creates the service. cache and publisher may be nil.
func NewStorefrontService(
	source ProductSource,
	cache ProductCache,
	carts *cart.Manager,
	publisher CartEventPublisher,
) *StorefrontService {
	return &StorefrontService{
		source:    source,
		cache:     cache,
		carts:     carts,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// ListProducts returns the product list narrowed and ordered by the filter
// state. The upstream list is served from cache when possible.
func (s *StorefrontService) ListProducts(ctx context.Context, state models.FilterState) ([]models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StorefrontService.ListProducts")
	defer span.End()

	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := pipeline.Apply(products, state)
	util.PipelineDuration.Observe(time.Since(start).Seconds())

	return result, nil
}

// Categories returns the distinct category ids of the full product list.
func (s *StorefrontService) Categories(ctx context.Context) ([]string, error) {
	products, err := s.products(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.Categories(products), nil
}

// GetProduct returns one product by id.
func (s *StorefrontService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "StorefrontService.GetProduct")
	defer span.End()

	return s.source.GetProduct(ctx, id)
}

// AddToCart resolves the product and merges it into the session's cart.
func (s *StorefrontService) AddToCart(ctx context.Context, sessionID, productID string, quantity int) (models.CartSnapshot, error) {
	ctx, span := util.StartSpan(ctx, "StorefrontService.AddToCart")
	defer span.End()

	product, err := s.source.GetProduct(ctx, productID)
	if err != nil {
		return models.CartSnapshot{}, fmt.Errorf("failed to resolve product %s: %w", productID, err)
	}

	store := s.carts.Get(ctx, sessionID)
	store.Add(ctx, *product, quantity)

	if s.publisher != nil {
		if err := s.publisher.PublishItemAdded(ctx, sessionID, productID, models.NormalizeQuantity(quantity)); err != nil {
			s.logger.Warn("Failed to publish CartItemAdded event",
				zap.String("session_id", sessionID),
				zap.String("product_id", productID),
				zap.Error(err))
		}
	}

	return store.Snapshot(), nil
}

// SetQuantity sets a cart line's quantity; zero or less removes the line.
func (s *StorefrontService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) models.CartSnapshot {
	store := s.carts.Get(ctx, sessionID)
	store.SetQuantity(ctx, productID, quantity)

	if s.publisher != nil {
		if err := s.publisher.PublishQuantityChanged(ctx, sessionID, productID, quantity); err != nil {
			s.logger.Warn("Failed to publish CartQuantityChanged event",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	return store.Snapshot()
}

// RemoveFromCart removes a line from the session's cart.
func (s *StorefrontService) RemoveFromCart(ctx context.Context, sessionID, productID string) models.CartSnapshot {
	store := s.carts.Get(ctx, sessionID)
	store.Remove(ctx, productID)

	if s.publisher != nil {
		if err := s.publisher.PublishItemRemoved(ctx, sessionID, productID); err != nil {
			s.logger.Warn("Failed to publish CartItemRemoved event",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	return store.Snapshot()
}

// ClearCart empties the session's cart.
func (s *StorefrontService) ClearCart(ctx context.Context, sessionID string) models.CartSnapshot {
	store := s.carts.Get(ctx, sessionID)
	store.Clear(ctx)

	if s.publisher != nil {
		if err := s.publisher.PublishCleared(ctx, sessionID); err != nil {
			s.logger.Warn("Failed to publish CartCleared event",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	return store.Snapshot()
}

// GetCart returns the session's cart snapshot without mutating it.
func (s *StorefrontService) GetCart(ctx context.Context, sessionID string) models.CartSnapshot {
	return s.carts.Get(ctx, sessionID).Snapshot()
}

func (s *StorefrontService) products(ctx context.Context) ([]models.Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.Get(ctx); ok {
			return products, nil
		}
	}

	products, err := s.source.GetProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, products)
	}
	return products, nil
}
