// Package cart implements the cart store: an ordered collection of cart
// lines keyed by product id, with quantity-merge semantics, derived totals
// and best-effort persistence behind the Storage interface.
package cart

import (
	"context"
	"encoding/json"
	"sync"

	"storefront/internal/models"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Store is the authoritative cart for one session. In-memory state is the
// source of truth; persistence is best-effort durability across sessions.
// Methods are safe for concurrent use.
type Store struct {
	key     string
	storage Storage
	logger  *zap.Logger

	mu    sync.Mutex
	lines []models.CartLine
	index map[string]int
}

// NewStore creates an empty cart persisted under the given storage key.
func NewStore(key string, storage Storage) *Store {
	return &Store{
		key:     key,
		storage: storage,
		logger:  util.GetLogger(),
		index:   make(map[string]int),
	}
}

// Restore loads the persisted line collection. A missing or unreadable
// record degrades to an empty cart; Restore never fails the caller.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.storage.Load(ctx, s.key)
	if err != nil {
		if err != ErrNotFound {
			s.logger.Warn("Failed to load cart snapshot, starting empty",
				zap.String("key", s.key), zap.Error(err))
			util.CartRestoresTotal.WithLabelValues("error").Inc()
		} else {
			util.CartRestoresTotal.WithLabelValues("empty").Inc()
		}
		s.reset()
		return
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		s.logger.Warn("Corrupt cart snapshot, starting empty",
			zap.String("key", s.key), zap.Error(err))
		util.CartRestoresTotal.WithLabelValues("corrupt").Inc()
		s.reset()
		return
	}

	s.reset()
	for _, line := range lines {
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if _, ok := s.index[line.ProductID]; ok {
			continue
		}
		s.index[line.ProductID] = len(s.lines)
		s.lines = append(s.lines, line)
	}
	util.CartRestoresTotal.WithLabelValues("ok").Inc()
}

// Add merges quantity into an existing line for the product or appends a new
// line at the end. Repeated adds accumulate. The display snapshot is
// refreshed to the latest product data. Quantity is coerced to at least 1;
// stock is advisory and never enforced here.
func (s *Store) Add(ctx context.Context, product models.Product, quantity int) {
	quantity = models.NormalizeQuantity(quantity)

	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[product.ID]; ok {
		s.lines[pos].Quantity += quantity
		s.lines[pos].Name = product.Name
		s.lines[pos].Price = product.Price
		s.lines[pos].Image = product.PrimaryImage()
		s.lines[pos].Stock = product.Stock
	} else {
		s.index[product.ID] = len(s.lines)
		s.lines = append(s.lines, models.CartLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Image:     product.PrimaryImage(),
			Stock:     product.Stock,
			Quantity:  quantity,
		})
	}

	util.CartAddsTotal.Inc()
	s.persist(ctx)
}

// SetQuantity sets a line's quantity directly. A quantity of zero or less
// removes the line. An unknown product id is a no-op.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[productID]
	if !ok {
		return
	}

	if quantity <= 0 {
		s.removeAt(pos)
		util.CartRemovalsTotal.Inc()
	} else {
		s.lines[pos].Quantity = quantity
	}
	s.persist(ctx)
}

// Remove deletes the line for the product if present; no-op otherwise.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos, ok := s.index[productID]
	if !ok {
		return
	}
	s.removeAt(pos)
	util.CartRemovalsTotal.Inc()
	s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	util.CartClearsTotal.Inc()
	s.persist(ctx)
}

// Count returns the sum of all line quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Total returns the sum of price times quantity over all lines at full
// precision. Monetary rounding is applied only at the presentation edge.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total()
}

// Snapshot returns the ordered lines with derived aggregates. The returned
// slice is a copy; mutating it does not affect the store.
func (s *Store) Snapshot() models.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]models.CartLine, len(s.lines))
	copy(items, s.lines)

	count := 0
	for _, line := range s.lines {
		count += line.Quantity
	}

	return models.CartSnapshot{
		Items: items,
		Count: count,
		Total: s.total(),
	}
}

func (s *Store) total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// removeAt deletes the line at pos, preserving the order of the remainder.
func (s *Store) removeAt(pos int) {
	delete(s.index, s.lines[pos].ProductID)
	s.lines = append(s.lines[:pos], s.lines[pos+1:]...)
	for i := pos; i < len(s.lines); i++ {
		s.index[s.lines[i].ProductID] = i
	}
}

func (s *Store) reset() {
	s.lines = nil
	s.index = make(map[string]int)
}

// persist saves the line collection. Failures are logged and counted but the
// in-memory mutation stands; there is no retry and no rollback.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.lines)
	if err != nil {
		s.logger.Error("Failed to marshal cart lines", zap.Error(err))
		return
	}

	if err := s.storage.Save(ctx, s.key, data); err != nil {
		s.logger.Warn("Failed to persist cart snapshot",
			zap.String("key", s.key), zap.Error(err))
		util.CartPersistFailures.WithLabelValues(storageBackend(s.storage)).Inc()
	}
}

func storageBackend(s Storage) string {
	switch s.(type) {
	case *RedisStorage:
		return "redis"
	case *PostgresStorage:
		return "postgres"
	default:
		return "memory"
	}
}
