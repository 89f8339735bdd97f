// Package search executes multi-criteria queries against the property
// collection: a cheap SQL predicate shrinks the candidate set, then the
// expensive filters (amenity set, availability window, dynamic fields, geo
// radius) run in memory before sorting and pagination.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/cache"
	"github.com/openstay/stayindex/internal/domain"
	"github.com/openstay/stayindex/internal/domain/geo"
	"github.com/openstay/stayindex/internal/domain/search"
	"github.com/openstay/stayindex/internal/guard"
	"github.com/openstay/stayindex/internal/metrics"
	"github.com/openstay/stayindex/internal/store"
)

// Default page bounds when none are configured.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Engine runs searches against the index store behind the result cache.
type Engine struct {
	guard           *guard.Guard
	cache           *cache.Cache
	indexPath       string
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// NewEngine creates a search engine.
func NewEngine(g *guard.Guard, c *cache.Cache, indexPath string, logger *zap.Logger) *Engine {
	return &Engine{
		guard:           g,
		cache:           c,
		indexPath:       indexPath,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     MaxPageSize,
		logger:          logger,
	}
}

// WithPageSizes overrides the default and maximum page size.
func (e *Engine) WithPageSizes(defaultSize, maxSize int) *Engine {
	if defaultSize > 0 {
		e.defaultPageSize = defaultSize
	}
	if maxSize > 0 {
		e.maxPageSize = maxSize
	}
	return e
}

// Search runs one query. Cached results bypass the guard and the store
// entirely; uncached searches hold the guard so they never observe a
// half-applied logical mutation.
func (e *Engine) Search(ctx context.Context, req *search.Request) (*search.Page, error) {
	if req.HasGeo() && !geo.ValidateCoordinates(*req.Latitude, *req.Longitude) {
		return nil, fmt.Errorf("geo point out of range: %w", domain.ErrInvalidRequest)
	}
	req.Normalize(e.defaultPageSize, e.maxPageSize)
	key := req.CacheKey()
	if page := e.cache.Get(key); page != nil {
		return page, nil
	}

	if err := e.guard.Lock(ctx); err != nil {
		return nil, err
	}
	defer e.guard.Unlock()

	start := time.Now()
	page, err := e.query(ctx, req)
	if err != nil {
		e.logger.Error("search failed", zap.Error(err))
		return nil, err
	}
	metrics.ObserveSearch(time.Since(start).Seconds())

	e.cache.Set(key, page)
	e.logger.Debug("search executed",
		zap.Int("total", page.TotalCount),
		zap.Duration("took", time.Since(start)),
	)
	return page, nil
}

func (e *Engine) query(ctx context.Context, req *search.Request) (*search.Page, error) {
	st, err := store.Open(e.indexPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	docs, err := st.FilterProperties(ctx, store.PropertyFilter{
		Text:         req.Text,
		City:         req.City,
		PropertyType: req.PropertyType,
		MinPrice:     req.MinPrice,
		MaxPrice:     req.MaxPrice,
		MinRating:    req.MinRating,
		MinCapacity:  req.GuestsCount,
	})
	if err != nil {
		return nil, err
	}

	docs = filterAmenities(docs, req.AmenityIDs)
	if req.HasWindow() {
		docs, err = filterAvailability(ctx, st, docs, *req.CheckIn, *req.CheckOut)
		if err != nil {
			return nil, fmt.Errorf("availability filter: %w", err)
		}
	}
	docs = filterDynamicFields(docs, req.DynamicFields)
	if req.HasGeo() {
		docs = filterRadius(docs, *req.Latitude, *req.Longitude, req.Radius())
	}

	sortDocs(docs, req.SortBy)

	items := make([]search.Item, 0, len(docs))
	for _, d := range docs {
		items = append(items, search.ItemFromDocument(d))
	}
	return search.NewPage(items, req.PageNumber, req.PageSize), nil
}

// filterAmenities keeps properties whose amenity list is a superset of the
// required set.
func filterAmenities(docs []*domain.PropertyDocument, required []string) []*domain.PropertyDocument {
	if len(required) == 0 {
		return docs
	}
	out := docs[:0]
	for _, d := range docs {
		have := make(map[string]struct{}, len(d.AmenityIDs))
		for _, id := range d.AmenityIDs {
			have[id] = struct{}{}
		}
		all := true
		for _, id := range required {
			if _, ok := have[id]; !ok {
				all = false
				break
			}
		}
		if all {
			out = append(out, d)
		}
	}
	return out
}

// filterAvailability keeps properties with at least one unit whose range
// list fully covers [checkIn, checkOut]. Ranges may overlap and are not
// sorted; each is checked independently.
func filterAvailability(ctx context.Context, st *store.Store, docs []*domain.PropertyDocument, checkIn, checkOut time.Time) ([]*domain.PropertyDocument, error) {
	avail, err := st.ListAvailability(ctx)
	if err != nil {
		return nil, err
	}

	covered := make(map[string]bool)
	for _, a := range avail {
		if covered[a.PropertyID] {
			continue
		}
		for _, r := range a.Ranges {
			if r.Covers(checkIn, checkOut) {
				covered[a.PropertyID] = true
				break
			}
		}
	}

	out := docs[:0]
	for _, d := range docs {
		if covered[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

// filterDynamicFields keeps properties matching every name=value pair.
func filterDynamicFields(docs []*domain.PropertyDocument, filters map[string]string) []*domain.PropertyDocument {
	if len(filters) == 0 {
		return docs
	}
	out := docs[:0]
	for _, d := range docs {
		all := true
		for name, value := range filters {
			if d.DynamicFields[name] != value {
				all = false
				break
			}
		}
		if all {
			out = append(out, d)
		}
	}
	return out
}

// filterRadius keeps properties within radiusKm of the given point.
func filterRadius(docs []*domain.PropertyDocument, lat, lon, radiusKm float64) []*domain.PropertyDocument {
	out := docs[:0]
	for _, d := range docs {
		if geo.Haversine(lat, lon, d.Latitude, d.Longitude) <= radiusKm {
			out = append(out, d)
		}
	}
	return out
}

func sortDocs(docs []*domain.PropertyDocument, key string) {
	var less func(a, b *domain.PropertyDocument) bool
	switch key {
	case search.SortPriceAsc:
		less = func(a, b *domain.PropertyDocument) bool { return a.MinPrice < b.MinPrice }
	case search.SortPriceDesc:
		less = func(a, b *domain.PropertyDocument) bool { return a.MinPrice > b.MinPrice }
	case search.SortNewest:
		less = func(a, b *domain.PropertyDocument) bool { return a.CreatedAt.After(b.CreatedAt) }
	case search.SortPopularity:
		less = func(a, b *domain.PropertyDocument) bool {
			if a.BookingCount != b.BookingCount {
				return a.BookingCount > b.BookingCount
			}
			return a.ViewCount > b.ViewCount
		}
	default: // SortRating and anything unknown
		less = func(a, b *domain.PropertyDocument) bool {
			if a.AverageRating != b.AverageRating {
				return a.AverageRating > b.AverageRating
			}
			return a.ReviewsCount > b.ReviewsCount
		}
	}
	sort.SliceStable(docs, func(i, j int) bool { return less(docs[i], docs[j]) })
}
