// Package indexer keeps the denormalized index consistent with the primary
// store. One handler per domain event; each acquires the process-wide
// mutation guard, reads whatever primary data it needs, and funnels the
// physical writes through the serialized write queue. Handlers log and
// swallow their own failures so index maintenance can never fail the domain
// operation that triggered it.
package indexer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/domain"
	"github.com/openstay/stayindex/internal/guard"
	"github.com/openstay/stayindex/internal/store"
	"github.com/openstay/stayindex/internal/writer"
)

// DefaultRetention is how long availability documents live without an
// update before the maintenance purge treats them as stale.
const DefaultRetention = 90 * 24 * time.Hour

// Service translates domain change events into index mutations.
type Service struct {
	guard      *guard.Guard
	queue      *writer.Queue
	properties PropertyReader
	units      UnitReader
	cache      ResultCache
	indexPath  string
	retention  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New creates the indexer service.
func New(g *guard.Guard, queue *writer.Queue, properties PropertyReader, units UnitReader, cache ResultCache, indexPath string, logger *zap.Logger) *Service {
	return &Service{
		guard:      g,
		queue:      queue,
		properties: properties,
		units:      units,
		cache:      cache,
		indexPath:  indexPath,
		retention:  DefaultRetention,
		logger:     logger,
		now:        time.Now,
	}
}

// WithRetention overrides the stale-availability retention window.
func (s *Service) WithRetention(d time.Duration) *Service {
	if d > 0 {
		s.retention = d
	}
	return s
}

// PropertyCreated indexes a newly created property.
func (s *Service) PropertyCreated(ctx context.Context, id string) {
	s.mutate(ctx, "property_created", []zap.Field{zap.String("property_id", id)},
		func(ctx context.Context) error { return s.indexProperty(ctx, id) })
}

// PropertyUpdated rebuilds the property document and adjusts only the
// membership documents whose city or amenity assignment changed. A property
// gone from the primary store delegates to deletion.
func (s *Service) PropertyUpdated(ctx context.Context, id string) {
	s.mutate(ctx, "property_updated", []zap.Field{zap.String("property_id", id)},
		func(ctx context.Context) error { return s.reindexProperty(ctx, id) })
}

// PropertyDeleted removes the property document, its membership references
// and its availability and pricing documents.
func (s *Service) PropertyDeleted(ctx context.Context, id string) {
	s.mutate(ctx, "property_deleted", []zap.Field{zap.String("property_id", id)},
		func(ctx context.Context) error { return s.removeProperty(ctx, id) })
}

// UnitCreated refreshes the unit-derived aggregates of the parent property
// and seeds the unit's pricing document.
func (s *Service) UnitCreated(ctx context.Context, unitID, propertyID string) {
	s.mutate(ctx, "unit_created", unitFields(unitID, propertyID),
		func(ctx context.Context) error { return s.syncUnit(ctx, unitID, propertyID) })
}

// UnitUpdated refreshes the unit-derived aggregates of the parent property.
func (s *Service) UnitUpdated(ctx context.Context, unitID, propertyID string) {
	s.mutate(ctx, "unit_updated", unitFields(unitID, propertyID),
		func(ctx context.Context) error { return s.syncUnit(ctx, unitID, propertyID) })
}

// UnitDeleted drops the unit's pricing and availability documents and
// recomputes the parent property's aggregates from the remaining siblings.
func (s *Service) UnitDeleted(ctx context.Context, unitID, propertyID string) {
	s.mutate(ctx, "unit_deleted", unitFields(unitID, propertyID),
		func(ctx context.Context) error { return s.removeUnit(ctx, unitID, propertyID) })
}

// AvailabilityChanged replaces the unit's available ranges wholesale.
func (s *Service) AvailabilityChanged(ctx context.Context, unitID, propertyID string, ranges []domain.DateRange) {
	s.mutate(ctx, "availability_changed", unitFields(unitID, propertyID),
		func(ctx context.Context) error {
			doc := &domain.AvailabilityDocument{
				ID:         domain.AvailabilityID(propertyID, unitID),
				PropertyID: propertyID,
				UnitID:     unitID,
				Ranges:     ranges,
				UpdatedAt:  s.now(),
			}
			return s.queue.Enqueue(ctx, "upsert availability "+doc.ID,
				func(ctx context.Context, st *store.Store) error {
					return st.UpsertAvailability(ctx, doc)
				})
		})
}

// PricingRuleChanged replaces the unit's pricing rule snapshots and
// recomputes the property-level price range from every pricing document
// under the property.
func (s *Service) PricingRuleChanged(ctx context.Context, unitID, propertyID string, rules []domain.PricingRule) {
	s.mutate(ctx, "pricing_rule_changed", unitFields(unitID, propertyID),
		func(ctx context.Context) error { return s.syncPricing(ctx, unitID, propertyID, rules) })
}

// DynamicFieldChanged updates the property's dynamic field map and the
// matching "name:value" membership document.
func (s *Service) DynamicFieldChanged(ctx context.Context, propertyID, name, value string, isAdd bool) {
	fields := []zap.Field{
		zap.String("property_id", propertyID),
		zap.String("field_name", name),
		zap.Bool("add", isAdd),
	}
	s.mutate(ctx, "dynamic_field_changed", fields,
		func(ctx context.Context) error { return s.syncDynamicField(ctx, propertyID, name, value, isAdd) })
}

// mutate runs one logical index mutation under the guard, clears the result
// cache, and swallows the error after logging it.
func (s *Service) mutate(ctx context.Context, event string, fields []zap.Field, fn func(context.Context) error) {
	fields = append(fields, zap.String("event", event))
	if err := s.guard.Lock(ctx); err != nil {
		s.logger.Warn("index mutation not started", append(fields, zap.Error(err))...)
		return
	}
	err := fn(ctx)
	s.guard.Unlock()

	s.cache.Clear()
	if err != nil {
		s.logger.Error("index mutation failed", append(fields, zap.Error(err))...)
		return
	}
	s.logger.Debug("index updated", fields...)
}

// indexProperty builds and inserts the property document and registers the
// property in its city and amenity membership documents. Guard must be held.
func (s *Service) indexProperty(ctx context.Context, id string) error {
	p, err := s.properties.GetProperty(ctx, id)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		s.logger.Debug("property gone from primary store, skipping", zap.String("property_id", id))
		return nil
	}
	if err != nil {
		return err
	}

	doc, err := s.buildDocument(ctx, p)
	if err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, "upsert property "+id,
		func(ctx context.Context, st *store.Store) error {
			return st.UpsertProperty(ctx, doc)
		}); err != nil {
		return err
	}

	now := s.now()
	return s.queue.Enqueue(ctx, "add memberships for property "+id,
		func(ctx context.Context, st *store.Store) error {
			if err := addCityMembership(ctx, st, doc.City, id, now); err != nil {
				return err
			}
			for _, amenityID := range doc.AmenityIDs {
				if err := addAmenityMembership(ctx, st, amenityID, id, now); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *Service) reindexProperty(ctx context.Context, id string) error {
	p, err := s.properties.GetProperty(ctx, id)
	if errors.Is(err, domain.ErrPropertyNotFound) {
		return s.removeProperty(ctx, id)
	}
	if err != nil {
		return err
	}

	old, err := s.readProperty(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return s.indexProperty(ctx, id)
	}

	doc, err := s.buildDocument(ctx, p)
	if err != nil {
		return err
	}
	// Dynamic fields live only in the index; carry them over.
	doc.DynamicFields = old.DynamicFields
	doc.CreatedAt = old.CreatedAt

	if err := s.queue.Enqueue(ctx, "upsert property "+id,
		func(ctx context.Context, st *store.Store) error {
			return st.UpsertProperty(ctx, doc)
		}); err != nil {
		return err
	}

	addedAmenities, removedAmenities := diffStrings(old.AmenityIDs, doc.AmenityIDs)
	cityChanged := old.City != doc.City
	if !cityChanged && len(addedAmenities) == 0 && len(removedAmenities) == 0 {
		return nil
	}

	now := s.now()
	return s.queue.Enqueue(ctx, "adjust memberships for property "+id,
		func(ctx context.Context, st *store.Store) error {
			if cityChanged {
				if err := removeCityMembership(ctx, st, old.City, id, now); err != nil {
					return err
				}
				if err := addCityMembership(ctx, st, doc.City, id, now); err != nil {
					return err
				}
			}
			for _, amenityID := range removedAmenities {
				if err := removeAmenityMembership(ctx, st, amenityID, id, now); err != nil {
					return err
				}
			}
			for _, amenityID := range addedAmenities {
				if err := addAmenityMembership(ctx, st, amenityID, id, now); err != nil {
					return err
				}
			}
			return nil
		})
}

func (s *Service) removeProperty(ctx context.Context, id string) error {
	old, err := s.readProperty(ctx, id)
	if err != nil {
		return err
	}

	now := s.now()
	return s.queue.Enqueue(ctx, "remove property "+id,
		func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteProperty(ctx, id); err != nil {
				return err
			}
			if old != nil {
				if err := removeCityMembership(ctx, st, old.City, id, now); err != nil {
					return err
				}
				for _, amenityID := range old.AmenityIDs {
					if err := removeAmenityMembership(ctx, st, amenityID, id, now); err != nil {
						return err
					}
				}
				for name, value := range old.DynamicFields {
					if err := removeDynamicFieldMembership(ctx, st, name, value, id, now); err != nil {
						return err
					}
				}
			}
			if err := st.DeleteAvailabilityByProperty(ctx, id); err != nil {
				return err
			}
			return st.DeletePricingByProperty(ctx, id)
		})
}

func (s *Service) syncUnit(ctx context.Context, unitID, propertyID string) error {
	u, err := s.units.GetUnit(ctx, unitID)
	if errors.Is(err, domain.ErrUnitNotFound) {
		s.logger.Debug("unit gone from primary store, skipping", zap.String("unit_id", unitID))
		return nil
	}
	if err != nil {
		return err
	}
	units, err := s.units.GetUnitsByProperty(ctx, propertyID)
	if err != nil {
		return err
	}

	now := s.now()
	return s.queue.Enqueue(ctx, "sync unit "+unitID,
		func(ctx context.Context, st *store.Store) error {
			// Seed or refresh the pricing document, preserving rule snapshots.
			var rules []domain.PricingRule
			pricing, err := st.GetPricing(ctx, unitID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if pricing != nil {
				rules = pricing.Rules
			}
			if err := st.UpsertPricing(ctx, &domain.PricingDocument{
				ID:         unitID,
				PropertyID: propertyID,
				UnitID:     unitID,
				BasePrice:  u.BasePrice,
				Currency:   u.Currency,
				Rules:      rules,
				UpdatedAt:  now,
			}); err != nil {
				return err
			}

			doc, err := st.GetProperty(ctx, propertyID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			applyUnitAggregates(doc, units)
			doc.UpdatedAt = now
			return st.UpsertProperty(ctx, doc)
		})
}

func (s *Service) removeUnit(ctx context.Context, unitID, propertyID string) error {
	remaining, err := s.units.GetUnitsByProperty(ctx, propertyID)
	if err != nil {
		return err
	}

	now := s.now()
	return s.queue.Enqueue(ctx, "remove unit "+unitID,
		func(ctx context.Context, st *store.Store) error {
			if err := st.DeletePricing(ctx, unitID); err != nil {
				return err
			}
			if err := st.DeleteAvailabilityByUnit(ctx, unitID); err != nil {
				return err
			}

			doc, err := st.GetProperty(ctx, propertyID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			doc.UnitIDs = removeString(doc.UnitIDs, unitID)
			doc.UnitsCount = len(doc.UnitIDs)
			maxCapacity := 0
			for _, u := range remaining {
				if u.MaxCapacity > maxCapacity {
					maxCapacity = u.MaxCapacity
				}
			}
			doc.MaxCapacity = maxCapacity

			// Recompute the price range from the surviving pricing documents.
			// With none left the previous range stands.
			prices, err := st.ListPricingByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			if len(prices) > 0 {
				doc.MinPrice, doc.MaxPrice = priceBounds(prices)
			}
			doc.UpdatedAt = now
			return st.UpsertProperty(ctx, doc)
		})
}

func (s *Service) syncPricing(ctx context.Context, unitID, propertyID string, rules []domain.PricingRule) error {
	now := s.now()
	return s.queue.Enqueue(ctx, "sync pricing "+unitID,
		func(ctx context.Context, st *store.Store) error {
			pricing, err := st.GetPricing(ctx, unitID)
			if errors.Is(err, domain.ErrNotFound) {
				u, uerr := s.units.GetUnit(ctx, unitID)
				if errors.Is(uerr, domain.ErrUnitNotFound) {
					return nil
				}
				if uerr != nil {
					return uerr
				}
				pricing = &domain.PricingDocument{
					ID:         unitID,
					PropertyID: propertyID,
					UnitID:     unitID,
					BasePrice:  u.BasePrice,
					Currency:   u.Currency,
				}
			} else if err != nil {
				return err
			}

			pricing.Rules = rules
			pricing.UpdatedAt = now
			if err := st.UpsertPricing(ctx, pricing); err != nil {
				return err
			}

			doc, err := st.GetProperty(ctx, propertyID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			prices, err := st.ListPricingByProperty(ctx, propertyID)
			if err != nil {
				return err
			}
			if len(prices) > 0 {
				doc.MinPrice, doc.MaxPrice = priceBounds(prices)
				doc.UpdatedAt = now
				return st.UpsertProperty(ctx, doc)
			}
			return nil
		})
}

func (s *Service) syncDynamicField(ctx context.Context, propertyID, name, value string, isAdd bool) error {
	now := s.now()
	return s.queue.Enqueue(ctx, "sync dynamic field "+domain.DynamicFieldID(name, value),
		func(ctx context.Context, st *store.Store) error {
			doc, err := st.GetProperty(ctx, propertyID)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if doc.DynamicFields == nil {
				doc.DynamicFields = map[string]string{}
			}

			if isAdd {
				if old, ok := doc.DynamicFields[name]; ok && old != value {
					if err := removeDynamicFieldMembership(ctx, st, name, old, propertyID, now); err != nil {
						return err
					}
				}
				doc.DynamicFields[name] = value
				if err := addDynamicFieldMembership(ctx, st, name, value, propertyID, now); err != nil {
					return err
				}
			} else {
				delete(doc.DynamicFields, name)
				if err := removeDynamicFieldMembership(ctx, st, name, value, propertyID, now); err != nil {
					return err
				}
			}

			doc.UpdatedAt = now
			return st.UpsertProperty(ctx, doc)
		})
}

// buildDocument denormalizes a source property into an index document,
// falling back to dedicated lookups for type and amenities when the caller
// supplied a partially loaded entity.
func (s *Service) buildDocument(ctx context.Context, p *domain.Property) (*domain.PropertyDocument, error) {
	typeName := p.TypeName
	if typeName == "" && p.TypeID != "" {
		t, err := s.properties.GetPropertyType(ctx, p.TypeID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if t != nil {
			typeName = t.Name
		}
	}

	amenities := p.Amenities
	if amenities == nil {
		var err error
		amenities, err = s.properties.GetPropertyAmenities(ctx, p.ID)
		if err != nil {
			return nil, err
		}
	}
	amenityIDs := make([]string, 0, len(amenities))
	for _, a := range amenities {
		if a.IsAvailable {
			amenityIDs = append(amenityIDs, a.AmenityID)
		}
	}

	units, err := s.units.GetUnitsByProperty(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	imageURLs := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		imageURLs = append(imageURLs, img.URL)
	}

	doc := &domain.PropertyDocument{
		ID:               p.ID,
		Name:             p.Name,
		NameLower:        strings.ToLower(p.Name),
		Description:      p.Description,
		DescriptionLower: strings.ToLower(p.Description),
		City:             p.City,
		Address:          p.Address,
		AddressLower:     strings.ToLower(p.Address),
		PropertyType:     typeName,
		PropertyTypeID:   p.TypeID,
		OwnerID:          p.OwnerID,
		MinPrice:         p.BasePricePerNight,
		MaxPrice:         p.BasePricePerNight,
		Currency:         p.Currency,
		StarRating:       p.StarRating,
		AverageRating:    p.AverageRating,
		ReviewsCount:     p.ReviewsCount,
		ViewCount:        p.ViewCount,
		BookingCount:     p.BookingCount,
		Latitude:         p.Latitude,
		Longitude:        p.Longitude,
		IsActive:         true,
		IsFeatured:       p.IsFeatured,
		IsApproved:       p.IsApproved,
		AmenityIDs:       amenityIDs,
		ServiceIDs:       p.ServiceIDs,
		ImageURLs:        imageURLs,
		DynamicFields:    map[string]string{},
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        s.now(),
	}
	applyUnitAggregates(doc, units)
	return doc, nil
}

// readProperty reads the current index document outside the write queue.
// Safe while the guard is held: no other logical mutation is in flight.
func (s *Service) readProperty(ctx context.Context, id string) (*domain.PropertyDocument, error) {
	st, err := store.Open(s.indexPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	doc, err := st.GetProperty(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// applyUnitAggregates refreshes the unit-derived fields from the full unit
// list. With no units the existing price range is left as is.
func applyUnitAggregates(doc *domain.PropertyDocument, units []domain.Unit) {
	ids := make([]string, 0, len(units))
	maxCapacity := 0
	var minPrice, maxPrice float64
	for i, u := range units {
		ids = append(ids, u.ID)
		if u.MaxCapacity > maxCapacity {
			maxCapacity = u.MaxCapacity
		}
		if i == 0 || u.BasePrice < minPrice {
			minPrice = u.BasePrice
		}
		if i == 0 || u.BasePrice > maxPrice {
			maxPrice = u.BasePrice
		}
	}

	doc.UnitIDs = ids
	doc.UnitsCount = len(ids)
	doc.MaxCapacity = maxCapacity
	if len(units) > 0 {
		doc.MinPrice = minPrice
		doc.MaxPrice = maxPrice
		if doc.Currency == "" {
			doc.Currency = units[0].Currency
		}
	}
}

// priceBounds returns the min and max base price of the given pricing
// documents. Rule prices are snapshots for display, not bounds: a seasonal
// discount never moves the property's advertised price range. Caller
// guarantees the slice is non-empty.
func priceBounds(prices []*domain.PricingDocument) (float64, float64) {
	minPrice, maxPrice := prices[0].BasePrice, prices[0].BasePrice
	for _, p := range prices {
		if p.BasePrice < minPrice {
			minPrice = p.BasePrice
		}
		if p.BasePrice > maxPrice {
			maxPrice = p.BasePrice
		}
	}
	return minPrice, maxPrice
}

func unitFields(unitID, propertyID string) []zap.Field {
	return []zap.Field{zap.String("unit_id", unitID), zap.String("property_id", propertyID)}
}

// diffStrings returns the elements added and removed going from old to new.
func diffStrings(old, new []string) (added, removed []string) {
	oldSet := make(map[string]struct{}, len(old))
	for _, v := range old {
		oldSet[v] = struct{}{}
	}
	newSet := make(map[string]struct{}, len(new))
	for _, v := range new {
		newSet[v] = struct{}{}
	}
	for _, v := range new {
		if _, ok := oldSet[v]; !ok {
			added = append(added, v)
		}
	}
	for _, v := range old {
		if _, ok := newSet[v]; !ok {
			removed = append(removed, v)
		}
	}
	return added, removed
}

func removeString(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}
