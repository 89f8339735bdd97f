package indexer

import (
	"context"

	"github.com/openstay/stayindex/internal/domain"
)

// PropertyReader loads property data from the primary store.
type PropertyReader interface {
	GetProperty(ctx context.Context, id string) (*domain.Property, error)
	GetPropertyType(ctx context.Context, id string) (*domain.PropertyType, error)
	GetPropertyAmenities(ctx context.Context, propertyID string) ([]domain.PropertyAmenity, error)
	ListActivePropertyIDs(ctx context.Context) ([]string, error)
}

// UnitReader loads unit data from the primary store.
type UnitReader interface {
	GetUnit(ctx context.Context, id string) (*domain.Unit, error)
	GetUnitsByProperty(ctx context.Context, propertyID string) ([]domain.Unit, error)
}

// ResultCache is the slice of the search result cache the indexer needs:
// every mutation clears it so searches never serve stale pages.
type ResultCache interface {
	Clear()
}
