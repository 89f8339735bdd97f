// Package domain holds the denormalized index documents mirrored from the
// primary relational store, the source entities read from it, and the
// sentinel errors shared across layers. Documents are snapshots, not the
// source of truth: the relational store stays authoritative.
package domain

import "time"

// PropertyDocument is the denormalized search snapshot of a property.
// MinPrice <= MaxPrice holds whenever the property has units; UnitIDs and
// UnitsCount are kept in sync by the indexer; AmenityIDs contains only
// amenities marked available on the source property.
type PropertyDocument struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	NameLower        string            `json:"nameLower"`
	Description      string            `json:"description"`
	DescriptionLower string            `json:"descriptionLower"`
	City             string            `json:"city"`
	Address          string            `json:"address"`
	AddressLower     string            `json:"addressLower"`
	PropertyType     string            `json:"propertyType"`
	PropertyTypeID   string            `json:"propertyTypeId"`
	OwnerID          string            `json:"ownerId"`
	MinPrice         float64           `json:"minPrice"`
	MaxPrice         float64           `json:"maxPrice"`
	Currency         string            `json:"currency"`
	StarRating       int               `json:"starRating"`
	AverageRating    float64           `json:"averageRating"`
	ReviewsCount     int               `json:"reviewsCount"`
	ViewCount        int               `json:"viewCount"`
	BookingCount     int               `json:"bookingCount"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	MaxCapacity      int               `json:"maxCapacity"`
	UnitsCount       int               `json:"unitsCount"`
	IsActive         bool              `json:"isActive"`
	IsFeatured       bool              `json:"isFeatured"`
	IsApproved       bool              `json:"isApproved"`
	UnitIDs          []string          `json:"unitIds"`
	AmenityIDs       []string          `json:"amenityIds"`
	ServiceIDs       []string          `json:"serviceIds"`
	ImageURLs        []string          `json:"imageUrls"`
	DynamicFields    map[string]string `json:"dynamicFields"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// DateRange is a single available interval. Ranges are stored as received:
// not sorted, not merged. Consumers must handle overlaps defensively.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Covers reports whether the range fully contains [checkIn, checkOut].
func (r DateRange) Covers(checkIn, checkOut time.Time) bool {
	return !r.Start.After(checkIn) && !r.End.Before(checkOut)
}

// AvailabilityDocument holds the available date ranges of one unit.
// Its ID is the composite "propertyID_unitID".
type AvailabilityDocument struct {
	ID         string      `json:"id"`
	PropertyID string      `json:"propertyId"`
	UnitID     string      `json:"unitId"`
	Ranges     []DateRange `json:"ranges"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// AvailabilityID builds the composite document identifier.
func AvailabilityID(propertyID, unitID string) string {
	return propertyID + "_" + unitID
}

// PricingRule is a snapshot of one pricing rule (seasonal, weekend, special).
type PricingRule struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Price    float64   `json:"price"`
	RuleType string    `json:"ruleType"`
}

// PricingDocument holds the base price and rule snapshots of one unit.
// Its ID equals the unit ID.
type PricingDocument struct {
	ID         string        `json:"id"`
	PropertyID string        `json:"propertyId"`
	UnitID     string        `json:"unitId"`
	BasePrice  float64       `json:"basePrice"`
	Currency   string        `json:"currency"`
	Rules      []PricingRule `json:"rules"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// CityDocument is a membership document: the set of properties in one city.
// PropertyCount always equals len(PropertyIDs); the document is removed once
// the list empties.
type CityDocument struct {
	City          string    `json:"city"`
	PropertyCount int       `json:"propertyCount"`
	PropertyIDs   []string  `json:"propertyIds"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// AmenityDocument is a membership document keyed by amenity id, with the
// same count/list invariant and delete-on-empty rule as CityDocument.
type AmenityDocument struct {
	AmenityID     string    `json:"amenityId"`
	PropertyCount int       `json:"propertyCount"`
	PropertyIDs   []string  `json:"propertyIds"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DynamicFieldDocument is a membership document keyed by "name:value".
type DynamicFieldDocument struct {
	ID          string    `json:"id"`
	FieldName   string    `json:"fieldName"`
	FieldValue  string    `json:"fieldValue"`
	PropertyIDs []string  `json:"propertyIds"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// DynamicFieldID builds the "name:value" document identifier.
func DynamicFieldID(name, value string) string {
	return name + ":" + value
}
