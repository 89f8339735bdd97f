// Package search defines the multi-criteria search request, the lightweight
// result projection and the paginated response shape.
package search

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sort keys accepted by the engine. An empty or unknown key falls back to
// SortRating.
const (
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortRating     = "rating"
	SortNewest     = "newest"
	SortPopularity = "popularity"
)

// DefaultRadiusKm applies when a geo point is supplied without a radius.
const DefaultRadiusKm = 50.0

// Request carries every search criterion. Pointer fields are optional
// filters; nil means "not supplied".
type Request struct {
	Text          string            `json:"text,omitempty"`
	City          string            `json:"city,omitempty"`
	PropertyType  string            `json:"propertyType,omitempty"`
	MinPrice      *float64          `json:"minPrice,omitempty"`
	MaxPrice      *float64          `json:"maxPrice,omitempty"`
	MinRating     *float64          `json:"minRating,omitempty"`
	GuestsCount   *int              `json:"guestsCount,omitempty"`
	AmenityIDs    []string          `json:"amenityIds,omitempty"`
	CheckIn       *time.Time        `json:"checkIn,omitempty"`
	CheckOut      *time.Time        `json:"checkOut,omitempty"`
	DynamicFields map[string]string `json:"dynamicFields,omitempty"`
	Latitude      *float64          `json:"latitude,omitempty"`
	Longitude     *float64          `json:"longitude,omitempty"`
	RadiusKm      *float64          `json:"radiusKm,omitempty"`
	SortBy        string            `json:"sortBy,omitempty"`
	PageNumber    int               `json:"pageNumber,omitempty"`
	PageSize      int               `json:"pageSize,omitempty"`
}

// Normalize fills paging defaults and clamps the page size.
func (r *Request) Normalize(defaultPageSize, maxPageSize int) {
	if r.PageNumber < 1 {
		r.PageNumber = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = defaultPageSize
	}
	if r.PageSize > maxPageSize {
		r.PageSize = maxPageSize
	}
}

// HasGeo reports whether a geo point was supplied.
func (r *Request) HasGeo() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Radius returns the requested radius or the default.
func (r *Request) Radius() float64 {
	if r.RadiusKm != nil {
		return *r.RadiusKm
	}
	return DefaultRadiusKm
}

// HasWindow reports whether both check-in and check-out were supplied.
func (r *Request) HasWindow() bool {
	return r.CheckIn != nil && r.CheckOut != nil
}

// CacheKey builds a deterministic key from every parameter that affects the
// result set. Set-valued parameters are sorted so that equivalent requests
// share a key.
func (r *Request) CacheKey() string {
	var b strings.Builder
	b.WriteString("search")
	writePart(&b, "text", strings.ToLower(r.Text))
	writePart(&b, "city", r.City)
	writePart(&b, "type", r.PropertyType)
	writeFloat(&b, "minp", r.MinPrice)
	writeFloat(&b, "maxp", r.MaxPrice)
	writeFloat(&b, "rating", r.MinRating)
	if r.GuestsCount != nil {
		writePart(&b, "guests", fmt.Sprintf("%d", *r.GuestsCount))
	}
	if len(r.AmenityIDs) > 0 {
		ids := append([]string(nil), r.AmenityIDs...)
		sort.Strings(ids)
		writePart(&b, "amenities", strings.Join(ids, ","))
	}
	if r.CheckIn != nil {
		writePart(&b, "in", fmt.Sprintf("%d", r.CheckIn.UnixNano()))
	}
	if r.CheckOut != nil {
		writePart(&b, "out", fmt.Sprintf("%d", r.CheckOut.UnixNano()))
	}
	if len(r.DynamicFields) > 0 {
		keys := make([]string, 0, len(r.DynamicFields))
		for k := range r.DynamicFields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writePart(&b, "df:"+k, r.DynamicFields[k])
		}
	}
	if r.HasGeo() {
		writePart(&b, "geo", fmt.Sprintf("%.6f,%.6f,%.2f", *r.Latitude, *r.Longitude, r.Radius()))
	}
	writePart(&b, "sort", r.SortBy)
	writePart(&b, "page", fmt.Sprintf("%d,%d", r.PageNumber, r.PageSize))
	return b.String()
}

func writePart(b *strings.Builder, name, value string) {
	b.WriteByte('|')
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)
}

func writeFloat(b *strings.Builder, name string, v *float64) {
	if v == nil {
		return
	}
	writePart(b, name, fmt.Sprintf("%g", *v))
}
