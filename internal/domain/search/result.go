package search

import (
	"time"

	"github.com/openstay/stayindex/internal/domain"
)

// Item is the lightweight projection returned per matching property.
type Item struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	City          string            `json:"city"`
	PropertyType  string            `json:"propertyType"`
	MinPrice      float64           `json:"minPrice"`
	Currency      string            `json:"currency"`
	AverageRating float64           `json:"averageRating"`
	StarRating    int               `json:"starRating"`
	ImageURLs     []string          `json:"imageUrls"`
	MaxCapacity   int               `json:"maxCapacity"`
	UnitsCount    int               `json:"unitsCount"`
	DynamicFields map[string]string `json:"dynamicFields"`
	Latitude      float64           `json:"latitude"`
	Longitude     float64           `json:"longitude"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// ItemFromDocument projects a full index document onto the result shape.
func ItemFromDocument(d *domain.PropertyDocument) Item {
	return Item{
		ID:            d.ID,
		Name:          d.Name,
		City:          d.City,
		PropertyType:  d.PropertyType,
		MinPrice:      d.MinPrice,
		Currency:      d.Currency,
		AverageRating: d.AverageRating,
		StarRating:    d.StarRating,
		ImageURLs:     d.ImageURLs,
		MaxCapacity:   d.MaxCapacity,
		UnitsCount:    d.UnitsCount,
		DynamicFields: d.DynamicFields,
		Latitude:      d.Latitude,
		Longitude:     d.Longitude,
		CreatedAt:     d.CreatedAt,
	}
}

// Page is one page of search results with pagination totals.
type Page struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"totalCount"`
	PageNumber int    `json:"pageNumber"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}

// NewPage slices the full sorted result set for a 1-based page number and
// computes the totals.
func NewPage(all []Item, pageNumber, pageSize int) *Page {
	total := len(all)
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}

	start := (pageNumber - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &Page{
		Items:      all[start:end],
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
