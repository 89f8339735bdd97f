package domain

import "time"

// Property is the source entity read from the primary store. Amenities,
// Services, Images and ReviewsCount may be zero-valued when the caller did
// not load them; the indexer falls back to dedicated lookups in that case.
type Property struct {
	ID                string
	Name              string
	Description       string
	City              string
	Address           string
	TypeID            string
	TypeName          string
	OwnerID           string
	BasePricePerNight float64
	Currency          string
	StarRating        int
	AverageRating     float64
	ReviewsCount      int
	ViewCount         int
	BookingCount      int
	Latitude          float64
	Longitude         float64
	IsFeatured        bool
	IsApproved        bool
	CreatedAt         time.Time
	Amenities         []PropertyAmenity
	ServiceIDs        []string
	Images            []PropertyImage
}

// PropertyAmenity links a property to an amenity assignment.
type PropertyAmenity struct {
	AmenityID   string
	IsAvailable bool
}

// PropertyImage is a single gallery image; the main image sorts first.
type PropertyImage struct {
	URL    string
	IsMain bool
}

// PropertyType is a property classification (hotel, apartment, chalet...).
type PropertyType struct {
	ID   string
	Name string
}

// Unit is a bookable unit of a property.
type Unit struct {
	ID          string
	PropertyID  string
	Name        string
	BasePrice   float64
	Currency    string
	MaxCapacity int
}
