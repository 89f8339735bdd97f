package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openstay/stayindex/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testPropertyDoc(id string) *domain.PropertyDocument {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.PropertyDocument{
		ID:               id,
		Name:             "Al Qasr Hotel",
		NameLower:        "al qasr hotel",
		Description:      "Downtown hotel",
		DescriptionLower: "downtown hotel",
		City:             "Sana'a",
		Address:          "Zubairi Street",
		AddressLower:     "zubairi street",
		PropertyType:     "hotel",
		PropertyTypeID:   "type-1",
		OwnerID:          "owner-1",
		MinPrice:         100,
		MaxPrice:         250,
		Currency:         "USD",
		StarRating:       4,
		AverageRating:    4.2,
		ReviewsCount:     18,
		Latitude:         15.3694,
		Longitude:        44.1910,
		MaxCapacity:      4,
		UnitsCount:       2,
		IsActive:         true,
		IsApproved:       true,
		UnitIDs:          []string{"u1", "u2"},
		AmenityIDs:       []string{"wifi", "pool"},
		ServiceIDs:       []string{},
		ImageURLs:        []string{"https://img/1.jpg"},
		DynamicFields:    map[string]string{"view": "sea"},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestStore_PropertyRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := testPropertyDoc("p1")
	require.NoError(t, s.UpsertProperty(ctx, doc))

	got, err := s.GetProperty(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, doc.Name, got.Name)
	require.Equal(t, doc.City, got.City)
	require.Equal(t, doc.UnitIDs, got.UnitIDs)
	require.Equal(t, doc.AmenityIDs, got.AmenityIDs)
	require.Equal(t, doc.DynamicFields, got.DynamicFields)
	require.Equal(t, doc.MinPrice, got.MinPrice)
	require.True(t, got.IsApproved)
	require.Equal(t, doc.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestStore_GetProperty_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetProperty(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_DeleteProperty(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertProperty(ctx, testPropertyDoc("p1")))
	require.NoError(t, s.DeleteProperty(ctx, "p1"))
	_, err := s.GetProperty(ctx, "p1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is a no-op, not an error.
	require.NoError(t, s.DeleteProperty(ctx, "p1"))
}

func TestStore_FilterProperties(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := testPropertyDoc("a")
	b := testPropertyDoc("b")
	b.City = "Aden"
	b.NameLower = "coral beach resort"
	b.MinPrice = 300
	b.AverageRating = 3.1
	b.MaxCapacity = 8
	c := testPropertyDoc("c")
	c.IsApproved = false

	for _, doc := range []*domain.PropertyDocument{a, b, c} {
		require.NoError(t, s.UpsertProperty(ctx, doc))
	}

	// Unapproved properties never surface.
	all, err := s.FilterProperties(ctx, PropertyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	byCity, err := s.FilterProperties(ctx, PropertyFilter{City: "Aden"})
	require.NoError(t, err)
	require.Len(t, byCity, 1)
	require.Equal(t, "b", byCity[0].ID)

	byText, err := s.FilterProperties(ctx, PropertyFilter{Text: "Coral"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	require.Equal(t, "b", byText[0].ID)

	maxPrice := 150.0
	cheap, err := s.FilterProperties(ctx, PropertyFilter{MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	require.Equal(t, "a", cheap[0].ID)

	minRating := 4.0
	rated, err := s.FilterProperties(ctx, PropertyFilter{MinRating: &minRating})
	require.NoError(t, err)
	require.Len(t, rated, 1)
	require.Equal(t, "a", rated[0].ID)

	guests := 6
	roomy, err := s.FilterProperties(ctx, PropertyFilter{MinCapacity: &guests})
	require.NoError(t, err)
	require.Len(t, roomy, 1)
	require.Equal(t, "b", roomy[0].ID)
}

func TestStore_FilterProperties_TextMatchesNonASCIIAddress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// LIKE is case-insensitive for ASCII only, so both sides of the address
	// comparison must be lowercased in Go.
	doc := testPropertyDoc("p1")
	doc.Address = "Şehit Nevres Bulvarı"
	doc.AddressLower = strings.ToLower(doc.Address)
	require.NoError(t, s.UpsertProperty(ctx, doc))

	byText, err := s.FilterProperties(ctx, PropertyFilter{Text: "ŞEHIT"})
	require.NoError(t, err)
	require.Len(t, byText, 1)
	require.Equal(t, "p1", byText[0].ID)
}

func TestStore_AvailabilityRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &domain.AvailabilityDocument{
		ID:         domain.AvailabilityID("p1", "u1"),
		PropertyID: "p1",
		UnitID:     "u1",
		Ranges: []domain.DateRange{
			{Start: now, End: now.AddDate(0, 1, 0)},
		},
		UpdatedAt: now,
	}
	require.NoError(t, s.UpsertAvailability(ctx, doc))

	got, err := s.GetAvailabilityByUnit(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, doc.ID, got.ID)
	require.Len(t, got.Ranges, 1)

	require.NoError(t, s.DeleteAvailabilityByProperty(ctx, "p1"))
	_, err = s.GetAvailabilityByUnit(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_PurgeStaleAvailability(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := &domain.AvailabilityDocument{
		ID: "p1_u1", PropertyID: "p1", UnitID: "u1",
		UpdatedAt: now.AddDate(0, 0, -120),
	}
	fresh := &domain.AvailabilityDocument{
		ID: "p1_u2", PropertyID: "p1", UnitID: "u2",
		UpdatedAt: now,
	}
	require.NoError(t, s.UpsertAvailability(ctx, stale))
	require.NoError(t, s.UpsertAvailability(ctx, fresh))

	n, err := s.PurgeStaleAvailability(ctx, now.AddDate(0, 0, -90))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = s.GetAvailabilityByUnit(ctx, "u1")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetAvailabilityByUnit(ctx, "u2")
	require.NoError(t, err)
}

func TestStore_PricingRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for i, unit := range []string{"u1", "u2"} {
		doc := &domain.PricingDocument{
			ID: unit, PropertyID: "p1", UnitID: unit,
			BasePrice: float64(100 * (i + 1)), Currency: "USD",
			Rules: []domain.PricingRule{
				{Start: now, End: now.AddDate(0, 0, 7), Price: 90, RuleType: "weekend"},
			},
			UpdatedAt: now,
		}
		require.NoError(t, s.UpsertPricing(ctx, doc))
	}

	docs, err := s.ListPricingByProperty(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	got, err := s.GetPricing(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 100.0, got.BasePrice)
	require.Len(t, got.Rules, 1)
	require.Equal(t, "weekend", got.Rules[0].RuleType)

	require.NoError(t, s.DeletePricing(ctx, "u1"))
	docs, err = s.ListPricingByProperty(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	require.NoError(t, s.DeletePricingByProperty(ctx, "p1"))
	docs, err = s.ListPricingByProperty(ctx, "p1")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestStore_MembershipDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	city := &domain.CityDocument{
		City: "Sana'a", PropertyCount: 1, PropertyIDs: []string{"p1"}, UpdatedAt: now,
	}
	require.NoError(t, s.PutCity(ctx, city))
	gotCity, err := s.GetCity(ctx, "Sana'a")
	require.NoError(t, err)
	require.Equal(t, 1, gotCity.PropertyCount)
	require.Equal(t, []string{"p1"}, gotCity.PropertyIDs)

	require.NoError(t, s.DeleteCity(ctx, "Sana'a"))
	_, err = s.GetCity(ctx, "Sana'a")
	require.ErrorIs(t, err, domain.ErrNotFound)

	amenity := &domain.AmenityDocument{
		AmenityID: "wifi", PropertyCount: 2, PropertyIDs: []string{"p1", "p2"}, UpdatedAt: now,
	}
	require.NoError(t, s.PutAmenity(ctx, amenity))
	gotAmenity, err := s.GetAmenity(ctx, "wifi")
	require.NoError(t, err)
	require.Equal(t, 2, gotAmenity.PropertyCount)

	field := &domain.DynamicFieldDocument{
		ID: domain.DynamicFieldID("view", "sea"), FieldName: "view", FieldValue: "sea",
		PropertyIDs: []string{"p1"}, UpdatedAt: now,
	}
	require.NoError(t, s.PutDynamicField(ctx, field))
	gotField, err := s.GetDynamicField(ctx, "view:sea")
	require.NoError(t, err)
	require.Equal(t, "view", gotField.FieldName)
	require.Equal(t, "sea", gotField.FieldValue)

	require.NoError(t, s.DeleteDynamicField(ctx, "view:sea"))
	_, err = s.GetDynamicField(ctx, "view:sea")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_Compact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.UpsertProperty(ctx, testPropertyDoc(id)))
	}
	require.NoError(t, s.DeleteProperty(ctx, "p2"))
	require.NoError(t, s.Compact(ctx))

	n, err := s.CountProperties(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
