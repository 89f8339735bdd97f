package indexer

import (
	"context"
	"errors"
	"time"

	"github.com/openstay/stayindex/internal/domain"
	"github.com/openstay/stayindex/internal/store"
)

// Membership documents are reference-counted lists of property ids. Adding
// is idempotent; removing deletes the document once the list empties so the
// count always equals the list length and empty documents never linger.

func addCityMembership(ctx context.Context, st *store.Store, city, propertyID string, now time.Time) error {
	if city == "" {
		return nil
	}
	doc, err := st.GetCity(ctx, city)
	if errors.Is(err, domain.ErrNotFound) {
		doc = &domain.CityDocument{City: city}
	} else if err != nil {
		return err
	}
	doc.PropertyIDs = appendUnique(doc.PropertyIDs, propertyID)
	doc.PropertyCount = len(doc.PropertyIDs)
	doc.UpdatedAt = now
	return st.PutCity(ctx, doc)
}

func removeCityMembership(ctx context.Context, st *store.Store, city, propertyID string, now time.Time) error {
	if city == "" {
		return nil
	}
	doc, err := st.GetCity(ctx, city)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	doc.PropertyIDs = removeString(doc.PropertyIDs, propertyID)
	if len(doc.PropertyIDs) == 0 {
		return st.DeleteCity(ctx, city)
	}
	doc.PropertyCount = len(doc.PropertyIDs)
	doc.UpdatedAt = now
	return st.PutCity(ctx, doc)
}

func addAmenityMembership(ctx context.Context, st *store.Store, amenityID, propertyID string, now time.Time) error {
	doc, err := st.GetAmenity(ctx, amenityID)
	if errors.Is(err, domain.ErrNotFound) {
		doc = &domain.AmenityDocument{AmenityID: amenityID}
	} else if err != nil {
		return err
	}
	doc.PropertyIDs = appendUnique(doc.PropertyIDs, propertyID)
	doc.PropertyCount = len(doc.PropertyIDs)
	doc.UpdatedAt = now
	return st.PutAmenity(ctx, doc)
}

func removeAmenityMembership(ctx context.Context, st *store.Store, amenityID, propertyID string, now time.Time) error {
	doc, err := st.GetAmenity(ctx, amenityID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	doc.PropertyIDs = removeString(doc.PropertyIDs, propertyID)
	if len(doc.PropertyIDs) == 0 {
		return st.DeleteAmenity(ctx, amenityID)
	}
	doc.PropertyCount = len(doc.PropertyIDs)
	doc.UpdatedAt = now
	return st.PutAmenity(ctx, doc)
}

func addDynamicFieldMembership(ctx context.Context, st *store.Store, name, value, propertyID string, now time.Time) error {
	id := domain.DynamicFieldID(name, value)
	doc, err := st.GetDynamicField(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		doc = &domain.DynamicFieldDocument{ID: id, FieldName: name, FieldValue: value}
	} else if err != nil {
		return err
	}
	doc.PropertyIDs = appendUnique(doc.PropertyIDs, propertyID)
	doc.UpdatedAt = now
	return st.PutDynamicField(ctx, doc)
}

func removeDynamicFieldMembership(ctx context.Context, st *store.Store, name, value, propertyID string, now time.Time) error {
	id := domain.DynamicFieldID(name, value)
	doc, err := st.GetDynamicField(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	doc.PropertyIDs = removeString(doc.PropertyIDs, propertyID)
	if len(doc.PropertyIDs) == 0 {
		return st.DeleteDynamicField(ctx, id)
	}
	doc.UpdatedAt = now
	return st.PutDynamicField(ctx, doc)
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
