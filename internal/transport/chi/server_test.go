package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/openstay/stayindex/internal/domain"
	"github.com/openstay/stayindex/internal/domain/search"
)

const (
	testPropertyID = "5f0c1a2b-3d4e-4f60-8192-a3b4c5d6e7f8"
	testUnitID     = "0b1c2d3e-4f50-4a6b-8c9d-0e1f2a3b4c5d"
)

type call struct {
	event      string
	propertyID string
	unitID     string
}

type fakeIndexer struct {
	calls      []call
	optimizeFn func() error
	rebuildFn  func() error
}

func (f *fakeIndexer) record(event, propertyID, unitID string) {
	f.calls = append(f.calls, call{event: event, propertyID: propertyID, unitID: unitID})
}

func (f *fakeIndexer) PropertyCreated(_ context.Context, id string) { f.record("property_created", id, "") }
func (f *fakeIndexer) PropertyUpdated(_ context.Context, id string) { f.record("property_updated", id, "") }
func (f *fakeIndexer) PropertyDeleted(_ context.Context, id string) { f.record("property_deleted", id, "") }
func (f *fakeIndexer) UnitCreated(_ context.Context, unitID, propertyID string) {
	f.record("unit_created", propertyID, unitID)
}
func (f *fakeIndexer) UnitUpdated(_ context.Context, unitID, propertyID string) {
	f.record("unit_updated", propertyID, unitID)
}
func (f *fakeIndexer) UnitDeleted(_ context.Context, unitID, propertyID string) {
	f.record("unit_deleted", propertyID, unitID)
}
func (f *fakeIndexer) AvailabilityChanged(_ context.Context, unitID, propertyID string, _ []domain.DateRange) {
	f.record("availability_changed", propertyID, unitID)
}
func (f *fakeIndexer) PricingRuleChanged(_ context.Context, unitID, propertyID string, _ []domain.PricingRule) {
	f.record("pricing_rule_changed", propertyID, unitID)
}
func (f *fakeIndexer) DynamicFieldChanged(_ context.Context, propertyID, name, _ string, _ bool) {
	f.record("dynamic_field_changed:"+name, propertyID, "")
}
func (f *fakeIndexer) Optimize(context.Context) error {
	if f.optimizeFn != nil {
		return f.optimizeFn()
	}
	return nil
}
func (f *fakeIndexer) Rebuild(context.Context) error {
	if f.rebuildFn != nil {
		return f.rebuildFn()
	}
	return nil
}

type fakeSearcher struct {
	page *search.Page
	err  error
}

func (f *fakeSearcher) Search(context.Context, *search.Request) (*search.Page, error) {
	return f.page, f.err
}

type fakeQueue struct{ depth int }

func (f *fakeQueue) Depth() int { return f.depth }

func newTestRouter(idx *fakeIndexer, s *fakeSearcher) http.Handler {
	r := chi.NewRouter()
	NewServer(idx, s, &fakeQueue{depth: 3}, zap.NewNop()).Routes(r)
	return r
}

func TestServer_Search(t *testing.T) {
	s := &fakeSearcher{page: &search.Page{TotalCount: 2, PageNumber: 1, PageSize: 20, TotalPages: 1}}
	router := newTestRouter(&fakeIndexer{}, s)

	req := httptest.NewRequest("POST", "/v1/search", strings.NewReader(`{"city":"Sana'a"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var page search.Page
	if err := json.NewDecoder(rr.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.TotalCount != 2 {
		t.Errorf("total = %d, want 2", page.TotalCount)
	}
}

func TestServer_Search_BadBody(t *testing.T) {
	router := newTestRouter(&fakeIndexer{}, &fakeSearcher{})

	req := httptest.NewRequest("POST", "/v1/search", strings.NewReader(`{not json`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_Search_EngineFailure(t *testing.T) {
	router := newTestRouter(&fakeIndexer{}, &fakeSearcher{err: errors.New("store corrupted")})

	req := httptest.NewRequest("POST", "/v1/search", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rr.Body.String(), "corrupted") {
		t.Error("internal error details must not leak to the client")
	}
}

func TestServer_PropertyEvent(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSearcher{})

	req := httptest.NewRequest("POST", "/v1/events/properties/"+testPropertyID+"/created", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	if len(idx.calls) != 1 || idx.calls[0].event != "property_created" || idx.calls[0].propertyID != testPropertyID {
		t.Errorf("calls = %+v", idx.calls)
	}
}

func TestServer_PropertyEvent_InvalidID(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSearcher{})

	req := httptest.NewRequest("POST", "/v1/events/properties/not-a-uuid/deleted", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if len(idx.calls) != 0 {
		t.Errorf("no event should be dispatched for an invalid id, got %+v", idx.calls)
	}
}

func TestServer_UnitEvent(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSearcher{})

	body := `{"propertyId":"` + testPropertyID + `"}`
	req := httptest.NewRequest("POST", "/v1/events/units/"+testUnitID+"/deleted", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	if len(idx.calls) != 1 || idx.calls[0].event != "unit_deleted" || idx.calls[0].unitID != testUnitID {
		t.Errorf("calls = %+v", idx.calls)
	}
}

func TestServer_UnitEvent_MissingPropertyID(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSearcher{})

	req := httptest.NewRequest("POST", "/v1/events/units/"+testUnitID+"/created", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_AvailabilityEvent(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSearcher{})

	body := `{"unitId":"` + testUnitID + `","propertyId":"` + testPropertyID + `",` +
		`"ranges":[{"start":"2026-06-01T00:00:00Z","end":"2026-06-30T00:00:00Z"}]}`
	req := httptest.NewRequest("POST", "/v1/events/availability", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("got %d, want %d: %s", rr.Code, http.StatusAccepted, rr.Body.String())
	}
	if len(idx.calls) != 1 || idx.calls[0].event != "availability_changed" {
		t.Errorf("calls = %+v", idx.calls)
	}
}

func TestServer_DynamicFieldEvent_RequiresName(t *testing.T) {
	idx := &fakeIndexer{}
	router := newTestRouter(idx, &fakeSearcher{})

	body := `{"propertyId":"` + testPropertyID + `","value":"sea","add":true}`
	req := httptest.NewRequest("POST", "/v1/events/dynamic-fields", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestServer_AdminRebuild_Failure(t *testing.T) {
	idx := &fakeIndexer{rebuildFn: func() error { return errors.New("schema init failed") }}
	router := newTestRouter(idx, &fakeSearcher{})

	req := httptest.NewRequest("POST", "/v1/admin/rebuild", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestServer_AdminOptimize(t *testing.T) {
	router := newTestRouter(&fakeIndexer{}, &fakeSearcher{})

	req := httptest.NewRequest("POST", "/v1/admin/optimize", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestServer_Health(t *testing.T) {
	router := newTestRouter(&fakeIndexer{}, &fakeSearcher{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" || resp.QueueDepth != 3 {
		t.Errorf("health = %+v", resp)
	}
}
