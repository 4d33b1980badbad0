package lookup

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newLookupContext(kind string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookups/"+kind, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("kind")
	c.SetParamValues(kind)
	return c, rec
}

func TestHandler_List(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	c, rec := newLookupContext("doctors")

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var items []Item
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 || items[1] != (Item{ID: 1, Name: "Dr. Smith"}) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_List_UnknownKind(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()))
	c, _ := newLookupContext("nurses")

	err := h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestHandler_List_StoreFailure(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("boom")
	h := NewHandler(NewService(repo))
	c, _ := newLookupContext("patients")

	err := h.List(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %v", err)
	}
}
