package pagination

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrInvalidParams is returned for a page or page size outside the accepted range.
var ErrInvalidParams = errors.New("invalid pagination parameters")

// Params holds 1-based pagination parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext extracts page and pageSize from the query string. Absent values
// fall back to the defaults; present values are parsed but not clamped, so
// out-of-range input is reported by Validate rather than silently corrected.
func FromContext(c echo.Context) (Params, error) {
	p := Params{Page: DefaultPage, PageSize: DefaultPageSize}

	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%w: page must be an integer", ErrInvalidParams)
		}
		p.Page = n
	}
	if raw := c.QueryParam("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, fmt.Errorf("%w: pageSize must be an integer", ErrInvalidParams)
		}
		p.PageSize = n
	}
	return p, nil
}

// Validate rejects non-positive pages, page sizes outside [1, MaxPageSize]
// and pages whose row window would not fit in an int.
func (p Params) Validate() error {
	if p.Page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidParams, p.Page)
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		return fmt.Errorf("%w: pageSize must be between 1 and %d, got %d", ErrInvalidParams, MaxPageSize, p.PageSize)
	}
	if p.Page-1 > (math.MaxInt-p.PageSize)/p.PageSize {
		return fmt.Errorf("%w: page %d is out of range", ErrInvalidParams, p.Page)
	}
	return nil
}

// Offset returns the number of rows to skip. Only meaningful after Validate.
func (p Params) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Limit returns the maximum number of rows for the page.
func (p Params) Limit() int {
	return p.PageSize
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.PageSize < total
}

// Page wraps one page of items with the total count across all pages.
type Page[T any] struct {
	Items    []T  `json:"items"`
	Total    int  `json:"total"`
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	HasMore  bool `json:"hasMore"`
}

// NewPage builds a page, normalising a nil item slice to an empty one so the
// JSON form is always an array.
func NewPage[T any](items []T, total int, p Params) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:    items,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		HasMore:  p.HasNext(total),
	}
}
