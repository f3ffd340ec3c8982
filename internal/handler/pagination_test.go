package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/atelier/internal/api"
)

func TestPaginate(t *testing.T) {
	next := "http://api/products/?page=3"
	prev := "http://api/products/?page=1"

	tests := []struct {
		name     string
		target   string
		page     int
		apiPage  api.Page
		wantPrev string
		wantNext string
	}{
		{
			name:     "middle page keeps filters",
			target:   "/products?search=linen&page=2",
			page:     2,
			apiPage:  api.Page{Count: 60, Next: &next, Previous: &prev},
			wantPrev: "/products?search=linen",
			wantNext: "/products?page=3&search=linen",
		},
		{
			name:     "first page",
			target:   "/admin/orders?status=pending",
			page:     0,
			apiPage:  api.Page{Count: 30, Next: &next},
			wantNext: "/admin/orders?page=2&status=pending",
		},
		{
			name:     "last page without filters",
			target:   "/admin/users?page=2",
			page:     2,
			apiPage:  api.Page{Count: 25, Previous: &prev},
			wantPrev: "/admin/users",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			got := Paginate(r, tt.page, tt.apiPage)
			assert.Equal(t, tt.wantPrev, got.Prev)
			assert.Equal(t, tt.wantNext, got.Next)
			assert.Equal(t, tt.apiPage.Count, got.Count)
			assert.GreaterOrEqual(t, got.Page, 1)
		})
	}
}
