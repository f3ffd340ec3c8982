package handler

import (
	"net/http"
	"strconv"

	"github.com/dukerupert/atelier/internal/api"
)

// Pagination is what the pager partial renders. Prev and Next are empty
// when there is no such page.
type Pagination struct {
	Page  int
	Count int
	Prev  string
	Next  string
}

// Paginate builds pager links that keep the request's other query parameters.
func Paginate(r *http.Request, page int, p api.Page) Pagination {
	if page < 1 {
		page = 1
	}
	link := func(n int) string {
		q := r.URL.Query()
		if n <= 1 {
			q.Del("page")
		} else {
			q.Set("page", strconv.Itoa(n))
		}
		if len(q) == 0 {
			return r.URL.Path
		}
		return r.URL.Path + "?" + q.Encode()
	}

	out := Pagination{Page: page, Count: p.Count}
	if p.HasPrevious() && page > 1 {
		out.Prev = link(page - 1)
	}
	if p.HasNext() {
		out.Next = link(page + 1)
	}
	return out
}
