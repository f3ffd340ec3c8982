package storefront

import (
	"net/http"
	"strconv"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/session"
)

// pathID parses a numeric path value such as {id}.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NotFound("storefront.path", name, r.PathValue(name))
	}
	return id, nil
}

// queryInt reads a positive integer query parameter, def when absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}

// formInt reads an integer form value, def when absent or malformed.
func formInt(r *http.Request, name string, def int) int {
	n, err := strconv.Atoi(r.PostFormValue(name))
	if err != nil {
		return def
	}
	return n
}

func sessionID(r *http.Request) string {
	return session.IDFromContext(r.Context())
}
