// Package address looks up Vietnamese administrative divisions
// (province, district, ward) for the checkout address form.
package address

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/atelier/internal/domain"
)

// DefaultBaseURL is the public division lookup service.
const DefaultBaseURL = "https://provinces.open-api.vn/api"

// Division is one province, district or ward.
type Division struct {
	Code int    `json:"code"`
	Name string `json:"name"`
}

// Names are the resolved display names of a selection.
type Names struct {
	Province string
	District string
	Ward     string
}

// Resolver checks a province/district/ward selection and returns its names.
type Resolver interface {
	Resolve(ctx context.Context, province, district, ward int) (Names, error)
}

// Lookup fetches divisions and caches them. Division lists change rarely,
// so entries live for the configured TTL.
type Lookup struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	cache map[string]cacheEntry
	group singleflight.Group
}

type cacheEntry struct {
	divisions []Division
	expires   time.Time
}

// NewLookup creates a lookup client.
func NewLookup(baseURL string, ttl time.Duration, httpClient *http.Client) *Lookup {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Lookup{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		ttl:        ttl,
		now:        time.Now,
		cache:      make(map[string]cacheEntry),
	}
}

// Provinces lists all provinces.
func (l *Lookup) Provinces(ctx context.Context) ([]Division, error) {
	return l.cached(ctx, "p", func(ctx context.Context) ([]Division, error) {
		var out []Division
		err := l.fetch(ctx, "address.provinces", "/p/", &out)
		return out, err
	})
}

// Districts lists the districts of a province.
func (l *Lookup) Districts(ctx context.Context, province int) ([]Division, error) {
	if province <= 0 {
		return nil, nil
	}
	return l.cached(ctx, "p/"+strconv.Itoa(province), func(ctx context.Context) ([]Division, error) {
		var out struct {
			Districts []Division `json:"districts"`
		}
		err := l.fetch(ctx, "address.districts", fmt.Sprintf("/p/%d?depth=2", province), &out)
		return out.Districts, err
	})
}

// Wards lists the wards of a district.
func (l *Lookup) Wards(ctx context.Context, district int) ([]Division, error) {
	if district <= 0 {
		return nil, nil
	}
	return l.cached(ctx, "d/"+strconv.Itoa(district), func(ctx context.Context) ([]Division, error) {
		var out struct {
			Wards []Division `json:"wards"`
		}
		err := l.fetch(ctx, "address.wards", fmt.Sprintf("/d/%d?depth=2", district), &out)
		return out.Wards, err
	})
}

// Resolve verifies that ward belongs to district and district to province,
// and returns their names. Mismatches are reported as field errors.
func (l *Lookup) Resolve(ctx context.Context, province, district, ward int) (Names, error) {
	const op = "address.resolve"
	var names Names

	provinces, err := l.Provinces(ctx)
	if err != nil {
		return names, err
	}
	p, ok := find(provinces, province)
	if !ok {
		return names, domain.NewValidationError(op, "province_code", "Please choose a province.")
	}

	districts, err := l.Districts(ctx, province)
	if err != nil {
		return names, err
	}
	d, ok := find(districts, district)
	if !ok {
		return names, domain.NewValidationError(op, "district_code", "Please choose a district in "+p.Name+".")
	}

	wards, err := l.Wards(ctx, district)
	if err != nil {
		return names, err
	}
	w, ok := find(wards, ward)
	if !ok {
		return names, domain.NewValidationError(op, "ward_code", "Please choose a ward in "+d.Name+".")
	}

	return Names{Province: p.Name, District: d.Name, Ward: w.Name}, nil
}

func find(list []Division, code int) (Division, bool) {
	for _, d := range list {
		if d.Code == code {
			return d, true
		}
	}
	return Division{}, false
}

func (l *Lookup) cached(ctx context.Context, key string, load func(context.Context) ([]Division, error)) ([]Division, error) {
	l.mu.RLock()
	e, ok := l.cache[key]
	l.mu.RUnlock()
	if ok && l.now().Before(e.expires) {
		return e.divisions, nil
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		divisions, err := load(ctx)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[key] = cacheEntry{divisions: divisions, expires: l.now().Add(l.ttl)}
		l.mu.Unlock()
		return divisions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Division), nil
}

func (l *Lookup) fetch(ctx context.Context, op, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+path, nil)
	if err != nil {
		return domain.Internal(err, op, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(err, domain.EUNAVAILABLE, op, "Address lookup is unavailable. Please try again.")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NotFound(op, "division", path)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.WrapError(fmt.Errorf("status %d: %s", resp.StatusCode, body), domain.EUNAVAILABLE, op, "Address lookup is unavailable. Please try again.")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Internal(err, op, "unexpected address lookup response")
	}
	return nil
}
