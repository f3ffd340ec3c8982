package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/dukerupert/atelier/internal/address"
)

// ProvinceSource is the division lookup whose cache is kept warm.
type ProvinceSource interface {
	Provinces(ctx context.Context) ([]address.Division, error)
}

// WarmProvinces reloads the province list ahead of its cache expiry so the
// first address step after a restart or expiry does not wait on the lookup.
func WarmProvinces(src ProvinceSource, interval time.Duration) Job {
	return Job{
		Type:     JobTypeWarmProvinces,
		Interval: interval,
		Timeout:  15 * time.Second,
		Run: func(ctx context.Context) error {
			list, err := src.Provinces(ctx)
			if err != nil {
				return fmt.Errorf("failed to load provinces: %w", err)
			}
			if len(list) == 0 {
				return fmt.Errorf("province list is empty")
			}
			return nil
		},
	}
}
