package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ProductReviews lists a product's reviews.
func (c *Client) ProductReviews(ctx context.Context, productID int64) ([]Review, error) {
	var out List[Review]
	err := c.get(ctx, "review.list", fmt.Sprintf("products/%d/reviews/", productID), nil, &out)
	return out.Results, err
}

// ProductStats fetches a product's rating summary.
func (c *Client) ProductStats(ctx context.Context, productID int64) (ReviewStats, error) {
	var raw struct {
		AverageRating   json.Number    `json:"average_rating"`
		TotalReviews    int            `json:"total_reviews"`
		RatingBreakdown map[string]int `json:"rating_breakdown"`
	}
	if err := c.get(ctx, "review.stats", fmt.Sprintf("products/%d/stats/", productID), nil, &raw); err != nil {
		return ReviewStats{}, err
	}

	stats := ReviewStats{TotalReviews: raw.TotalReviews, RatingDistribution: make(map[string]int, 5)}
	if avg, err := raw.AverageRating.Float64(); err == nil {
		stats.AverageRating = avg
	}
	for k, v := range raw.RatingBreakdown {
		stats.RatingDistribution[strings.TrimPrefix(k, "star_")] = v
	}
	return stats, nil
}

// Stars returns the count for one star level.
func (s ReviewStats) Stars(n int) int {
	return s.RatingDistribution[strconv.Itoa(n)]
}

// CreateReviewRequest is the review payload.
type CreateReviewRequest struct {
	Product int64  `json:"product"`
	Order   *int64 `json:"order,omitempty"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateReview posts a review. The API only accepts reviews of delivered purchases.
func (c *Client) CreateReview(ctx context.Context, req CreateReviewRequest) error {
	return c.send(ctx, "review.create", http.MethodPost, "reviews/create/", req, nil)
}

// MyReviews lists the shopper's reviews.
func (c *Client) MyReviews(ctx context.Context) ([]Review, error) {
	var out List[Review]
	err := c.get(ctx, "review.mine", "reviews/my-reviews/", nil, &out)
	return out.Results, err
}

// DeleteReview removes one of the shopper's reviews.
func (c *Client) DeleteReview(ctx context.Context, id int64) error {
	return c.send(ctx, "review.delete", http.MethodDelete, fmt.Sprintf("reviews/%d/", id), nil, nil)
}
