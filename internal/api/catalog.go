package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ProductQuery filters the catalog.
type ProductQuery struct {
	Search   string
	Category int64
	Page     int
	Ordering string
}

func (q ProductQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Category > 0 {
		v.Set("category", strconv.FormatInt(q.Category, 10))
	}
	if q.Page > 1 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Ordering != "" {
		v.Set("ordering", q.Ordering)
	}
	return v
}

// Products lists catalog products.
func (c *Client) Products(ctx context.Context, q ProductQuery) (List[Product], error) {
	var out List[Product]
	err := c.get(ctx, "catalog.products", "products/", q.values(), &out)
	return out, err
}

// Product fetches one product with variants and images.
func (c *Client) Product(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := c.get(ctx, "catalog.product", fmt.Sprintf("products/%d/", id), nil, &p)
	return p, err
}

// Categories lists product categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out List[Category]
	err := c.get(ctx, "catalog.categories", "categories/", nil, &out)
	return out.Results, err
}
