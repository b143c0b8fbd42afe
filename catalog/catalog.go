// Package catalog serves the shop's business collections (orders,
// products, customers, support tickets, promotions) out of a data
// directory. Each collection is a Resource: a file, a normalizer that
// turns raw records into their API shape, and the query schema of its
// list endpoint.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/arthur-debert/shopdata/query"
	"github.com/arthur-debert/shopdata/storage"
	"github.com/arthur-debert/shopdata/types"
)

// ErrNotFound is returned by Find when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// RecommendationCount is the number of products returned by ForYou.
const RecommendationCount = 4

// Catalog reads resources from a storage source.
type Catalog struct {
	source storage.Source
	logger *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger. Nil keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a catalog over source.
func New(source storage.Source, opts ...Option) *Catalog {
	c := &Catalog{source: source, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the underlying data source.
func (c *Catalog) Source() storage.Source {
	return c.source
}

// Records loads and normalizes every record of a resource.
func (c *Catalog) Records(ctx context.Context, r Resource) ([]types.Record, error) {
	raw, err := c.source.LoadRecords(ctx, r.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", r.Name, err)
	}
	if r.Normalize == nil {
		return raw, nil
	}
	out := make([]types.Record, len(raw))
	for i, record := range raw {
		out[i] = r.Normalize(record)
	}
	return out, nil
}

// List runs the resource's list query. Unpaginated resources return every
// matching record in a single page.
func (c *Catalog) List(ctx context.Context, r Resource, params url.Values) (types.PageResult, error) {
	spec := query.ParseParams(params, r.Schema)
	records, err := c.Records(ctx, r)
	if err != nil {
		// The empty page still echoes the requested window.
		return query.Execute(nil, spec), err
	}
	if !r.Paginated {
		spec.Page = types.Page{Limit: len(records)}
	}

	result := query.Execute(records, spec)
	c.logger.Debug("list query",
		"resource", r.Name,
		"filters", len(spec.Filters),
		"total", result.Total,
		"returned", len(result.Items))
	return result, nil
}

// Find returns the record with the given id.
func (c *Catalog) Find(ctx context.Context, r Resource, id string) (types.Record, error) {
	records, err := c.Records(ctx, r)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if r.matches(record, id) {
			if r.Detail != nil {
				return r.Detail(record), nil
			}
			return record, nil
		}
	}
	return nil, fmt.Errorf("%s %q: %w", strings.TrimSuffix(r.Name, "s"), id, ErrNotFound)
}

// Recommendations is the response of ForYou.
type Recommendations struct {
	Products []types.Record `json:"products"`
	UserID   string         `json:"userId"`
	Message  string         `json:"message"`
}

// ForYou picks products for a customer. Products in the customer's
// preferred categories come first, otherwise catalog order is kept. An
// unknown or guest customer gets the first products of the catalog.
func (c *Catalog) ForYou(ctx context.Context, userID string) (Recommendations, error) {
	products, err := c.Records(ctx, Products)
	if err != nil {
		return Recommendations{}, err
	}

	message := "Showing our top products."
	if preferred := c.preferences(ctx, userID); len(preferred) > 0 {
		sort.SliceStable(products, func(i, j int) bool {
			a := preferred[strings.ToLower(products[i].StringOr("category", ""))]
			b := preferred[strings.ToLower(products[j].StringOr("category", ""))]
			return a && !b
		})
		message = "Picked from your preferred categories."
	}

	if len(products) > RecommendationCount {
		products = products[:RecommendationCount]
	}
	return Recommendations{Products: products, UserID: userID, Message: message}, nil
}

// preferences returns the lower-cased preferred categories of a customer,
// or nil when the customer is unknown.
func (c *Catalog) preferences(ctx context.Context, userID string) map[string]bool {
	if userID == "" || userID == "guest" {
		return nil
	}
	raw, err := c.source.LoadRecords(ctx, Customers.File)
	if err != nil {
		c.logger.Warn("customers unavailable for recommendations", "error", err)
		return nil
	}
	for _, customer := range raw {
		if matchCustomerID(customer, userID) {
			return preferredCategories(customer)
		}
	}
	return nil
}
