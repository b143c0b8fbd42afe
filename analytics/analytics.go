// Package analytics computes the dashboard reports of the admin area
// from the raw orders, products and customers documents.
//
// Every report looks at the orders created in the window
// [now-period, now]. Amounts are summed as they appear in the data; no
// currency conversion takes place.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/shopdata/storage"
	"github.com/arthur-debert/shopdata/types"
)

// Kind names a report.
type Kind string

const (
	KindOverview   Kind = "overview"
	KindSales      Kind = "sales"
	KindProducts   Kind = "products"
	KindCustomers  Kind = "customers"
	KindCategories Kind = "categories"
)

const (
	// DefaultPeriod is the window in days used when none is given.
	DefaultPeriod = 30
	// ConversionRate is a fixed figure; the shop does not track visits.
	ConversionRate = 0.032

	topLimit = 10
	day      = 24 * time.Hour
)

// ErrUnknownKind is returned by Compute for an unsupported report name.
var ErrUnknownKind = errors.New("invalid analytics type")

// Kinds lists the supported reports.
func Kinds() []Kind {
	return []Kind{KindOverview, KindSales, KindProducts, KindCustomers, KindCategories}
}

// ParseKind maps a query value to a Kind. Empty selects the overview.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return KindOverview, nil
	}
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ParsePeriod reads a period in days; anything that is not a positive
// integer yields DefaultPeriod.
func ParsePeriod(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return DefaultPeriod
	}
	return n
}

// Dataset holds the raw documents the reports read.
type Dataset struct {
	Orders    []types.Record
	Products  []types.Record
	Customers []types.Record
}

// Load reads the three documents concurrently.
func Load(ctx context.Context, source storage.Source) (Dataset, error) {
	var data Dataset
	g, ctx := errgroup.WithContext(ctx)
	for name, dst := range map[string]*[]types.Record{
		"orders.json":    &data.Orders,
		"products.json":  &data.Products,
		"customers.json": &data.Customers,
	} {
		g.Go(func() error {
			records, err := source.LoadRecords(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", name, err)
			}
			*dst = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Dataset{}, err
	}
	return data, nil
}

// Overview is the headline report.
type Overview struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalOrders       int     `json:"totalOrders"`
	TotalProducts     int     `json:"totalProducts"`
	TotalCustomers    int     `json:"totalCustomers"`
	AverageOrderValue float64 `json:"averageOrderValue"`
	ConversionRate    float64 `json:"conversionRate"`
	// RevenueGrowth is the percentage change against the previous
	// window of the same length; 0 when that window had no revenue.
	RevenueGrowth float64 `json:"revenueGrowth"`
	Period        int     `json:"period"`
}

// DaySales is one day of the sales report.
type DaySales struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// Sales is the per-day report, oldest day first.
type Sales struct {
	SalesByDay []DaySales `json:"salesByDay"`
}

// ProductSales aggregates the order lines of one product.
type ProductSales struct {
	ProductID string  `json:"productId"`
	Title     string  `json:"title"`
	Quantity  float64 `json:"quantity"`
	Revenue   float64 `json:"revenue"`
}

// TopProducts ranks products by line revenue.
type TopProducts struct {
	TopProducts []ProductSales `json:"topProducts"`
}

// CustomerSales aggregates the orders of one customer.
type CustomerSales struct {
	CustomerID string  `json:"customerId"`
	Name       string  `json:"name"`
	Orders     int     `json:"orders"`
	TotalSpent float64 `json:"totalSpent"`
}

// TopCustomers ranks customers by spend.
type TopCustomers struct {
	TopCustomers []CustomerSales `json:"topCustomers"`
}

// CategoryRevenue is the line revenue of one product category.
type CategoryRevenue struct {
	Category string  `json:"category"`
	Revenue  float64 `json:"revenue"`
}

// Categories ranks categories by revenue.
type Categories struct {
	RevenueByCategory []CategoryRevenue `json:"revenueByCategory"`
}

// Compute builds one report. The result is one of Overview, Sales,
// TopProducts, TopCustomers or Categories.
func Compute(kind Kind, period int, now time.Time, data Dataset) (interface{}, error) {
	if period <= 0 {
		period = DefaultPeriod
	}
	start := now.Add(-time.Duration(period) * day)
	orders := ordersBetween(data.Orders, start, now, true)

	switch kind {
	case KindOverview:
		return overview(orders, period, start, data), nil
	case KindSales:
		return sales(orders, period, now), nil
	case KindProducts:
		return topProducts(orders), nil
	case KindCustomers:
		return topCustomers(orders), nil
	case KindCategories:
		return categories(orders, data.Products), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

type datedOrder struct {
	types.Record
	created time.Time
}

// ordersBetween keeps orders created in [from, to], or [from, to) when
// inclusive is false. Orders without a parseable createdAt are skipped.
func ordersBetween(orders []types.Record, from, to time.Time, inclusive bool) []datedOrder {
	var out []datedOrder
	for _, o := range orders {
		created, err := dateparse.ParseIn(o.StringOr("createdAt", ""), time.UTC)
		if err != nil || created.Before(from) {
			continue
		}
		if created.After(to) || (!inclusive && created.Equal(to)) {
			continue
		}
		out = append(out, datedOrder{Record: o, created: created})
	}
	return out
}

func revenue(orders []datedOrder) float64 {
	var sum float64
	for _, o := range orders {
		sum += o.NumberOr("total", 0)
	}
	return sum
}

func overview(orders []datedOrder, period int, start time.Time, data Dataset) Overview {
	total := revenue(orders)
	o := Overview{
		TotalRevenue:   total,
		TotalOrders:    len(orders),
		TotalProducts:  len(data.Products),
		TotalCustomers: len(data.Customers),
		ConversionRate: ConversionRate,
		Period:         period,
	}
	if len(orders) > 0 {
		o.AverageOrderValue = total / float64(len(orders))
	}

	previousStart := start.Add(-time.Duration(period) * day)
	previous := revenue(ordersBetween(data.Orders, previousStart, start, false))
	if previous > 0 {
		o.RevenueGrowth = (total - previous) / previous * 100
	}
	return o
}

func sales(orders []datedOrder, period int, now time.Time) Sales {
	now = now.UTC()
	days := make([]DaySales, period)
	index := make(map[string]int, period)
	for i := 0; i < period; i++ {
		date := now.AddDate(0, 0, i-period+1).Format(time.DateOnly)
		days[i] = DaySales{Date: date}
		index[date] = i
	}
	for _, o := range orders {
		if i, ok := index[o.created.UTC().Format(time.DateOnly)]; ok {
			days[i].Revenue += o.NumberOr("total", 0)
			days[i].Orders++
		}
	}
	return Sales{SalesByDay: days}
}

// lines calls fn for every order line of orders.
func lines(orders []datedOrder, fn func(item types.Record)) {
	for _, o := range orders {
		items, _ := o.Slice("items")
		for _, raw := range items {
			if item, ok := types.AsRecord(raw); ok {
				fn(item)
			}
		}
	}
}

func topProducts(orders []datedOrder) TopProducts {
	var ranked []ProductSales
	index := map[string]int{}
	lines(orders, func(item types.Record) {
		id := item.StringOr("productId", "")
		i, ok := index[id]
		if !ok {
			i = len(ranked)
			index[id] = i
			ranked = append(ranked, ProductSales{ProductID: id, Title: item.StringOr("title", "")})
		}
		ranked[i].Quantity += item.NumberOr("quantity", 0)
		ranked[i].Revenue += item.NumberOr("linePrice", 0)
	})
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Revenue > ranked[j].Revenue })
	if len(ranked) > topLimit {
		ranked = ranked[:topLimit]
	}
	if ranked == nil {
		ranked = []ProductSales{}
	}
	return TopProducts{TopProducts: ranked}
}

func topCustomers(orders []datedOrder) TopCustomers {
	ranked := []CustomerSales{}
	index := map[string]int{}
	for _, o := range orders {
		id := o.StringOr("customerId", "")
		i, ok := index[id]
		if !ok {
			i = len(ranked)
			index[id] = i
			name := o.StringOr("customer.firstName", "") + " " + o.StringOr("customer.lastName", "")
			ranked = append(ranked, CustomerSales{CustomerID: id, Name: name})
		}
		ranked[i].Orders++
		ranked[i].TotalSpent += o.NumberOr("total", 0)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].TotalSpent > ranked[j].TotalSpent })
	if len(ranked) > topLimit {
		ranked = ranked[:topLimit]
	}
	return TopCustomers{TopCustomers: ranked}
}

// categories attributes line revenue to the category of the product sold.
// Lines whose product is unknown are left out; products without a
// category count as "Other".
func categories(orders []datedOrder, products []types.Record) Categories {
	byID := make(map[string]types.Record, len(products))
	for _, p := range products {
		byID[p.StringOr("id", "")] = p
	}

	ranked := []CategoryRevenue{}
	index := map[string]int{}
	lines(orders, func(item types.Record) {
		product, ok := byID[item.StringOr("productId", "")]
		if !ok {
			return
		}
		category := product.StringOr("category", "")
		if category == "" {
			category = "Other"
		}
		i, ok := index[category]
		if !ok {
			i = len(ranked)
			index[category] = i
			ranked = append(ranked, CategoryRevenue{Category: category})
		}
		ranked[i].Revenue += item.NumberOr("linePrice", 0)
	})
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Revenue > ranked[j].Revenue })
	return Categories{RevenueByCategory: ranked}
}
