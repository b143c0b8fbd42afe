package catalog

import (
	"strings"

	"github.com/arthur-debert/shopdata/query"
	"github.com/arthur-debert/shopdata/types"
)

// Resource binds a data file to the list endpoint that serves it.
type Resource struct {
	// Name is the URL segment, e.g. "support-tickets".
	Name string
	// File is the document in the data directory.
	File string
	// Key is the response field holding the records.
	Key string
	// Paginated resources return one page plus pagination metadata;
	// the others return every matching record.
	Paginated bool
	Schema    query.Schema
	// Normalize maps a raw record to its API shape. Nil means passthrough.
	Normalize func(types.Record) types.Record
	// MatchID reports whether a normalized record has the requested id.
	// Nil compares the "id" field.
	MatchID func(record types.Record, id string) bool
	// Detail adjusts a record returned by a single-record lookup.
	Detail      func(types.Record) types.Record
	Description string
}

var (
	Orders = Resource{
		Name:      "orders",
		File:      "orders.json",
		Key:       "orders",
		Paginated: true,
		Schema: query.Schema{
			Params: []query.Param{
				{Name: "status", Fields: []string{"status"}, Predicate: types.PredicateEquals},
				{Name: "paymentStatus", Fields: []string{"paymentStatus"}, Predicate: types.PredicateEquals},
				{Name: "fulfillmentStatus", Fields: []string{"fulfillmentStatus"}, Predicate: types.PredicateEquals},
				{Name: "customerId", Fields: []string{"customerId"}, Predicate: types.PredicateEquals},
				{Name: "minAmount", Fields: []string{"total"}, Predicate: types.PredicateGTE},
				{Name: "maxAmount", Fields: []string{"total"}, Predicate: types.PredicateLTE},
				{
					Name: "search",
					Fields: []string{
						"orderNumber",
						"customer.firstName",
						"customer.lastName",
						"customer.email",
						"items.title",
					},
					Predicate: types.PredicateContains,
				},
			},
			Sorts: []query.SortKey{
				{Name: "total-desc", Fields: []string{"total"}, Descending: true},
				{Name: "total-asc", Fields: []string{"total"}},
				{Name: "date-desc", Fields: []string{"createdAt"}, Descending: true},
				{Name: "date-asc", Fields: []string{"createdAt"}},
				{Name: "order-number", Fields: []string{"orderNumber"}},
				{Name: "customer", Fields: []string{"customer.firstName", "customer.lastName"}},
			},
			DefaultSort: "date-desc",
		},
		Normalize:   NormalizeOrder,
		Description: "List orders with filtering, sorting and pagination",
	}

	Products = Resource{
		Name:      "products",
		File:      "products.json",
		Key:       "products",
		Paginated: true,
		Schema: query.Schema{
			Params: []query.Param{
				{Name: "category", Fields: []string{"category"}, Predicate: types.PredicateEqualFold},
				{Name: "tag", Fields: []string{"tags"}, Predicate: types.PredicateContains},
				{Name: "minPrice", Fields: []string{"price"}, Predicate: types.PredicateGTE},
				{Name: "maxPrice", Fields: []string{"price"}, Predicate: types.PredicateLTE},
				{Name: "status", Fields: []string{"status"}, Predicate: types.PredicateEquals},
				{Name: "search", Fields: []string{"name", "description", "tags"}, Predicate: types.PredicateContains},
			},
			Sorts: []query.SortKey{
				{Name: "price-asc", Fields: []string{"price"}},
				{Name: "price-desc", Fields: []string{"price"}, Descending: true},
				{Name: "name-asc", Fields: []string{"name"}},
				{Name: "name-desc", Fields: []string{"name"}, Descending: true},
				{Name: "newest", Fields: []string{"createdAt"}, Descending: true},
				{Name: "oldest", Fields: []string{"createdAt"}},
			},
		},
		Normalize:   NormalizeProduct,
		Description: "Get all products with pagination and filtering",
	}

	Customers = Resource{
		Name:      "customers",
		File:      "customers.json",
		Key:       "customers",
		Paginated: true,
		Schema: query.Schema{
			Params: []query.Param{
				{Name: "email", Fields: []string{"email"}, Predicate: types.PredicateContains},
				{Name: "tag", Fields: []string{"tags"}, Predicate: types.PredicateContains},
				{Name: "state", Fields: []string{"state"}, Predicate: types.PredicateEquals},
				{Name: "segment", Fields: []string{"analytics.segmentIds"}, Predicate: types.PredicateAny},
				{Name: "search", Fields: []string{"email", "firstName", "lastName", "tags"}, Predicate: types.PredicateContains},
			},
			Sorts: []query.SortKey{
				{Name: "spent-desc", Fields: []string{"totalSpent"}, Descending: true},
				{Name: "spent-asc", Fields: []string{"totalSpent"}},
				{Name: "orders-desc", Fields: []string{"ordersCount"}, Descending: true},
				{Name: "orders-asc", Fields: []string{"ordersCount"}},
				{Name: "newest", Fields: []string{"createdAt"}, Descending: true},
				{Name: "oldest", Fields: []string{"createdAt"}},
				{Name: "last-order", Fields: []string{"lastOrderDate"}, Descending: true},
			},
		},
		Normalize:   NormalizeCustomer,
		MatchID:     matchCustomerID,
		Detail:      customerDetail,
		Description: "Get all customers with pagination and filtering",
	}

	SupportTickets = Resource{
		Name: "support-tickets",
		File: "support-tickets.json",
		Key:  "tickets",
		Schema: query.Schema{
			Params: []query.Param{
				{Name: "status", Fields: []string{"status"}, Predicate: types.PredicateEquals},
				{Name: "priority", Fields: []string{"priority"}, Predicate: types.PredicateEquals},
				{Name: "category", Fields: []string{"category"}, Predicate: types.PredicateEquals},
			},
			Sorts: []query.SortKey{
				{Name: "newest", Fields: []string{"createdAt"}, Descending: true},
			},
			DefaultSort: "newest",
		},
		Description: "List support tickets, newest first",
	}

	Promotions = Resource{
		Name: "promotions",
		File: "promotions.json",
		Key:  "promotions",
		Schema: query.Schema{
			Params: []query.Param{
				{Name: "status", Fields: []string{"status"}, Predicate: types.PredicateEquals},
				{Name: "type", Fields: []string{"type"}, Predicate: types.PredicateEquals},
			},
		},
		Description: "List promotions",
	}
)

// Resources returns every list resource.
func Resources() []Resource {
	return []Resource{Orders, Products, Customers, SupportTickets, Promotions}
}

// Lookup finds a resource by name or file name.
func Lookup(name string) (Resource, bool) {
	for _, r := range Resources() {
		if r.Name == name || r.File == name {
			return r, true
		}
	}
	return Resource{}, false
}

func (r Resource) matches(record types.Record, id string) bool {
	if r.MatchID != nil {
		return r.MatchID(record, id)
	}
	return record.StringOr("id", "") == id
}

// matchCustomerID accepts the id with or without the cust_ prefix.
func matchCustomerID(record types.Record, id string) bool {
	own := strings.TrimPrefix(record.StringOr("id", ""), customerIDPrefix)
	return own != "" && own == strings.TrimPrefix(id, customerIDPrefix)
}

// customerDetail returns the customer with the cust_ prefix dropped from its id.
func customerDetail(record types.Record) types.Record {
	out := record.Clone()
	out["id"] = strings.TrimPrefix(record.StringOr("id", ""), customerIDPrefix)
	return out
}
