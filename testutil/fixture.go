// Package testutil loads the sample watch store into a temporary data
// directory so tests can run against known records.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/arthur-debert/shopdata/sampledata"
	"github.com/arthur-debert/shopdata/storage"
	"github.com/arthur-debert/shopdata/types"
)

// Now is the reference time of the fixture: the day after the most
// recent order.
var Now = time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)

// ShopData provides typed access to the raw fixture records.
type ShopData struct {
	// Customers
	Eleanor types.Record // cust_001: platinum, active, loyalty 9.2, two purchases
	Marcus  types.Record // cust_002: gold, active, two purchases
	Priya   types.Record // cust_003: silver, inactive, one cancelled purchase
	Tomas   types.Record // cust_004: bronze, no purchases, province instead of state

	// Orders
	Heritage  types.Record // ord_1001: delivered, paid, 13531.25
	Diver     types.Record // ord_1002: shipped, partial fulfillment
	Cancelled types.Record // ord_1003: cancelled, refunded
	Moonphase types.Record // ord_1004: processing, highest total
	Straps    types.Record // ord_1005: delivered in March
	Pending   types.Record // ord_1006: pending, most recent

	// Products
	Chronograph types.Record // p1
	DraftWinder types.Record // p4: status draft
	WatchRoll   types.Record // p6: not discountable

	// ByID holds every record of the array documents by id.
	ByID map[string]types.Record
}

// LoadShop seeds a temporary data directory with the sample dataset.
func LoadShop(t *testing.T) (*storage.DataDir, *ShopData) {
	t.Helper()

	dir := storage.NewDataDir(t.TempDir())
	ctx := context.Background()
	if _, _, err := sampledata.Seed(ctx, dir, true); err != nil {
		t.Fatalf("failed to seed sample data: %v", err)
	}

	shop := &ShopData{ByID: make(map[string]types.Record)}
	for _, name := range []string{"customers.json", "orders.json", "products.json", "support-tickets.json", "promotions.json"} {
		records, err := dir.LoadRecords(ctx, name)
		if err != nil {
			t.Fatalf("failed to load %s: %v", name, err)
		}
		for _, r := range records {
			shop.ByID[r.StringOr("id", "")] = r
		}
	}

	shop.Eleanor = shop.mustGet(t, "cust_001")
	shop.Marcus = shop.mustGet(t, "cust_002")
	shop.Priya = shop.mustGet(t, "cust_003")
	shop.Tomas = shop.mustGet(t, "cust_004")
	shop.Heritage = shop.mustGet(t, "ord_1001")
	shop.Diver = shop.mustGet(t, "ord_1002")
	shop.Cancelled = shop.mustGet(t, "ord_1003")
	shop.Moonphase = shop.mustGet(t, "ord_1004")
	shop.Straps = shop.mustGet(t, "ord_1005")
	shop.Pending = shop.mustGet(t, "ord_1006")
	shop.Chronograph = shop.mustGet(t, "p1")
	shop.DraftWinder = shop.mustGet(t, "p4")
	shop.WatchRoll = shop.mustGet(t, "p6")

	return dir, shop
}

func (s *ShopData) mustGet(t *testing.T, id string) types.Record {
	t.Helper()
	r, ok := s.ByID[id]
	if !ok {
		t.Fatalf("fixture record %s missing", id)
	}
	return r
}

// IDs returns the "id" field of each record, in order.
func IDs(records []types.Record) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.StringOr("id", "")
	}
	return ids
}
