package testutil

import (
	"testing"
)

func TestLoadShop(t *testing.T) {
	dir, shop := LoadShop(t)

	if dir == nil {
		t.Fatal("data directory should not be nil")
	}
	if shop == nil {
		t.Fatal("shop should not be nil")
	}

	// 4 customers, 6 orders, 6 products, 4 tickets, 3 promotions
	if len(shop.ByID) != 23 {
		t.Errorf("expected 23 records, got %d", len(shop.ByID))
	}

	if shop.Eleanor.StringOr("tier", "") != "platinum" {
		t.Errorf("Eleanor should be platinum, got %q", shop.Eleanor.StringOr("tier", ""))
	}
	if _, ok := shop.Tomas.Get("address.state"); ok {
		t.Errorf("Tomas should have a province, not a state")
	}
	if shop.Moonphase.NumberOr("total", 0) != 17103.5 {
		t.Errorf("Moonphase total incorrect: %v", shop.Moonphase.NumberOr("total", 0))
	}
	if shop.DraftWinder.StringOr("status", "") != "draft" {
		t.Errorf("winder should be a draft")
	}

	for _, name := range []string{"orders.json", "shipping.json"} {
		if !dir.Exists(name) {
			t.Errorf("%s should be seeded", name)
		}
	}
}
