package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/arthur-debert/shopdata/types"
)

const customerIDPrefix = "cust_"

// customerGroup describes the loyalty program a tier belongs to.
type customerGroup struct {
	benefits []string
	discount float64
}

var customerGroups = map[string]customerGroup{
	"platinum": {benefits: []string{"Lifetime warranty", "Concierge service", "Exclusive events"}, discount: 15},
	"gold":     {benefits: []string{"Extended warranty", "Priority support", "Early access"}, discount: 10},
	"silver":   {benefits: []string{"Free shipping", "Member pricing"}, discount: 5},
	"bronze":   {benefits: []string{"Member newsletter"}, discount: 0},
}

// copyFields sets dst[key] = src[key] for every key present in src.
func copyFields(dst, src types.Record, keys ...string) {
	for _, key := range keys {
		if v, ok := src[key]; ok && v != nil {
			dst[key] = v
		}
	}
}

func orDefault(src types.Record, key string, fallback interface{}) interface{} {
	if v, ok := src[key]; ok && v != nil {
		return v
	}
	return fallback
}

// truthy follows JSON-ish truthiness for defaults: false, 0, "" and null
// fall back.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}

func orTruthy(src types.Record, key string, fallback interface{}) interface{} {
	if v := src[key]; truthy(v) {
		return v
	}
	return fallback
}

func strings2any(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func records(value interface{}) []types.Record {
	items, _ := value.([]interface{})
	out := make([]types.Record, 0, len(items))
	for _, item := range items {
		if r, ok := types.AsRecord(item); ok {
			out = append(out, r)
		}
	}
	return out
}

// NormalizeOrder fills in the defaults an order record is served with.
func NormalizeOrder(raw types.Record) types.Record {
	out := raw.Clone()

	items := records(raw["items"])
	normalized := make([]interface{}, len(items))
	for i, item := range items {
		n := item.Clone()
		n["totalDiscount"] = orTruthy(item, "totalDiscount", 0.0)
		n["taxLines"] = orDefault(item, "taxLines", []interface{}{})
		n["giftCard"] = orTruthy(item, "giftCard", false)
		n["fulfillmentService"] = orTruthy(item, "fulfillmentService", "manual")
		normalized[i] = map[string]interface{}(n)
	}
	out["items"] = normalized

	out["tags"] = orDefault(raw, "tags", []interface{}{})
	out["riskLevel"] = orTruthy(raw, "riskLevel", "low")
	out["source"] = orTruthy(raw, "source", "web")
	out["channel"] = orTruthy(raw, "channel", "online_store")
	out["taxExempt"] = orTruthy(raw, "taxExempt", false)
	out["testOrder"] = orTruthy(raw, "testOrder", false)
	return out
}

// NormalizeProduct maps a raw product to its catalog shape.
func NormalizeProduct(raw types.Record) types.Record {
	out := types.Record{}
	copyFields(out, raw,
		"id", "name", "description", "price", "category", "subcategory",
		"sku", "weight", "dimensions", "compareAtPrice", "createdAt", "updatedAt")

	out["currency"] = "USD"
	out["images"] = orDefault(raw, "images", []interface{}{})
	tags := orDefault(raw, "tags", []interface{}{})
	out["tags"] = tags
	out["variants"] = orDefault(raw, "variants", []interface{}{})

	stock := 0.0
	threshold := 10.0
	if n, ok := raw.Number("inventory.inStock"); ok && n != 0 {
		stock = n
	}
	if n, ok := raw.Number("inventory.reorderPoint"); ok && n != 0 {
		threshold = n
	}
	out["inventory"] = map[string]interface{}{
		"quantity":          stock,
		"trackingEnabled":   true,
		"lowStockThreshold": threshold,
	}

	if seo, ok := raw["seo"]; ok && seo != nil {
		out["seo"] = seo
	} else {
		out["seo"] = map[string]interface{}{
			"title":       raw["name"],
			"description": raw["description"],
			"keywords":    tags,
		}
	}

	out["status"] = orTruthy(raw, "status", "active")
	for _, flag := range []string{"discountable", "requiresShipping", "taxable"} {
		b, ok := raw.Bool(flag)
		out[flag] = !ok || b
	}
	if cost, ok := raw["cost"]; ok && cost != nil {
		out["costPerItem"] = cost
	}
	return out
}

// NormalizeCustomer derives the storefront customer profile from the raw
// CRM export: account state, tags, spend figures, loyalty group and the
// analytics block used for segmentation.
func NormalizeCustomer(raw types.Record) types.Record {
	out := types.Record{}
	copyFields(out, raw, "id", "email", "firstName", "lastName", "phone", "dateOfBirth", "gender", "createdAt")

	first := raw.StringOr("firstName", "")
	last := raw.StringOr("lastName", "")
	out["displayName"] = strings.TrimSpace(first + " " + last)

	if addr, ok := raw.Map("address"); ok {
		country := addr.StringOr("country", "")
		code, name := country, country
		if country == "USA" {
			code, name = "US", "United States"
		}
		a := map[string]interface{}{
			"id":          "addr1",
			"countryCode": code,
			"countryName": name,
			"default":     true,
		}
		for dst, src := range map[string]string{
			"address1": "street",
			"city":     "city",
			"province": "state",
			"country":  "country",
			"zip":      "zipCode",
		} {
			if v, ok := addr[src]; ok && v != nil {
				a[dst] = v
			}
		}
		if _, ok := a["province"]; !ok {
			if v, ok := addr["province"]; ok {
				a["province"] = v
			}
		}
		out["addresses"] = []interface{}{a}
		out["defaultAddressId"] = "addr1"
	} else {
		out["addresses"] = []interface{}{}
	}

	tier := raw.StringOr("tier", "")
	categories := raw.Strings("preferences.preferredCategories")
	tags := make([]interface{}, 0, len(categories)+1)
	if tier != "" {
		tags = append(tags, tier)
	}
	for _, c := range categories {
		tags = append(tags, strings.ReplaceAll(strings.ToLower(c), " ", "-"))
	}
	out["tags"] = tags

	newsletter, _ := raw.Bool("preferences.newsletter")
	out["verifiedEmail"] = true
	out["acceptsMarketing"] = newsletter
	if newsletter {
		out["marketingOptInLevel"] = "confirmed-opt-in"
	}
	if raw.StringOr("status", "") == "active" {
		out["state"] = "enabled"
	} else {
		out["state"] = "disabled"
	}
	out["taxExempt"] = false

	purchases := purchaseHistory(raw)
	spent := raw.NumberOr("lifetimeValue", 0)
	out["totalSpent"] = spent
	out["ordersCount"] = len(purchases)
	if len(purchases) > 0 {
		out["averageOrderValue"] = spent / float64(len(purchases))
	} else {
		out["averageOrderValue"] = 0.0
	}
	out["lastOrderDate"] = lastOrderDate(purchases)

	if v, ok := raw["lastLoginAt"]; ok {
		out["updatedAt"] = v
	}
	out["currency"] = "USD"
	out["customerGroup"] = groupFor(tier)
	out["preferences"] = preferences(raw, categories)
	out["analytics"] = analyticsBlock(raw, tier, purchases)
	return out
}

func groupFor(tier string) map[string]interface{} {
	group, ok := customerGroups[tier]
	if !ok {
		tier = "bronze"
		group = customerGroups[tier]
	}
	return map[string]interface{}{
		"id":                 tier,
		"name":               cases.Title(language.English).String(tier) + " Members",
		"benefits":           strings2any(group.benefits),
		"discountPercentage": group.discount,
	}
}

func preferences(raw types.Record, categories []string) map[string]interface{} {
	sms, _ := raw.Bool("preferences.smsNotifications")
	push, _ := raw.Bool("preferences.pushNotifications")
	channels := []string{"email"}
	if sms {
		channels = append(channels, "sms")
		if push {
			channels = append(channels, "push")
		}
	}

	lo, hi := 10000.0, 500000.0
	if raw.NumberOr("customerScore.pricesSensitivity", 0) > 0.5 {
		lo, hi = 5000, 50000
	}

	return map[string]interface{}{
		"language":              "en",
		"communicationChannels": strings2any(channels),
		"productCategories":     strings2any(categories),
		"brands":                []interface{}{"CHRONOS"},
		"priceRange":            map[string]interface{}{"min": lo, "max": hi},
		"shippingPreference":    "express",
		"paymentMethods":        []interface{}{"credit-card", "wire-transfer"},
	}
}

func purchaseHistory(raw types.Record) []map[string]interface{} {
	history := records(raw["purchaseHistory"])
	out := make([]map[string]interface{}, 0, len(history))
	for _, p := range history {
		products := make([]interface{}, 0)
		for _, item := range records(p["items"]) {
			products = append(products, map[string]interface{}{
				"productId": item["productId"],
				"quantity":  item["quantity"],
				"price":     item["price"],
			})
		}
		fulfillment := "processing"
		if p.StringOr("status", "") == "delivered" {
			fulfillment = "delivered"
		}
		out = append(out, map[string]interface{}{
			"orderId":           p["orderId"],
			"date":              p["date"],
			"products":          products,
			"totalAmount":       p["total"],
			"paymentMethod":     "credit-card",
			"fulfillmentStatus": fulfillment,
		})
	}
	return out
}

// lastOrderDate returns the most recent purchase date, or nil.
func lastOrderDate(purchases []map[string]interface{}) interface{} {
	var latest time.Time
	var raw interface{}
	for _, p := range purchases {
		s, _ := p["date"].(string)
		t, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			continue
		}
		if raw == nil || t.After(latest) {
			latest, raw = t, s
		}
	}
	return raw
}

func analyticsBlock(raw types.Record, tier string, purchases []map[string]interface{}) map[string]interface{} {
	purchased := map[string]bool{}
	history := make([]interface{}, len(purchases))
	for i, p := range purchases {
		history[i] = p
		for _, item := range p["products"].([]interface{}) {
			if id, ok := item.(map[string]interface{})["productId"].(string); ok {
				purchased[id] = true
			}
		}
	}

	searches := make([]interface{}, 0)
	interests := make([]interface{}, 0)
	for _, s := range records(raw["searchHistory"]) {
		clicked := s.Strings("resultsClicked")
		searches = append(searches, map[string]interface{}{
			"query":          s["query"],
			"timestamp":      s["timestamp"],
			"resultsCount":   len(clicked),
			"clickedResults": strings2any(clicked),
			"device":         "desktop",
		})
		for i, id := range clicked {
			interests = append(interests, map[string]interface{}{
				"productId":        id,
				"interestScore":    90 - i*10,
				"lastInteraction":  s["timestamp"],
				"interactionCount": 1,
				"addedToWishlist":  false,
				"purchasedBefore":  purchased[id],
			})
		}
	}

	carts := make([]interface{}, 0)
	for i, c := range records(raw["cartAbandonment"]) {
		items := records(c["items"])
		value := c.NumberOr("cartValue", 0)
		products := make([]interface{}, len(items))
		for j, item := range items {
			products[j] = map[string]interface{}{
				"productId": item["productId"],
				"quantity":  item["quantity"],
				"price":     value / float64(len(items)),
			}
		}
		carts = append(carts, map[string]interface{}{
			"id":               "cart" + strconv.Itoa(i+1),
			"date":             c["date"],
			"products":         products,
			"totalValue":       value,
			"recoveryAttempts": 0,
			"recovered":        false,
		})
	}

	insights := make([]interface{}, 0)
	listened, _ := raw.Get("inferredInterests.fromPhoneListening")
	for _, in := range records(listened) {
		insights = append(insights, map[string]interface{}{
			"type":       strings.ReplaceAll(in.StringOr("topic", ""), "_", "-"),
			"score":      math.Round(in.NumberOr("confidence", 0) * 100),
			"evidence":   []interface{}{strings.ReplaceAll(in.StringOr("context", ""), "_", " ")},
			"detectedAt": in["detectedAt"],
		})
	}

	segments := make([]interface{}, 0)
	if tier != "" {
		segments = append(segments, tier)
	}
	for _, s := range raw.Strings("inferredInterests.fromSocialMedia") {
		segments = append(segments, s)
	}
	if raw.NumberOr("customerScore.loyaltyScore", 0) > 8 {
		segments = append(segments, "vip-customers")
	} else {
		segments = append(segments, "regular-customers")
	}

	return map[string]interface{}{
		"purchaseHistory":    history,
		"searchHistory":      searches,
		"browsingHistory":    []interface{}{},
		"cartAbandonments":   carts,
		"productInterests":   interests,
		"behavioralInsights": insights,
		"segmentIds":         segments,
	}
}

// preferredCategories returns the customer's preferred categories, lower-cased.
func preferredCategories(raw types.Record) map[string]bool {
	out := map[string]bool{}
	for _, c := range raw.Strings("preferences.preferredCategories") {
		out[strings.ToLower(c)] = true
	}
	return out
}
