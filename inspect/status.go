package inspect

import "strings"

// Domain names the business enumeration a status value belongs to.
type Domain string

const (
	DomainAccount     Domain = "account"
	DomainTier        Domain = "tier"
	DomainOrder       Domain = "order"
	DomainPayment     Domain = "payment"
	DomainFulfillment Domain = "fulfillment"
	DomainTicket      Domain = "ticket"
	DomainPromotion   Domain = "promotion"
	DomainUnknown     Domain = "unknown"
)

// Category is the display category of a status value.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryWarning  Category = "warning"
	CategoryNeutral  Category = "neutral"
	CategoryTier     Category = "tier"
)

// Status is a classified enumeration value.
type Status struct {
	Domain   Domain
	Category Category
}

var (
	accountStatuses = map[string]Category{
		"active":    CategoryPositive,
		"enabled":   CategoryPositive,
		"inactive":  CategoryNeutral,
		"invited":   CategoryWarning,
		"disabled":  CategoryNegative,
		"suspended": CategoryNegative,
		"declined":  CategoryNegative,
	}

	tierStatuses = map[string]Category{
		"platinum": CategoryTier,
		"gold":     CategoryTier,
		"silver":   CategoryTier,
		"bronze":   CategoryTier,
	}

	orderStatuses = map[string]Category{
		"pending":    CategoryWarning,
		"processing": CategoryWarning,
		"on_hold":    CategoryWarning,
		"confirmed":  CategoryPositive,
		"shipped":    CategoryPositive,
		"delivered":  CategoryPositive,
		"completed":  CategoryPositive,
		"cancelled":  CategoryNegative,
		"canceled":   CategoryNegative,
		"returned":   CategoryNegative,
		"refunded":   CategoryNegative,
	}

	paymentStatuses = map[string]Category{
		"paid":               CategoryPositive,
		"captured":           CategoryPositive,
		"authorized":         CategoryWarning,
		"pending":            CategoryWarning,
		"partially_paid":     CategoryWarning,
		"partially_refunded": CategoryWarning,
		"refunded":           CategoryNegative,
		"voided":             CategoryNegative,
		"failed":             CategoryNegative,
	}

	fulfillmentStatuses = map[string]Category{
		"fulfilled":   CategoryPositive,
		"delivered":   CategoryPositive,
		"shipped":     CategoryPositive,
		"partial":     CategoryWarning,
		"unfulfilled": CategoryWarning,
		"pending":     CategoryWarning,
		"restocked":   CategoryNeutral,
		"cancelled":   CategoryNegative,
	}

	ticketStatuses = map[string]Category{
		"open":        CategoryWarning,
		"in_progress": CategoryWarning,
		"waiting":     CategoryWarning,
		"escalated":   CategoryNegative,
		"resolved":    CategoryPositive,
		"closed":      CategoryNeutral,
	}

	promotionStatuses = map[string]Category{
		"active":    CategoryPositive,
		"scheduled": CategoryWarning,
		"paused":    CategoryWarning,
		"expired":   CategoryNeutral,
		"disabled":  CategoryNegative,
	}
)

var domainTables = map[Domain]map[string]Category{
	DomainAccount:     accountStatuses,
	DomainTier:        tierStatuses,
	DomainOrder:       orderStatuses,
	DomainPayment:     paymentStatuses,
	DomainFulfillment: fulfillmentStatuses,
	DomainTicket:      ticketStatuses,
	DomainPromotion:   promotionStatuses,
}

// genericDomains is the lookup order for plain "status"/"state" hints.
var genericDomains = []Domain{
	DomainAccount,
	DomainTier,
	DomainOrder,
	DomainTicket,
	DomainPromotion,
	DomainPayment,
	DomainFulfillment,
}

// StatusOf classifies an enumeration value found under the given field
// name. Unknown values are neutral.
func StatusOf(hint, value string) Status {
	v := strings.ToLower(strings.TrimSpace(value))

	if domain, ok := domainForHint(hint); ok {
		if category, ok := domainTables[domain][v]; ok {
			return Status{Domain: domain, Category: category}
		}
		return Status{Domain: domain, Category: CategoryNeutral}
	}

	for _, domain := range genericDomains {
		if category, ok := domainTables[domain][v]; ok {
			return Status{Domain: domain, Category: category}
		}
	}
	return Status{Domain: DomainUnknown, Category: CategoryNeutral}
}

func domainForHint(hint string) (Domain, bool) {
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "tier"):
		return DomainTier, true
	case strings.Contains(h, "payment") || strings.Contains(h, "financial"):
		return DomainPayment, true
	case strings.Contains(h, "fulfillment"):
		return DomainFulfillment, true
	}
	return "", false
}
