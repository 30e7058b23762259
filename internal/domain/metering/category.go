package metering

import "github.com/shopspring/decimal"

// Category is a billing/monitoring classification for a domain.
// It is a closed enumeration: adding a category means adding a constant
// here plus a seed list in DefaultSeeds.
type Category string

const (
	// CategoryPorn tracks adult-content domains
	CategoryPorn Category = "porn"

	// CategoryGambling tracks gambling and betting domains
	CategoryGambling Category = "gambling"
)

// Categories lists all categories in declaration order. The order is a
// policy, not an accident: the categorizer checks seed lists in this order
// and the first match wins.
var Categories = []Category{CategoryPorn, CategoryGambling}

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// IsValid returns true if the category is a known enumeration member
func (c Category) IsValid() bool {
	switch c {
	case CategoryPorn, CategoryGambling:
		return true
	}
	return false
}

// RateFloor returns the minimum dollars-per-minute rate for the category.
// A user-configured rate below the floor is clamped up to it.
func (c Category) RateFloor() decimal.Decimal {
	switch c {
	case CategoryGambling:
		return decimal.NewFromFloat(0.50)
	default:
		return decimal.NewFromFloat(0.05)
	}
}

// DefaultRate returns the dollars-per-minute rate applied when a consent
// snapshot does not configure one.
func (c Category) DefaultRate() decimal.Decimal {
	return c.RateFloor()
}

// DefaultGraceMinutes returns the free minutes per calendar day applied when
// a consent snapshot does not configure grace.
func (c Category) DefaultGraceMinutes() int {
	switch c {
	case CategoryPorn:
		return 1
	default:
		return 0
	}
}

// DefaultSeeds maps each category to its seed list. A hostname matches a
// seed only at a label boundary (see Categorizer), so "notpornhub.com" does
// not match the "pornhub" seed.
var DefaultSeeds = map[Category][]string{
	CategoryPorn: {
		"pornhub",
		"xvideos",
		"xnxx",
		"xhamster",
		"redtube",
		"youporn",
		"spankbang",
		"chaturbate",
		"onlyfans",
		"stripchat",
		"brazzers",
		"rule34",
	},
	CategoryGambling: {
		"bet365",
		"pokerstars",
		"draftkings",
		"fanduel",
		"betway",
		"bovada",
		"stake",
		"roobet",
		"888casino",
		"betfair",
		"williamhill",
		"slotomania",
	},
}
