package metering

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// GraceSchedule maps categories to free minutes per calendar day.
// The legacy wire format was a bare number meaning "this many minutes for
// every category"; UnmarshalJSON broadcasts that scalar so the rest of the
// engine only ever sees the typed per-category map.
type GraceSchedule map[Category]int

// UnmarshalJSON accepts both the per-category object form and the legacy
// scalar form
func (g *GraceSchedule) UnmarshalJSON(data []byte) error {
	// null means absent, not "zero grace everywhere": leave the map nil so
	// resolution falls back to per-category defaults.
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*g = nil
		return nil
	}

	var scalar float64
	if err := json.Unmarshal(data, &scalar); err == nil {
		minutes := int(scalar)
		if minutes < 0 {
			minutes = 0
		}
		out := make(GraceSchedule, len(Categories))
		for _, category := range Categories {
			out[category] = minutes
		}
		*g = out
		return nil
	}

	var object map[Category]int
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}
	out := make(GraceSchedule, len(object))
	for category, minutes := range object {
		if minutes < 0 {
			minutes = 0
		}
		out[category] = minutes
	}
	*g = out
	return nil
}

// ConsentSnapshot is a user's stored billing consent. Each consent
// submission replaces the snapshot wholesale (no partial merge of grace,
// rates or toggles); only the processor customer reference may be attached
// incrementally by out-of-band payment flows.
type ConsentSnapshot struct {
	UserID              string
	Grace               GraceSchedule
	Rates               map[Category]decimal.Decimal
	CategoriesOn        map[Category]bool
	TOSHash             string
	Timestamp           time.Time
	ProcessorCustomerID string
	PaymentMethodID     string
}

// Rules is the effective, fully-defaulted billing policy derived from a
// consent snapshot. It is a pure value: resolving never mutates the stored
// snapshot.
type Rules struct {
	Grace          map[Category]int
	CentsPerMinute map[Category]int64
	CategoriesOn   map[Category]bool
}

// ResolveRules derives effective rules from a snapshot. A nil snapshot and
// a snapshot with missing fields behave identically field by field: each
// absent field independently falls back to the documented default, and the
// effective rate is clamped to the category floor. Cents-per-minute is
// round(max(rate, floor) * 100), computed in decimal to avoid float drift.
func ResolveRules(snapshot *ConsentSnapshot) Rules {
	rules := Rules{
		Grace:          make(map[Category]int, len(Categories)),
		CentsPerMinute: make(map[Category]int64, len(Categories)),
		CategoriesOn:   make(map[Category]bool, len(Categories)),
	}

	for _, category := range Categories {
		grace := category.DefaultGraceMinutes()
		rate := category.DefaultRate()
		on := true

		if snapshot != nil {
			if snapshot.Grace != nil {
				if g, ok := snapshot.Grace[category]; ok {
					grace = g
				}
			}
			if snapshot.Rates != nil {
				if r, ok := snapshot.Rates[category]; ok {
					rate = r
				}
			}
			if snapshot.CategoriesOn != nil {
				if enabled, ok := snapshot.CategoriesOn[category]; ok {
					on = enabled
				}
			}
		}

		if grace < 0 {
			grace = 0
		}
		if floor := category.RateFloor(); rate.LessThan(floor) {
			rate = floor
		}

		rules.Grace[category] = grace
		rules.CentsPerMinute[category] = rate.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
		rules.CategoriesOn[category] = on
	}

	return rules
}
