package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	hoursPerDay = 24
	// amountScale is the number of decimal places money amounts are rounded to
	amountScale = 2
)

var (
	dayHours = decimal.NewFromInt(hoursPerDay)
	hundred  = decimal.NewFromInt(100)
)

// Multiplier is the billing factor for an elapsed rental window, expressed in
// day-equivalents. It is kept as a whole number of billed hours over 24 so amounts can
// be computed exactly before the final rounding.
type Multiplier struct {
	elapsedHours int64
}

// ElapsedHours returns the started hours between start and asOf, rounded up.
// asOf before start yields 0.
func ElapsedHours(start, asOf time.Time) int64 {
	if asOf.Before(start) {
		return 0
	}
	d := asOf.Sub(start)
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// ComputeMultiplier calculates the billing multiplier for a rental that started at start
// and is being settled at asOf:
//
//	0 hours        -> 0
//	1..24 hours    -> 1 (one-day minimum)
//	n > 24 hours   -> 1 + (n-24)/24
func ComputeMultiplier(start, asOf time.Time) Multiplier {
	return MultiplierForHours(ElapsedHours(start, asOf))
}

// MultiplierForHours builds the multiplier for an already computed number of hours.
func MultiplierForHours(hours int64) Multiplier {
	if hours < 0 {
		hours = 0
	}
	return Multiplier{elapsedHours: hours}
}

// ElapsedHours is the number of started hours the multiplier was computed from.
func (m Multiplier) ElapsedHours() int64 {
	return m.elapsedHours
}

// billedHours is the numerator of the multiplier over 24.
func (m Multiplier) billedHours() int64 {
	switch {
	case m.elapsedHours == 0:
		return 0
	case m.elapsedHours <= hoursPerDay:
		return hoursPerDay
	default:
		return m.elapsedHours
	}
}

// Decimal returns the multiplier value. Values that are not exact decimals (e.g. 25/24)
// are truncated at decimal.DivisionPrecision digits.
func (m Multiplier) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.billedHours()).Div(dayHours)
}

// IsZero reports whether nothing is billable yet.
func (m Multiplier) IsZero() bool {
	return m.billedHours() == 0
}

// Charge is pricePerUnit * quantity * multiplier, rounded to the money scale.
// The division by 24 happens last so no intermediate rounding leaks into the amount.
func (m Multiplier) Charge(pricePerUnit decimal.Decimal, quantity int32) decimal.Decimal {
	return pricePerUnit.
		Mul(decimal.NewFromInt32(quantity)).
		Mul(decimal.NewFromInt(m.billedHours())).
		Div(dayHours).
		Round(amountScale)
}

// ApplyTax returns the flat percentage tax on subtotal, rounded to the money scale.
func ApplyTax(subtotal, percent decimal.Decimal) decimal.Decimal {
	if percent.IsZero() {
		return decimal.Zero
	}
	return subtotal.Mul(percent).Div(hundred).Round(amountScale)
}
