package testing

import (
	"time"

	"github.com/shopspring/decimal"
)

// D parses a decimal literal, panicking on malformed input. Test data only.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Date builds a midnight-UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
