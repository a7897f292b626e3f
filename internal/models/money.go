package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits stored for every amount.
const MoneyScale = 2

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// FormatMoney renders an amount with exactly two decimals ("600.00").
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyScale)
}

// MaxAmount is the first value a decimal(15,2) column cannot hold.
var MaxAmount = decimal.New(1, 13)

// InRange reports whether d fits the stored money columns.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThan(MaxAmount)
}

// HasValidScale reports whether d carries no more than two fractional digits.
func HasValidScale(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MoneyScale))
}

// CivilDate strips the clock from t, keeping the calendar day as seen in t's location.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
