package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountInWords spells a money amount for receipts.
// Example: 1500.50 -> "ONE THOUSAND FIVE HUNDRED AND 50/100"
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	integerPart := amount.Truncate(0)
	cents := amount.Sub(integerPart).Shift(2).Abs().IntPart()

	words := numberToWords(integerPart.IntPart())
	if amount.Sign() < 0 && integerPart.Sign() == 0 {
		words = "MINUS " + words
	}
	return fmt.Sprintf("%s AND %02d/100", words, cents)
}

func numberToWords(n int64) string {
	if n == 0 {
		return "ZERO"
	}
	if n < 0 {
		return "MINUS " + numberToWords(-n)
	}

	var parts []string
	for i := len(scales) - 1; i >= 0; i-- {
		chunk := (n / scales[i].value) % 1000
		if chunk == 0 {
			continue
		}
		words := chunkToWords(chunk)
		if scales[i].name != "" {
			words += " " + scales[i].name
		}
		parts = append(parts, words)
	}
	return strings.Join(parts, " ")
}

// chunkToWords spells 1..999
func chunkToWords(n int64) string {
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, units[h]+" HUNDRED")
	}
	switch rest := n % 100; {
	case rest == 0:
	case rest < 20:
		parts = append(parts, units[rest])
	case rest%10 == 0:
		parts = append(parts, tens[rest/10])
	default:
		parts = append(parts, tens[rest/10]+"-"+units[rest%10])
	}
	return strings.Join(parts, " ")
}

var scales = []struct {
	value int64
	name  string
}{
	{1, ""},
	{1_000, "THOUSAND"},
	{1_000_000, "MILLION"},
	{1_000_000_000, "BILLION"},
	{1_000_000_000_000, "TRILLION"},
}

var units = []string{
	"", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE",
	"TEN", "ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN", "SIXTEEN",
	"SEVENTEEN", "EIGHTEEN", "NINETEEN",
}

var tens = []string{
	"", "", "TWENTY", "THIRTY", "FORTY", "FIFTY", "SIXTY", "SEVENTY", "EIGHTY", "NINETY",
}
