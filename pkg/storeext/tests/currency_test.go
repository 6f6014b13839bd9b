package tests

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"poskernel/pkg/storeext"
)

func TestTableCurrencyFormatterFormatsKnownCurrency(t *testing.T) {
	formatter := storeext.NewTableCurrencyFormatter(storeext.DefaultCurrencyRules())

	formatted := formatter.FormatCurrency(decimal.RequireFromString("7.5"), "USD", "en-US")

	assert.Equal(t, "$7.50", formatted)
	assert.Equal(t, "$", formatter.GetCurrencySymbol("usd"))
	assert.Equal(t, 2, formatter.GetDecimalPlaces("USD"))
}

func TestTableCurrencyFormatterFallsBackForUnknownCurrency(t *testing.T) {
	formatter := storeext.NewTableCurrencyFormatter(storeext.DefaultCurrencyRules())

	formatted := formatter.FormatCurrency(decimal.RequireFromString("7.5"), "XYZ", "en-US")

	assert.Equal(t, "7.50 XYZ", formatted)
	assert.Equal(t, 2, formatter.GetDecimalPlaces("XYZ"))
}

func TestTableCurrencyFormatterZeroDecimalCurrency(t *testing.T) {
	formatter := storeext.NewTableCurrencyFormatter(storeext.DefaultCurrencyRules())

	formatted := formatter.FormatCurrency(decimal.RequireFromString("500"), "JPY", "ja-JP")

	assert.Equal(t, "¥500", formatted)
}
