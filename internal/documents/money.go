// Package documents renders quotes and inventory into files a customer or
// warehouse clerk can open: PDF quotes and XLSX stock sheets.
package documents

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer    = message.NewPrinter(language.English)
	titleCaser = cases.Title(language.English)
)

// Money formats an amount with thousands separators and two decimals: "USD 1,234.50".
func Money(amount float64, currency string) string {
	if currency == "" {
		return printer.Sprintf("%.2f", amount)
	}
	return printer.Sprintf("%s %.2f", currency, amount)
}

// Title turns codes such as "CYCLE_COUNT" into "Cycle Count".
func Title(code string) string {
	return titleCaser.String(strings.ToLower(strings.ReplaceAll(code, "_", " ")))
}
