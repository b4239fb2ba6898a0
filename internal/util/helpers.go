package util

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var countPrinter = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators ("12,345").
func FormatCount(n int64) string {
	return countPrinter.Sprintf("%d", n)
}
