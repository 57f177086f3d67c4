// Package ingest turns messy point-of-sale exports into tidy daily sales
// observations. It tolerates the schema drift the exports actually show:
// renamed headers, wide one-column-per-date layouts, refund rows, stray
// encodings, and duplicate lines.
package ingest

import "regexp"

// Header synonyms seen across export tool versions. Matching is done on
// lowercased, whitespace-collapsed header text.
var (
	dateHeaders = []string{
		"date", "day", "sale date", "sales date", "transaction date", "sold on",
	}
	itemHeaders = []string{
		"item", "item name", "product", "product name", "menu item", "name",
	}
	quantityHeaders = []string{
		"qty", "quantity", "quantity sold", "units", "units sold", "count", "sold",
	}
	variationHeaders = []string{
		"item variation", "variation", "variant", "price point name",
	}
	typeHeaders = []string{
		"type", "transaction type", "event type",
	}
)

// refundMarkers are transaction-type values that flip a row's sign.
var refundMarkers = map[string]bool{
	"refund":   true,
	"return":   true,
	"returned": true,
	"void":     true,
	"voided":   true,
}

// dateLikeHeader matches headers such as "4/8/2026" or "04-08-26". Five
// or more of them mark a wide export that needs unpivoting.
var dateLikeHeader = regexp.MustCompile(`^\s*\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}\s*$`)

// wideThreshold is how many date-like headers promote a table to the
// wide layout.
const wideThreshold = 5
