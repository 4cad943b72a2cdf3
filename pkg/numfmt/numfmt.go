// Package numfmt overlays a personalised number format on the column
// settings of cards.
package numfmt

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

// numericKeys mark a column setting as formatting a number.
var numericKeys = []string{"number_style", "number_separators", "suffix", "prefix", "currency_in_header", "decimals"}

// currencyHints are looked for in column and card titles.
var currencyHints = []string{"cost", "price", "money", "income"}

// Formatter is the visitor applying the number format.
type Formatter struct {
	format config.NumberFormat
}

var _ visit.Visitor = &Formatter{}

// NewFormatter returns a formatter for the personalised number format.
func NewFormatter(format config.NumberFormat) *Formatter {
	return &Formatter{format: format}
}

// Visit overlays the number format on every numeric column setting of a
// column_settings map.
func (f *Formatter) Visit(_ context.Context, n interface{}, stack visit.Stack) (visit.Result, error) {
	if stack.Top().Kind != visit.ColumnSettings {
		return visit.Empty(), nil
	}
	cs, ok := node.AsObject(n)
	if !ok {
		return visit.Empty(), nil
	}
	cardName := ""
	if frame, ok := stack.Nearest(visit.Card); ok {
		if card, ok := node.AsObject(frame.Node); ok {
			cardName = node.String(card, "name")
		}
	}
	for _, key := range node.SortedKeys(cs) {
		setting, ok := node.AsObject(cs[key])
		if !ok || !IsNumeric(setting) {
			continue
		}
		currency := IsCurrency(setting, cardName)
		f.apply(setting, currency)
		log.Trace().Str("column", key).Bool("currency", currency).Msg("applied number format")
	}
	return visit.Empty(), nil
}

func (f *Formatter) apply(setting map[string]interface{}, currency bool) {
	if f.format.NumberStyle != "" {
		setting["number_style"] = f.format.NumberStyle
	}
	if f.format.NumberSeparators != "" {
		setting["number_separators"] = f.format.NumberSeparators
	}
	prefix, suffix := f.format.NumberOtherPrefix, f.format.NumberOtherSuffix
	if currency {
		prefix, suffix = f.format.NumberCurrencyPrefix, f.format.NumberCurrencySuffix
	}
	setOrDelete(setting, "prefix", prefix)
	setOrDelete(setting, "suffix", suffix)
}

func setOrDelete(obj map[string]interface{}, key, value string) {
	if value == "" {
		delete(obj, key)
		return
	}
	obj[key] = value
}

// IsNumeric reports whether a column setting carries number formatting.
func IsNumeric(setting map[string]interface{}) bool {
	for _, k := range numericKeys {
		if _, ok := setting[k]; ok {
			return true
		}
	}
	return false
}

// IsCurrency reports whether a column setting formats an amount of money.
func IsCurrency(setting map[string]interface{}, cardName string) bool {
	for _, k := range []string{"prefix", "suffix", "currency"} {
		if strings.Contains(node.String(setting, k), "$") {
			return true
		}
	}
	if node.String(setting, "number_style") == "currency" {
		return true
	}
	if _, ok := setting["currency_in_header"]; ok {
		return true
	}
	return hasCurrencyHint(node.String(setting, "column_title")) || hasCurrencyHint(cardName)
}

func hasCurrencyHint(title string) bool {
	title = strings.ToLower(title)
	for _, h := range currencyHints {
		if strings.Contains(title, h) {
			return true
		}
	}
	return false
}
