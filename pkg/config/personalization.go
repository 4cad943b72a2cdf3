package config

import (
	"fmt"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

// Personalization holds the user overrides applied while migrating.
type Personalization struct {
	// FieldsReplacements maps a column name to the name of the column that
	// should be used instead, within the same table.
	FieldsReplacements map[string]string `json:"fields_replacements"`
	Language           string            `json:"language"`
	NumberFormat       NumberFormat      `json:"number_format"`
}

// NumberFormat is overlaid on the settings of numeric columns.
type NumberFormat struct {
	NumberStyle          string `json:"number_style,omitempty"`
	NumberSeparators     string `json:"number_separators,omitempty"`
	NumberCurrencyPrefix string `json:"number_currency_prefix,omitempty"`
	NumberCurrencySuffix string `json:"number_currency_suffix,omitempty"`
	NumberOtherPrefix    string `json:"number_other_prefix,omitempty"`
	NumberOtherSuffix    string `json:"number_other_suffix,omitempty"`
}

// IsZero reports whether no number format was configured.
func (f NumberFormat) IsZero() bool {
	return f == NumberFormat{}
}

// ColumnLookup resolves column names and ids within one table.
type ColumnLookup interface {
	ColumnName(id int64) (string, bool)
	ColumnID(name string) (int64, bool)
}

// ReplacementName returns the replacement for a column name, if any.
func (p *Personalization) ReplacementName(name string) (string, bool) {
	if p == nil || p.FieldsReplacements == nil {
		return "", false
	}
	r, ok := p.FieldsReplacements[name]
	return r, ok
}

// ReplacementColumnID returns the id of the column replacing columnID in the
// same table. ok is false when the column has no replacement.
func (p *Personalization) ReplacementColumnID(columnID int64, table ColumnLookup) (id int64, ok bool, err error) {
	name, found := table.ColumnName(columnID)
	if !found {
		return 0, false, nil
	}
	replacement, found := p.ReplacementName(name)
	if !found {
		return 0, false, nil
	}
	id, found = table.ColumnID(replacement)
	if !found {
		return 0, false, fmt.Errorf("%w: replacement column %q for %q does not exist in the table", errdefs.ErrConfiguration, replacement, name)
	}
	return id, true, nil
}
