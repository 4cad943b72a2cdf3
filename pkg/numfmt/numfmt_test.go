package numfmt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

var euro = config.NumberFormat{
	NumberStyle:          "decimal",
	NumberSeparators:     ", ",
	NumberCurrencySuffix: " €",
	NumberOtherSuffix:    "",
}

func TestIsCurrency(t *testing.T) {
	tests := []struct {
		name     string
		setting  map[string]interface{}
		cardName string
		want     bool
	}{
		{name: "dollar prefix", setting: map[string]interface{}{"prefix": "$"}, want: true},
		{name: "currency style", setting: map[string]interface{}{"number_style": "currency"}, want: true},
		{name: "currency in header", setting: map[string]interface{}{"currency_in_header": false}, want: true},
		{name: "column title hint", setting: map[string]interface{}{"decimals": 2, "column_title": "Unit Price"}, want: true},
		{name: "card name hint", setting: map[string]interface{}{"decimals": 2}, cardName: "Income by region", want: true},
		{name: "plain number", setting: map[string]interface{}{"decimals": 2, "column_title": "Quantity"}, cardName: "Orders", want: false},
		{name: "percent suffix", setting: map[string]interface{}{"suffix": "%"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsCurrency(tt.setting, tt.cardName))
		})
	}
}

func TestIsNumeric(t *testing.T) {
	require := require.New(t)
	require.True(IsNumeric(map[string]interface{}{"decimals": 0}))
	require.True(IsNumeric(map[string]interface{}{"number_separators": "."}))
	require.False(IsNumeric(map[string]interface{}{"column_title": "Price", "date_style": "YYYY"}))
}

func TestFormatter(t *testing.T) {
	require := require.New(t)
	var card map[string]interface{}
	require.NoError(node.DecodeInto([]byte(`{
		"name": "Sales",
		"visualization_settings": {"column_settings": {
			"[\"name\",\"price\"]": {"prefix": "$", "decimals": 2},
			"[\"name\",\"ratio\"]": {"suffix": "%", "number_style": "percent"},
			"[\"name\",\"date\"]": {"date_style": "YYYY"}
		}}}`), &card))

	_, err := visit.WalkCard(context.Background(), card, NewFormatter(euro))
	require.NoError(err)

	cs, _ := node.Get(card, "visualization_settings", "column_settings")
	data, err := json.Marshal(cs)
	require.NoError(err)
	require.JSONEq(`{
		"[\"name\",\"price\"]": {"decimals": 2, "number_style": "decimal", "number_separators": ", ", "suffix": " €"},
		"[\"name\",\"ratio\"]": {"number_style": "decimal", "number_separators": ", "},
		"[\"name\",\"date\"]": {"date_style": "YYYY"}
	}`, string(data))
}

func TestFormatterUsesCardName(t *testing.T) {
	require := require.New(t)
	var card map[string]interface{}
	require.NoError(node.DecodeInto([]byte(`{
		"name": "Cost per unit",
		"visualization_settings": {"column_settings": {"[\"name\",\"avg\"]": {"decimals": 1, "suffix": "x"}}}}`), &card))

	format := config.NumberFormat{NumberCurrencyPrefix: "USD ", NumberOtherSuffix: " units"}
	_, err := visit.WalkCard(context.Background(), card, NewFormatter(format))
	require.NoError(err)
	setting, _ := node.Get(card, "visualization_settings", "column_settings", `["name","avg"]`)
	data, err := json.Marshal(setting)
	require.NoError(err)
	require.JSONEq(`{"decimals": 1, "prefix": "USD "}`, string(data))
}

func TestFormatterIgnoresOtherNodes(t *testing.T) {
	require := require.New(t)
	card := map[string]interface{}{"name": "Price", "prefix": "$"}
	_, err := visit.WalkCard(context.Background(), card, NewFormatter(euro))
	require.NoError(err)
	require.Equal(map[string]interface{}{"name": "Price", "prefix": "$"}, card)
}
