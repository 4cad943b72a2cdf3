package labels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

const dashboardDoc = `{
	"name": " Sales ",
	"description": "Monthly sales",
	"tabs": [{"id": 1, "name": "Overview"}, {"id": 2, "name": "  "}],
	"parameters": [{"id": "p1", "name": "Region"}],
	"dashcards": [{
		"card": {"name": "Revenue", "description": null},
		"visualization_settings": {
			"text": "Welcome\n",
			"card.title": "not a label key",
			"graph.x_axis.title_text": "Month",
			"column_settings": {"[\"name\",\"total\"]": {"column_title": "Total"}},
			"series_settings": {"total": {"title": "Sales"}}
		}
	}]
}`

func decode(t *testing.T, doc string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, node.DecodeInto([]byte(doc), &out))
	return out
}

func TestFetcher(t *testing.T) {
	require := require.New(t)
	res, err := visit.WalkDashboard(context.Background(), decode(t, dashboardDoc), Fetcher{})
	require.NoError(err)
	require.True(res.IsSet())
	require.Equal([]string{"Month", "Monthly sales", "Overview", "Region", "Sales", "Total", "Welcome"}, res.Strings())
}

func TestFetcherEmpty(t *testing.T) {
	res, err := visit.WalkCard(context.Background(), decode(t, `{"name": " ", "display": "table"}`), Fetcher{})
	require.NoError(t, err)
	require.True(t, res.IsEmpty())
}

func TestTranslate(t *testing.T) {
	r := NewReplacer(map[string]string{"Sales": "Ventes", "Total": "Somme"})
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{label: "Sales", want: "Ventes", ok: true},
		{label: " Sales\n", want: " Ventes\n", ok: true},
		{label: " Total", want: " Somme", ok: true},
		{label: "Revenue", want: "Revenue", ok: false},
		{label: "   ", want: "   ", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := r.Translate(tt.label)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestReplacer(t *testing.T) {
	require := require.New(t)
	dashboard := decode(t, dashboardDoc)
	dictionary := map[string]string{
		"Sales":         "Ventes",
		"Monthly sales": "Ventes mensuelles",
		"Overview":      "Vue d'ensemble",
		"Region":        "Région",
		"Revenue":       "Chiffre d'affaires",
		"Welcome":       "Bienvenue",
		"Month":         "Mois",
		"Total":         "Somme",
	}
	r := NewReplacer(dictionary)
	_, err := visit.WalkDashboard(context.Background(), dashboard, r)
	require.NoError(err)
	require.Equal(8, r.Replaced())

	require.Equal(" Ventes ", dashboard["name"])
	require.Equal("Ventes mensuelles", dashboard["description"])
	tab, _ := node.Get(dashboard["tabs"].([]interface{})[0].(map[string]interface{}), "name")
	require.Equal("Vue d'ensemble", tab)
	dc := visit.Dashcards(dashboard)[0]
	// the embedded card copy belongs to the card itself
	name, _ := node.Get(dc, "card", "name")
	require.Equal("Revenue", name)
	vs, _ := node.Object(dc, "visualization_settings")
	require.Equal("Bienvenue\n", vs["text"])
	require.Equal("not a label key", vs["card.title"])
	require.Equal("Mois", vs["graph.x_axis.title_text"])
	title, _ := node.Get(vs, "column_settings", `["name","total"]`, "column_title")
	require.Equal("Somme", title)
	series, _ := node.Get(vs, "series_settings", "total", "title")
	require.Equal("Ventes", series)

	res, err := visit.WalkDashboard(context.Background(), dashboard, Fetcher{})
	require.NoError(err)
	require.NotContains(res.Strings(), "Sales")
	require.Contains(res.Strings(), "Ventes")
}

func TestReplacerRoundTrip(t *testing.T) {
	require := require.New(t)
	dashboard := decode(t, dashboardDoc)
	original := node.Clone(dashboard)

	res, err := visit.WalkDashboard(context.Background(), dashboard, Fetcher{})
	require.NoError(err)
	identity := make(map[string]string)
	for _, l := range res.Strings() {
		identity[l] = l
	}
	_, err = visit.WalkDashboard(context.Background(), dashboard, NewReplacer(identity))
	require.NoError(err)
	require.Equal(original, dashboard)
}
