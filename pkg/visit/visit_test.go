package visit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/node"
)

func decode(t *testing.T, doc string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, node.DecodeInto([]byte(doc), &out))
	return out
}

// recorder records the path of kinds leading to every visited node.
type recorder struct {
	paths [][]Kind
}

func (r *recorder) Visit(_ context.Context, _ interface{}, stack Stack) (Result, error) {
	r.paths = append(r.paths, stack.Kinds())
	return Empty(), nil
}

func TestWalkCardOrder(t *testing.T) {
	require := require.New(t)
	card := decode(t, `{
		"id": 1,
		"dataset_query": {"type": "query", "query": {"source-query": {"source-table": 1}}},
		"visualization_settings": {
			"graph.dimensions": ["a"],
			"table.columns": [{"name": "a"}, {"name": "b"}],
			"click_behavior": {"type": "link", "parameterMapping": {}},
			"column_settings": {"[\"name\",\"a\"]": {"click_behavior": {"type": "link"}}},
			"series_settings": {"a": {"title": "A"}}
		}
	}`)

	r := &recorder{}
	_, err := WalkCard(context.Background(), card, r)
	require.NoError(err)
	require.Equal([][]Kind{
		{Card},
		{Card, QueryPart},
		{Card, QueryPart, QueryPart},
		{Card, VisualizationSettings},
		{Card, VisualizationSettings, GraphDimensions},
		{Card, VisualizationSettings, TableColumns, TableColumn},
		{Card, VisualizationSettings, TableColumns, TableColumn},
		{Card, VisualizationSettings, TableColumns},
		{Card, VisualizationSettings, ClickBehavior},
		{Card, VisualizationSettings, ClickBehavior, ParameterMapping},
		{Card, VisualizationSettings, ColumnSettings},
		{Card, VisualizationSettings, ColumnSettings, ClickBehavior},
		{Card, VisualizationSettings, SeriesSettings},
	}, r.paths)
}

func TestWalkDashboard(t *testing.T) {
	require := require.New(t)
	dashboard := decode(t, `{
		"id": 3,
		"tabs": [{"id": 1, "name": "One"}],
		"parameters": [{"id": "p1"}, {"id": "p2"}],
		"param_values": {},
		"param_fields": {},
		"ordered_cards": [{"id": 1, "card_id": 4, "visualization_settings": {}}]
	}`)

	r := &recorder{}
	_, err := WalkDashboard(context.Background(), dashboard, r)
	require.NoError(err)
	require.Equal([][]Kind{
		{Dashboard},
		{Dashboard, Tabs},
		{Dashboard, Parameter},
		{Dashboard, Parameter},
		{Dashboard, ParamValues},
		{Dashboard, ParamFields},
		{Dashboard, Card},
		{Dashboard, Card, VisualizationSettings},
	}, r.paths)
}

func TestDashcardsPrefersDashcards(t *testing.T) {
	d := decode(t, `{"dashcards": [{"id": 1}], "ordered_cards": [{"id": 2}, {"id": 3}]}`)
	require.Len(t, Dashcards(d), 1)
	require.Empty(t, Dashcards(map[string]interface{}{}))
}

func TestTableColumnsListReplacesParent(t *testing.T) {
	require := require.New(t)
	card := decode(t, `{"visualization_settings": {"table.columns": [{"name": "a"}, {"name": "a"}]}}`)

	v := Func(func(_ context.Context, n interface{}, stack Stack) (Result, error) {
		if stack.Top().Kind != TableColumns {
			return Empty(), nil
		}
		cols := n.([]interface{})
		return List(cols[0]), nil
	})
	_, err := WalkCard(context.Background(), card, v)
	require.NoError(err)
	cols, _ := node.Get(card, "visualization_settings", "table.columns")
	require.Len(cols, 1)
}

func TestWalkAccumulatesSets(t *testing.T) {
	require := require.New(t)
	dashboard := decode(t, `{"name": "d", "dashcards": [{"name": "c1"}, {"name": "c2"}]}`)
	v := Func(func(_ context.Context, n interface{}, stack Stack) (Result, error) {
		switch stack.Top().Kind {
		case Dashboard, Card:
			return Set(node.String(n.(map[string]interface{}), "name")), nil
		}
		return Empty(), nil
	})
	res, err := WalkDashboard(context.Background(), dashboard, v)
	require.NoError(err)
	require.Equal([]string{"c1", "c2", "d"}, res.Strings())
}

func TestWalkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	card := decode(t, `{"dataset_query": {"query": {}}}`)
	calls := 0
	v := Func(func(_ context.Context, _ interface{}, stack Stack) (Result, error) {
		calls++
		if stack.Top().Kind == QueryPart {
			return Empty(), boom
		}
		return Empty(), nil
	})
	_, err := WalkCard(context.Background(), card, v)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}

func TestStackNearest(t *testing.T) {
	require := require.New(t)
	s := Stack{{Kind: Dashboard, Node: "d"}, {Kind: Card, Node: "c"}, {Kind: VisualizationSettings}}
	f, ok := s.Nearest(Card)
	require.True(ok)
	require.Equal("c", f.Node)
	_, ok = s.Nearest(Tabs)
	require.False(ok)
	require.Equal(VisualizationSettings, s.Top().Kind)
	require.Equal(Kind(-1), Stack{}.Top().Kind)
	require.Equal("TABLE_COLUMNS", TableColumns.String())
}

func TestResultUnion(t *testing.T) {
	require := require.New(t)

	r, err := Empty().Union(Set("a"))
	require.NoError(err)
	r, err = r.Union(Set("b", "a"))
	require.NoError(err)
	require.Equal([]string{"a", "b"}, r.Strings())

	l, err := List(1).Union(List(2))
	require.NoError(err)
	require.Equal([]interface{}{1, 2}, l.Items())

	_, err = Set("a").Union(List(1))
	require.ErrorIs(err, ErrIncompatible)

	e, err := Empty().Union(Empty())
	require.NoError(err)
	require.True(e.IsEmpty())
}
