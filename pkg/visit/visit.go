// Package visit walks card and dashboard documents depth first, calling a
// Visitor on every node it recognises together with the stack of node kinds
// leading to it.
package visit

import (
	"context"

	"github.com/workbook-tools/collection-migrator/pkg/node"
)

// Visitor is called once per recognised node. Nodes are visited before
// their children, except TABLE_COLUMNS which is visited after its
// TABLE_COLUMN children. A list Result returned for TABLE_COLUMNS replaces
// the visited list in its parent.
type Visitor interface {
	Visit(ctx context.Context, n interface{}, stack Stack) (Result, error)
}

// Func adapts a function to the Visitor interface.
type Func func(ctx context.Context, n interface{}, stack Stack) (Result, error)

// Visit calls f.
func (f Func) Visit(ctx context.Context, n interface{}, stack Stack) (Result, error) {
	return f(ctx, n, stack)
}

// WalkCard visits a card.
func WalkCard(ctx context.Context, card map[string]interface{}, v Visitor) (Result, error) {
	w := &walker{v: v}
	err := w.card(ctx, card)
	return w.acc, err
}

// WalkDashboard visits a dashboard and each of its dashcards as a card.
func WalkDashboard(ctx context.Context, dashboard map[string]interface{}, v Visitor) (Result, error) {
	w := &walker{v: v}
	err := w.dashboard(ctx, dashboard)
	return w.acc, err
}

// WalkCollection visits a collection object. Its items are not visited.
func WalkCollection(ctx context.Context, collection map[string]interface{}, v Visitor) (Result, error) {
	w := &walker{v: v}
	err := w.enter(ctx, Collection, collection, nil)
	return w.acc, err
}

// WalkPulse visits a pulse object.
func WalkPulse(ctx context.Context, pulse map[string]interface{}, v Visitor) (Result, error) {
	w := &walker{v: v}
	err := w.enter(ctx, Pulse, pulse, nil)
	return w.acc, err
}

type walker struct {
	v     Visitor
	stack Stack
	acc   Result
}

func (w *walker) push(kind Kind, n interface{}) {
	w.stack = append(w.stack, Frame{Kind: kind, Node: n})
}

func (w *walker) pop() {
	w.stack = w.stack[:len(w.stack)-1]
}

func (w *walker) call(ctx context.Context, n interface{}) (Result, error) {
	return w.v.Visit(ctx, n, w.stack)
}

func (w *walker) collect(res Result) error {
	acc, err := w.acc.Union(res)
	if err != nil {
		return err
	}
	w.acc = acc
	return nil
}

func (w *walker) enter(ctx context.Context, kind Kind, n interface{}, children func() error) error {
	w.push(kind, n)
	defer w.pop()
	res, err := w.call(ctx, n)
	if err != nil {
		return err
	}
	if err := w.collect(res); err != nil {
		return err
	}
	if children == nil {
		return nil
	}
	return children()
}

func (w *walker) card(ctx context.Context, card map[string]interface{}) error {
	return w.enter(ctx, Card, card, func() error {
		if q, ok := node.Get(card, "dataset_query", "query"); ok {
			if query, ok := node.AsObject(q); ok {
				if err := w.query(ctx, query); err != nil {
					return err
				}
			}
		}
		if vs, ok := node.Object(card, "visualization_settings"); ok {
			return w.visualization(ctx, vs)
		}
		return nil
	})
}

func (w *walker) query(ctx context.Context, query map[string]interface{}) error {
	return w.enter(ctx, QueryPart, query, func() error {
		if sq, ok := node.Object(query, "source-query"); ok {
			return w.query(ctx, sq)
		}
		return nil
	})
}

func (w *walker) visualization(ctx context.Context, vs map[string]interface{}) error {
	return w.enter(ctx, VisualizationSettings, vs, func() error {
		if dims, ok := node.AsList(vs["graph.dimensions"]); ok {
			if err := w.enter(ctx, GraphDimensions, dims, nil); err != nil {
				return err
			}
		}
		if cols, ok := node.AsList(vs["table.columns"]); ok {
			if err := w.tableColumns(ctx, vs, cols); err != nil {
				return err
			}
		}
		if cb, ok := node.Object(vs, "click_behavior"); ok {
			if err := w.clickBehavior(ctx, cb); err != nil {
				return err
			}
		}
		if cs, ok := node.Object(vs, "column_settings"); ok {
			if err := w.columnSettings(ctx, cs); err != nil {
				return err
			}
		}
		if ss, ok := node.Object(vs, "series_settings"); ok {
			return w.enter(ctx, SeriesSettings, ss, nil)
		}
		return nil
	})
}

func (w *walker) tableColumns(ctx context.Context, vs map[string]interface{}, cols []interface{}) error {
	w.push(TableColumns, cols)
	defer w.pop()
	for _, c := range cols {
		if col, ok := node.AsObject(c); ok {
			if err := w.enter(ctx, TableColumn, col, nil); err != nil {
				return err
			}
		}
	}
	res, err := w.call(ctx, cols)
	if err != nil {
		return err
	}
	if res.IsList() {
		vs["table.columns"] = res.Items()
		return nil
	}
	return w.collect(res)
}

func (w *walker) clickBehavior(ctx context.Context, cb map[string]interface{}) error {
	return w.enter(ctx, ClickBehavior, cb, func() error {
		if pm, ok := node.Object(cb, "parameterMapping"); ok {
			return w.enter(ctx, ParameterMapping, pm, nil)
		}
		return nil
	})
}

func (w *walker) columnSettings(ctx context.Context, cs map[string]interface{}) error {
	return w.enter(ctx, ColumnSettings, cs, func() error {
		for _, key := range node.SortedKeys(cs) {
			setting, ok := node.AsObject(cs[key])
			if !ok {
				continue
			}
			if cb, ok := node.Object(setting, "click_behavior"); ok {
				if err := w.clickBehavior(ctx, cb); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (w *walker) dashboard(ctx context.Context, d map[string]interface{}) error {
	return w.enter(ctx, Dashboard, d, func() error {
		if tabs, ok := node.AsList(d["tabs"]); ok {
			if err := w.enter(ctx, Tabs, tabs, nil); err != nil {
				return err
			}
		}
		if params, ok := node.AsList(d["parameters"]); ok {
			for _, p := range params {
				if param, ok := node.AsObject(p); ok {
					if err := w.enter(ctx, Parameter, param, nil); err != nil {
						return err
					}
				}
			}
		}
		if pv, ok := node.Object(d, "param_values"); ok {
			if err := w.enter(ctx, ParamValues, pv, nil); err != nil {
				return err
			}
		}
		if pf, ok := node.Object(d, "param_fields"); ok {
			if err := w.enter(ctx, ParamFields, pf, nil); err != nil {
				return err
			}
		}
		for _, dc := range Dashcards(d) {
			if err := w.card(ctx, dc); err != nil {
				return err
			}
		}
		return nil
	})
}

// Dashcards returns the dashcards of a dashboard. Older servers call them
// ordered_cards.
func Dashcards(d map[string]interface{}) []map[string]interface{} {
	raw, ok := node.AsList(d["dashcards"])
	if !ok {
		raw, _ = node.AsList(d["ordered_cards"])
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, dc := range raw {
		if m, ok := node.AsObject(dc); ok {
			out = append(out, m)
		}
	}
	return out
}
