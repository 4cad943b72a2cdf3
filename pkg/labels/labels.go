// Package labels collects and translates the human readable strings of
// cards and dashboards.
package labels

import (
	"context"
	"strings"
	"unicode"

	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

// slot is a string position inside a document.
type slot struct {
	obj map[string]interface{}
	key string
}

func (s slot) get() (string, bool) {
	v, ok := s.obj[s.key].(string)
	return v, ok
}

// slots lists the label positions of a node.
func slots(kind visit.Kind, n interface{}) []slot {
	var out []slot
	switch kind {
	case visit.Card, visit.Dashboard, visit.Parameter:
		obj, ok := node.AsObject(n)
		if !ok {
			return nil
		}
		out = append(out, slot{obj, "name"})
		if kind != visit.Parameter {
			out = append(out, slot{obj, "description"})
		}
	case visit.Tabs:
		tabs, _ := node.AsList(n)
		for _, t := range tabs {
			if tab, ok := node.AsObject(t); ok {
				out = append(out, slot{tab, "name"})
			}
		}
	case visit.VisualizationSettings:
		vs, ok := node.AsObject(n)
		if !ok {
			return nil
		}
		for _, key := range node.SortedKeys(vs) {
			if key == "text" || strings.HasSuffix(key, "title_text") {
				out = append(out, slot{vs, key})
			}
		}
	case visit.ColumnSettings:
		out = children(n, "column_title")
	case visit.SeriesSettings:
		out = children(n, "title")
	}
	return out
}

func children(n interface{}, key string) []slot {
	m, ok := node.AsObject(n)
	if !ok {
		return nil
	}
	var out []slot
	for _, k := range node.SortedKeys(m) {
		if child, ok := node.AsObject(m[k]); ok {
			out = append(out, slot{child, key})
		}
	}
	return out
}

// Fetcher collects the labels of the visited documents.
type Fetcher struct{}

var _ visit.Visitor = Fetcher{}

// Visit returns the set of non-blank labels of the current node, without
// surrounding whitespace.
func (Fetcher) Visit(_ context.Context, n interface{}, stack visit.Stack) (visit.Result, error) {
	var found []string
	for _, s := range slots(stack.Top().Kind, n) {
		if v, ok := s.get(); ok {
			if t := strings.TrimSpace(v); t != "" {
				found = append(found, t)
			}
		}
	}
	if len(found) == 0 {
		return visit.Empty(), nil
	}
	return visit.Set(found...), nil
}

// Replacer substitutes labels using a dictionary. Surrounding whitespace of
// the original label is kept.
type Replacer struct {
	dictionary map[string]string
	replaced   int
}

var _ visit.Visitor = &Replacer{}

// NewReplacer returns a replacer for the given translations.
func NewReplacer(dictionary map[string]string) *Replacer {
	return &Replacer{dictionary: dictionary}
}

// Replaced returns how many labels were substituted so far.
func (r *Replacer) Replaced() int {
	return r.replaced
}

// Visit substitutes the labels of the current node.
func (r *Replacer) Visit(_ context.Context, n interface{}, stack visit.Stack) (visit.Result, error) {
	for _, s := range slots(stack.Top().Kind, n) {
		v, ok := s.get()
		if !ok {
			continue
		}
		if out, ok := r.Translate(v); ok {
			s.obj[s.key] = out
			r.replaced++
		}
	}
	return visit.Empty(), nil
}

// Translate looks up the trimmed label and pads the translation with the
// original leading and trailing whitespace.
func (r *Replacer) Translate(label string) (string, bool) {
	trimmed := strings.TrimSpace(label)
	to, ok := r.dictionary[trimmed]
	if !ok || trimmed == "" {
		return label, false
	}
	left := len(label) - len(strings.TrimLeftFunc(label, unicode.IsSpace))
	right := len(label) - len(strings.TrimRightFunc(label, unicode.IsSpace))
	return label[:left] + to + label[len(label)-right:], true
}
