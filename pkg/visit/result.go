package visit

import (
	"errors"
	"sort"
)

// ErrIncompatible is returned when two results of different kinds are
// combined.
var ErrIncompatible = errors.New("cannot combine visit results of different kinds")

type resultKind int

const (
	emptyResult resultKind = iota
	setResult
	listResult
)

// Result is what a visitor returns for one node. Results accumulate over a
// walk: the empty result combines with anything, sets and lists only with
// their own kind.
type Result struct {
	kind resultKind
	set  map[string]struct{}
	list []interface{}
}

// Empty is the neutral result.
func Empty() Result {
	return Result{}
}

// Set builds a string set result.
func Set(values ...string) Result {
	r := Result{kind: setResult, set: make(map[string]struct{}, len(values))}
	for _, v := range values {
		r.set[v] = struct{}{}
	}
	return r
}

// List builds a list result.
func List(items ...interface{}) Result {
	if items == nil {
		items = []interface{}{}
	}
	return Result{kind: listResult, list: items}
}

// IsEmpty reports whether the visitor left the node alone.
func (r Result) IsEmpty() bool { return r.kind == emptyResult }

// IsSet reports whether the result carries a set of strings.
func (r Result) IsSet() bool { return r.kind == setResult }

// IsList reports whether the result replaces the node with a list.
func (r Result) IsList() bool { return r.kind == listResult }

// Strings returns the members of a set result in sorted order.
func (r Result) Strings() []string {
	out := make([]string, 0, len(r.set))
	for s := range r.set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Items returns the elements of a list result.
func (r Result) Items() []interface{} {
	return r.list
}

// Union combines two results.
func (r Result) Union(o Result) (Result, error) {
	switch {
	case o.kind == emptyResult:
		return r, nil
	case r.kind == emptyResult:
		return o, nil
	case r.kind != o.kind:
		return Result{}, ErrIncompatible
	case r.kind == setResult:
		out := Set()
		for s := range r.set {
			out.set[s] = struct{}{}
		}
		for s := range o.set {
			out.set[s] = struct{}{}
		}
		return out, nil
	default:
		items := make([]interface{}, 0, len(r.list)+len(o.list))
		items = append(items, r.list...)
		items = append(items, o.list...)
		return List(items...), nil
	}
}
