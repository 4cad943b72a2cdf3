package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/fieldref"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

var cardAlias = regexp.MustCompile(`^card__(\d+)$`)

type filterOp int

const (
	comparisonOp filterOp = iota + 1
	logicalOp
	segmentOp
)

// filterOps lists the filter operators that can be rewritten.
var filterOps = map[string]filterOp{
	"=":                comparisonOp,
	"!=":               comparisonOp,
	"<":                comparisonOp,
	">":                comparisonOp,
	"<=":               comparisonOp,
	">=":               comparisonOp,
	"between":          comparisonOp,
	"starts-with":      comparisonOp,
	"ends-with":        comparisonOp,
	"contains":         comparisonOp,
	"does-not-contain": comparisonOp,
	"is-null":          comparisonOp,
	"not-null":         comparisonOp,
	"is-empty":         comparisonOp,
	"not-empty":        comparisonOp,
	"time-interval":    comparisonOp,
	"inside":           comparisonOp,
	"and":              logicalOp,
	"or":               logicalOp,
	"not":              logicalOp,
	"segment":          segmentOp,
}

func (r *Rewriter) query(ctx context.Context, q map[string]interface{}) error {
	if err := r.sourceTable(ctx, q); err != nil {
		return err
	}
	if f, ok := q["filter"]; ok && f != nil {
		if err := r.filter(ctx, f); err != nil {
			return err
		}
	}
	for _, key := range []string{"aggregation", "expressions", "fields"} {
		if v, ok := q[key]; ok {
			if err := r.fields(ctx, v); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	if b, ok := node.AsList(q["breakout"]); ok {
		if err := r.fields(ctx, b); err != nil {
			return fmt.Errorf("breakout: %w", err)
		}
		q["breakout"] = dedupeClauses(b)
	}
	if ob, ok := node.AsList(q["order-by"]); ok {
		if err := r.orderBy(ctx, ob); err != nil {
			return fmt.Errorf("order-by: %w", err)
		}
	}
	if joins, ok := node.AsList(q["joins"]); ok {
		for _, j := range joins {
			join, ok := node.AsObject(j)
			if !ok {
				continue
			}
			if err := r.join(ctx, join); err != nil {
				return fmt.Errorf("joins: %w", err)
			}
		}
	}
	return nil
}

// sourceTable rewrites the source-table of a query or join. Integer ids are
// paired with a target table, card__<id> aliases with the cloned card,
// which is migrated first.
func (r *Rewriter) sourceTable(ctx context.Context, q map[string]interface{}) error {
	v, ok := q["source-table"]
	if !ok || v == nil {
		return nil
	}
	if id, ok := node.AsInt(v); ok {
		if r.tables.IsTarget(id) {
			return nil
		}
		t, err := r.tables.Resolve(ctx, id)
		if err != nil {
			return err
		}
		q["source-table"] = t.ID
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: source-table %v", errdefs.ErrInvalidReference, v)
	}
	m := cardAlias.FindStringSubmatch(s)
	if m == nil {
		return fmt.Errorf("%w: source-table %q", errdefs.ErrInvalidReference, s)
	}
	old, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: source-table %q: %v", errdefs.ErrInvalidReference, s, err)
	}
	id, ok := r.transformations.Card(old)
	if !ok {
		return fmt.Errorf("%w: source-table %q reads a card outside the migrated collection", errdefs.ErrInvalidReference, s)
	}
	if r.cards != nil {
		if err := r.cards.MigrateCard(ctx, id); err != nil {
			return fmt.Errorf("migrate card %d read by %q: %w", id, s, err)
		}
	}
	q["source-table"] = fmt.Sprintf("card__%d", id)
	return nil
}

// filter rewrites a filter clause. Logical operators recurse into every
// argument, comparisons rewrite the field clauses among their arguments.
func (r *Rewriter) filter(ctx context.Context, clause interface{}) error {
	l, ok := node.AsList(clause)
	if !ok || len(l) == 0 {
		return fmt.Errorf("%w: filter clause %v", errdefs.ErrInvalidReference, clause)
	}
	op, ok := l[0].(string)
	if !ok {
		return fmt.Errorf("%w: filter operator %v", errdefs.ErrInvalidReference, l[0])
	}
	if op == fieldref.Field {
		return r.field(ctx, l)
	}
	switch filterOps[op] {
	case logicalOp:
		for _, arg := range l[1:] {
			if err := r.filter(ctx, arg); err != nil {
				return err
			}
		}
	case comparisonOp:
		for _, arg := range l[1:] {
			if err := r.fields(ctx, arg); err != nil {
				return err
			}
		}
	case segmentOp:
		return r.segment(ctx, l)
	default:
		return fmt.Errorf("%w: unknown filter operator %q", errdefs.ErrInvalidReference, op)
	}
	return nil
}

// segment maps ["segment", id] onto the segment of the same name defined on
// the paired target table.
func (r *Rewriter) segment(ctx context.Context, clause []interface{}) error {
	if len(clause) < 2 {
		return fmt.Errorf("%w: segment clause %v", errdefs.ErrInvalidReference, clause)
	}
	id, ok := node.AsInt(clause[1])
	if !ok {
		return nil
	}
	info, err := r.catalog.ItemInfo(ctx, catalog.KindSegment, id)
	if err != nil {
		return err
	}
	tableID, ok := node.Int(info, "table_id")
	if !ok || r.tables.IsTarget(tableID) {
		return nil
	}
	dst, err := r.tables.Resolve(ctx, tableID)
	if err != nil {
		return err
	}
	if dst.ID == tableID {
		return nil
	}
	name := node.String(info, "name")
	n, err := r.catalog.ItemID(ctx, catalog.KindSegment, name, catalog.Filter{TableID: dst.ID})
	if err != nil {
		return fmt.Errorf("%w: segment %q on %s: %v", errdefs.ErrNoEquivalent, name, dst, err)
	}
	log.Debug().Int64("from", id).Int64("to", n).Str("segment", name).Msg("remapped segment")
	clause[1] = n
	return nil
}

func (r *Rewriter) orderBy(ctx context.Context, items []interface{}) error {
	for _, it := range items {
		ob, ok := node.AsList(it)
		if !ok || len(ob) < 2 {
			continue
		}
		if head, _ := fieldref.Head(ob[1]); head == "aggregation" {
			continue
		}
		if err := r.fields(ctx, ob[1]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Rewriter) join(ctx context.Context, join map[string]interface{}) error {
	if err := r.sourceTable(ctx, join); err != nil {
		return err
	}
	if sq, ok := node.Object(join, "source-query"); ok {
		if err := r.query(ctx, sq); err != nil {
			return err
		}
	}
	if cond, ok := join["condition"]; ok && cond != nil {
		if err := r.filter(ctx, cond); err != nil {
			return err
		}
	}
	if fields, ok := node.AsList(join["fields"]); ok {
		return r.fields(ctx, fields)
	}
	return nil
}

// dedupeClauses drops repeated clauses, keeping the first occurrence.
func dedupeClauses(items []interface{}) []interface{} {
	seen := make(map[string]struct{}, len(items))
	out := make([]interface{}, 0, len(items))
	for _, it := range items {
		key, err := fieldref.Encode(it)
		if err == nil {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		out = append(out, it)
	}
	return out
}
