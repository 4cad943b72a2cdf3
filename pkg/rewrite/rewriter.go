// Package rewrite redirects the database, table, column and card references
// embedded in cards and dashboards to their counterparts in the target
// database and in the cloned collection.
package rewrite

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/equivalence"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/fieldref"
	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

// CardMigrator migrates a card of the cloned collection, at most once per
// run. It is called before a query that reads from that card is rewritten.
type CardMigrator interface {
	MigrateCard(ctx context.Context, id int64) error
}

// Rewriter is the visitor rewriting references in place.
type Rewriter struct {
	tables          *equivalence.Resolver
	catalog         *catalog.Catalog
	personalization *config.Personalization
	transformations *config.Transformations
	cards           CardMigrator
}

var _ visit.Visitor = &Rewriter{}

// NewRewriter returns a rewriter. cards may be nil, in which case
// referenced cards are remapped without being migrated first.
func NewRewriter(tables *equivalence.Resolver, cat *catalog.Catalog, p *config.Personalization, t *config.Transformations, cards CardMigrator) *Rewriter {
	if p == nil {
		p = &config.Personalization{}
	}
	if t == nil {
		t = config.NewTransformations()
	}
	return &Rewriter{
		tables:          tables,
		catalog:         cat,
		personalization: p,
		transformations: t,
		cards:           cards,
	}
}

// Visit rewrites the node on top of the stack.
func (r *Rewriter) Visit(ctx context.Context, n interface{}, stack visit.Stack) (visit.Result, error) {
	kind := stack.Top().Kind
	switch kind {
	case visit.TableColumns:
		cols, ok := node.AsList(n)
		if !ok {
			return visit.Empty(), schemaError(kind, n)
		}
		return dedupeTableColumns(cols), nil
	case visit.GraphDimensions:
		dims, ok := node.AsList(n)
		if !ok {
			return visit.Empty(), schemaError(kind, n)
		}
		r.graphDimensions(dims)
		return visit.Empty(), nil
	case visit.Tabs, visit.Dashboard, visit.Collection, visit.Pulse, visit.SeriesSettings, visit.VisualizationSettings:
		return visit.Empty(), nil
	}

	obj, ok := node.AsObject(n)
	if !ok {
		return visit.Empty(), schemaError(kind, n)
	}
	var err error
	switch kind {
	case visit.Card:
		err = r.card(ctx, obj)
	case visit.QueryPart:
		err = r.query(ctx, obj)
	case visit.TableColumn:
		err = r.tableColumn(ctx, obj)
	case visit.ColumnSettings:
		err = r.columnSettings(ctx, obj)
	case visit.ClickBehavior:
		err = r.clickBehavior(obj)
	case visit.ParameterMapping:
		err = r.parameterMapping(ctx, obj)
	case visit.ParamValues:
		err = r.paramValues(ctx, obj)
	case visit.ParamFields:
		err = r.paramFields(ctx, obj)
	case visit.Parameter:
		err = r.parameter(ctx, obj)
	}
	if err != nil {
		return visit.Empty(), fmt.Errorf("%s: %w", kind, err)
	}
	return visit.Empty(), nil
}

func (r *Rewriter) card(ctx context.Context, card map[string]interface{}) error {
	if err := r.redirect(ctx, card); err != nil {
		return err
	}
	if md, ok := node.AsList(card["result_metadata"]); ok {
		for _, m := range md {
			meta, ok := node.AsObject(m)
			if !ok {
				continue
			}
			ref, ok := node.AsList(meta["field_ref"])
			if !ok || !fieldref.IsField(ref) {
				continue
			}
			if _, ok := node.AsInt(ref[1]); !ok {
				continue
			}
			if err := r.field(ctx, ref); err != nil {
				return err
			}
			meta["id"] = ref[1]
		}
	}
	if nested, ok := node.Object(card, "card"); ok {
		if err := r.redirect(ctx, nested); err != nil {
			return err
		}
	}
	return r.parameterMappings(ctx, card)
}

// redirect points a card at the target database and table.
func (r *Rewriter) redirect(ctx context.Context, card map[string]interface{}) error {
	target := r.tables.TargetDB()
	dq, hasQuery := node.Object(card, "dataset_query")
	if _, ok := card["database_id"]; ok || hasQuery {
		card["database_id"] = target
	}
	if hasQuery {
		dq["database"] = target
	}
	id, ok := node.Int(card, "table_id")
	if !ok || r.tables.IsTarget(id) {
		return nil
	}
	t, err := r.tables.Resolve(ctx, id)
	if err != nil {
		return err
	}
	card["table_id"] = t.ID
	return nil
}

func (r *Rewriter) parameterMappings(ctx context.Context, card map[string]interface{}) error {
	mappings, ok := node.AsList(card["parameter_mappings"])
	if !ok {
		return nil
	}
	for _, m := range mappings {
		pm, ok := node.AsObject(m)
		if !ok {
			continue
		}
		if id, ok := node.Int(pm, "card_id"); ok {
			if n, ok := r.transformations.Card(id); ok {
				pm["card_id"] = n
			} else {
				log.Warn().Int64("card", id).Msg("parameter mapping points at a card outside the migrated collection")
			}
		}
		f, ok := fieldref.DimensionField(pm["target"])
		if !ok {
			continue
		}
		if err := r.fieldOrName(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// column maps a source column id onto the target database, then applies the
// personalised replacement. Columns already on a target table are kept.
func (r *Rewriter) column(ctx context.Context, id int64) (int64, error) {
	n, _, dst, err := r.tables.ColumnEquivalent(ctx, id)
	if equivalence.IsAlreadyMigrated(err) {
		return id, nil
	}
	if err != nil {
		return 0, err
	}
	if len(r.personalization.FieldsReplacements) == 0 {
		return n, nil
	}
	cols, err := r.catalog.Columns(ctx, dst.ID)
	if err != nil {
		return 0, err
	}
	rep, ok, err := r.personalization.ReplacementColumnID(n, cols)
	if err != nil {
		return 0, err
	}
	if ok {
		return rep, nil
	}
	return n, nil
}

// field rewrites a ["field", N, opts] clause in place.
func (r *Rewriter) field(ctx context.Context, f []interface{}) error {
	if id, ok := node.AsInt(f[1]); ok {
		n, err := r.column(ctx, id)
		if err != nil {
			return err
		}
		f[1] = n
	}
	if opts, ok := fieldref.Options(f); ok {
		if fk, ok := node.AsInt(opts["source-field"]); ok {
			n, err := r.column(ctx, fk)
			if err != nil {
				return err
			}
			opts["source-field"] = n
		}
	}
	return nil
}

// fieldOrName rewrites an integer field clause, or replaces the column name
// of a named one.
func (r *Rewriter) fieldOrName(ctx context.Context, f []interface{}) error {
	if name, ok := fieldref.FieldName(f); ok {
		if rep, ok := r.personalization.ReplacementName(name); ok {
			f[1] = rep
		}
		return nil
	}
	return r.field(ctx, f)
}

// fields rewrites every field clause nested in v.
func (r *Rewriter) fields(ctx context.Context, v interface{}) error {
	return fieldref.Walk(v, func(f []interface{}) error {
		return r.field(ctx, f)
	})
}

func (r *Rewriter) replaceName(s string) string {
	if rep, ok := r.personalization.ReplacementName(s); ok {
		return rep
	}
	return s
}

func schemaError(kind visit.Kind, n interface{}) error {
	return fmt.Errorf("%w: %s node is a %T", errdefs.ErrSchema, kind, n)
}
