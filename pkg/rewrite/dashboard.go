package rewrite

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/equivalence"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/fieldref"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

// paramValues re-keys the cached parameter values under the target column
// ids. Cached values are dropped, the server refills them. When two keys
// land on the same column the first one, in key order, wins.
func (r *Rewriter) paramValues(ctx context.Context, pv map[string]interface{}) error {
	renamed := make(map[string]interface{}, len(pv))
	for _, key := range node.SortedKeys(pv) {
		id, err := node.KeyInt(key)
		if err != nil {
			return err
		}
		_, _, _, err = r.tables.ColumnEquivalent(ctx, id)
		if equivalence.IsAlreadyMigrated(err) {
			renamed[key] = pv[key]
			continue
		}
		if err != nil {
			return err
		}
		n, err := r.column(ctx, id)
		if err != nil {
			return err
		}
		entry, ok := node.AsObject(pv[key])
		if !ok {
			return fmt.Errorf("%w: param_values entry %q is a %T", errdefs.ErrSchema, key, pv[key])
		}
		newKey := node.FormatInt(n)
		if _, dup := renamed[newKey]; dup {
			log.Debug().Str("key", key).Str("as", newKey).Msg("dropped duplicate param_values entry")
			continue
		}
		entry["field_id"] = n
		entry["values"] = []interface{}{}
		renamed[newKey] = entry
	}
	replace(pv, renamed)
	return nil
}

// paramFields re-keys the parameter field descriptions, matching columns by
// name on the paired target table.
func (r *Rewriter) paramFields(ctx context.Context, pf map[string]interface{}) error {
	renamed := make(map[string]interface{}, len(pf))
	for _, key := range node.SortedKeys(pf) {
		if _, err := node.KeyInt(key); err != nil {
			return err
		}
		entry, ok := node.AsObject(pf[key])
		if !ok {
			return fmt.Errorf("%w: param_fields entry %q is a %T", errdefs.ErrSchema, key, pf[key])
		}
		tableID, ok := node.Int(entry, "table_id")
		if !ok || r.tables.IsTarget(tableID) {
			renamed[key] = entry
			continue
		}
		dst, err := r.tables.Resolve(ctx, tableID)
		if err != nil {
			return err
		}
		if dst.ID == tableID {
			renamed[key] = entry
			continue
		}
		n, err := r.columnByName(ctx, dst, node.String(entry, "name"))
		if err != nil {
			return err
		}
		newKey := node.FormatInt(n)
		if _, dup := renamed[newKey]; dup {
			log.Debug().Str("key", key).Str("as", newKey).Msg("dropped duplicate param_fields entry")
			continue
		}
		entry["id"] = n
		entry["table_id"] = dst.ID
		renamed[newKey] = entry
	}
	replace(pf, renamed)
	return nil
}

func (r *Rewriter) columnByName(ctx context.Context, t *catalog.Table, name string) (int64, error) {
	cols, err := r.catalog.Columns(ctx, t.ID)
	if err != nil {
		return 0, err
	}
	if id, ok := cols.ColumnID(r.replaceName(name)); ok {
		return id, nil
	}
	if id, ok := cols.ColumnID(name); ok {
		return id, nil
	}
	return 0, fmt.Errorf("%w: no column %q on %s", errdefs.ErrNoEquivalent, name, t)
}

// parameter points a dashboard filter sourcing its values from a card at
// the cloned card.
func (r *Rewriter) parameter(ctx context.Context, p map[string]interface{}) error {
	if node.String(p, "values_source_type") != "card" {
		return nil
	}
	cfg, ok := node.Object(p, "values_source_config")
	if !ok {
		return nil
	}
	if id, ok := node.Int(cfg, "card_id"); ok {
		if n, ok := r.transformations.Card(id); ok {
			cfg["card_id"] = n
		} else {
			log.Warn().Int64("card", id).Str("parameter", node.String(p, "name")).Msg("parameter values come from a card outside the migrated collection")
		}
	}
	for _, key := range []string{"value_field", "label_field"} {
		if f, ok := node.AsList(cfg[key]); ok && fieldref.IsField(f) {
			if err := r.field(ctx, f); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	return nil
}

func replace(dst, src map[string]interface{}) {
	for k := range dst {
		delete(dst, k)
	}
	for k, v := range src {
		dst[k] = v
	}
}
