package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/fieldref"
	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

func (r *Rewriter) graphDimensions(dims []interface{}) {
	for i, d := range dims {
		if s, ok := d.(string); ok {
			dims[i] = r.replaceName(s)
		}
	}
}

func (r *Rewriter) tableColumn(ctx context.Context, col map[string]interface{}) error {
	if ref, ok := node.AsList(col["fieldRef"]); ok && fieldref.IsField(ref) {
		if err := r.field(ctx, ref); err != nil {
			return err
		}
	}
	if key, ok := col["key"].(string); ok && strings.HasPrefix(key, "[") {
		rewritten, err := r.settingKey(ctx, key)
		if err != nil {
			return err
		}
		col["key"] = rewritten
	}
	if name, ok := col["name"].(string); ok {
		col["name"] = r.replaceName(name)
	}
	return nil
}

// dedupeTableColumns drops columns whose name was already seen. Columns
// without a name are kept.
func dedupeTableColumns(cols []interface{}) visit.Result {
	seen := make(map[string]struct{}, len(cols))
	out := make([]interface{}, 0, len(cols))
	for _, c := range cols {
		if col, ok := node.AsObject(c); ok {
			if name, ok := col["name"].(string); ok {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
			}
		}
		out = append(out, c)
	}
	return visit.List(out...)
}

// columnSettings renames the keys of the column_settings map. When two keys
// collapse onto the same target column the first one, in key order, wins.
func (r *Rewriter) columnSettings(ctx context.Context, cs map[string]interface{}) error {
	keys := node.SortedKeys(cs)
	renamed := make(map[string]interface{}, len(cs))
	for _, key := range keys {
		rewritten, err := r.settingKey(ctx, key)
		if err != nil {
			return err
		}
		if _, dup := renamed[rewritten]; dup {
			log.Debug().Str("key", key).Str("as", rewritten).Msg("dropped duplicate column setting")
			continue
		}
		renamed[rewritten] = cs[key]
	}
	replace(cs, renamed)
	return nil
}

// settingKey rewrites a string encoded ["ref", ["field", N, ...]] or
// ["name", S] tuple and returns it in canonical form.
func (r *Rewriter) settingKey(ctx context.Context, key string) (string, error) {
	tuple, err := fieldref.Decode(key)
	if err != nil {
		return "", err
	}
	if len(tuple) < 2 {
		return "", fmt.Errorf("%w: setting key %q", errdefs.ErrSchema, key)
	}
	switch tuple[0] {
	case fieldref.Ref:
		if f, ok := node.AsList(tuple[1]); ok && fieldref.IsField(f) {
			if err := r.fieldOrName(ctx, f); err != nil {
				return "", err
			}
		}
	case fieldref.Name:
		if name, ok := tuple[1].(string); ok {
			tuple[1] = r.replaceName(name)
		}
	}
	return fieldref.Encode(tuple)
}

// clickBehavior points a click action at the cloned tab, card or dashboard.
func (r *Rewriter) clickBehavior(cb map[string]interface{}) error {
	if tab, ok := node.Int(cb, "tabId"); ok {
		if n, ok := r.transformations.Tab(tab); ok {
			cb["tabId"] = n
		}
	}
	target, ok := node.Int(cb, "targetId")
	if !ok {
		return nil
	}
	var (
		n     int64
		found bool
	)
	switch node.String(cb, "linkType") {
	case "question":
		n, found = r.transformations.Card(target)
	case "dashboard":
		n, found = r.transformations.Dashboard(target)
	default:
		if n, found = r.transformations.Card(target); !found {
			n, found = r.transformations.Dashboard(target)
		}
	}
	if !found {
		return fmt.Errorf("%w: click behavior target %d is neither a migrated card nor a migrated dashboard", errdefs.ErrNotFound, target)
	}
	cb["targetId"] = n
	return nil
}

// parameterMapping rewrites the click behavior parameter mappings, a map
// from mapping id to mapping. Dimension targets are re-keyed under their
// rewritten dimension.
func (r *Rewriter) parameterMapping(ctx context.Context, pm map[string]interface{}) error {
	renamed := make(map[string]interface{}, len(pm))
	for _, key := range node.SortedKeys(pm) {
		mapping, ok := node.AsObject(pm[key])
		if !ok {
			renamed[key] = pm[key]
			continue
		}
		newKey := key
		if target, ok := node.Object(mapping, "target"); ok && node.String(target, "type") == fieldref.Dimension {
			if f, ok := fieldref.DimensionField(target["dimension"]); ok {
				if err := r.fieldOrName(ctx, f); err != nil {
					return err
				}
			}
			if dim, ok := target["dimension"]; ok {
				id, err := fieldref.Encode(dim)
				if err != nil {
					return err
				}
				mapping["id"] = id
				target["id"] = id
				newKey = id
			}
		}
		if source, ok := node.Object(mapping, "source"); ok && node.String(source, "type") == "column" {
			if err := r.mappingSource(ctx, source); err != nil {
				return err
			}
		}
		if _, dup := renamed[newKey]; dup {
			continue
		}
		renamed[newKey] = mapping
	}
	replace(pm, renamed)
	return nil
}

func (r *Rewriter) mappingSource(ctx context.Context, source map[string]interface{}) error {
	switch id := source["id"].(type) {
	case string:
		source["id"] = r.replaceName(id)
	default:
		if n, ok := node.AsInt(id); ok {
			col, err := r.column(ctx, n)
			if err != nil {
				return err
			}
			source["id"] = col
		}
	}
	if name, ok := source["name"].(string); ok {
		source["name"] = r.replaceName(name)
	}
	return nil
}
