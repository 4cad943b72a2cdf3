// Package equivalence pairs source tables with their counterpart in the
// target database and maps source columns onto target columns by name.
package equivalence

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

// Catalog is the subset of catalog.Catalog the resolver reads from.
type Catalog interface {
	Table(ctx context.Context, id int64) (*catalog.Table, error)
	FindTable(ctx context.Context, name, schema string, dbID int64) (*catalog.Table, error)
	Columns(ctx context.Context, tableID int64) (*catalog.Columns, error)
	FieldTable(ctx context.Context, fieldID int64) (int64, error)
}

var _ Catalog = &catalog.Catalog{}

// Resolver holds the source to target table pairs of one run. Every target
// table belongs to the database fixed at construction.
type Resolver struct {
	catalog Catalog
	target  int64

	pairs   map[int64]int64
	targets map[int64]struct{}
}

// NewResolver returns a resolver pairing tables into the target database.
func NewResolver(cat Catalog, targetDB int64) *Resolver {
	return &Resolver{
		catalog: cat,
		target:  targetDB,
		pairs:   make(map[int64]int64),
		targets: make(map[int64]struct{}),
	}
}

// TargetDB is the database every target table belongs to.
func (r *Resolver) TargetDB() int64 {
	return r.target
}

// Add registers a source to target pair.
func (r *Resolver) Add(ctx context.Context, src, dst int64) error {
	if src == dst {
		return fmt.Errorf("%w: table %d cannot be paired with itself", errdefs.ErrConfiguration, src)
	}
	if _, ok := r.pairs[dst]; ok {
		return fmt.Errorf("%w: table %d is already a source table", errdefs.ErrConfiguration, dst)
	}
	if _, ok := r.targets[src]; ok {
		return fmt.Errorf("%w: table %d is already a target table", errdefs.ErrConfiguration, src)
	}
	if existing, ok := r.pairs[src]; ok {
		if existing == dst {
			return nil
		}
		return fmt.Errorf("%w: table %d is already paired with %d, not %d", errdefs.ErrConfiguration, src, existing, dst)
	}
	t, err := r.catalog.Table(ctx, dst)
	if err != nil {
		return err
	}
	if t.DBID != r.target {
		return fmt.Errorf("%w: table %s belongs to database %d, not %d", errdefs.ErrConfiguration, t, t.DBID, r.target)
	}
	r.pairs[src] = dst
	r.targets[dst] = struct{}{}
	return nil
}

// IsTarget reports whether a table is known to live in the target database.
func (r *Resolver) IsTarget(tableID int64) bool {
	_, ok := r.targets[tableID]
	return ok
}

// Resolve returns the target table for a source table. Unknown tables are
// paired with the table of the same name in the target database; tables
// that already live there map to themselves.
func (r *Resolver) Resolve(ctx context.Context, src int64) (*catalog.Table, error) {
	if dst, ok := r.pairs[src]; ok {
		return r.catalog.Table(ctx, dst)
	}
	s, err := r.catalog.Table(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: source table %d: %v", errdefs.ErrNoEquivalent, src, err)
	}
	if r.IsTarget(src) || s.DBID == r.target {
		r.targets[src] = struct{}{}
		return s, nil
	}
	d, err := r.catalog.FindTable(ctx, s.Name, s.Schema, r.target)
	if err != nil {
		return nil, fmt.Errorf("%w: table %s in database %d: %v", errdefs.ErrNoEquivalent, s, r.target, err)
	}
	if err := r.Add(ctx, src, d.ID); err != nil {
		return nil, err
	}
	log.Debug().Stringer("source", s).Stringer("target", d).Msg("paired tables by name")
	return d, nil
}

// TargetTableForColumn returns the known target table owning a column, or
// nil when no target table does.
func (r *Resolver) TargetTableForColumn(ctx context.Context, columnID int64) (*catalog.Table, error) {
	for _, id := range sortedIDs(r.targets) {
		cols, err := r.catalog.Columns(ctx, id)
		if err != nil {
			return nil, err
		}
		if cols.Has(columnID) {
			return cols.Table, nil
		}
	}
	return nil, nil
}

// ColumnEquivalent maps a source column onto the column of the same name in
// the paired target table. A column that already belongs to a target table
// yields ErrAlreadyMigrated along with that table.
func (r *Resolver) ColumnEquivalent(ctx context.Context, columnID int64) (int64, *catalog.Table, *catalog.Table, error) {
	t, err := r.TargetTableForColumn(ctx, columnID)
	if err != nil {
		return 0, nil, nil, err
	}
	if t != nil {
		return columnID, nil, t, alreadyMigrated(columnID, t)
	}

	src, err := r.sourceTableForColumn(ctx, columnID)
	if err != nil {
		return 0, nil, nil, err
	}
	if src == nil {
		tableID, err := r.catalog.FieldTable(ctx, columnID)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("%w: column %d: %v", errdefs.ErrNoEquivalent, columnID, err)
		}
		if src, err = r.catalog.Table(ctx, tableID); err != nil {
			return 0, nil, nil, err
		}
		if src.DBID == r.target {
			r.targets[src.ID] = struct{}{}
			return columnID, nil, src, alreadyMigrated(columnID, src)
		}
	}

	dst, err := r.Resolve(ctx, src.ID)
	if err != nil {
		return 0, nil, nil, err
	}
	srcCols, err := r.catalog.Columns(ctx, src.ID)
	if err != nil {
		return 0, nil, nil, err
	}
	name, ok := srcCols.ColumnName(columnID)
	if !ok {
		return 0, nil, nil, fmt.Errorf("%w: column %d is not listed on table %s", errdefs.ErrNoEquivalent, columnID, src)
	}
	dstCols, err := r.catalog.Columns(ctx, dst.ID)
	if err != nil {
		return 0, nil, nil, err
	}
	id, ok := dstCols.ColumnID(name)
	if !ok {
		return 0, nil, nil, fmt.Errorf("%w: column %q of %s is missing from %s", errdefs.ErrNoEquivalent, name, src, dst)
	}
	return id, src, dst, nil
}

func (r *Resolver) sourceTableForColumn(ctx context.Context, columnID int64) (*catalog.Table, error) {
	for _, id := range sortedKeys(r.pairs) {
		cols, err := r.catalog.Columns(ctx, id)
		if err != nil {
			return nil, err
		}
		if cols.Has(columnID) {
			return cols.Table, nil
		}
	}
	return nil, nil
}

// IsAlreadyMigrated reports whether err came from a column that already
// lives on a target table.
func IsAlreadyMigrated(err error) bool {
	return errors.Is(err, errdefs.ErrAlreadyMigrated)
}

func alreadyMigrated(columnID int64, t *catalog.Table) error {
	return fmt.Errorf("%w: column %d is on target table %s", errdefs.ErrAlreadyMigrated, columnID, t)
}

func sortedIDs(m map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedKeys(m map[int64]int64) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
