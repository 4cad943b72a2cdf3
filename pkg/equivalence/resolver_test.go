package equivalence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway/gatewaytest"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	f := gatewaytest.NewFake()
	f.AddDatabase(10, "src")
	f.AddDatabase(20, "dst")
	f.AddTable(100, 10, "public", "orders", map[string]int64{"id": 1, "price": 5, "legacy": 6})
	f.AddTable(101, 10, "public", "orders_eu", map[string]int64{"price": 7})
	f.AddTable(102, 10, "public", "customers", map[string]int64{"name": 8})
	f.AddTable(200, 20, "public", "orders", map[string]int64{"id": 11, "price": 9})
	f.AddTable(300, 30, "public", "orders", map[string]int64{"id": 31})
	return NewResolver(catalog.New(f), 20)
}

func TestResolveByName(t *testing.T) {
	require := require.New(t)
	r := newResolver(t)
	ctx := context.Background()

	dst, err := r.Resolve(ctx, 100)
	require.NoError(err)
	require.Equal(int64(200), dst.ID)
	require.True(r.IsTarget(200))

	// target tables map to themselves
	same, err := r.Resolve(ctx, 200)
	require.NoError(err)
	require.Equal(int64(200), same.ID)

	_, err = r.Resolve(ctx, 102)
	require.True(errors.Is(err, errdefs.ErrNoEquivalent))
}

func TestAdd(t *testing.T) {
	require := require.New(t)
	r := newResolver(t)
	ctx := context.Background()

	require.NoError(r.Add(ctx, 101, 200))
	require.NoError(r.Add(ctx, 101, 200))

	tests := []struct {
		name     string
		src, dst int64
	}{
		{name: "itself", src: 200, dst: 200},
		{name: "target as source", src: 200, dst: 100},
		{name: "source as target", src: 102, dst: 101},
		{name: "conflicting pair", src: 101, dst: 100},
		{name: "outside target database", src: 102, dst: 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Add(ctx, tt.src, tt.dst)
			require.True(errors.Is(err, errdefs.ErrConfiguration), "got %v", err)
		})
	}

	dst, err := r.Resolve(ctx, 101)
	require.NoError(err)
	require.Equal(int64(200), dst.ID)
}

func TestColumnEquivalent(t *testing.T) {
	require := require.New(t)
	r := newResolver(t)
	ctx := context.Background()

	id, src, dst, err := r.ColumnEquivalent(ctx, 5)
	require.NoError(err)
	require.Equal(int64(9), id)
	require.Equal(int64(100), src.ID)
	require.Equal(int64(200), dst.ID)

	// now that 100 is paired, its columns are found without a field lookup
	id, _, _, err = r.ColumnEquivalent(ctx, 1)
	require.NoError(err)
	require.Equal(int64(11), id)

	_, _, _, err = r.ColumnEquivalent(ctx, 6)
	require.True(errors.Is(err, errdefs.ErrNoEquivalent))
}

func TestColumnEquivalentAlreadyMigrated(t *testing.T) {
	require := require.New(t)
	r := newResolver(t)
	ctx := context.Background()

	id, _, dst, err := r.ColumnEquivalent(ctx, 9)
	require.True(IsAlreadyMigrated(err))
	require.Equal(int64(9), id)
	require.Equal(int64(200), dst.ID)

	// known target tables are checked first
	_, _, _, err = r.ColumnEquivalent(ctx, 11)
	require.True(IsAlreadyMigrated(err))

	tbl, err := r.TargetTableForColumn(ctx, 11)
	require.NoError(err)
	require.Equal(int64(200), tbl.ID)
}

func TestColumnEquivalentManyToOne(t *testing.T) {
	require := require.New(t)
	r := newResolver(t)
	ctx := context.Background()
	require.NoError(r.Add(ctx, 100, 200))
	require.NoError(r.Add(ctx, 101, 200))

	a, _, _, err := r.ColumnEquivalent(ctx, 5)
	require.NoError(err)
	b, _, _, err := r.ColumnEquivalent(ctx, 7)
	require.NoError(err)
	require.Equal(a, b)
}
