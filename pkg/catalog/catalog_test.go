package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway/gatewaytest"
)

func newFake() *gatewaytest.Fake {
	f := gatewaytest.NewFake()
	f.AddDatabase(10, "src")
	f.AddDatabase(20, "dst")
	f.AddTable(100, 10, "public", "orders", map[string]int64{"id": 1, "price": 5})
	f.AddTable(200, 20, "public", "orders", map[string]int64{"id": 11, "price": 9})
	f.AddTable(201, 20, "archive", "orders", map[string]int64{"id": 21})
	f.Add("collection", map[string]interface{}{"id": 3, "name": "Sales"})
	f.Add("card", map[string]interface{}{"id": 1, "name": "Revenue", "collection_id": 3})
	f.Add("card", map[string]interface{}{"id": 2, "name": "Revenue", "collection_id": nil})
	f.Add("card", map[string]interface{}{"id": 4, "name": "Old", "collection_id": 3, "archived": true})
	f.Add("segment", map[string]interface{}{"id": 7, "name": "Big", "table_id": 100})
	f.Add("segment", map[string]interface{}{"id": 8, "name": "Big", "table_id": 200})
	return f
}

func TestDatabasesAcceptsBothListShapes(t *testing.T) {
	require := require.New(t)
	f := newFake()
	c := New(f)
	ctx := context.Background()

	f.WrapLists["database"] = true
	wrapped, err := c.Databases(ctx)
	require.NoError(err)

	f.WrapLists["database"] = false
	bare, err := c.Databases(ctx)
	require.NoError(err)

	require.Len(wrapped, 2)
	require.Equal(wrapped, bare)
}

func TestItemID(t *testing.T) {
	require := require.New(t)
	c := New(newFake())
	ctx := context.Background()

	_, err := c.ItemID(ctx, KindCard, "Revenue", Filter{})
	require.True(errors.Is(err, errdefs.ErrAmbiguous))

	id, err := c.ItemID(ctx, KindCard, "Revenue", Filter{CollectionID: 3})
	require.NoError(err)
	require.Equal(int64(1), id)

	id, err = c.ItemID(ctx, KindCard, "Revenue", Filter{CollectionName: "Sales"})
	require.NoError(err)
	require.Equal(int64(1), id)

	id, err = c.ItemID(ctx, KindCard, "Revenue", Filter{Root: true})
	require.NoError(err)
	require.Equal(int64(2), id)

	_, err = c.ItemID(ctx, KindCard, "Old", Filter{})
	require.True(errors.Is(err, errdefs.ErrNotFound))

	id, err = c.ItemID(ctx, KindSegment, "Big", Filter{TableID: 200})
	require.NoError(err)
	require.Equal(int64(8), id)

	id, err = c.ItemID(ctx, KindTable, "orders", Filter{DBName: "src"})
	require.NoError(err)
	require.Equal(int64(100), id)

	name, err := c.ItemName(ctx, KindCollection, 3)
	require.NoError(err)
	require.Equal("Sales", name)

	_, err = c.ItemInfo(ctx, KindCard, 999)
	require.True(errors.Is(err, errdefs.ErrNotFound))
}

func TestFindTablePrefersSchema(t *testing.T) {
	require := require.New(t)
	c := New(newFake())
	ctx := context.Background()

	tbl, err := c.FindTable(ctx, "orders", "public", 20)
	require.NoError(err)
	require.Equal(int64(200), tbl.ID)
	require.Equal("public.orders(200)", tbl.String())

	_, err = c.FindTable(ctx, "orders", "", 20)
	require.True(errors.Is(err, errdefs.ErrAmbiguous))

	_, err = c.FindTable(ctx, "customers", "public", 20)
	require.True(errors.Is(err, errdefs.ErrNotFound))
}

func TestColumns(t *testing.T) {
	require := require.New(t)
	f := newFake()
	c := New(f)
	ctx := context.Background()

	cols, err := c.Columns(ctx, 200)
	require.NoError(err)
	require.Equal(2, cols.Len())
	id, ok := cols.ColumnID("price")
	require.True(ok)
	require.Equal(int64(9), id)
	name, ok := cols.ColumnName(11)
	require.True(ok)
	require.Equal("id", name)
	require.False(cols.Has(21))

	tableID, err := c.FieldTable(ctx, 9)
	require.NoError(err)
	require.Equal(int64(200), tableID)

	// column maps and the database field listing are fetched once
	before := len(f.Requests())
	_, err = c.Columns(ctx, 200)
	require.NoError(err)
	_, err = c.Columns(ctx, 201)
	require.NoError(err)
	require.Equal(before+1, len(f.Requests()))

	dbID, err := c.DBIDOfTable(ctx, 100)
	require.NoError(err)
	require.Equal(int64(10), dbID)
}

func TestHumanizationStrategy(t *testing.T) {
	tests := []struct {
		name     string
		settings []interface{}
		user     map[string]interface{}
		wantErr  bool
	}{
		{
			name:     "none",
			settings: []interface{}{map[string]interface{}{"key": "humanization-strategy", "value": "none"}},
		},
		{
			name:     "default none",
			settings: []interface{}{map[string]interface{}{"key": "humanization-strategy", "value": nil, "default": "none"}},
		},
		{
			name:     "simple",
			settings: []interface{}{map[string]interface{}{"key": "humanization-strategy", "value": "simple"}},
			wantErr:  true,
		},
		{
			name:     "missing",
			settings: []interface{}{map[string]interface{}{"key": "site-name", "value": "x"}},
			wantErr:  true,
		},
		{
			name:     "not an admin",
			settings: []interface{}{map[string]interface{}{"key": "humanization-strategy", "value": "simple"}},
			user:     map[string]interface{}{"id": 2, "is_superuser": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFake()
			f.Settings = tt.settings
			if tt.user != nil {
				f.User = tt.user
			}
			_, err := New(f).Columns(context.Background(), 100)
			if tt.wantErr {
				require.True(t, errors.Is(err, errdefs.ErrConfiguration))
				return
			}
			require.NoError(t, err)
		})
	}
}
