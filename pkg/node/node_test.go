package node

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

func TestAsInt(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want int64
		ok   bool
	}{
		{name: "json number", in: json.Number("42"), want: 42, ok: true},
		{name: "json float integral", in: json.Number("42.0"), want: 42, ok: true},
		{name: "json float", in: json.Number("4.2"), ok: false},
		{name: "int", in: 7, want: 7, ok: true},
		{name: "int64", in: int64(9007199254740993), want: 9007199254740993, ok: true},
		{name: "float64", in: float64(3), want: 3, ok: true},
		{name: "fraction", in: 3.5, ok: false},
		{name: "string", in: "3", ok: false},
		{name: "nil", in: nil, ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsInt(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeUsesNumbers(t *testing.T) {
	require := require.New(t)
	v, err := Decode(strings.NewReader(`{"id": 9007199254740993}`))
	require.NoError(err)
	obj, ok := AsObject(v)
	require.True(ok)
	id, ok := Int(obj, "id")
	require.True(ok)
	require.Equal(int64(9007199254740993), id)
}

func TestItems(t *testing.T) {
	require := require.New(t)

	var bare, wrapped interface{}
	require.NoError(DecodeInto([]byte(`[{"id":10,"name":"src"}]`), &bare))
	require.NoError(DecodeInto([]byte(`{"data":[{"id":10,"name":"src"}],"total":1}`), &wrapped))

	for _, v := range []interface{}{bare, wrapped} {
		objs, err := Objects(v)
		require.NoError(err)
		require.Len(objs, 1)
		require.Equal("src", String(objs[0], "name"))
	}

	items, err := Items(nil)
	require.NoError(err)
	require.Empty(items)

	var empty interface{}
	require.NoError(DecodeInto([]byte(`{"data":null,"total":0}`), &empty))
	items, err = Items(empty)
	require.NoError(err)
	require.Empty(items)

	_, err = Items("nope")
	require.True(errors.Is(err, errdefs.ErrSchema))
	_, err = Items(map[string]interface{}{"total": 1})
	require.True(errors.Is(err, errdefs.ErrSchema))
}

func TestCloneIsDeep(t *testing.T) {
	require := require.New(t)
	orig := map[string]interface{}{
		"a": []interface{}{map[string]interface{}{"b": 1}},
	}
	cp := Clone(orig).(map[string]interface{})
	cp["a"].([]interface{})[0].(map[string]interface{})["b"] = 2
	require.Equal(1, orig["a"].([]interface{})[0].(map[string]interface{})["b"])
}

func TestGet(t *testing.T) {
	require := require.New(t)
	obj := map[string]interface{}{
		"dataset_query": map[string]interface{}{"query": map[string]interface{}{"source-table": 1}},
	}
	v, ok := Get(obj, "dataset_query", "query", "source-table")
	require.True(ok)
	require.Equal(1, v)
	_, ok = Get(obj, "dataset_query", "native")
	require.False(ok)
	_, ok = Get(obj, "dataset_query", "query", "source-table", "x")
	require.False(ok)
}

func TestKeys(t *testing.T) {
	require := require.New(t)
	id, err := KeyInt("12")
	require.NoError(err)
	require.Equal(int64(12), id)
	require.Equal("12", FormatInt(id))

	_, err = KeyInt("abc")
	require.True(errors.Is(err, errdefs.ErrSchema))

	require.Equal([]string{"a", "b", "c"}, SortedKeys(map[string]interface{}{"c": 1, "a": 2, "b": 3}))

	_, err = MustID(map[string]interface{}{"name": "x"})
	require.True(errors.Is(err, errdefs.ErrSchema))
}
