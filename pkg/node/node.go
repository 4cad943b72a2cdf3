// Package node has helpers for the loosely typed JSON documents exchanged
// with the upstream API. Documents are kept as map[string]interface{},
// []interface{} and scalars, decoded with json.Number so that 64-bit ids
// survive the round trip.
package node

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
)

// Decode reads one JSON value from r.
func Decode(r io.Reader) (interface{}, error) {
	var v interface{}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeInto decodes data into out, keeping numbers as json.Number when out
// holds interface{} values.
func DecodeInto(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(out)
}

// Convert re-encodes in and decodes the result into out.
func Convert(in, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return DecodeInto(data, out)
}

// Clone returns a deep copy of v.
func Clone(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = Clone(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// AsInt returns v as an int64 if it is an integral number.
func AsInt(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		i, err := x.Int64()
		if err == nil {
			return i, true
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int64(x), true
	}
	return 0, false
}

// AsObject returns v as an object.
func AsObject(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok && m != nil
}

// AsList returns v as a list.
func AsList(v interface{}) ([]interface{}, bool) {
	l, ok := v.([]interface{})
	return l, ok
}

// AsString returns v as a string.
func AsString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// AsBool returns v as a bool, treating anything else as false.
func AsBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

// Int returns the integer stored under key.
func Int(obj map[string]interface{}, key string) (int64, bool) {
	if obj == nil {
		return 0, false
	}
	return AsInt(obj[key])
}

// String returns the string stored under key or "".
func String(obj map[string]interface{}, key string) string {
	if obj == nil {
		return ""
	}
	s, _ := obj[key].(string)
	return s
}

// Object returns the object stored under key.
func Object(obj map[string]interface{}, key string) (map[string]interface{}, bool) {
	if obj == nil {
		return nil, false
	}
	return AsObject(obj[key])
}

// Get walks obj through the given keys.
func Get(obj map[string]interface{}, keys ...string) (interface{}, bool) {
	var cur interface{} = obj
	for _, k := range keys {
		m, ok := AsObject(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// MustID returns the "id" of obj or an ErrSchema error.
func MustID(obj map[string]interface{}) (int64, error) {
	id, ok := Int(obj, "id")
	if !ok {
		return 0, fmt.Errorf("%w: object has no integer id", errdefs.ErrSchema)
	}
	return id, nil
}

// Items normalises a listing response. Some endpoints return a bare list,
// others wrap it as {"data": [...]}.
func Items(v interface{}) ([]interface{}, error) {
	switch x := v.(type) {
	case []interface{}:
		return x, nil
	case map[string]interface{}:
		switch data := x["data"].(type) {
		case []interface{}:
			return data, nil
		case nil:
			if _, ok := x["data"]; ok {
				return nil, nil
			}
		}
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: expected a list or {data: list}, got %T", errdefs.ErrSchema, v)
}

// Objects is Items restricted to the object entries.
func Objects(v interface{}) ([]map[string]interface{}, error) {
	items, err := Items(v)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, it := range items {
		if m, ok := AsObject(it); ok {
			out = append(out, m)
		}
	}
	return out, nil
}

// KeyInt parses an object key holding a stringified integer id.
func KeyInt(key string) (int64, error) {
	i, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q is not an integer", errdefs.ErrSchema, key)
	}
	return i, nil
}

// FormatInt formats an id as an object key.
func FormatInt(id int64) string {
	return strconv.FormatInt(id, 10)
}

// SortedKeys returns the keys of obj in lexical order.
func SortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
