// Package fieldref reads and writes the small tuples the upstream uses to
// point at columns, such as ["field", 5, null], and the string-encoded form
// of those tuples used as object keys, such as "[\"ref\",[\"field\",5,null]]".
package fieldref

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

const (
	// Field is the head of a column reference.
	Field = "field"
	// Ref is the head of a column_settings key pointing at a column.
	Ref = "ref"
	// Name is the head of a column_settings key pointing at a named column.
	Name = "name"
	// Dimension is the head of a parameter target.
	Dimension = "dimension"
)

// Decode parses a tuple-string key. Keys written by older tools use Python
// literals ('ref', None); those are accepted and normalised.
func Decode(key string) ([]interface{}, error) {
	var out []interface{}
	if err := node.DecodeInto([]byte(key), &out); err == nil {
		return out, nil
	}
	converted, err := fromPython(key)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse key %q: %v", errdefs.ErrSchema, key, err)
	}
	if err := node.DecodeInto([]byte(converted), &out); err != nil {
		return nil, fmt.Errorf("%w: cannot parse key %q: %v", errdefs.ErrSchema, key, err)
	}
	return out, nil
}

var pythonLiterals = map[string]string{"None": "null", "True": "true", "False": "false"}

// fromPython rewrites a Python literal as JSON. Quoted strings of either
// kind become JSON strings; None, True and False are only replaced outside
// of them.
func fromPython(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			lit, n, err := pythonString(s[i:])
			if err != nil {
				return "", err
			}
			enc, err := json.Marshal(lit)
			if err != nil {
				return "", err
			}
			b.Write(enc)
			i += n
		case isIdent(c):
			j := i
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			word := s[i:j]
			if lit, ok := pythonLiterals[word]; ok {
				word = lit
			}
			b.WriteString(word)
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// pythonString reads the quoted string at the start of s and returns its
// contents and the number of bytes consumed.
func pythonString(s string) (string, int, error) {
	quote := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(s[i])
			default:
				b.WriteByte('\\')
				b.WriteByte(s[i])
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, fmt.Errorf("unterminated string %s", s)
}

func isIdent(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

// Encode serialises v in canonical form: double quotes, null for missing
// options and no interior spaces.
func Encode(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Canonical re-encodes a key, returning it unchanged when it does not parse.
func Canonical(key string) string {
	t, err := Decode(key)
	if err != nil {
		return key
	}
	s, err := Encode(t)
	if err != nil {
		return key
	}
	return s
}

// IsField reports whether v is a ["field", x, ...] clause.
func IsField(v interface{}) bool {
	l, ok := node.AsList(v)
	if !ok || len(l) < 2 {
		return false
	}
	head, _ := l[0].(string)
	return head == Field
}

// FieldID returns the integer column id of a ["field", N, ...] clause.
func FieldID(v interface{}) (int64, bool) {
	if !IsField(v) {
		return 0, false
	}
	return node.AsInt(v.([]interface{})[1])
}

// FieldName returns the column name of a ["field", "name", ...] clause.
func FieldName(v interface{}) (string, bool) {
	if !IsField(v) {
		return "", false
	}
	return node.AsString(v.([]interface{})[1])
}

// Options returns the options object of a field clause, if any.
func Options(v interface{}) (map[string]interface{}, bool) {
	if !IsField(v) {
		return nil, false
	}
	l := v.([]interface{})
	if len(l) < 3 {
		return nil, false
	}
	return node.AsObject(l[2])
}

// Head returns the leading string of a clause.
func Head(v interface{}) (string, bool) {
	l, ok := node.AsList(v)
	if !ok || len(l) == 0 {
		return "", false
	}
	s, ok := l[0].(string)
	return s, ok
}

// DimensionField returns the field clause inside ["dimension", ["field", ...]].
func DimensionField(v interface{}) ([]interface{}, bool) {
	head, ok := Head(v)
	if !ok || head != Dimension {
		return nil, false
	}
	l := v.([]interface{})
	if len(l) < 2 || !IsField(l[1]) {
		return nil, false
	}
	return l[1].([]interface{}), true
}

// Walk calls fn for every field clause nested anywhere inside v, including
// v itself. Field clauses are not descended into.
func Walk(v interface{}, fn func(field []interface{}) error) error {
	switch x := v.(type) {
	case []interface{}:
		if IsField(x) {
			return fn(x)
		}
		for _, e := range x {
			if err := Walk(e, fn); err != nil {
				return err
			}
		}
	case map[string]interface{}:
		for _, k := range node.SortedKeys(x) {
			if err := Walk(x[k], fn); err != nil {
				return err
			}
		}
	}
	return nil
}
