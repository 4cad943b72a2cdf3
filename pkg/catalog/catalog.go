// Package catalog resolves names and ids of upstream objects and caches the
// column maps of the tables it has seen. A Catalog lives for one run.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

// Kind names an upstream object type, as it appears in API paths.
type Kind string

const (
	KindDatabase   Kind = "database"
	KindTable      Kind = "table"
	KindField      Kind = "field"
	KindCard       Kind = "card"
	KindCollection Kind = "collection"
	KindDashboard  Kind = "dashboard"
	KindPulse      Kind = "pulse"
	KindSegment    Kind = "segment"
)

// ListPath is the listing endpoint of a kind.
func ListPath(kind Kind) string {
	return fmt.Sprintf("/api/%s/", kind)
}

// ItemPath is the endpoint of one object.
func ItemPath(kind Kind, id int64) string {
	return fmt.Sprintf("/api/%s/%d", kind, id)
}

// Filter narrows a lookup by name. Only the fields relevant to the kind are
// consulted: collection fields for cards, dashboards and pulses, database
// fields for tables and the table id for segments.
type Filter struct {
	CollectionID   int64
	CollectionName string
	Root           bool

	DBID   int64
	DBName string
	Schema string

	TableID int64
}

// Table is an upstream table.
type Table struct {
	ID     int64  `json:"id"`
	DBID   int64  `json:"db_id"`
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

func (t *Table) String() string {
	if t.Schema == "" {
		return fmt.Sprintf("%s(%d)", t.Name, t.ID)
	}
	return fmt.Sprintf("%s.%s(%d)", t.Schema, t.Name, t.ID)
}

// Catalog indexes the upstream objects.
type Catalog struct {
	client gateway.Client

	tables      map[int64]*Table
	columns     map[int64]*Columns
	dbFields    map[int64][]map[string]interface{}
	fieldTables map[int64]int64

	humanChecked bool
}

// New returns an empty catalog backed by client.
func New(client gateway.Client) *Catalog {
	return &Catalog{
		client:      client,
		tables:      make(map[int64]*Table),
		columns:     make(map[int64]*Columns),
		dbFields:    make(map[int64][]map[string]interface{}),
		fieldTables: make(map[int64]int64),
	}
}

// Client returns the gateway the catalog reads from.
func (c *Catalog) Client() gateway.Client {
	return c.client
}

// ItemInfo fetches one object.
func (c *Catalog) ItemInfo(ctx context.Context, kind Kind, id int64) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := c.client.Get(ctx, ItemPath(kind, id), &out); err != nil {
		return nil, fmt.Errorf("fetch %s %d: %w", kind, id, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: %s %d", errdefs.ErrNotFound, kind, id)
	}
	return out, nil
}

// ItemName returns the name of one object.
func (c *Catalog) ItemName(ctx context.Context, kind Kind, id int64) (string, error) {
	info, err := c.ItemInfo(ctx, kind, id)
	if err != nil {
		return "", err
	}
	return node.String(info, "name"), nil
}

// List returns every object of a kind. Both a bare list and {data: list}
// responses are accepted.
func (c *Catalog) List(ctx context.Context, kind Kind) ([]map[string]interface{}, error) {
	var raw interface{}
	if err := c.client.Get(ctx, ListPath(kind), &raw); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return node.Objects(raw)
}

// Databases lists the databases.
func (c *Catalog) Databases(ctx context.Context) ([]map[string]interface{}, error) {
	return c.List(ctx, KindDatabase)
}

// ItemID finds the id of the single non-archived object of a kind with the
// given name.
func (c *Catalog) ItemID(ctx context.Context, kind Kind, name string, filter Filter) (int64, error) {
	matches, err := c.find(ctx, kind, name, filter)
	if err != nil {
		return 0, err
	}
	switch len(matches) {
	case 0:
		return 0, fmt.Errorf("%w: no %s named %q", errdefs.ErrNotFound, kind, name)
	case 1:
		return node.MustID(matches[0])
	default:
		return 0, fmt.Errorf("%w: %d %ss named %q", errdefs.ErrAmbiguous, len(matches), kind, name)
	}
}

func (c *Catalog) find(ctx context.Context, kind Kind, name string, filter Filter) ([]map[string]interface{}, error) {
	keep, err := c.predicate(ctx, kind, filter)
	if err != nil {
		return nil, err
	}
	items, err := c.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	var matches []map[string]interface{}
	for _, it := range items {
		if node.String(it, "name") != name || node.AsBool(it["archived"]) {
			continue
		}
		if keep(it) {
			matches = append(matches, it)
		}
	}
	return matches, nil
}

func (c *Catalog) predicate(ctx context.Context, kind Kind, f Filter) (func(map[string]interface{}) bool, error) {
	all := func(map[string]interface{}) bool { return true }
	switch kind {
	case KindCard, KindDashboard, KindPulse:
		switch {
		case f.Root:
			return func(it map[string]interface{}) bool { return it["collection_id"] == nil }, nil
		case f.CollectionID != 0:
			return intEquals("collection_id", f.CollectionID), nil
		case f.CollectionName != "":
			id, err := c.ItemID(ctx, KindCollection, f.CollectionName, Filter{})
			if err != nil {
				return nil, err
			}
			return intEquals("collection_id", id), nil
		}
	case KindTable:
		dbID := f.DBID
		if dbID == 0 && f.DBName != "" {
			id, err := c.ItemID(ctx, KindDatabase, f.DBName, Filter{})
			if err != nil {
				return nil, err
			}
			dbID = id
		}
		byDB := all
		if dbID != 0 {
			byDB = intEquals("db_id", dbID)
		}
		if f.Schema == "" {
			return byDB, nil
		}
		return func(it map[string]interface{}) bool {
			return byDB(it) && node.String(it, "schema") == f.Schema
		}, nil
	case KindSegment:
		if f.TableID != 0 {
			return intEquals("table_id", f.TableID), nil
		}
	}
	return all, nil
}

func intEquals(key string, want int64) func(map[string]interface{}) bool {
	return func(it map[string]interface{}) bool {
		got, ok := node.Int(it, key)
		return ok && got == want
	}
}

// Table returns a table, fetched once per run.
func (c *Catalog) Table(ctx context.Context, id int64) (*Table, error) {
	if t, ok := c.tables[id]; ok {
		return t, nil
	}
	info, err := c.ItemInfo(ctx, KindTable, id)
	if err != nil {
		return nil, err
	}
	t := &Table{ID: id, Name: node.String(info, "name"), Schema: node.String(info, "schema")}
	if dbID, ok := node.Int(info, "db_id"); ok {
		t.DBID = dbID
	}
	c.tables[id] = t
	return t, nil
}

// TableMetadata returns the raw upstream description of a table.
func (c *Catalog) TableMetadata(ctx context.Context, id int64) (map[string]interface{}, error) {
	return c.ItemInfo(ctx, KindTable, id)
}

// DBIDOfTable returns the database a table belongs to.
func (c *Catalog) DBIDOfTable(ctx context.Context, id int64) (int64, error) {
	t, err := c.Table(ctx, id)
	if err != nil {
		return 0, err
	}
	return t.DBID, nil
}

// FindTable looks up a table by name in a database. When several tables
// share the name, the one in the preferred schema wins.
func (c *Catalog) FindTable(ctx context.Context, name, schema string, dbID int64) (*Table, error) {
	id, err := c.ItemID(ctx, KindTable, name, Filter{DBID: dbID})
	if err != nil && schema != "" && errors.Is(err, errdefs.ErrAmbiguous) {
		id, err = c.ItemID(ctx, KindTable, name, Filter{DBID: dbID, Schema: schema})
	}
	if err != nil {
		return nil, err
	}
	return c.Table(ctx, id)
}

// FieldTable returns the id of the table owning a column.
func (c *Catalog) FieldTable(ctx context.Context, fieldID int64) (int64, error) {
	if id, ok := c.fieldTables[fieldID]; ok {
		return id, nil
	}
	info, err := c.ItemInfo(ctx, KindField, fieldID)
	if err != nil {
		return 0, err
	}
	tableID, ok := node.Int(info, "table_id")
	if !ok {
		return 0, fmt.Errorf("%w: field %d has no table_id", errdefs.ErrSchema, fieldID)
	}
	c.fieldTables[fieldID] = tableID
	return tableID, nil
}

// Columns returns the column map of a table, fetched once per run.
func (c *Catalog) Columns(ctx context.Context, tableID int64) (*Columns, error) {
	if cols, ok := c.columns[tableID]; ok {
		return cols, nil
	}
	if err := c.checkHumanization(ctx); err != nil {
		return nil, err
	}
	t, err := c.Table(ctx, tableID)
	if err != nil {
		return nil, err
	}
	fields, err := c.databaseFields(ctx, t.DBID)
	if err != nil {
		return nil, err
	}
	cols := newColumns(t)
	for _, f := range fields {
		if node.String(f, "table_name") != t.Name || node.String(f, "schema") != t.Schema {
			continue
		}
		id, ok := node.Int(f, "id")
		if !ok {
			continue
		}
		cols.add(node.String(f, "name"), id)
		c.fieldTables[id] = tableID
	}
	log.Debug().Stringer("table", t).Int("columns", cols.Len()).Msg("indexed table columns")
	c.columns[tableID] = cols
	return cols, nil
}

func (c *Catalog) databaseFields(ctx context.Context, dbID int64) ([]map[string]interface{}, error) {
	if fields, ok := c.dbFields[dbID]; ok {
		return fields, nil
	}
	var raw interface{}
	if err := c.client.Get(ctx, fmt.Sprintf("/api/database/%d/fields", dbID), &raw); err != nil {
		return nil, fmt.Errorf("list fields of database %d: %w", dbID, err)
	}
	fields, err := node.Objects(raw)
	if err != nil {
		return nil, err
	}
	c.dbFields[dbID] = fields
	return fields, nil
}

// checkHumanization makes sure column names are not rewritten by the
// upstream friendly-name strategy. Only admins can read settings; other
// users are assumed to run with the strategy disabled.
func (c *Catalog) checkHumanization(ctx context.Context) error {
	if c.humanChecked {
		return nil
	}
	var user map[string]interface{}
	if err := c.client.Get(ctx, "/api/user/current", &user); err != nil {
		return fmt.Errorf("fetch current user: %w", err)
	}
	if !node.AsBool(user["is_superuser"]) {
		log.Debug().Msg("not an admin, assuming humanization-strategy is none")
		c.humanChecked = true
		return nil
	}
	var raw interface{}
	if err := c.client.Get(ctx, "/api/setting", &raw); err != nil {
		return fmt.Errorf("fetch settings: %w", err)
	}
	settings, err := node.Objects(raw)
	if err != nil {
		return err
	}
	for _, s := range settings {
		if node.String(s, "key") != "humanization-strategy" {
			continue
		}
		value := s["value"]
		if value == nil {
			value = s["default"]
		}
		if v, _ := value.(string); strings.TrimSpace(v) != "none" {
			return fmt.Errorf("%w: humanization-strategy is %v, it must be \"none\"", errdefs.ErrConfiguration, value)
		}
		c.humanChecked = true
		return nil
	}
	return fmt.Errorf("%w: humanization-strategy setting not found", errdefs.ErrConfiguration)
}
