// Package gatewaytest provides an in-memory upstream for tests.
package gatewaytest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

// Request is a call received by the fake.
type Request struct {
	Method string
	Path   string
}

// Fake is an in-memory upstream holding objects by kind and id. Requests
// and responses go through a JSON round trip, like over HTTP.
type Fake struct {
	mu sync.Mutex

	objects map[string]map[int64]map[string]interface{}
	nextID  int64

	// Settings is returned by GET /api/setting.
	Settings []interface{}
	// User is returned by GET /api/user/current.
	User map[string]interface{}
	// WrapLists makes the listing of a kind come back as {data: [...]}.
	WrapLists map[string]bool
	// FailPuts makes PUTs to a path fail with the given status.
	FailPuts map[string]int

	requests []Request
	puts     map[string]int
}

var _ gateway.Client = &Fake{}

// NewFake returns an empty upstream run by an admin with the humanization
// strategy disabled. Created objects get ids from 1000 up.
func NewFake() *Fake {
	return &Fake{
		objects: make(map[string]map[int64]map[string]interface{}),
		nextID:  1000,
		Settings: []interface{}{
			map[string]interface{}{"key": "humanization-strategy", "value": "none"},
		},
		User:      map[string]interface{}{"id": 1, "is_superuser": true},
		WrapLists: make(map[string]bool),
		FailPuts:  make(map[string]int),
		puts:      make(map[string]int),
	}
}

// Add stores an object. It must have an integer id.
func (f *Fake) Add(kind string, obj map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stored map[string]interface{}
	if err := node.Convert(obj, &stored); err != nil {
		panic(err)
	}
	id, ok := node.Int(stored, "id")
	if !ok {
		panic(fmt.Sprintf("%s without id", kind))
	}
	f.store(kind, id, stored)
}

// AddDatabase stores a database.
func (f *Fake) AddDatabase(id int64, name string) {
	f.Add("database", map[string]interface{}{"id": id, "name": name})
}

// AddTable stores a table and its columns, given as name to id.
func (f *Fake) AddTable(id, dbID int64, schema, name string, columns map[string]int64) {
	f.Add("table", map[string]interface{}{"id": id, "db_id": dbID, "schema": schema, "name": name})
	for col, colID := range columns {
		f.Add("field", map[string]interface{}{"id": colID, "table_id": id, "name": col})
	}
}

// Object returns a copy of a stored object.
func (f *Fake) Object(kind string, id int64) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[kind][id]
	if !ok {
		return nil, false
	}
	return node.Clone(obj).(map[string]interface{}), true
}

// IDs lists the stored ids of a kind.
func (f *Fake) IDs(kind string) []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.objects[kind]))
	for id := range f.objects[kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Puts returns how many PUTs a path received.
func (f *Fake) Puts(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts[path]
}

// Requests returns the calls received so far.
func (f *Fake) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func (f *Fake) Get(ctx context.Context, path string, out interface{}) error {
	return f.do(ctx, http.MethodGet, path, nil, out)
}

func (f *Fake) Post(ctx context.Context, path string, body, out interface{}) error {
	return f.do(ctx, http.MethodPost, path, body, out)
}

func (f *Fake) Put(ctx context.Context, path string, body, out interface{}) error {
	return f.do(ctx, http.MethodPut, path, body, out)
}

func (f *Fake) Delete(ctx context.Context, path string) error {
	return f.do(ctx, http.MethodDelete, path, nil, nil)
}

func (f *Fake) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var in map[string]interface{}
	if body != nil {
		if err := node.Convert(body, &in); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.requests = append(f.requests, Request{Method: method, Path: path})
	resp, status := f.route(method, path, in)
	f.mu.Unlock()

	if status != http.StatusOK {
		return &errdefs.StatusError{Method: method, Path: path, StatusCode: status}
	}
	if out == nil || resp == nil {
		return nil
	}
	return node.Convert(resp, out)
}

func (f *Fake) route(method, path string, body map[string]interface{}) (interface{}, int) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" {
		return nil, http.StatusNotFound
	}
	kind := parts[1]
	switch {
	case method == http.MethodGet && path == "/api/user/current":
		return f.User, http.StatusOK
	case method == http.MethodGet && kind == "setting" && len(parts) == 2:
		return f.Settings, http.StatusOK
	case len(parts) == 2:
		switch method {
		case http.MethodGet:
			return f.list(kind), http.StatusOK
		case http.MethodPost:
			return f.create(kind, body), http.StatusOK
		}
		return nil, http.StatusMethodNotAllowed
	}

	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil, http.StatusNotFound
	}
	if len(parts) == 4 {
		switch {
		case method == http.MethodGet && kind == "collection" && parts[3] == "items":
			return map[string]interface{}{"data": f.items(id)}, http.StatusOK
		case method == http.MethodGet && kind == "database" && parts[3] == "fields":
			return f.databaseFields(id), http.StatusOK
		case method == http.MethodPost && kind == "dashboard" && parts[3] == "copy":
			return f.copyDashboard(id, body)
		}
		return nil, http.StatusNotFound
	}

	obj, ok := f.objects[kind][id]
	if !ok {
		return nil, http.StatusNotFound
	}
	switch method {
	case http.MethodGet:
		return obj, http.StatusOK
	case http.MethodPut:
		f.puts[path]++
		if status, ok := f.FailPuts[path]; ok {
			return nil, status
		}
		f.update(kind, obj, body)
		return obj, http.StatusOK
	case http.MethodDelete:
		delete(f.objects[kind], id)
		return nil, http.StatusOK
	}
	return nil, http.StatusMethodNotAllowed
}

func (f *Fake) store(kind string, id int64, obj map[string]interface{}) {
	if f.objects[kind] == nil {
		f.objects[kind] = make(map[int64]map[string]interface{})
	}
	f.objects[kind][id] = obj
}

func (f *Fake) allocate() int64 {
	f.nextID++
	return f.nextID
}

func (f *Fake) sorted(kind string) []map[string]interface{} {
	ids := make([]int64, 0, len(f.objects[kind]))
	for id := range f.objects[kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.objects[kind][id])
	}
	return out
}

func (f *Fake) list(kind string) interface{} {
	items := f.sorted(kind)
	if f.WrapLists[kind] {
		return map[string]interface{}{"data": items}
	}
	return items
}

func (f *Fake) create(kind string, body map[string]interface{}) map[string]interface{} {
	obj := node.Clone(body).(map[string]interface{})
	id := f.allocate()
	obj["id"] = id
	f.store(kind, id, obj)
	return obj
}

func (f *Fake) items(collectionID int64) []interface{} {
	out := []interface{}{}
	inCollection := func(obj map[string]interface{}, key string) bool {
		id, ok := node.Int(obj, key)
		return ok && id == collectionID && !node.AsBool(obj["archived"])
	}
	for _, c := range f.sorted("collection") {
		if inCollection(c, "parent_id") {
			out = append(out, item(c, "collection"))
		}
	}
	for _, c := range f.sorted("card") {
		if inCollection(c, "collection_id") {
			model := "card"
			if node.String(c, "type") == "model" {
				model = "dataset"
			}
			out = append(out, item(c, model))
		}
	}
	for _, kind := range []string{"dashboard", "pulse"} {
		for _, o := range f.sorted(kind) {
			if inCollection(o, "collection_id") {
				out = append(out, item(o, kind))
			}
		}
	}
	return out
}

func item(obj map[string]interface{}, model string) map[string]interface{} {
	return map[string]interface{}{"id": obj["id"], "name": obj["name"], "model": model}
}

func (f *Fake) databaseFields(dbID int64) []interface{} {
	var out []interface{}
	for _, field := range f.sorted("field") {
		tableID, _ := node.Int(field, "table_id")
		table, ok := f.objects["table"][tableID]
		if !ok {
			continue
		}
		if db, _ := node.Int(table, "db_id"); db != dbID {
			continue
		}
		out = append(out, map[string]interface{}{
			"id":         field["id"],
			"name":       field["name"],
			"table_name": table["name"],
			"schema":     table["schema"],
		})
	}
	return out
}

// copyDashboard makes a shallow copy: the dashcards still point at the
// original cards, tabs get new ids.
func (f *Fake) copyDashboard(id int64, body map[string]interface{}) (interface{}, int) {
	orig, ok := f.objects["dashboard"][id]
	if !ok {
		return nil, http.StatusNotFound
	}
	cp := node.Clone(orig).(map[string]interface{})
	newID := f.allocate()
	cp["id"] = newID
	for _, k := range []string{"name", "description", "collection_id"} {
		if v, ok := body[k]; ok {
			cp[k] = v
		}
	}
	tabs := make(map[int64]int64)
	if list, ok := node.AsList(cp["tabs"]); ok {
		for _, t := range list {
			tab, ok := node.AsObject(t)
			if !ok {
				continue
			}
			old, _ := node.Int(tab, "id")
			tabs[old] = f.allocate()
			tab["id"] = tabs[old]
			tab["dashboard_id"] = newID
		}
	}
	if list, ok := node.AsList(cp["dashcards"]); ok {
		for _, d := range list {
			dc, ok := node.AsObject(d)
			if !ok {
				continue
			}
			dc["id"] = f.allocate()
			dc["dashboard_id"] = newID
			if old, ok := node.Int(dc, "dashboard_tab_id"); ok {
				dc["dashboard_tab_id"] = tabs[old]
			}
		}
	}
	f.store("dashboard", newID, cp)
	return cp, http.StatusOK
}

// update merges a PUT body. Dashcards with a non-positive id are created.
func (f *Fake) update(kind string, obj, body map[string]interface{}) {
	for k, v := range body {
		obj[k] = v
	}
	if kind != "dashboard" {
		return
	}
	list, _ := node.AsList(obj["dashcards"])
	for _, d := range list {
		if dc, ok := node.AsObject(d); ok {
			if id, ok := node.Int(dc, "id"); !ok || id <= 0 {
				dc["id"] = f.allocate()
			}
		}
	}
}
