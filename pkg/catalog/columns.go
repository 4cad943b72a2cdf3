package catalog

// Columns is the bidirectional column map of one table. Names and ids are
// each unique within a table.
type Columns struct {
	Table *Table

	byName map[string]int64
	byID   map[int64]string
}

func newColumns(t *Table) *Columns {
	return &Columns{
		Table:  t,
		byName: make(map[string]int64),
		byID:   make(map[int64]string),
	}
}

// NewColumns builds a column map from name to id.
func NewColumns(t *Table, byName map[string]int64) *Columns {
	c := newColumns(t)
	for name, id := range byName {
		c.add(name, id)
	}
	return c
}

func (c *Columns) add(name string, id int64) {
	c.byName[name] = id
	c.byID[id] = name
}

// ColumnID returns the id of a named column.
func (c *Columns) ColumnID(name string) (int64, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// ColumnName returns the name of a column id.
func (c *Columns) ColumnName(id int64) (string, bool) {
	name, ok := c.byID[id]
	return name, ok
}

// Has reports whether the table owns the column id.
func (c *Columns) Has(id int64) bool {
	_, ok := c.byID[id]
	return ok
}

// Len is the number of columns.
func (c *Columns) Len() int {
	return len(c.byID)
}
