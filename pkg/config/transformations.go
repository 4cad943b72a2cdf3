package config

// Transformations records the ids produced while cloning a collection.
// Lookups accept both old ids and ids produced by the same run, so that
// rewriting an already rewritten object is a no-op.
type Transformations struct {
	Cards       map[int64]int64 `json:"cards"`
	Dashboards  map[int64]int64 `json:"dashboards"`
	Tabs        map[int64]int64 `json:"tabs"`
	Collections map[int64]int64 `json:"collections"`

	producedCards      map[int64]struct{}
	producedDashboards map[int64]struct{}
	producedTabs       map[int64]struct{}

	producedCollections map[int64]struct{}
}

// NewTransformations returns an empty record.
func NewTransformations() *Transformations {
	return &Transformations{
		Cards:               make(map[int64]int64),
		Dashboards:          make(map[int64]int64),
		Tabs:                make(map[int64]int64),
		Collections:         make(map[int64]int64),
		producedCards:       make(map[int64]struct{}),
		producedDashboards:  make(map[int64]struct{}),
		producedTabs:        make(map[int64]struct{}),
		producedCollections: make(map[int64]struct{}),
	}
}

// AddCard records that card oldID was copied as newID.
func (t *Transformations) AddCard(oldID, newID int64) {
	t.Cards[oldID] = newID
	t.producedCards[newID] = struct{}{}
}

// AddDashboard records that dashboard oldID was copied as newID.
func (t *Transformations) AddDashboard(oldID, newID int64) {
	t.Dashboards[oldID] = newID
	t.producedDashboards[newID] = struct{}{}
}

// AddTab records that tab oldID of a copied dashboard became newID.
func (t *Transformations) AddTab(oldID, newID int64) {
	t.Tabs[oldID] = newID
	t.producedTabs[newID] = struct{}{}
}

// AddCollection records that collection oldID was copied as newID.
func (t *Transformations) AddCollection(oldID, newID int64) {
	t.Collections[oldID] = newID
	t.producedCollections[newID] = struct{}{}
}

// AdoptCard makes an existing card map to itself without recording a
// mapping, for collections migrated in place.
func (t *Transformations) AdoptCard(id int64) {
	t.producedCards[id] = struct{}{}
}

// AdoptDashboard is AdoptCard for dashboards.
func (t *Transformations) AdoptDashboard(id int64) {
	t.producedDashboards[id] = struct{}{}
}

// Card maps a card id. Ids produced by the run map to themselves.
func (t *Transformations) Card(id int64) (int64, bool) {
	return lookup(t.Cards, t.producedCards, id)
}

// Dashboard maps a dashboard id. Ids produced by the run map to themselves.
func (t *Transformations) Dashboard(id int64) (int64, bool) {
	return lookup(t.Dashboards, t.producedDashboards, id)
}

// Tab maps a dashboard tab id. Ids produced by the run map to themselves.
func (t *Transformations) Tab(id int64) (int64, bool) {
	return lookup(t.Tabs, t.producedTabs, id)
}

// ProducedCard reports whether id was created by this run.
func (t *Transformations) ProducedCard(id int64) bool {
	_, ok := t.producedCards[id]
	return ok
}

// ProducedCollection reports whether collection id was created by this run.
func (t *Transformations) ProducedCollection(id int64) bool {
	_, ok := t.producedCollections[id]
	return ok
}

func lookup(m map[int64]int64, produced map[int64]struct{}, id int64) (int64, bool) {
	if n, ok := m[id]; ok {
		return n, true
	}
	if _, ok := produced[id]; ok {
		return id, true
	}
	return 0, false
}
