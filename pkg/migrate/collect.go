package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/node"
)

// Contents lists the objects found under a collection, breadth first.
type Contents struct {
	Collections []int64 `json:"collections"`
	Cards       []int64 `json:"cards"`
	Dashboards  []int64 `json:"dashboards"`
	Pulses      []int64 `json:"pulses"`
}

// Item is an entry of a collection listing.
type Item struct {
	ID    int64
	Name  string
	Model string
}

// IsCard reports whether the item is a card. Models and metrics are cards.
func (it Item) IsCard() bool {
	switch it.Model {
	case "card", "dataset", "metric":
		return true
	}
	return false
}

// Items lists the direct children of a collection. Both a bare list and
// {data: list} responses are accepted.
func Items(ctx context.Context, client gateway.Client, collectionID int64) ([]Item, error) {
	var raw interface{}
	if err := client.Get(ctx, fmt.Sprintf("%s/items", catalog.ItemPath(catalog.KindCollection, collectionID)), &raw); err != nil {
		return nil, fmt.Errorf("list items of collection %d: %w", collectionID, err)
	}
	objs, err := node.Objects(raw)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(objs))
	for _, o := range objs {
		id, err := node.MustID(o)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{ID: id, Name: node.String(o, "name"), Model: node.String(o, "model")})
	}
	return items, nil
}

// Collect walks the collection tree rooted at collectionID and gathers
// every non-collection item.
func Collect(ctx context.Context, client gateway.Client, collectionID int64) (*Contents, error) {
	c := &Contents{}
	seen := map[int64]struct{}{collectionID: {}}
	queue := []int64{collectionID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		c.Collections = append(c.Collections, id)
		items, err := Items(ctx, client, id)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			switch {
			case it.Model == "collection":
				if _, ok := seen[it.ID]; !ok {
					seen[it.ID] = struct{}{}
					queue = append(queue, it.ID)
				}
			case it.IsCard():
				c.Cards = append(c.Cards, it.ID)
			case it.Model == "dashboard":
				c.Dashboards = append(c.Dashboards, it.ID)
			case it.Model == "pulse":
				c.Pulses = append(c.Pulses, it.ID)
			default:
				log.Debug().Int64("id", it.ID).Str("model", it.Model).Msg("skipping collection item")
			}
		}
	}
	log.Info().
		Int64("collection", collectionID).
		Int("collections", len(c.Collections)).
		Int("cards", len(c.Cards)).
		Int("dashboards", len(c.Dashboards)).
		Msg("collected collection contents")
	return c, nil
}
