package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/node"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
)

// cardCopyKeys are the card attributes accepted by POST /api/card/.
var cardCopyKeys = []string{
	"name",
	"description",
	"display",
	"type",
	"dataset",
	"dataset_query",
	"visualization_settings",
	"result_metadata",
	"parameters",
	"parameter_mappings",
	"collection_position",
	"cache_ttl",
}

type pendingDashboard struct {
	id         int64
	collection int64
}

// Clone creates the destination collection and deep copies the source
// collection into it. Collections and cards are copied in a first pass so
// that the card map is complete before dashboards are copied. Collections
// created by the run are never copied, so the destination may sit inside
// the source tree.
func (m *Migrator) Clone(ctx context.Context) (int64, error) {
	src, err := m.catalog.ItemInfo(ctx, catalog.KindCollection, m.params.SourceCollectionID)
	if err != nil {
		return 0, err
	}
	dest, err := m.createCollection(ctx, m.params.DestinationName, node.String(src, "description"), m.params.ParentCollectionID)
	if err != nil {
		return 0, err
	}
	m.transformations.AddCollection(m.params.SourceCollectionID, dest)
	log.Info().Int64("source", m.params.SourceCollectionID).Int64("destination", dest).Str("name", m.params.DestinationName).Msg("created destination collection")

	var dashboards []pendingDashboard
	queue := []int64{m.params.SourceCollectionID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		into := m.transformations.Collections[id]

		items, err := Items(ctx, m.client, id)
		if err != nil {
			return 0, err
		}
		for _, it := range items {
			switch {
			case it.Model == "collection":
				if _, done := m.transformations.Collections[it.ID]; done || m.transformations.ProducedCollection(it.ID) {
					continue
				}
				info, err := m.catalog.ItemInfo(ctx, catalog.KindCollection, it.ID)
				if err != nil {
					return 0, err
				}
				parent := into
				child, err := m.createCollection(ctx, it.Name, node.String(info, "description"), &parent)
				if err != nil {
					return 0, err
				}
				m.transformations.AddCollection(it.ID, child)
				queue = append(queue, it.ID)
			case it.IsCard():
				if err := m.copyCard(ctx, it.ID, into); err != nil {
					return 0, err
				}
			case it.Model == "dashboard":
				dashboards = append(dashboards, pendingDashboard{id: it.ID, collection: into})
			default:
				log.Warn().Int64("id", it.ID).Str("model", it.Model).Msg("not copying collection item")
			}
		}
	}

	for _, d := range dashboards {
		if err := m.copyDashboard(ctx, d.id, d.collection); err != nil {
			return 0, err
		}
	}
	return dest, nil
}

func (m *Migrator) createCollection(ctx context.Context, name, description string, parent *int64) (int64, error) {
	body := map[string]interface{}{"name": name, "parent_id": parent}
	if description != "" {
		body["description"] = description
	}
	var created map[string]interface{}
	if err := m.client.Post(ctx, catalog.ListPath(catalog.KindCollection), body, &created); err != nil {
		return 0, fmt.Errorf("create collection %q: %w", name, err)
	}
	return node.MustID(created)
}

func (m *Migrator) copyCard(ctx context.Context, id, collection int64) error {
	card, err := m.catalog.ItemInfo(ctx, catalog.KindCard, id)
	if err != nil {
		return err
	}
	body := make(map[string]interface{}, len(cardCopyKeys)+1)
	for _, k := range cardCopyKeys {
		if v, ok := card[k]; ok {
			body[k] = v
		}
	}
	body["collection_id"] = collection

	var created map[string]interface{}
	if err := m.client.Post(ctx, catalog.ListPath(catalog.KindCard), body, &created); err != nil {
		return fmt.Errorf("copy card %d: %w", id, err)
	}
	newID, err := node.MustID(created)
	if err != nil {
		return err
	}
	m.transformations.AddCard(id, newID)
	log.Debug().Int64("from", id).Int64("to", newID).Str("name", node.String(card, "name")).Msg("copied card")
	return nil
}

// copyDashboard shallow copies a dashboard on the server, then points its
// dashcards at the copied cards. Dashcards are sent with negative ids so
// the server creates them anew and drops the ones of the shallow copy.
func (m *Migrator) copyDashboard(ctx context.Context, id, collection int64) error {
	orig, err := m.catalog.ItemInfo(ctx, catalog.KindDashboard, id)
	if err != nil {
		return err
	}
	body := map[string]interface{}{
		"name":          node.String(orig, "name"),
		"description":   orig["description"],
		"collection_id": collection,
		"is_deep_copy":  false,
	}
	var created map[string]interface{}
	if err := m.client.Post(ctx, fmt.Sprintf("%s/copy", catalog.ItemPath(catalog.KindDashboard, id)), body, &created); err != nil {
		return fmt.Errorf("copy dashboard %d: %w", id, err)
	}
	newID, err := node.MustID(created)
	if err != nil {
		return err
	}
	m.transformations.AddDashboard(id, newID)

	cp, err := m.catalog.ItemInfo(ctx, catalog.KindDashboard, newID)
	if err != nil {
		return err
	}
	m.pairTabs(orig, cp)

	dashcards := visit.Dashcards(cp)
	out := make([]interface{}, 0, len(dashcards))
	for i, dc := range dashcards {
		if cardID, ok := node.Int(dc, "card_id"); ok {
			n, ok := m.transformations.Card(cardID)
			if ok {
				dc["card_id"] = n
				if card, ok := node.Object(dc, "card"); ok {
					card["id"] = n
				}
			} else {
				log.Warn().Int64("dashboard", newID).Int64("card", cardID).Msg("dashcard shows a card outside the copied collection")
			}
		}
		dc["id"] = -int64(i + 1)
		out = append(out, dc)
	}

	update := map[string]interface{}{"dashcards": out}
	if tabs, ok := cp["tabs"]; ok {
		update["tabs"] = tabs
	}
	if err := m.client.Put(ctx, catalog.ItemPath(catalog.KindDashboard, newID), update, nil); err != nil {
		return fmt.Errorf("relink dashcards of dashboard %d: %w", newID, err)
	}
	log.Debug().Int64("from", id).Int64("to", newID).Int("dashcards", len(out)).Msg("copied dashboard")
	return nil
}

// pairTabs records the tabs of a copied dashboard, paired by position with
// the tabs of the original.
func (m *Migrator) pairTabs(orig, cp map[string]interface{}) {
	from, _ := node.AsList(orig["tabs"])
	to, _ := node.AsList(cp["tabs"])
	if len(from) != len(to) {
		log.Warn().Int("original", len(from)).Int("copy", len(to)).Msg("dashboard copy has a different number of tabs")
	}
	for i := 0; i < len(from) && i < len(to); i++ {
		a, _ := node.AsObject(from[i])
		b, _ := node.AsObject(to[i])
		oldID, ok1 := node.Int(a, "id")
		newID, ok2 := node.Int(b, "id")
		if ok1 && ok2 {
			m.transformations.AddTab(oldID, newID)
		}
	}
}
