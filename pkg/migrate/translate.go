package migrate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/labels"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
	"github.com/workbook-tools/collection-migrator/pkg/write"
)

// Labels returns the sorted labels of the cards and dashboards under a
// collection.
func Labels(ctx context.Context, client gateway.Client, collectionID int64) ([]string, error) {
	contents, err := Collect(ctx, client, collectionID)
	if err != nil {
		return nil, err
	}
	cat := catalog.New(client)
	acc := visit.Empty()
	each := func(kind catalog.Kind, ids []int64, walk walkFunc) error {
		for _, id := range ids {
			obj, err := cat.ItemInfo(ctx, kind, id)
			if err != nil {
				return err
			}
			res, err := walk(ctx, obj, labels.Fetcher{})
			if err != nil {
				return fmt.Errorf("labels of %s %d: %w", kind, id, err)
			}
			if acc, err = acc.Union(res); err != nil {
				return err
			}
		}
		return nil
	}
	if err := each(catalog.KindCard, contents.Cards, visit.WalkCard); err != nil {
		return nil, err
	}
	if err := each(catalog.KindDashboard, contents.Dashboards, visit.WalkDashboard); err != nil {
		return nil, err
	}
	return acc.Strings(), nil
}

// Translate replaces the labels of the cards and dashboards under a
// collection and writes back the objects that changed. It returns the
// number of labels replaced.
func Translate(ctx context.Context, client gateway.Client, writer write.ObjectWriter, collectionID int64, dictionary map[string]string) (int, error) {
	contents, err := Collect(ctx, client, collectionID)
	if err != nil {
		return 0, err
	}
	cat := catalog.New(client)
	r := labels.NewReplacer(dictionary)
	each := func(kind catalog.Kind, ids []int64, walk walkFunc) error {
		for _, id := range ids {
			obj, err := cat.ItemInfo(ctx, kind, id)
			if err != nil {
				return err
			}
			before := r.Replaced()
			if _, err := walk(ctx, obj, r); err != nil {
				return fmt.Errorf("translate %s %d: %w", kind, id, err)
			}
			if r.Replaced() == before {
				continue
			}
			if err := writer.Write(ctx, kind, id, obj); err != nil {
				return fmt.Errorf("write translated %s %d: %w", kind, id, err)
			}
		}
		return nil
	}
	if err := each(catalog.KindCard, contents.Cards, visit.WalkCard); err != nil {
		return 0, err
	}
	if err := each(catalog.KindDashboard, contents.Dashboards, visit.WalkDashboard); err != nil {
		return 0, err
	}
	log.Info().Int64("collection", collectionID).Int("labels", r.Replaced()).Msg("translated collection")
	return r.Replaced(), nil
}
