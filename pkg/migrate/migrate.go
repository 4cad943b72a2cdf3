// Package migrate copies a collection and points the copy at another
// database.
package migrate

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/workbook-tools/collection-migrator/pkg/cache"
	"github.com/workbook-tools/collection-migrator/pkg/catalog"
	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/equivalence"
	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/gateway"
	"github.com/workbook-tools/collection-migrator/pkg/numfmt"
	"github.com/workbook-tools/collection-migrator/pkg/rewrite"
	"github.com/workbook-tools/collection-migrator/pkg/visit"
	"github.com/workbook-tools/collection-migrator/pkg/write"
)

// Params describes one migration.
type Params struct {
	SourceCollectionID int64
	TargetDB           int64
	// ParentCollectionID is the parent of the destination collection; nil
	// creates it at the root.
	ParentCollectionID *int64
	DestinationName    string
	Personalization    *config.Personalization
	// TableEquivalences pre-declares source table to target table pairs.
	TableEquivalences map[int64]int64
	// Labels, when set, are applied to the destination after migration.
	Labels *config.Dictionary
	// DryRun logs migrated objects instead of writing them back.
	DryRun bool
}

// Report summarises a run.
type Report struct {
	DestinationCollectionID int64                   `json:"destination_collection_id"`
	Transformations         *config.Transformations `json:"transformations"`
	CardsMigrated           int                     `json:"cards_migrated"`
	DashboardsMigrated      int                     `json:"dashboards_migrated"`
	LabelsReplaced          int                     `json:"labels_replaced,omitempty"`
	DryRun                  bool                    `json:"dry_run,omitempty"`
}

// Migrator runs one migration. It is not safe for concurrent use.
type Migrator struct {
	client          gateway.Client
	catalog         *catalog.Catalog
	tables          *equivalence.Resolver
	params          Params
	transformations *config.Transformations
	cache           *cache.Cache
	writer          *write.CountingObjectWriter
	rewriter        *rewrite.Rewriter
	formatter       *numfmt.Formatter
}

var _ rewrite.CardMigrator = &Migrator{}

// NewMigrator validates params and prepares a run against client.
func NewMigrator(client gateway.Client, params Params) (*Migrator, error) {
	if params.TargetDB == 0 {
		return nil, fmt.Errorf("%w: a target database is required", errdefs.ErrConfiguration)
	}
	if params.Personalization == nil {
		params.Personalization = &config.Personalization{}
	}
	cat := catalog.New(client)
	m := &Migrator{
		client:          client,
		catalog:         cat,
		tables:          equivalence.NewResolver(cat, params.TargetDB),
		params:          params,
		transformations: config.NewTransformations(),
		cache:           cache.NewCache(),
	}
	if !params.Personalization.NumberFormat.IsZero() {
		m.formatter = numfmt.NewFormatter(params.Personalization.NumberFormat)
	}
	writer := write.NewObjectWriter(client)
	if params.DryRun {
		writer = write.NewDryRunObjectWriter()
	}
	m.writer = write.NewCountingObjectWriter(writer)
	m.rewriter = rewrite.NewRewriter(m.tables, cat, params.Personalization, m.transformations, m)
	return m, nil
}

// Transformations returns the ids produced so far.
func (m *Migrator) Transformations() *config.Transformations {
	return m.transformations
}

// Run clones the source collection, migrates the copy and optionally
// translates its labels. Nothing is rolled back on failure.
func (m *Migrator) Run(ctx context.Context) (*Report, error) {
	if m.params.DestinationName == "" {
		return nil, fmt.Errorf("%w: a destination collection name is required", errdefs.ErrConfiguration)
	}
	if err := m.declareTables(ctx); err != nil {
		return nil, err
	}
	dest, err := m.Clone(ctx)
	if err != nil {
		return nil, fmt.Errorf("clone collection %d: %w", m.params.SourceCollectionID, err)
	}
	if err := m.MigrateCollection(ctx, dest); err != nil {
		return nil, err
	}
	report := &Report{
		DestinationCollectionID: dest,
		Transformations:         m.transformations,
		CardsMigrated:           m.writer.Count(catalog.KindCard),
		DashboardsMigrated:      m.writer.Count(catalog.KindDashboard),
		DryRun:                  m.params.DryRun,
	}
	if m.params.Labels != nil {
		n, err := Translate(ctx, m.client, m.writer, dest, m.params.Labels.Labels)
		if err != nil {
			return nil, err
		}
		report.LabelsReplaced = n
	}
	log.Info().
		Int64("destination", dest).
		Int("cards", report.CardsMigrated).
		Int("dashboards", report.DashboardsMigrated).
		Msg("migration complete")
	return report, nil
}

func (m *Migrator) declareTables(ctx context.Context) error {
	src := make([]int64, 0, len(m.params.TableEquivalences))
	for id := range m.params.TableEquivalences {
		src = append(src, id)
	}
	sort.Slice(src, func(i, j int) bool { return src[i] < src[j] })
	for _, id := range src {
		if err := m.tables.Add(ctx, id, m.params.TableEquivalences[id]); err != nil {
			return err
		}
	}
	return nil
}

// MigrateCollection migrates every card, then every dashboard, found under
// a collection. Objects not produced by a clone in this run are migrated
// in place.
func (m *Migrator) MigrateCollection(ctx context.Context, collectionID int64) error {
	if err := m.declareTables(ctx); err != nil {
		return err
	}
	contents, err := Collect(ctx, m.client, collectionID)
	if err != nil {
		return err
	}
	for _, id := range contents.Cards {
		if _, ok := m.transformations.Card(id); !ok {
			m.transformations.AdoptCard(id)
		}
	}
	for _, id := range contents.Dashboards {
		if _, ok := m.transformations.Dashboard(id); !ok {
			m.transformations.AdoptDashboard(id)
		}
	}
	for _, id := range contents.Cards {
		if err := m.MigrateCard(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range contents.Dashboards {
		if err := m.MigrateDashboard(ctx, id); err != nil {
			return err
		}
	}
	if len(contents.Pulses) > 0 {
		log.Warn().Int("pulses", len(contents.Pulses)).Msg("pulses are copied but not migrated")
	}
	return nil
}

// MigrateCard rewrites a card and writes it back. A card is migrated at
// most once per run; later calls return immediately, which also breaks
// cycles between cards reading from each other.
func (m *Migrator) MigrateCard(ctx context.Context, id int64) error {
	return m.migrate(ctx, catalog.KindCard, id, visit.WalkCard)
}

// MigrateDashboard rewrites a dashboard, including its dashcards, and
// writes it back.
func (m *Migrator) MigrateDashboard(ctx context.Context, id int64) error {
	return m.migrate(ctx, catalog.KindDashboard, id, visit.WalkDashboard)
}

type walkFunc func(context.Context, map[string]interface{}, visit.Visitor) (visit.Result, error)

func (m *Migrator) migrate(ctx context.Context, kind catalog.Kind, id int64, walk walkFunc) error {
	key := cache.Key{Kind: string(kind), ID: id}
	if !m.cache.Begin(key) {
		log.Trace().Stringer("object", key).Msg("already migrated in this run")
		return nil
	}
	if err := m.migrateOnce(ctx, kind, id, walk); err != nil {
		m.cache.Fail(key)
		return fmt.Errorf("migrate %s %d: %w", kind, id, err)
	}
	m.cache.Done(key)
	return nil
}

func (m *Migrator) migrateOnce(ctx context.Context, kind catalog.Kind, id int64, walk walkFunc) error {
	obj, err := m.catalog.ItemInfo(ctx, kind, id)
	if err != nil {
		return err
	}
	if _, err := walk(ctx, obj, m.rewriter); err != nil {
		return err
	}
	if m.formatter != nil {
		if _, err := walk(ctx, obj, m.formatter); err != nil {
			return err
		}
	}
	if err := m.writer.Write(ctx, kind, id, obj); err != nil {
		return err
	}
	log.Info().Str("kind", string(kind)).Int64("id", id).Msg("migrated")
	return nil
}
