package migrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/migrate"
	"github.com/workbook-tools/collection-migrator/pkg/options"
	"github.com/workbook-tools/collection-migrator/pkg/streams"
	"github.com/workbook-tools/collection-migrator/pkg/util"
)

// NewMigrateCmd configures a new cobra command that copies a collection and
// points the copy at another database
func NewMigrateCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "migrate <source collection id> <target database id> <destination name>",
		Short:   "copy a collection and point the copied cards and dashboards at another database",
		Example: "  collection-migrator migrate --url=https://workbook.example.com --api-key=mb_xxx --personalization=perso.json 12 3 \"Sales (warehouse)\"",
		Args:    cobra.ExactArgs(3),
		// logs to stderr so that stdout only contains the report
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.ErrOut),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	options.RegisterGatewayFlags(cmd.Flags(), &o.GatewayOptions)
	cmd.Flags().Int64Var(&o.ParentCollectionID, "parent", 0, "id of the collection the destination is created in (default: root)")
	cmd.Flags().StringVar(&o.PersonalizationFile, "personalization", "", "path to a personalization JSON file")
	cmd.Flags().StringVar(&o.DictionaryFile, "labels", "", "path to a label dictionary (YAML or JSON) applied after migration")
	cmd.Flags().StringSliceVar(&o.Tables, "table", nil, "pre-declared table pair as <source table id>=<target table id> (repeatable)")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "log migrated cards and dashboards instead of writing them (the copy is still created)")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "json", "report format: json, yaml or none")
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// Options holds options for the migrate command
type Options struct {
	streams.IO
	options.GatewayOptions
	options.PersonalizationOptions
	options.DictionaryOptions
	options.OutputOptions

	ParentCollectionID int64
	Tables             []string
	DryRun             bool

	params migrate.Params
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO: ioStreams,
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("expected a source collection id, a target database id and a destination name")
	}
	source, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("source collection id: %w", err)
	}
	target, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("target database id: %w", err)
	}
	tables, err := ParseTablePairs(o.Tables)
	if err != nil {
		return err
	}

	if err := o.GatewayOptions.Complete(); err != nil {
		return err
	}
	if err := o.PersonalizationOptions.Complete(); err != nil {
		return err
	}
	if err := o.DictionaryOptions.Complete(); err != nil {
		return err
	}
	if err := o.OutputOptions.Complete(o.Out); err != nil {
		return err
	}

	o.params = migrate.Params{
		SourceCollectionID: source,
		TargetDB:           target,
		DestinationName:    args[2],
		Personalization:    o.Personalization,
		TableEquivalences:  tables,
		Labels:             o.Dictionary,
		DryRun:             o.DryRun,
	}
	if o.ParentCollectionID != 0 {
		parent := o.ParentCollectionID
		o.params.ParentCollectionID = &parent
	}
	return nil
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	m, err := migrate.NewMigrator(o.Client, o.params)
	if err != nil {
		return err
	}
	report, err := m.Run(ctx)
	if err != nil {
		return err
	}
	log.Debug().Int64("destination", report.DestinationCollectionID).Msg("printing report")
	return o.Printer(report)
}

// ParseTablePairs parses <source>=<target> table id pairs.
func ParseTablePairs(pairs []string) (map[int64]int64, error) {
	out := make(map[int64]int64, len(pairs))
	for _, p := range pairs {
		src, dst, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("%w: table pair %q is not <source>=<target>", errdefs.ErrConfiguration, p)
		}
		s, err := strconv.ParseInt(strings.TrimSpace(src), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: table pair %q: %v", errdefs.ErrConfiguration, p, err)
		}
		d, err := strconv.ParseInt(strings.TrimSpace(dst), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: table pair %q: %v", errdefs.ErrConfiguration, p, err)
		}
		if prev, ok := out[s]; ok && prev != d {
			return nil, fmt.Errorf("%w: table %d is paired with both %d and %d", errdefs.ErrConfiguration, s, prev, d)
		}
		out[s] = d
	}
	return out, nil
}
