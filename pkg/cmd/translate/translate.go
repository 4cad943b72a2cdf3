package translate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workbook-tools/collection-migrator/pkg/errdefs"
	"github.com/workbook-tools/collection-migrator/pkg/migrate"
	"github.com/workbook-tools/collection-migrator/pkg/options"
	"github.com/workbook-tools/collection-migrator/pkg/streams"
	"github.com/workbook-tools/collection-migrator/pkg/util"
	"github.com/workbook-tools/collection-migrator/pkg/write"
)

// NewTranslateCmd configures a new cobra command that applies a label
// dictionary to a collection
func NewTranslateCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:     "translate <collection id>",
		Short:   "replace the labels of the cards and dashboards of a collection",
		Example: "  collection-migrator translate --url=https://workbook.example.com --api-key=mb_xxx --labels=fr.yaml 42",
		Args:    cobra.ExactArgs(1),
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.Out),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	options.RegisterGatewayFlags(cmd.Flags(), &o.GatewayOptions)
	cmd.Flags().StringVar(&o.DictionaryFile, "labels", "", "path to a label dictionary (YAML or JSON)")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "log translated objects instead of writing them")
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// Options holds options for the translate command
type Options struct {
	streams.IO
	options.GatewayOptions
	options.DictionaryOptions

	DryRun bool

	collectionID int64
	writer       write.ObjectWriter
}

// NewOptions returns initialized Options
func NewOptions(ioStreams streams.IO) *Options {
	return &Options{
		IO: ioStreams,
	}
}

// Complete fills out default values before running
func (o *Options) Complete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected a collection id")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("collection id: %w", err)
	}
	o.collectionID = id
	if o.DictionaryFile == "" && o.Dictionary == nil {
		return fmt.Errorf("%w: no label dictionary set", errdefs.ErrConfiguration)
	}
	if err := o.DictionaryOptions.Complete(); err != nil {
		return err
	}
	if err := o.GatewayOptions.Complete(); err != nil {
		return err
	}
	if o.DryRun {
		o.writer = write.NewDryRunObjectWriter()
		return nil
	}
	o.writer = write.NewObjectWriter(o.Client)
	return nil
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	n, err := migrate.Translate(ctx, o.Client, o.writer, o.collectionID, o.Dictionary.Labels)
	if err != nil {
		return err
	}
	log.Info().Int("replaced", n).Msg("done")
	return nil
}
