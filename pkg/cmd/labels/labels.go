package labels

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jzelinskie/cobrautil"
	"github.com/spf13/cobra"

	"github.com/workbook-tools/collection-migrator/pkg/config"
	"github.com/workbook-tools/collection-migrator/pkg/migrate"
	"github.com/workbook-tools/collection-migrator/pkg/options"
	"github.com/workbook-tools/collection-migrator/pkg/streams"
	"github.com/workbook-tools/collection-migrator/pkg/util"
)

// NewLabelsCmd configures a new cobra command that prints a dictionary
// skeleton with every label of a collection.
func NewLabelsCmd(ctx context.Context, streams streams.IO) *cobra.Command {
	o := NewOptions(streams)
	cmd := &cobra.Command{
		Use:   "labels <collection id>",
		Short: "print the labels of a collection as a dictionary to translate",
		Args:  cobra.ExactArgs(1),
		// logs to stderr so that stdout only contains the dictionary
		PreRunE: util.ZeroLogPreRunEFunc(o.IO.ErrOut),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(args); err != nil {
				return err
			}
			return o.Run(ctx)
		},
	}
	options.RegisterGatewayFlags(cmd.Flags(), &o.GatewayOptions)
	cmd.Flags().StringVar(&o.Language, "language", "", "language recorded in the dictionary")
	cmd.Flags().StringVarP(&o.Output, "output", "o", "yaml", "dictionary format: json or yaml")
	cobrautil.RegisterZeroLogFlags(cmd.Flags(), "log")

	return cmd
}

// Options holds options for the labels command
type Options struct {
	streams.IO
	options.GatewayOptions
	options.OutputOptions

	Language string

	collectionID int64
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
	if err := o.GatewayOptions.Complete(); err != nil {
		return err
	}
	return o.OutputOptions.Complete(o.Out)
}

// Run runs the command configured by Options.
func (o *Options) Run(ctx context.Context) error {
	found, err := migrate.Labels(ctx, o.Client, o.collectionID)
	if err != nil {
		return err
	}
	d := config.Dictionary{Language: o.Language, Labels: make(map[string]string, len(found))}
	for _, l := range found {
		d.Labels[l] = l
	}
	return o.Printer(d)
}
