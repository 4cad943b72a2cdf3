package main

import (
	"github.com/jzelinskie/cobrautil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/workbook-tools/collection-migrator/pkg/cmd/labels"
	"github.com/workbook-tools/collection-migrator/pkg/cmd/migrate"
	"github.com/workbook-tools/collection-migrator/pkg/cmd/translate"
	"github.com/workbook-tools/collection-migrator/pkg/signals"
	"github.com/workbook-tools/collection-migrator/pkg/streams"
)

func main() {
	s := streams.NewStdIO()
	ctx := signals.Context()
	rootCmd := &cobra.Command{
		Use:               "collection-migrator",
		Short:             "Copy workbook collections and point the copies at another database",
		PersistentPreRunE: cobrautil.SyncViperPreRunE("collection_migrator"),
		SilenceUsage:      true,
	}

	rootCmd.AddCommand(migrate.NewMigrateCmd(ctx, s))
	rootCmd.AddCommand(labels.NewLabelsCmd(ctx, s))
	rootCmd.AddCommand(translate.NewTranslateCmd(ctx, s))
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed")
	}
}
