package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/japaniel/yomidb/internal/ui"
	"github.com/japaniel/yomidb/pkg/archive"
	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/export"
	"github.com/japaniel/yomidb/pkg/termbank"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		output    string
		reference string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "export -o OUT.zip",
		Short: "Export the database as a dictionary archive",
		Long: `Export the translations table as a zipped term-bank dictionary.

Without --reference entries are packed into shards of --chunk-size entries
and a fresh index.json is generated from --title, --description and
--author. With --reference the shard layout of that archive is rebuilt from
the provenance columns, and its index.json, tag banks and any other files
are copied verbatim. The database must have been imported with
--provenance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if output == "" {
				return errors.New("an output archive is required (-o)")
			}
			if err := checkOverwrite(output, force); err != nil {
				return err
			}
			conn, err := db.Open(ctx, a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer conn.Close()

			ex := export.NewExporter(conn)
			ex.ChunkSize = a.cfg.Export.ChunkSize
			ex.Title = a.cfg.Export.Title
			ex.Description = a.cfg.Export.Description
			ex.Author = a.cfg.Export.Author
			ex.Logger = a.logger
			ex.OnProgress = func(ev termbank.Event) {
				if ev.Stage == termbank.StageShard {
					a.logger.Debug("shard written", "shard", ev.Shard, "entries", ev.Entries)
				}
			}

			var stats archive.Stats
			if reference != "" {
				stats, err = ex.ExportWithReference(ctx, output, reference)
			} else {
				stats, err = ex.Export(ctx, output)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s Exported %s entries in %s %s to %s\n",
				ui.RenderPass("✓"), humanize.Comma(int64(stats.Entries)), humanize.Comma(int64(stats.Shards)),
				plural(stats.Shards, "shard", "shards"), output)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "Archive to write")
	f.StringVar(&reference, "reference", "", "Rebuild the shard layout of this archive")
	f.BoolVarP(&force, "force", "f", false, "Overwrite an existing archive")
	f.StringP("title", "t", export.DefaultTitle, "Dictionary title for index.json")
	f.String("description", "", "Dictionary description for index.json")
	f.String("author", export.DefaultAuthor, "Dictionary author for index.json")
	f.Int("chunk-size", archive.DefaultChunkSize, "Entries per shard")
	return cmd
}
