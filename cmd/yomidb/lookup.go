package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/japaniel/yomidb/internal/ui"
	"github.com/japaniel/yomidb/pkg/db"
	"github.com/japaniel/yomidb/pkg/lookup"
	"github.com/japaniel/yomidb/pkg/termbank"
)

func (a *app) lookupCmd() *cobra.Command {
	var (
		exact   bool
		reading string
	)
	cmd := &cobra.Command{
		Use:   "lookup TEXT",
		Short: "Look up a word or every word of a Japanese sentence",
		Long: `Look up entries in the database. By default TEXT is tokenized and
each word is looked up by its surface and dictionary form. With --exact
TEXT is matched against headwords as is.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.Join(args, " ")
			conn, err := db.Open(ctx, a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer conn.Close()

			if exact {
				entries, err := lookup.New(conn, nil).Word(ctx, text, reading)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(a.out, "No entries found.")
					return nil
				}
				printEntries(a.out, entries)
				return nil
			}

			analyzer, err := lookup.NewAnalyzer()
			if err != nil {
				return fmt.Errorf("failed to create analyzer: %w", err)
			}
			matches, err := lookup.New(conn, analyzer).Text(ctx, text)
			if err != nil {
				return err
			}
			found := false
			for _, m := range matches {
				if len(m.Entries) == 0 {
					continue
				}
				found = true
				fmt.Fprintf(a.out, "%s %s\n", ui.RenderAccent(m.Token.Surface), ui.RenderMuted("("+m.Token.BaseForm+", "+m.Token.Reading+")"))
				printEntries(a.out, m.Entries)
			}
			if !found {
				fmt.Fprintln(a.out, "No entries found.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "Match TEXT against headwords without tokenizing")
	cmd.Flags().StringVar(&reading, "reading", "", "With --exact, keep only entries with this reading")
	return cmd
}

func printEntries(w io.Writer, entries []termbank.Entry) {
	for _, e := range entries {
		head := ui.RenderHeadword(e.Word)
		if e.Reading != "" {
			head += " 【" + e.Reading + "】"
		}
		if e.Kind != "" {
			head += " " + ui.RenderMuted(e.Kind)
		}
		fmt.Fprintf(w, "  %s\n", head)
		for i, g := range e.Translation {
			fmt.Fprintf(w, "    %d. %s\n", i+1, g)
		}
	}
}
