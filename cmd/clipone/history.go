package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/config"
	"go.klb.dev/clipone/internal/entry"
	"go.klb.dev/clipone/internal/grpcservice"
	"go.klb.dev/clipone/internal/history"
	"go.klb.dev/clipone/internal/session"
)

const previewRunes = 60

func newHistoryCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "history",
		Short:   "List recent clipboard entries",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, v, func(ctx context.Context, c *grpcservice.Client, _ string) error {
				var (
					list []entry.Entry
					err  error
				)
				if q := v.GetString("search"); q != "" {
					list, err = c.SearchHistory(ctx, q, v.GetInt("limit"))
				} else {
					list, err = c.FetchHistory(ctx, v.GetInt("limit"))
				}
				if err != nil {
					return fmt.Errorf("history: %w", err)
				}
				if v.GetBool("json") {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				return printEntries(cmd.OutOrStdout(), list)
			})
		},
	}

	f := cmd.Flags()
	f.Int("limit", history.DefaultLimit, "maximum entries to list (0 = all)")
	f.String("search", "", "only list entries containing this text")
	f.Bool("json", false, "output raw JSON")
	addClientFlags(cmd)
	return cmd
}

func printEntries(w io.Writer, list []entry.Entry) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "History is empty.")
		return err
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "#\tTYPE\tID\tCOPIED\tFORMATS\tCONTENT\n")
	for i, e := range list {
		fav := ""
		if e.Favorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%d%s\t%s\t%s\t%s\t%d\t%s\n",
			i+1, fav, e.Category().Badge(), e.ID, fmtAge(e.Time()),
			len(e.AvailableFormats()), oneLine(e.Preview(previewRunes)),
		)
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// newSession connects to the daemon and loads a foreground session with the
// configured actions.
func newSession(cmd *cobra.Command, v *viper.Viper, opts session.Options) (*session.Session, func(), error) {
	settings, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	conn, _, err := connect(cmd, v)
	if err != nil {
		return nil, nil, err
	}

	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = settings.HistoryLimit
	}
	if opts.Interval == 0 {
		opts.Interval = settings.ReconcileInterval
	}
	opts.Padding = settings.MenuPadding

	s := session.New(grpcservice.NewClient(conn), session.StaticActions(settings.Actions), opts)
	if err := s.Load(cmd.Context()); err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return s, func() { _ = conn.Close() }, nil
}

// lookupEntry accepts an entry id or a 1-based position in the listing.
func lookupEntry(s *session.Session, arg string) (entry.Entry, error) {
	list := s.Entries()
	for _, e := range list {
		if e.ID == arg {
			return e, nil
		}
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(list) {
		return list[n-1], nil
	}
	return entry.Entry{}, fmt.Errorf("%w: %s", session.ErrEntryNotFound, arg)
}
