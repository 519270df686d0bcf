package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/actions"
	"go.klb.dev/clipone/internal/menu"
	"go.klb.dev/clipone/internal/session"
)

func newActionsCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "actions ENTRY",
		Short: "Show the context menu for an entry",
		Long: `Resolves the actions offered for ENTRY (an id, or a position from
"clipone history") and where the menu would be placed.

Without --query or --all at most three actions are listed; a trailing
"more" line says others match.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openMenu(cmd, v, args[0])
			if err != nil {
				return err
			}
			defer done()

			body, err := s.MenuBody(v.GetString("query"), v.GetBool("all"))
			if err != nil {
				return err
			}
			return printMenu(cmd.OutOrStdout(), s.Menu(), body)
		},
	}

	f := cmd.Flags()
	f.String("query", "", "filter actions by label or keyword")
	f.Bool("all", false, "list every matching action")
	addMenuFlags(cmd)
	addClientFlags(cmd)
	return cmd
}

func newRunCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "run ENTRY ACTION",
		Short:   "Run an action on an entry",
		Args:    cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := openMenu(cmd, v, args[0])
			if err != nil {
				return err
			}
			defer done()

			res, err := s.Execute(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}

	addMenuFlags(cmd)
	addClientFlags(cmd)
	return cmd
}

func addMenuFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("format", "", "show the entry in this format first, e.g. text/plain")
	f.String("anchor", "0,0", "pointer position X,Y")
	f.String("viewport", "1280x800", "viewport size WxH")
}

// openMenu loads a session and opens the menu for the entry named by arg.
func openMenu(cmd *cobra.Command, v *viper.Viper, arg string) (*session.Session, func(), error) {
	anchor, err := parsePair(v.GetString("anchor"), ",")
	if err != nil {
		return nil, nil, fmt.Errorf("--anchor: %w", err)
	}
	vp, err := parsePair(v.GetString("viewport"), "x")
	if err != nil {
		return nil, nil, fmt.Errorf("--viewport: %w", err)
	}

	s, done, err := newSession(cmd, v, session.Options{})
	if err != nil {
		return nil, nil, err
	}
	e, err := lookupEntry(s, arg)
	if err != nil {
		done()
		return nil, nil, err
	}
	if format := v.GetString("format"); format != "" {
		if err := s.SelectFormat(e.ID, format); err != nil {
			done()
			return nil, nil, err
		}
	}
	if _, err := s.OpenMenu(e.ID, menu.Point{X: anchor[0], Y: anchor[1]}, menu.Size{W: vp[0], H: vp[1]}); err != nil {
		done()
		return nil, nil, err
	}
	return s, done, nil
}

func parsePair(s, sep string) ([2]float64, error) {
	var out [2]float64
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return out, fmt.Errorf("want two numbers separated by %q, got %q", sep, s)
	}
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = n
	}
	return out, nil
}

func printMenu(w io.Writer, st menu.State, body actions.Menu) error {
	fmt.Fprintf(w, "Menu at %g,%g (pointer %g,%g)\n", st.Pos.X, st.Pos.Y, st.Origin.X, st.Origin.Y)
	if len(body.Visible) == 0 {
		_, err := fmt.Fprintln(w, "No actions for this entry.")
		return err
	}
	tw := tabwriter.NewWriter(w, 1, 0, 2, ' ', 0)
	for _, a := range body.Visible {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", a.ID(), a.Label(), a.Descriptor().Kind)
	}
	if body.HasMore {
		fmt.Fprintf(tw, "  ...\tmore (use --all)\t\n")
	}
	return tw.Flush()
}

func printResult(w io.Writer, res actions.Result) {
	switch {
	case res.Message != "":
		fmt.Fprintln(w, res.Message)
	case res.Opened != "":
		fmt.Fprintf(w, "Opened %s\n", res.Opened)
	case res.Copied != "":
		fmt.Fprintf(w, "Copied %d characters\n", len([]rune(res.Copied)))
	default:
		fmt.Fprintln(w, "Done.")
	}
}
