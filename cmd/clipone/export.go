package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipone/internal/category"
	"go.klb.dev/clipone/internal/config"
	"go.klb.dev/clipone/internal/store"
)

func newExportCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored history as JSON or CSV",
		Long: `Reads the history database directly and writes every entry, newest first,
as a JSON document or CSV rows. The daemon does not need to be running.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runExport(cmd, v) },
	}

	f := cmd.Flags()
	f.String(config.KeyDB, store.DefaultPath(), "history database path")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.String("format", formatJSON, "output format: json or csv")
	f.Bool("stats", false, "print counts per category instead of the entries")
	addConfigFlag(cmd)
	return cmd
}

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatCSV:
		return nil
	}
	return fmt.Errorf("unknown format %q (want %s or %s)", format, formatJSON, formatCSV)
}

func runExport(cmd *cobra.Command, v *viper.Viper) (err error) {
	format := v.GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	st, err := store.Open(v.GetString(config.KeyDB))
	if err != nil {
		return err
	}
	defer st.Close()

	var w io.Writer = cmd.OutOrStdout()
	if path := v.GetString("output"); path != "" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return fmt.Errorf("create %s: %w", path, ferr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	if v.GetBool("stats") {
		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		fmt.Fprintf(w, "Total:     %d\n", stats.TotalItems)
		fmt.Fprintf(w, "Favorites: %d\n", stats.FavoriteItems)
		for _, c := range category.All {
			if n := stats.ByCategory[c]; n > 0 {
				fmt.Fprintf(w, "%-10s %d\n", c.Badge()+":", n)
			}
		}
		return nil
	}
	if format == formatCSV {
		return st.ExportCSV(cmd.Context(), w)
	}
	return st.Export(cmd.Context(), w)
}

func newImportCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load entries from a JSON export",
		Long: `Adds the entries of a document written by "clipone export" to the history
database. Entries already stored with the same content and timestamp are skipped.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, v, args[0])
		},
	}

	cmd.Flags().String(config.KeyDB, store.DefaultPath(), "history database path")
	addConfigFlag(cmd)
	return cmd
}

func runImport(cmd *cobra.Command, v *viper.Viper, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := store.Open(v.GetString(config.KeyDB))
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Import(cmd.Context(), f)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries\n", n)
	return nil
}
