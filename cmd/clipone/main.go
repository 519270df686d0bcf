// clipone: clipboard history with context-menu actions.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go.klb.dev/clipone/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

var envKeys = strings.NewReplacer("-", "_")

func main() {
	root := &cobra.Command{
		Use:   "clipone",
		Short: "Clipboard history with context-menu actions",
		Long: `clipone records the system clipboard into a local history and offers
per-entry actions (search, translate, transforms, open as URL).

Run "clipone daemon" once per desktop session. The other commands talk to it
over the local IPC socket, or to a remote daemon with --server.

Config file search order (first found wins):
  /etc/clipone/clipone.toml
  $HOME/.config/clipone/clipone.toml
  path supplied via --config

All flags can be set via CLIPONE_<FLAG> env vars or config-file keys.
Actions are declared as [[actions]] tables in the config file.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newStartCmd(),
		newStopCmd(),
		newStatusCmd(),
		newHistoryCmd(),
		newFavoriteCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newWatchCmd(),
		newActionsCmd(),
		newRunCmd(),
		newExportCmd(),
		newImportCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "clipone %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr, file string) io.Closer {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	return logging.Setup(logging.Options{Format: format, Level: level, File: file})
}
