// clipbook: clipboard history daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/clipbook/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipbook",
		Short: "Clipboard history daemon",
		Long: `clipbook watches the system clipboard and keeps a local history of
text and image snippets in SQLite. Repeated copies of the same content
are merged: the entry keeps a single row and moves to the top.

Run "clipbook serve" in the background. The list/copy/delete/clean/status
tools talk to the running daemon over a local IPC socket; so does the
graphical front-end.

Config file search order (first found wins):
  $HOME/.config/clipbook/clipbook.toml
  path supplied via --config

All flags can be set via CLIPBOOK_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newServeCmd(),
		newListCmd(),
		newCopyCmd(),
		newDeleteCmd(),
		newCleanCmd(),
		newStatusCmd(),
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
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipbook %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
