package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipbook/internal/protocol"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy <id>",
		Short: "Put a history entry back on the system clipboard",
		Long: `Asks the daemon to place the given history entry on the system clipboard.
Text entries are written as plain text; image entries are re-read from the
saved PNG file and written as a bitmap.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runCopy(args[0]) },
	}
	addConfigFlag(cmd)

	return cmd
}

func runCopy(arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", arg)
	}

	if _, err := request(&protocol.Message{Type: protocol.TypeCopy, ID: id}); err != nil {
		return err
	}
	fmt.Printf("copied entry %d to clipboard\n", id)
	return nil
}
