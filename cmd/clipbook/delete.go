package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipbook/internal/protocol"
)

func newDeleteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a history entry",
		Long: `Deletes the given entry from the history database. For image entries the
saved PNG file is removed as well.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runDelete(args[0]) },
	}
	addConfigFlag(cmd)

	return cmd
}

func runDelete(arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", arg)
	}

	if _, err := request(&protocol.Message{Type: protocol.TypeDelete, ID: id}); err != nil {
		return err
	}
	fmt.Printf("deleted entry %d\n", id)
	return nil
}
