package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipbook/internal/protocol"
)

func newCleanCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete entries older than N days",
		Long: `Asks the daemon to delete all entries older than the given number of
days, along with their saved image files. --days 0 clears the whole history.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runClean(v) },
	}

	f := cmd.Flags()
	f.Int("days", 10, "delete entries older than this many days (0 = everything)")
	addConfigFlag(cmd)

	return cmd
}

func runClean(v *viper.Viper) error {
	days := v.GetInt("days")

	resp, err := request(&protocol.Message{Type: protocol.TypeClean, Days: days})
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d entries\n", resp.Count)
	return nil
}
