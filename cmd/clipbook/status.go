package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipbook/internal/ipc"
	"go.klb.dev/clipbook/internal/protocol"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show daemon status",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	f := cmd.Flags()
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	resp, err := request(&protocol.Message{Type: protocol.TypeStatus})
	if err != nil {
		return err
	}
	if resp.Status == nil {
		return fmt.Errorf("malformed status response")
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Status, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	s := resp.Status
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", s.Version)
	fmt.Fprintf(w, "Socket:\t%s\n", ipc.SocketPath())
	fmt.Fprintf(w, "Backend:\t%s\n", s.Backend)
	fmt.Fprintf(w, "Entries:\t%d\n", s.Entries)
	if !s.StartedAt.IsZero() {
		fmt.Fprintf(w, "Started:\t%s (%s)\n", s.StartedAt.Local().Format(time.RFC3339), fmtAge(s.StartedAt))
	}
	return w.Flush()
}
