package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/clipbook/internal/protocol"
	"go.klb.dev/clipbook/internal/store"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clipboard history entries (newest first)",
		Long: `Lists entries from the history database, newest first. Text entries show
a one-line preview; image entries show the saved file name.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runList(v) },
	}

	f := cmd.Flags()
	f.Int("limit", 20, "maximum entries to show (0 = all)")
	f.Int("offset", 0, "entries to skip from the top")
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runList(v *viper.Viper) error {
	resp, err := request(&protocol.Message{
		Type:   protocol.TypeList,
		Limit:  v.GetInt("limit"),
		Offset: v.GetInt("offset"),
	})
	if err != nil {
		return err
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp.Entries, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	if len(resp.Entries) == 0 {
		fmt.Println("History is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tKIND\tAGE\tCONTENT\n")
	for _, e := range resp.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Kind, fmtAge(e.Timestamp), preview(e))
	}
	return tw.Flush()
}

// preview renders a single-line summary of an entry's content.
func preview(e protocol.Entry) string {
	if e.Kind == string(store.KindImage) {
		return e.Content
	}
	s := strings.Join(strings.Fields(e.Content), " ")
	const max = 64
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
