package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/treegen/internal/transition"
)

// #region command
func newActionsCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Print the action inventory of the configured system",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sys, err := loadSystem()
			if err != nil {
				return err
			}
			return printActions(cmd.OutOrStdout(), sys, jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region print
type actionRow struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"`
	String string `json:"string"`
}

func printActions(w io.Writer, sys transition.System, jsonOut bool) error {
	codec := sys.Codec()
	scratch := sys.NewState()
	rows := make([]actionRow, 0, sys.NumActions())
	for id := 0; id < sys.NumActions(); id++ {
		kind, err := codec.KindOf(id)
		if err != nil {
			return err
		}
		rows = append(rows, actionRow{ID: id, Kind: kind.String(), String: sys.ActionAsString(id, scratch)})
	}
	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "System: %s (%d labels, %d tags, %d words, %d actions)\n\n",
		sys.Name(), codec.NumLabels(), codec.NumTags(), codec.NumWords(), sys.NumActions())
	fmt.Fprintf(w, "%6s  %-8s  %s\n", "ID", "Kind", "Action")
	for _, r := range rows {
		fmt.Fprintf(w, "%6d  %-8s  %s\n", r.ID, r.Kind, r.String)
	}
	return nil
}

// #endregion print
