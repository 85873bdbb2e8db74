package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/delta"
)

func init() {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Adjust a bullet's counters",
		Long:  "Add signed increments to a bullet's counters, e.g. --helpful 1 --harmful -1. Counters never drop below zero.",
		Run:   runTag,
	}

	cmd.Flags().String("id", "", "Bullet id (required)")
	cmd.Flags().String("reason", "manual tag", "Reasoning recorded in the history")
	addCounterFlags(cmd.Flags(), "Increment for")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runTag(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	reason, _ := cmd.Flags().GetString("reason")

	md := counterFlags(cmd.Flags())
	if md.Len() == 0 {
		exitErr("tag", fmt.Errorf("at least one of --helpful, --harmful, --neutral is required"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	applyAndPrint(cmd, s, delta.Batch{
		Reasoning:  reason,
		Operations: []delta.Operation{{Type: delta.OpTag, BulletID: &id, Metadata: md}},
	})
}
