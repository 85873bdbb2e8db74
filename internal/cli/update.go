package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/delta"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a bullet's content or counters",
		Run:   runUpdate,
	}

	cmd.Flags().String("id", "", "Bullet id (required)")
	cmd.Flags().StringP("content", "c", "", "New content")
	cmd.Flags().String("reason", "manual update", "Reasoning recorded in the history")
	addCounterFlags(cmd.Flags(), "Absolute")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	reason, _ := cmd.Flags().GetString("reason")

	op := delta.Operation{
		Type:     delta.OpUpdate,
		BulletID: &id,
		Metadata: counterFlags(cmd.Flags()),
	}
	if cmd.Flags().Changed("content") {
		content, _ := cmd.Flags().GetString("content")
		op.Content = &content
	}
	if op.Content == nil && op.Metadata.Len() == 0 {
		exitErr("update", fmt.Errorf("nothing to update (use --content or a counter flag)"))
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	applyAndPrint(cmd, s, delta.Batch{Reasoning: reason, Operations: []delta.Operation{op}})
}
