package cli

import (
	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/delta"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm",
		Short: "Remove a bullet",
		Long:  "Remove a bullet. Removing an id that does not exist is not an error.",
		Run:   runRm,
	}

	cmd.Flags().String("id", "", "Bullet id (required)")
	cmd.Flags().String("reason", "manual remove", "Reasoning recorded in the history")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	reason, _ := cmd.Flags().GetString("reason")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	applyAndPrint(cmd, s, delta.Batch{
		Reasoning:  reason,
		Operations: []delta.Operation{{Type: delta.OpRemove, BulletID: &id}},
	})
}
