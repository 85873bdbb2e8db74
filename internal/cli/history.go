package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show applied delta batches",
		Long:  "Show the delta journal, newest first.",
		Run:   runHistory,
	}

	cmd.Flags().Int("limit", 20, "Max entries")
	cmd.Flags().Bool("all", false, "Include every playbook")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	all, _ := cmd.Flags().GetBool("all")

	p := store.HistoryParams{Playbook: cfg.Playbook, Limit: limit}
	if all {
		p.Playbook = ""
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	records, err := s.History(cmd.Context(), p)
	if err != nil {
		exitErr("history", err)
	}

	printOut(records, func() string {
		lines := make([]string, 0, len(records))
		for _, r := range records {
			line := fmt.Sprintf("%s\t%s\t%d/%d\t%s", r.ID, r.Playbook, r.Applied, r.Total, r.Reasoning)
			if r.Failed() {
				line += "\terror: " + r.Error
			}
			lines = append(lines, line)
		}
		return strings.Join(lines, "\n")
	})
}
