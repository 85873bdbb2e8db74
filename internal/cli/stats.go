package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show playbook statistics",
		Long:  "Show section, bullet and counter totals for the playbook. With --store, show database statistics (sqlite backend only).",
		Run:   runStats,
	}

	cmd.Flags().Bool("store", false, "Show database statistics instead")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	storeStats, _ := cmd.Flags().GetBool("store")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if storeStats {
		db, ok := s.(*store.SQLiteStore)
		if !ok {
			s.Close()
			exitErr("stats", fmt.Errorf("--store requires the %s backend", store.BackendSQLite))
		}
		st, err := db.Stats(cmd.Context(), cfg.Path)
		if err != nil {
			exitErr("stats", err)
		}
		printOut(st, nil)
		return
	}

	pb, err := s.Load(cmd.Context(), cfg.Playbook)
	if err != nil {
		exitErr("load", err)
	}

	st := pb.Stats()
	printOut(st, func() string {
		return fmt.Sprintf("sections=%d bullets=%d helpful=%d harmful=%d neutral=%d",
			st.Sections, st.Bullets, st.Tags.Helpful, st.Tags.Harmful, st.Tags.Neutral)
	})
}
