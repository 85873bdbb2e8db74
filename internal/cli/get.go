package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/playbook"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Retrieve a bullet",
		Run:   runGet,
	}

	cmd.Flags().String("id", "", "Bullet id (required)")

	cmd.MarkFlagRequired("id")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pb, err := s.Load(cmd.Context(), cfg.Playbook)
	if err != nil {
		exitErr("load", err)
	}

	b, ok := pb.Bullet(id)
	if !ok {
		s.Close()
		exitErr("get", fmt.Errorf("%w: %s", playbook.ErrBulletNotFound, id))
	}

	printOut(b, func() string {
		return fmt.Sprintf("[%s] (%s) %s (helpful=%d, harmful=%d, neutral=%d)",
			b.ID, b.Section, b.Content, b.Helpful, b.Harmful, b.Neutral)
	})
}
