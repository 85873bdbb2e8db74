package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Render the playbook as prompt context",
		Run:   runPrompt,
	}

	RootCmd.AddCommand(cmd)
}

func runPrompt(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pb, err := s.Load(cmd.Context(), cfg.Playbook)
	if err != nil {
		exitErr("load", err)
	}

	fmt.Println(pb.AsPrompt())
}
