package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:     "playbooks",
		Aliases: []string{"ls"},
		Short:   "List stored playbooks",
		Run:     runPlaybooks,
	}

	RootCmd.AddCommand(cmd)
}

func runPlaybooks(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	names, err := s.Names(cmd.Context())
	if err != nil {
		exitErr("list playbooks", err)
	}

	printOut(names, func() string { return strings.Join(names, "\n") })
	playbookLog().WithField("count", len(names)).Debug("playbooks listed")
}
