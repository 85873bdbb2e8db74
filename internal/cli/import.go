package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/playbook"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a playbook from JSON",
		Long:  "Replace the playbook with one read from JSON (stdin or file). Expects the format produced by export.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var (
		pb  *playbook.Playbook
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		var data []byte
		if data, err = io.ReadAll(os.Stdin); err != nil {
			exitErr("read stdin", err)
		}
		pb, err = playbook.FromJSON(string(data))
	} else {
		pb, err = playbook.Load(args[0])
	}
	if err != nil {
		exitErr("parse playbook", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Save(cmd.Context(), cfg.Playbook, pb); err != nil {
		s.Close()
		exitErr("import", err)
	}

	playbookLog().WithField("bullets", pb.Len()).Info("playbook imported")
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", pb.Len())
}
