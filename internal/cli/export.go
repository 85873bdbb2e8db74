package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the playbook as JSON",
		Long:  "Export the playbook in its persisted JSON form, to stdout or to --out.",
		Run:   runExport,
	}

	cmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	out, _ := cmd.Flags().GetString("out")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pb, err := s.Load(cmd.Context(), cfg.Playbook)
	if err != nil {
		exitErr("load", err)
	}

	if out != "" {
		if err := pb.Save(out); err != nil {
			exitErr("export", err)
		}
		playbookLog().WithField("file", out).Info("playbook exported")
		return
	}

	data, err := pb.ToJSON()
	if err != nil {
		exitErr("export", err)
	}
	fmt.Fprintln(os.Stdout, data)
}
