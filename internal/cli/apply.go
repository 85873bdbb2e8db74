package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Apply a delta batch",
		Long: "Apply a delta batch to the playbook. The batch is read from the given file, " +
			"or from stdin when the file is '-' or omitted. JSON comments and trailing commas are accepted.",
		Args: cobra.MaximumNArgs(1),
		Run:  runApply,
	}

	RootCmd.AddCommand(cmd)
}

func runApply(cmd *cobra.Command, args []string) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		exitErr("read batch", err)
	}

	batch, err := delta.DecodeBatch(data)
	if err != nil {
		exitErr("parse batch", err)
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	applyAndPrint(cmd, s, batch)
}

// applyAndPrint applies batch, prints the result and exits non-zero if an
// operation failed.
func applyAndPrint(cmd *cobra.Command, s store.Store, batch delta.Batch) {
	res, err := s.Apply(cmd.Context(), cfg.Playbook, batch)
	if res != nil {
		playbookLog().WithFields(logrus.Fields{
			"delta":   res.Record.ID,
			"applied": res.Record.Applied,
			"ops":     res.Record.Total,
		}).Info("delta applied")

		printOut(res, func() string {
			return fmt.Sprintf("%s: applied %d/%d operations (%d sections, %d bullets)",
				res.Record.ID, res.Record.Applied, res.Record.Total, res.Stats.Sections, res.Stats.Bullets)
		})
	}
	if err != nil {
		s.Close()
		exitErr("apply", err)
	}
}
