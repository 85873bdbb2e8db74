package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/rcliao/agent-playbook/internal/delta"
	"github.com/rcliao/agent-playbook/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add a bullet",
		Long:  "Add a bullet to a section. Content can be a positional arg or piped via stdin.",
		Run:   runAdd,
	}

	cmd.Flags().StringP("section", "s", "", "Section (required)")
	cmd.Flags().String("id", "", "Bullet id (default: generated from the section)")
	cmd.Flags().String("reason", "manual add", "Reasoning recorded in the history")
	addCounterFlags(cmd.Flags(), "Initial")

	cmd.MarkFlagRequired("section")

	RootCmd.AddCommand(cmd)
}

func runAdd(cmd *cobra.Command, args []string) {
	section, _ := cmd.Flags().GetString("section")
	id, _ := cmd.Flags().GetString("id")
	reason, _ := cmd.Flags().GetString("reason")

	// Get content: positional arg first, then check stdin
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}

	content = strings.TrimSpace(content)
	if content == "" {
		exitErr("add", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	op := delta.Operation{
		Type:     delta.OpAdd,
		Section:  section,
		Content:  &content,
		Metadata: counterFlags(cmd.Flags()),
	}
	if id != "" {
		op.BulletID = &id
	}

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	applyAndPrint(cmd, s, delta.Batch{Reasoning: reason, Operations: []delta.Operation{op}})
}

func addCounterFlags(f *pflag.FlagSet, prefix string) {
	for _, t := range model.Tags {
		f.Int(t.String(), 0, fmt.Sprintf("%s %s count", prefix, t))
	}
}

// counterFlags returns the counter flags the user actually set.
func counterFlags(f *pflag.FlagSet) model.Metadata {
	var md model.Metadata
	for _, t := range model.Tags {
		if f.Changed(t.String()) {
			v, _ := f.GetInt(t.String())
			md.Set(t, v)
		}
	}
	return md
}
