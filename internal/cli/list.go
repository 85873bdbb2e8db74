package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-playbook/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bullets",
		Long:  "List bullets grouped by section (sections sorted, bullets in insertion order).",
		Run:   runList,
	}

	cmd.Flags().StringP("section", "s", "", "Filter by section")
	cmd.Flags().Bool("ids-only", false, "Only output bullet ids")

	RootCmd.AddCommand(cmd)
}

func runList(cmd *cobra.Command, args []string) {
	section, _ := cmd.Flags().GetString("section")
	idsOnly, _ := cmd.Flags().GetBool("ids-only")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	pb, err := s.Load(cmd.Context(), cfg.Playbook)
	if err != nil {
		exitErr("load", err)
	}

	sections := pb.Sections()
	if section != "" {
		sections = []string{section}
	}

	bullets := []*model.Bullet{}
	for _, name := range sections {
		for _, id := range pb.SectionIDs(name) {
			if b, ok := pb.Bullet(id); ok {
				bullets = append(bullets, b)
			}
		}
	}

	if idsOnly {
		for _, b := range bullets {
			fmt.Println(b.ID)
		}
		return
	}

	printOut(bullets, func() string {
		lines := make([]string, 0, len(bullets))
		for _, b := range bullets {
			lines = append(lines, fmt.Sprintf("%s\t%s\t%s", b.ID, b.Section, b.Content))
		}
		return strings.Join(lines, "\n")
	})
}
