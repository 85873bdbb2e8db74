package playbook

import (
	"fmt"
	"strings"

	"github.com/rcliao/agent-playbook/internal/model"
)

// EmptyPrompt is rendered for a playbook with no bullets.
const EmptyPrompt = "Playbook(empty)"

// AsPrompt renders the playbook for injection into an LLM prompt. Sections are
// sorted by name; bullets keep their insertion order within a section.
func (p *Playbook) AsPrompt() string {
	if len(p.bullets) == 0 {
		return EmptyPrompt
	}

	var lines []string
	for _, section := range p.Sections() {
		lines = append(lines, "## "+section)
		for _, id := range p.sections[section] {
			b, ok := p.bullets[id]
			if !ok {
				continue
			}
			lines = append(lines, fmt.Sprintf("- [%s] %s (%s)", b.ID, b.Content, counters(b)))
		}
	}
	return strings.Join(lines, "\n")
}

// counters renders "helpful=1, harmful=0, neutral=2".
func counters(b *model.Bullet) string {
	parts := make([]string, 0, len(model.Tags))
	for _, t := range model.Tags {
		parts = append(parts, fmt.Sprintf("%s=%d", t, b.Count(t)))
	}
	return strings.Join(parts, ", ")
}

func (p *Playbook) String() string {
	return p.AsPrompt()
}
