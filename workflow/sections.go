package workflow

import (
	"context"
	"strings"

	"github.com/c360studio/specgen/workflow/prompts"
)

// SpecDocument is the one-shot specification split into sections.
type SpecDocument struct {
	Brief    prompts.SpecBrief `json:"brief"`
	Sections map[string]string `json:"sections"`
	Raw      string            `json:"raw"`
}

// Section returns the named section.
func (d *SpecDocument) Section(name string) string {
	return d.Sections[name]
}

// PlaceholderDocument is shown before generation and on failure.
func PlaceholderDocument(brief prompts.SpecBrief) *SpecDocument {
	return &SpecDocument{Brief: brief, Sections: prompts.Placeholders(brief)}
}

// GenerateSections asks for the whole specification in one call and splits
// the reply on "==== Name ====" header lines. Sections missing from the reply
// keep their placeholder text.
func (p *Pipeline) GenerateSections(ctx context.Context, brief prompts.SpecBrief) (*SpecDocument, error) {
	doc := PlaceholderDocument(brief)

	reply, err := p.askWith(ctx, StageSections,
		prompts.SectionedSystemPrompt(p.language),
		prompts.SectionedUserInput(brief))
	if err != nil {
		return doc, err
	}

	doc.Raw = reply
	for name, body := range SplitSections(reply) {
		if prompts.Generated(name) {
			doc.Sections[name] = body
		}
	}
	return doc, nil
}

// SplitSections maps each "==== Name ====" header to the trimmed text below
// it. Text before the first header, or under a header with no name, is
// discarded; a repeated header keeps the last body.
func SplitSections(reply string) map[string]string {
	sections := make(map[string]string)
	current := ""
	var body []string

	flush := func() {
		if current != "" {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
	}
	for _, line := range strings.Split(reply, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "====") && strings.HasSuffix(trimmed, "====") {
			flush()
			current = strings.TrimSpace(strings.Trim(trimmed, "="))
			body = body[:0]
			continue
		}
		body = append(body, line)
	}
	flush()
	return sections
}
