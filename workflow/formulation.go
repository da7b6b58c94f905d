package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/workflow/prompts"
)

// Formulation is the data and functional model extracted from a spec text.
type Formulation struct {
	DBML    string `json:"dbml"`
	Gherkin string `json:"gherkin"`
}

// Formulate extracts DBML and then Gherkin from specText.
func (p *Pipeline) Formulate(ctx context.Context, specText string) (*Formulation, error) {
	specText = strings.TrimSpace(specText)
	if specText == "" {
		return nil, fmt.Errorf("spec text: %w", ErrEmptyInput)
	}

	dbml, err := p.ask(ctx, StageFormulation, prompts.DBMLPrompt(specText, p.language))
	if err != nil {
		return nil, fmt.Errorf("generate DBML: %w", err)
	}
	gherkin, err := p.ask(ctx, StageFormulation, prompts.GherkinPrompt(specText, p.language))
	if err != nil {
		return nil, fmt.Errorf("generate Gherkin: %w", err)
	}

	return &Formulation{
		DBML:    llm.StripCodeFence(dbml),
		Gherkin: llm.StripCodeFence(gherkin),
	}, nil
}
