package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/workflow/prompts"
)

// CompleteResult holds the documents derived from a formulated specification.
type CompleteResult struct {
	Background string `json:"background"`
	Goals      string `json:"goals"`
	Flowchart  string `json:"flowchart"`
	APISpec    string `json:"api_spec"`
}

// Complete generates background, goals, flowchart and API spec, in that order.
// The first failure aborts the remaining calls.
func (p *Pipeline) Complete(ctx context.Context, dbml, gherkin string) (*CompleteResult, error) {
	dbml, gherkin = strings.TrimSpace(dbml), strings.TrimSpace(gherkin)
	if dbml == "" || gherkin == "" {
		return nil, fmt.Errorf("dbml and gherkin: %w", ErrEmptyInput)
	}

	result := &CompleteResult{}
	steps := []struct {
		name   string
		prompt string
		dst    *string
	}{
		{"background", prompts.BackgroundPrompt(dbml, gherkin, p.language), &result.Background},
		{"goals", prompts.GoalsPrompt(dbml, gherkin, p.language), &result.Goals},
		{"flowchart", prompts.FlowchartPrompt(dbml, gherkin), &result.Flowchart},
		{"api spec", prompts.APISpecPrompt(dbml, gherkin, p.language), &result.APISpec},
	}
	for _, step := range steps {
		reply, err := p.ask(ctx, StageComplete, step.prompt)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", step.name, err)
		}
		*step.dst = reply
	}
	result.Flowchart = strings.TrimSpace(llm.StripCodeFence(result.Flowchart))

	return result, nil
}
