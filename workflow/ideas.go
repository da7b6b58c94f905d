package workflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/specgen/workflow/prompts"
)

// IdeaCount is the number of ideas always returned.
const IdeaCount = 3

// IdeasMethod labels the fan-out strategy in responses.
const IdeasMethod = "parallel_api_calls"

// Ideas expands idea from every perspective concurrently. Failed or empty
// expansions are dropped; if all of them fail the canned fallbacks are
// returned. The result always has IdeaCount entries in perspective order.
func (p *Pipeline) Ideas(ctx context.Context, idea string) ([]string, error) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return nil, fmt.Errorf("idea: %w", ErrEmptyInput)
	}

	results := make([]string, len(prompts.Perspectives))
	var g errgroup.Group
	for i, perspective := range prompts.Perspectives {
		g.Go(func() error {
			reply, err := p.ask(ctx, StageIdeas, prompts.IdeaPrompt(perspective, idea, p.language))
			if err != nil {
				p.logger.Warn("Idea expansion failed", "perspective", perspective.Name, "error", err)
				return nil
			}
			results[i] = reply
			return nil
		})
	}
	_ = g.Wait()

	ideas := make([]string, 0, IdeaCount)
	for _, r := range results {
		if r != "" {
			ideas = append(ideas, r)
		}
	}
	if len(ideas) == 0 {
		ideas = prompts.FallbackIdeas(idea)
	}
	for len(ideas) < IdeaCount {
		ideas = append(ideas, prompts.FillerIdea(idea, len(ideas)+1))
	}
	return ideas[:IdeaCount], nil
}
