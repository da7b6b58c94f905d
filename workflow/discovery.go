package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/workflow/prompts"
)

// Clarification priorities.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// rawPreviewLen bounds how much of an undecodable reply is reported.
const rawPreviewLen = 200

// ClarificationOption is one proposed answer to a clarification question.
type ClarificationOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// ClarificationItem is one gap found by discovery. ID is kept as the model
// sent it, which is usually a number.
type ClarificationItem struct {
	ID       any                   `json:"id"`
	Priority string                `json:"priority"`
	Location string                `json:"location"`
	Question string                `json:"question"`
	Options  []ClarificationOption `json:"options"`
}

// Statistics counts clarification items by priority.
type Statistics struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Discovery is the result of reviewing a formulated specification.
type Discovery struct {
	Items      []ClarificationItem `json:"items"`
	Statistics Statistics          `json:"statistics"`
}

// DecodeError reports a discovery reply that is not a JSON array.
type DecodeError struct {
	Err error
	Raw string
}

func (e *DecodeError) Error() string {
	raw := []rune(e.Raw)
	if len(raw) > rawPreviewLen {
		raw = raw[:rawPreviewLen]
	}
	return fmt.Sprintf("reply is not valid JSON: %v\nraw reply: %s", e.Err, string(raw))
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Discover asks for clarification items covering dbml and gherkin.
func (p *Pipeline) Discover(ctx context.Context, dbml, gherkin string) (*Discovery, error) {
	dbml, gherkin = strings.TrimSpace(dbml), strings.TrimSpace(gherkin)
	if dbml == "" || gherkin == "" {
		return nil, fmt.Errorf("dbml and gherkin: %w", ErrEmptyInput)
	}

	reply, err := p.ask(ctx, StageDiscovery, prompts.DiscoveryPrompt(dbml, gherkin, p.language))
	if err != nil {
		return nil, err
	}

	items, err := ParseClarifications(reply)
	if err != nil {
		return nil, err
	}
	return &Discovery{Items: items, Statistics: Count(items)}, nil
}

// ParseClarifications decodes a discovery reply. The fence-stripped reply is
// tried first, then the first JSON array found anywhere in it.
func ParseClarifications(reply string) ([]ClarificationItem, error) {
	body := strings.TrimSpace(llm.StripCodeFence(strings.TrimSpace(reply)))

	var items []ClarificationItem
	err := json.Unmarshal([]byte(body), &items)
	if err != nil {
		extracted := llm.ExtractJSONArray(reply)
		if extracted == "" || json.Unmarshal([]byte(extracted), &items) != nil {
			return nil, &DecodeError{Err: err, Raw: body}
		}
	}
	if items == nil {
		items = []ClarificationItem{}
	}
	return items, nil
}

// Count tallies items by priority. Unknown priorities count only toward the total.
func Count(items []ClarificationItem) Statistics {
	s := Statistics{Total: len(items)}
	for _, item := range items {
		switch item.Priority {
		case PriorityHigh:
			s.High++
		case PriorityMedium:
			s.Medium++
		case PriorityLow:
			s.Low++
		}
	}
	return s
}
