// Package workflow runs the prompt pipelines that turn free-text project
// descriptions into specification artefacts.
//
// The advanced pipeline has three stages: formulation extracts a DBML data
// model and a Gherkin functional model, discovery reviews both for gaps, and
// the complete stage derives background, goals, a flowchart and an API
// specification. Calls within one stage are serial, except Ideas which fans
// its perspectives out concurrently.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/model"
)

// Pipeline stages, used for capability selection and call records.
const (
	StageFormulation = "formulation"
	StageDiscovery   = "discovery"
	StageComplete    = "complete"
	StageSections    = "sections"
	StageIdeas       = "ideas"
	StageField       = "field"
	StagePrompt      = "prompt"
)

// DefaultLanguage is used when no output language is configured.
const DefaultLanguage = "English"

// ErrEmptyInput is returned when a required input is blank.
var ErrEmptyInput = errors.New("required input is empty")

// Pipeline sends templated prompts to an LLM.
type Pipeline struct {
	llm      llm.Completer
	language string
	live     bool
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLanguage sets the natural language of generated text.
func WithLanguage(language string) Option {
	return func(p *Pipeline) {
		if language != "" {
			p.language = language
		}
	}
}

// WithLiveGeneration enables real LLM calls for GPTGenerate. Without it
// GPTGenerate always returns the simulated reply.
func WithLiveGeneration(live bool) Option {
	return func(p *Pipeline) { p.live = live }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// NewPipeline creates a pipeline over c.
func NewPipeline(c llm.Completer, opts ...Option) *Pipeline {
	p := &Pipeline{
		llm:      c,
		language: DefaultLanguage,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns the configured output language.
func (p *Pipeline) Language() string {
	return p.language
}

// ask sends prompt as the system message with an empty user message and
// returns the trimmed reply.
func (p *Pipeline) ask(ctx context.Context, stage, prompt string) (string, error) {
	return p.askWith(ctx, stage, prompt, "")
}

func (p *Pipeline) askWith(ctx context.Context, stage, system, user string) (string, error) {
	start := time.Now()
	ctx = llm.WithStage(ctx, stage)
	reply, err := llm.Ask(ctx, p.llm, model.CapabilityForStage(stage), system, user)
	if err != nil {
		p.logger.Warn("LLM call failed", "stage", stage, "error", err)
		return "", err
	}
	p.logger.Debug("LLM call completed",
		"stage", stage,
		"chars", len(reply),
		"duration", time.Since(start))
	return reply, nil
}
