package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/model"
	"github.com/c360studio/specgen/workflow/prompts"
)

// Generation methods reported by GPTGenerate.
const (
	MethodOpenAI    = "openai"
	MethodSimulated = "simulated"
)

// liveEndpoint is the registry endpoint live prompt generation is pinned to.
const liveEndpoint = "openai"

// PromptLookup finds the stored prompt for a task type.
type PromptLookup interface {
	GetByTaskType(ctx context.Context, taskType string) (*entity.PromptConfiguration, error)
}

// GenerateRequest is the input of GPTGenerate. An empty Prompt selects the
// stored prompt for TaskType.
type GenerateRequest struct {
	TaskType string `json:"task_type"`
	Input    string `json:"input"`
	Prompt   string `json:"prompt,omitempty"`
}

// GenerateResult is the output of GPTGenerate.
type GenerateResult struct {
	TaskType   string `json:"task_type"`
	Model      string `json:"model"`
	Input      string `json:"input"`
	Output     string `json:"output"`
	PromptUsed string `json:"prompt_used"`
	Method     string `json:"method"`
}

// GenerateField produces content for one form field from a caller-built prompt.
func (p *Pipeline) GenerateField(ctx context.Context, idea, prompt string) (string, error) {
	if strings.TrimSpace(idea) == "" {
		return "", fmt.Errorf("idea: %w", ErrEmptyInput)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt: %w", ErrEmptyInput)
	}
	return p.ask(ctx, StageField, prompt)
}

// GPTGenerate runs a stored or custom prompt against the user's input. Lookup
// errors are returned as-is so callers can tell a missing configuration
// apart. Without live generation, or when the call fails, a deterministic
// simulated reply is returned instead.
func (p *Pipeline) GPTGenerate(ctx context.Context, lookup PromptLookup, req GenerateRequest) (*GenerateResult, error) {
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		return nil, fmt.Errorf("input: %w", ErrEmptyInput)
	}
	if req.TaskType == "" {
		req.TaskType = entity.TaskCustom
	}

	promptText, modelName := req.Prompt, prompts.CustomModel
	if promptText == "" {
		cfg, err := lookup.GetByTaskType(ctx, req.TaskType)
		if err != nil {
			return nil, err
		}
		promptText, modelName = cfg.Prompt, cfg.Model
	}

	full := prompts.TaskPrompt(promptText, req.Input)
	result := &GenerateResult{
		TaskType:   req.TaskType,
		Model:      modelName,
		Input:      req.Input,
		PromptUsed: promptText,
		Method:     MethodSimulated,
	}

	if p.live {
		resp, err := p.llm.Complete(llm.WithStage(ctx, StagePrompt), llm.Request{
			Capability: model.CapabilityForStage(StagePrompt).String(),
			Messages:   []llm.Message{{Role: "user", Content: full}},
			Endpoint:   liveEndpoint,
		})
		if err == nil {
			result.Output = strings.TrimSpace(resp.Content)
			result.Method = MethodOpenAI
			if resp.Model != "" {
				result.Model = resp.Model
			}
			return result, nil
		}
		p.logger.Warn("Prompt generation failed, using simulated reply",
			"task_type", req.TaskType, "error", err)
	}

	result.Output = prompts.SimulatedReply(req.TaskType, modelName, req.Input, full)
	return result, nil
}
