package providers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/c360studio/specgen/llm"
)

// OllamaProvider implements Ollama's native /api/chat endpoint in streaming mode.
// Streamed NDJSON chunks are accumulated into one response.
type OllamaProvider struct{}

func init() {
	llm.RegisterProvider(&OllamaProvider{})
}

// Name returns the provider identifier.
func (o *OllamaProvider) Name() string {
	return "ollama"
}

// BuildURL constructs the chat endpoint from an Ollama host.
func (o *OllamaProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/api/chat") {
		return baseURL
	}
	return baseURL + "/api/chat"
}

// SetHeaders adds bearer authentication for hosted Ollama instances.
func (o *OllamaProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	req.Header.Set("Accept", "application/x-ndjson")
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []llm.Message  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

// BuildRequestBody creates a streaming chat request.
func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	req := ollamaRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}
	if temperature != nil || maxTokens > 0 {
		req.Options = &ollamaOptions{Temperature: temperature, NumPredict: maxTokens}
	}
	return json.Marshal(req)
}

type ollamaChunk struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done            bool   `json:"done"`
	DoneReason      string `json:"done_reason"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error"`
}

// ParseResponse accumulates NDJSON chunks. A single non-streamed JSON object
// is handled the same way since it is one line of the same shape.
func (o *OllamaProvider) ParseResponse(body []byte, _ string) (*llm.Response, error) {
	var (
		content strings.Builder
		resp    llm.Response
		chunks  int
	)

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var chunk ollamaChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("parse ollama chunk: %w", err)
		}
		if chunk.Error != "" {
			return nil, fmt.Errorf("ollama error: %s", chunk.Error)
		}
		chunks++

		content.WriteString(chunk.Message.Content)
		if chunk.Model != "" {
			resp.Model = chunk.Model
		}
		if chunk.Done {
			resp.FinishReason = chunk.DoneReason
			resp.Usage = llm.TokenUsage{
				PromptTokens:     chunk.PromptEvalCount,
				CompletionTokens: chunk.EvalCount,
				TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ollama stream: %w", err)
	}
	if chunks == 0 {
		return nil, fmt.Errorf("empty ollama response")
	}

	resp.Content = content.String()
	return &resp, nil
}
