package prompts

import "fmt"

// CustomModel is reported when a caller supplies its own prompt.
const CustomModel = "custom"

// TaskPrompt joins a stored or custom prompt with the user's input.
func TaskPrompt(prompt, input string) string {
	return prompt + "\n\nUser input: " + input
}

// SimulatedReply is the deterministic reply used when no LLM is available.
func SimulatedReply(taskType, model, input, fullPrompt string) string {
	preview := []rune(fullPrompt)
	if len(preview) > 50 {
		preview = preview[:50]
	}
	return fmt.Sprintf("[Simulated AI response]\nTask type: %s\nModel: %s\n\n"+
		"Based on the input %q, the AI generated the following:\n\n"+
		"This is a simulated response. Configure OpenAI or Ollama for real output.\n"+
		"Prompt: %s...", taskType, model, input, string(preview))
}
