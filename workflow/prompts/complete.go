package prompts

import "fmt"

func currentSpec(dbml, gherkin string) string {
	return fmt.Sprintf("Current specification:\n### DBML data model\n```dbml\n%s\n```\n\n### Gherkin functional model\n```gherkin\n%s\n```", dbml, gherkin)
}

// BackgroundPrompt asks for a short background paragraph.
func BackgroundPrompt(dbml, gherkin, language string) string {
	return fmt.Sprintf(`You are a technical writer. Write a concise project background (2-3 sentences) in %s for the specification below.

%s

Output only the background text, with no heading or markdown.`, language, currentSpec(dbml, gherkin))
}

// GoalsPrompt asks for three to five numbered project goals.
func GoalsPrompt(dbml, gherkin, language string) string {
	return fmt.Sprintf(`You are a product manager. List 3-5 core project goals in %s for the specification below.

%s

Output a numbered list (1. ... 2. ...) with no heading.`, language, currentSpec(dbml, gherkin))
}

// FlowchartPrompt asks for a Mermaid flowchart without fences.
func FlowchartPrompt(dbml, gherkin string) string {
	return fmt.Sprintf(`You are a flowchart designer. Produce Mermaid flowchart code for the specification below.

%s

**Rules**:
1. Output only Mermaid syntax, without a `+"```mermaid"+` fence
2. Start directly with graph or flowchart
3. Node labels are short (at most 10 words)
4. Edge labels for branches are English, for example:
   - -->|Yes| and -->|No|
   - -->|Success| and -->|Failure|
5. Avoid special characters in labels: / \ : " '
6. Node ids are simple alphanumerics (A, B, C or step1, step2)
7. Use basic shapes: [square], (rounded), {diamond}

**Example**:
graph TD
    A[Start] --> B{Check Auth}
    B -->|Yes| C[Load Data]
    B -->|No| D[Show Login]
    C --> E[Display]

Output only Mermaid code that follows these rules.`, currentSpec(dbml, gherkin))
}

// APISpecPrompt asks for a RESTful API description in markdown.
func APISpecPrompt(dbml, gherkin, language string) string {
	return fmt.Sprintf(`You are an API designer. Produce a RESTful API specification in %s for the specification below.

%s

Use markdown and include for each endpoint:
- path and method
- description
- request parameters
- response format
- status codes

Do not add a top-level "# API Specification" heading.`, language, currentSpec(dbml, gherkin))
}
