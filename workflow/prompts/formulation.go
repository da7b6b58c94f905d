// Package prompts holds the prompt templates for the specification pipeline.
// Every template is a plain function of its inputs so replies can be
// reproduced from the call log.
package prompts

import "fmt"

// FormulationRules is shared by the DBML and Gherkin extraction prompts.
const FormulationRules = `# Core principle: no invention, no assumptions
Follow the source specification strictly. If a field, rule, condition or behaviour
is not written in the requirements, do not add it. Do not guess, infer or fill in
anything the requirements do not contain.

# Data model extraction rules (DBML)

## A. Entities
- Extract only entities the specification names explicitly
- Use the specification's own terms for entity names
- Do not add entities the specification does not mention

## B. Attributes
- Extract only attributes that are stated or directly derivable
- Every attribute has a type: int, long, float, bool, string
- Every attribute has a note describing its meaning
- Record stated constraints (> 0, >= 0, must be unique) in the note
- Do not add "reserved" or "might be needed" fields

## C. Cross-attribute invariants
- List invariants in the table Note, for example: total = price * quantity
- Record only invariants the specification states

## D. Relationships
- Mark only relationships the specification states
- Use DBML ref syntax
- State the cardinality (one-to-one, one-to-many, many-to-many)

## E. Entity description
- Describe the purpose of each table in its Note

# Functional model extraction rules (Gherkin)

## A. Features
- A feature is a point where a user interacts with the system; without an explicit interaction it is not a feature
- Extract only features the specification states, never "features that might be needed"
- Feature names reflect the user's intent

## B. Rules
- Every precondition and postcondition is its own Rule
- Rules are atomic: each Rule checks exactly one thing
- Extract only rules the specification states, do not add "reasonable validation"
- Rules must be verifiable; avoid vague adjectives

## C. Examples
- Describe each Example with Given-When-Then
- If the text holds no example for a Rule, mark the Rule with #TODO
- Do not invent examples or test situations
- Every Example has at least one When step tied to the Feature's interaction
`

// DBMLPrompt asks for the data model of specText as bare DBML.
func DBMLPrompt(specText, language string) string {
	return fmt.Sprintf(`You are a professional requirements analyst. Extract the data model from the specification text below following these rules, and output it as DBML.

%s
## Source specification
%s

## Output requirements
Follow the rules above strictly and output standard DBML.

**Important**:
- Output only the DBML itself, with no explanation or preamble
- Do not wrap the output in a markdown code block
- Start directly with Table
- Every Table has a Note describing its purpose
- Every column has a note describing its meaning
- Use ref syntax for relationships
- Write notes in %s

Example:
Table User {
  id int [pk]
  username string [note: "login name, must be unique"]
  email string [note: "contact address"]

  Note: "A person who uses the system"
}

Table Order {
  id int [pk]
  user_id int [ref: > User.id, note: "owner of the order"]
  total float [note: "order total, must be >= 0"]

  Note: "A purchase. Invariant: total = sum(OrderItem.price * OrderItem.quantity)"
}
`, FormulationRules, specText, language)
}

// GherkinPrompt asks for the functional model of specText as bare Gherkin.
func GherkinPrompt(specText, language string) string {
	return fmt.Sprintf(`You are a professional requirements analyst. Extract the functional model from the specification text below following these rules, and output it as Gherkin.

%s
## Source specification
%s

## Output requirements
Follow the rules above strictly and output standard Gherkin.

**Important**:
- Output only the Gherkin itself, with no explanation or preamble
- Do not wrap the output in a markdown code block
- Use English keywords (Feature, Rule, Example, Given, When, Then, And)
- Write the step text in %s
- Hierarchy: Feature > Rule > Example
- Every Example has a When step
- Mark rules without examples with #TODO

Example:
Feature: User registration

  Rule: A username is required to register
    Example: Successful registration
      Given the system is running
      When a user registers with username "alice" and password "pass123"
      Then a new account is created
      And the username is "alice"

  Rule: Usernames are unique
    Example: Duplicate username is rejected
      Given a user named "alice" exists
      When a user tries to register with username "alice"
      Then the operation fails
      And the system shows the error "username already exists"
`, FormulationRules, specText, language)
}
