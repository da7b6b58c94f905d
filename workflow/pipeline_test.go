package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/llm"
	"github.com/c360studio/specgen/llm/testutil"
	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/workflow"
	"github.com/c360studio/specgen/workflow/prompts"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func reply(content string) *llm.Response {
	return &llm.Response{Content: content, Model: "test-model"}
}

func TestFormulate(t *testing.T) {
	mock := &testutil.MockCompleter{Responses: []*llm.Response{
		reply("```dbml\nTable Book {\n  id int [pk]\n}\n```"),
		reply("  Feature: Loans\n  Rule: one\n"),
	}}
	p := workflow.NewPipeline(mock, workflow.WithLanguage("German"))

	got, err := p.Formulate(context.Background(), "  Members borrow books.  ")
	require.NoError(t, err)
	assert.Equal(t, &workflow.Formulation{
		DBML:    "Table Book {\n  id int [pk]\n}",
		Gherkin: "Feature: Loans\n  Rule: one",
	}, got)

	reqs := mock.Requests()
	require.Len(t, reqs, 2)
	dbmlPrompt, user := testutil.Prompt(reqs[0])
	assert.Empty(t, user)
	assert.Contains(t, dbmlPrompt, "DBML")
	assert.Contains(t, dbmlPrompt, "Members borrow books.\n")
	assert.Contains(t, dbmlPrompt, "Write notes in German")
	assert.Contains(t, dbmlPrompt, prompts.FormulationRules)
	gherkinPrompt, _ := testutil.Prompt(reqs[1])
	assert.Contains(t, gherkinPrompt, "Gherkin")
	assert.Equal(t, "spec", reqs[0].Capability)

	tc := llm.GetTraceContext(mock.LastContext())
	assert.Equal(t, workflow.StageFormulation, tc.Stage)
}

func TestFormulate_Errors(t *testing.T) {
	mock := &testutil.MockCompleter{}
	p := workflow.NewPipeline(mock)

	_, err := p.Formulate(context.Background(), "   ")
	assert.ErrorIs(t, err, workflow.ErrEmptyInput)
	assert.Zero(t, mock.CallCount())

	var calls atomic.Int32
	mock.Handler = func(req llm.Request) (*llm.Response, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("backend down")
		}
		return reply("Table A {}"), nil
	}
	_, err = p.Formulate(context.Background(), "spec")
	assert.ErrorContains(t, err, "generate Gherkin: backend down")
}

func TestDiscover(t *testing.T) {
	items := `[
  {"id": 1, "priority": "High", "location": "ERM: User -> email", "question": "Unique?",
   "options": [{"key": "A", "text": "Yes"}, {"key": "B", "text": "No"}]},
  {"id": 2, "priority": "Low", "location": "Feature: Login", "question": "Lockout?", "options": []},
  {"id": 3, "priority": "High", "location": "Feature: Login", "question": "Reset?", "options": []},
  {"id": "4", "priority": "Urgent", "location": "x", "question": "y", "options": []}
]`
	mock := &testutil.MockCompleter{Responses: []*llm.Response{reply("```json\n" + items + "\n```")}}
	p := workflow.NewPipeline(mock)

	got, err := p.Discover(context.Background(), "Table User {}", "Feature: Login")
	require.NoError(t, err)
	assert.Equal(t, workflow.Statistics{Total: 4, High: 2, Medium: 0, Low: 1}, got.Statistics)
	assert.Equal(t, "Unique?", got.Items[0].Question)
	assert.Equal(t, []workflow.ClarificationOption{{Key: "A", Text: "Yes"}, {Key: "B", Text: "No"}}, got.Items[0].Options)
	assert.Equal(t, float64(1), got.Items[0].ID)
	assert.Equal(t, "4", got.Items[3].ID)

	system, _ := testutil.Prompt(mock.Requests()[0])
	assert.Contains(t, system, "```dbml\nTable User {}\n```")
	assert.Contains(t, system, "```gherkin\nFeature: Login\n```")
	assert.Equal(t, "analysis", mock.Requests()[0].Capability)
}

func TestDiscover_EmptyInput(t *testing.T) {
	p := workflow.NewPipeline(&testutil.MockCompleter{})
	_, err := p.Discover(context.Background(), "Table A {}", " ")
	assert.ErrorIs(t, err, workflow.ErrEmptyInput)
}

func TestParseClarifications(t *testing.T) {
	items, err := workflow.ParseClarifications("[]")
	require.NoError(t, err)
	assert.Equal(t, []workflow.ClarificationItem{}, items)

	items, err = workflow.ParseClarifications("Here you go:\n[{\"id\": 1, \"priority\": \"Medium\",},]\nDone.")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, workflow.PriorityMedium, items[0].Priority)

	long := "Sorry, I cannot help with that. " + strings.Repeat("x", 300)
	_, err = workflow.ParseClarifications(long)
	var decodeErr *workflow.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, err.Error(), "reply is not valid JSON")
	assert.Contains(t, err.Error(), "raw reply: Sorry, I cannot help")
	assert.NotContains(t, err.Error(), strings.Repeat("x", 200))
}

func TestComplete(t *testing.T) {
	mock := &testutil.MockCompleter{Responses: []*llm.Response{
		reply("A lending library."),
		reply("1. Track loans\n2. Reduce overdue books"),
		reply("```mermaid\ngraph TD\n    A[Start] --> B[End]\n```"),
		reply("## POST /loans"),
	}}
	p := workflow.NewPipeline(mock)

	got, err := p.Complete(context.Background(), "Table Loan {}", "Feature: Borrow")
	require.NoError(t, err)
	want := &workflow.CompleteResult{
		Background: "A lending library.",
		Goals:      "1. Track loans\n2. Reduce overdue books",
		Flowchart:  "graph TD\n    A[Start] --> B[End]",
		APISpec:    "## POST /loans",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Complete() mismatch (-want +got):\n%s", diff)
	}

	reqs := mock.Requests()
	require.Len(t, reqs, 4)
	for i, marker := range []string{"background", "project goals", "Mermaid", "RESTful API"} {
		system, _ := testutil.Prompt(reqs[i])
		assert.Contains(t, system, marker, "call %d", i)
	}
}

func TestComplete_StopsOnFailure(t *testing.T) {
	var calls atomic.Int32
	mock := &testutil.MockCompleter{Handler: func(llm.Request) (*llm.Response, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("timeout")
		}
		return reply("ok"), nil
	}}
	p := workflow.NewPipeline(mock)

	_, err := p.Complete(context.Background(), "Table A {}", "Feature: A")
	assert.ErrorContains(t, err, "generate goals: timeout")
	assert.Equal(t, 2, mock.CallCount())
}

func TestIdeas(t *testing.T) {
	mock := &testutil.MockCompleter{Handler: func(req llm.Request) (*llm.Response, error) {
		system, _ := testutil.Prompt(req)
		switch {
		case strings.Contains(system, "technical expert"):
			// Finish last to show ordering does not depend on completion order.
			time.Sleep(20 * time.Millisecond)
			return reply(" tech idea "), nil
		case strings.Contains(system, "product manager"):
			return reply("scenario idea"), nil
		default:
			return reply("innovation idea"), nil
		}
	}}
	p := workflow.NewPipeline(mock)

	ideas, err := p.Ideas(context.Background(), "book swap app")
	require.NoError(t, err)
	assert.Equal(t, []string{"tech idea", "scenario idea", "innovation idea"}, ideas)
	assert.Equal(t, 3, mock.CallCount())
	for _, req := range mock.Requests() {
		assert.Equal(t, "ideation", req.Capability)
	}
}

func TestIdeas_PartialFailureIsPadded(t *testing.T) {
	mock := &testutil.MockCompleter{Handler: func(req llm.Request) (*llm.Response, error) {
		system, _ := testutil.Prompt(req)
		switch {
		case strings.Contains(system, "product manager"):
			return reply("scenario idea"), nil
		case strings.Contains(system, "technical expert"):
			return reply("   "), nil
		default:
			return nil, errors.New("rate limited")
		}
	}}
	p := workflow.NewPipeline(mock)

	ideas, err := p.Ideas(context.Background(), "book swap app")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"scenario idea",
		prompts.FillerIdea("book swap app", 2),
		prompts.FillerIdea("book swap app", 3),
	}, ideas)
}

func TestIdeas_AllFailed(t *testing.T) {
	p := workflow.NewPipeline(&testutil.MockCompleter{Err: errors.New("offline")})

	ideas, err := p.Ideas(context.Background(), "book swap app")
	require.NoError(t, err)
	assert.Equal(t, prompts.FallbackIdeas("book swap app"), ideas)
	assert.Len(t, ideas, workflow.IdeaCount)

	_, err = p.Ideas(context.Background(), "")
	assert.ErrorIs(t, err, workflow.ErrEmptyInput)
}

func TestGenerateField(t *testing.T) {
	mock := &testutil.MockCompleter{Responses: []*llm.Response{reply("  field text  ")}}
	p := workflow.NewPipeline(mock)

	got, err := p.GenerateField(context.Background(), "idea", " Write the goal ")
	require.NoError(t, err)
	assert.Equal(t, "field text", got)
	system, _ := testutil.Prompt(mock.Requests()[0])
	assert.Equal(t, "Write the goal", system)

	_, err = p.GenerateField(context.Background(), "", "prompt")
	assert.ErrorIs(t, err, workflow.ErrEmptyInput)
	_, err = p.GenerateField(context.Background(), "idea", "")
	assert.ErrorIs(t, err, workflow.ErrEmptyInput)
}

type promptStub map[string]*entity.PromptConfiguration

func (s promptStub) GetByTaskType(_ context.Context, taskType string) (*entity.PromptConfiguration, error) {
	if cfg, ok := s[taskType]; ok {
		return cfg, nil
	}
	return nil, storage.ErrNotFound
}

func TestGPTGenerate(t *testing.T) {
	lookup := promptStub{
		entity.TaskSummarization: {TaskType: entity.TaskSummarization, Prompt: "Summarize this", Model: "gpt-4o-mini"},
	}

	t.Run("simulated without live generation", func(t *testing.T) {
		mock := &testutil.MockCompleter{}
		p := workflow.NewPipeline(mock)

		got, err := p.GPTGenerate(context.Background(), lookup, workflow.GenerateRequest{
			TaskType: entity.TaskSummarization,
			Input:    " long text ",
		})
		require.NoError(t, err)
		assert.Equal(t, workflow.MethodSimulated, got.Method)
		assert.Equal(t, "gpt-4o-mini", got.Model)
		assert.Equal(t, "long text", got.Input)
		assert.Equal(t, "Summarize this", got.PromptUsed)
		assert.Equal(t, prompts.SimulatedReply(entity.TaskSummarization, "gpt-4o-mini", "long text",
			"Summarize this\n\nUser input: long text"), got.Output)
		assert.Zero(t, mock.CallCount())
	})

	t.Run("live call", func(t *testing.T) {
		mock := &testutil.MockCompleter{Responses: []*llm.Response{reply(" summary ")}}
		p := workflow.NewPipeline(mock, workflow.WithLiveGeneration(true))

		got, err := p.GPTGenerate(context.Background(), lookup, workflow.GenerateRequest{
			Input:  "text",
			Prompt: "Classify",
		})
		require.NoError(t, err)
		assert.Equal(t, &workflow.GenerateResult{
			TaskType:   entity.TaskCustom,
			Model:      "test-model",
			Input:      "text",
			Output:     "summary",
			PromptUsed: "Classify",
			Method:     workflow.MethodOpenAI,
		}, got)

		req := mock.Requests()[0]
		assert.Equal(t, "openai", req.Endpoint)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, llm.Message{Role: "user", Content: "Classify\n\nUser input: text"}, req.Messages[0])
	})

	t.Run("live failure falls back", func(t *testing.T) {
		p := workflow.NewPipeline(&testutil.MockCompleter{Err: errors.New("401")}, workflow.WithLiveGeneration(true))
		got, err := p.GPTGenerate(context.Background(), lookup, workflow.GenerateRequest{Input: "x", Prompt: "p"})
		require.NoError(t, err)
		assert.Equal(t, workflow.MethodSimulated, got.Method)
	})

	t.Run("missing configuration", func(t *testing.T) {
		p := workflow.NewPipeline(&testutil.MockCompleter{})
		_, err := p.GPTGenerate(context.Background(), lookup, workflow.GenerateRequest{TaskType: entity.TaskGeneration, Input: "x"})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = p.GPTGenerate(context.Background(), lookup, workflow.GenerateRequest{Input: "  "})
		assert.ErrorIs(t, err, workflow.ErrEmptyInput)
	})
}

func TestGenerateSections(t *testing.T) {
	brief := prompts.SpecBrief{
		ProjectGoal:          "track loans",
		CoreFeatures:         "borrow, return",
		TechnicalConstraints: "Go",
		TargetAudience:       "librarians",
	}
	mock := &testutil.MockCompleter{Responses: []*llm.Response{reply(
		"==== Background ====\nLibraries lose books.\n\n==== Goals ====\n1. Track\n==== Flowchart ====\n```mermaid\ngraph TD\n```\n==== Glossary ====\nignored\n==== Extra ====\nnope",
	)}}
	p := workflow.NewPipeline(mock)

	doc, err := p.GenerateSections(context.Background(), brief)
	require.NoError(t, err)
	assert.Equal(t, "Libraries lose books.", doc.Section(prompts.SectionBackground))
	assert.Equal(t, "1. Track", doc.Section(prompts.SectionGoals))
	assert.Equal(t, "```mermaid\ngraph TD\n```", doc.Section(prompts.SectionFlowchart))
	assert.Equal(t, "Features: borrow, return", doc.Section(prompts.SectionFeatures))
	assert.Equal(t, "API: technical constraints Go", doc.Section(prompts.SectionAPI))
	assert.Equal(t, "Glossary: not compiled yet", doc.Section(prompts.SectionGlossary))
	assert.Equal(t, "Test cases: not generated yet", doc.Section(prompts.SectionTests))
	assert.NotContains(t, doc.Sections, "Extra")
	assert.Contains(t, doc.Raw, "==== Background ====")

	system, user := testutil.Prompt(mock.Requests()[0])
	assert.Contains(t, system, "==== Data Model ====")
	assert.Contains(t, user, "Target audience: librarians")
}

func TestGenerateSections_Failure(t *testing.T) {
	p := workflow.NewPipeline(&testutil.MockCompleter{Err: errors.New("down")})
	brief := prompts.SpecBrief{ProjectGoal: "g", CoreFeatures: "f", TechnicalConstraints: "c", TargetAudience: "a"}

	doc, err := p.GenerateSections(context.Background(), brief)
	require.Error(t, err)
	assert.Equal(t, prompts.Placeholders(brief), doc.Sections)
	assert.Equal(t, brief, doc.Brief)
}

func TestSplitSections(t *testing.T) {
	got := workflow.SplitSections("preamble\n==== A ====\none\n  ==== B ====  \ntwo\nthree\n==== A ====\nagain")
	assert.Equal(t, map[string]string{"A": "again", "B": "two\nthree"}, got)
	assert.Empty(t, workflow.SplitSections("no headers here"))
	assert.Equal(t, map[string]string{"x": "=== y ==="}, workflow.SplitSections("====x====\n=== y ==="))
	// A bare "====" line is a header without a name: it ends the current
	// section and its body is dropped.
	assert.Equal(t, map[string]string{"A": "one"}, workflow.SplitSections("==== A ====\none\n====\nlost\n======"))
}
