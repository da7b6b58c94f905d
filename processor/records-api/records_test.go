package recordsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/storage"
)

func TestMain(m *testing.M) {
	entity.PasswordIterations = 1000
	os.Exit(m.Run())
}

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) { return s.vec, s.err }
func (s stubEmbedder) Name() string                                     { return "stub" }

type testEnv struct {
	store *storage.Store
	mux   *http.ServeMux
}

func newEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mux := http.NewServeMux()
	New(store, opts...).RegisterHTTPHandlers("/", mux)
	return &testEnv{store: store, mux: mux}
}

// do issues a request and decodes a JSON object response, if any.
func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func idOf(t *testing.T, body map[string]any) int64 {
	t.Helper()
	id, ok := body["id"].(float64)
	require.True(t, ok, "response has no id: %v", body)
	return int64(id)
}

func TestUsers(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/user/", map[string]any{
		"username": "alice", "email": "alice@example.com", "password": "secret",
	})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "created", body["result"])
	id := idOf(t, body)

	code, body = env.do(t, http.MethodGet, "/user/", nil)
	require.Equal(t, http.StatusOK, code)
	users := body["users"].([]any)
	require.Len(t, users, 1)
	assert.NotContains(t, users[0], "password")

	code, body = env.do(t, http.MethodPut, fmt.Sprintf("/user/%d/", id), map[string]any{"password": "changed"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "updated", body["result"])

	u, err := env.store.Users.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, entity.CheckPassword("changed", u.Password))

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/user/%d/", id), nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, body = env.do(t, http.MethodGet, fmt.Sprintf("/user/%d/", id), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not found", body["error"])
}

func TestUsers_Errors(t *testing.T) {
	env := newEnv(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"bad json", http.MethodPost, "/user/", "{", http.StatusBadRequest, "Invalid JSON"},
		{"empty body", http.MethodPost, "/user/", "", http.StatusBadRequest, "empty body"},
		{"wrong type", http.MethodPost, "/user/", `{"username": 5}`, http.StatusBadRequest, "username"},
		{"missing email", http.MethodPost, "/user/", map[string]any{"username": "a", "password": "p"}, http.StatusBadRequest, "email"},
		{"method", http.MethodPatch, "/user/", nil, http.StatusMethodNotAllowed, "Method not allowed"},
		{"bad id", http.MethodGet, "/user/abc/", nil, http.StatusNotFound, "Not found"},
		{"missing", http.MethodPut, "/user/42/", map[string]any{}, http.StatusNotFound, "Not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, body["error"], tt.wantErr)
		})
	}
}

func TestOrders(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	alice := &entity.User{Username: "alice", Email: "a@x", Password: "pw"}
	bob := &entity.User{Username: "bob", Email: "b@x", Password: "pw"}
	require.NoError(t, env.store.Users.Create(ctx, alice))
	require.NoError(t, env.store.Users.Create(ctx, bob))

	code, body := env.do(t, http.MethodPost, "/order/", map[string]any{"product_name": "Book", "amount": 1})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "user_id is required", body["error"])

	code, body = env.do(t, http.MethodPost, "/order/", map[string]any{"user_id": 99, "product_name": "Book", "amount": 1})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["error"])

	code, body = env.do(t, http.MethodPost, "/order/", map[string]any{"user_id": alice.ID, "product_name": "Book", "amount": 2})
	require.Equal(t, http.StatusCreated, code)
	id := idOf(t, body)

	o, err := env.store.Orders.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPending, o.Status)

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/order/%d/", id), map[string]any{"user_id": 99})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/order/%d/", id), map[string]any{"user_id": bob.ID, "status": "completed"})
	require.Equal(t, http.StatusOK, code)
	o, err = env.store.Orders.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, o.UserID)
	assert.Equal(t, entity.OrderCompleted, o.Status)

	code, body = env.do(t, http.MethodPut, fmt.Sprintf("/order/%d/", id), map[string]any{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "amount")

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/order/%d/", id), nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestWeightConfigsAndTickets(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/weight-config/", map[string]any{"name": "equal"})
	require.Equal(t, http.StatusOK, code)
	weightID := idOf(t, body)

	code, body = env.do(t, http.MethodPost, "/weight-config/", map[string]any{"score_a": 0.9})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "scores must sum to 1.0", body["error"])

	code, body = env.do(t, http.MethodPost, "/ticket/", map[string]any{
		"title": "Login", "value_a": 4, "value_b": 4, "value_c": 4, "value_d": 4, "weight_config_id": weightID,
	})
	require.Equal(t, http.StatusCreated, code)
	ticketID := idOf(t, body)
	assert.InDelta(t, 4.0, body["score"], 1e-9)

	code, body = env.do(t, http.MethodPost, "/ticket/", map[string]any{"title": "Orphan", "weight_config_id": 77})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "weight configuration 77")

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/weight-config/%d/", weightID), map[string]any{
		"score_a": 1, "score_b": 0, "score_c": 0, "score_d": 0,
	})
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodPut, fmt.Sprintf("/ticket/%d/", ticketID), map[string]any{"value_a": 2})
	require.Equal(t, http.StatusOK, code)
	assert.InDelta(t, 2.0, body["score"], 1e-9)

	code, body = env.do(t, http.MethodGet, "/ticket/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["tickets"], 1)

	code, body = env.do(t, http.MethodGet, "/weight-config/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["configs"], 1)

	code, body = env.do(t, http.MethodDelete, fmt.Sprintf("/weight-config/%d/", weightID), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "deleted", body["result"])

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/ticket/%d/", ticketID), nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestFieldPriorities(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/field-priority/", map[string]any{"field_order": []string{"title", "score"}})
	require.Equal(t, http.StatusOK, code)
	id := idOf(t, body)

	code, body = env.do(t, http.MethodGet, fmt.Sprintf("/field-priority/%d/", id), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "", body["name"])
	assert.Equal(t, []any{"title", "score"}, body["field_order"])

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/field-priority/%d/", id), map[string]any{"field_order": []string{"desc"}})
	require.Equal(t, http.StatusOK, code)

	f, err := env.store.Priorities.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"desc"}, f.FieldOrder)

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/field-priority/%d/", id), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSentences_Embedding(t *testing.T) {
	env := newEnv(t, WithEmbedder(stubEmbedder{vec: []float32{0.5, 1}}))

	code, body := env.do(t, http.MethodPost, "/sentence-db/", map[string]any{"user": "u", "sentence": "hello world"})
	require.Equal(t, http.StatusOK, code)
	id := idOf(t, body)

	s, err := env.store.Sentences.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 1}, s.Embedding)

	// An explicit embedding is kept as given.
	code, body = env.do(t, http.MethodPost, "/sentence-db/", map[string]any{"sentence": "x", "embedding": []float64{3}})
	require.Equal(t, http.StatusOK, code)
	s, err = env.store.Sentences.Get(context.Background(), idOf(t, body))
	require.NoError(t, err)
	assert.Equal(t, []float64{3}, s.Embedding)

	code, body = env.do(t, http.MethodPost, "/sentence-db/", map[string]any{"embedding": []any{"a"}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "embedding")

	code, body = env.do(t, http.MethodGet, "/sentence-db/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["sentences"], 2)

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/sentence-db/%d/", id), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestSentences_EmbedderFailureStillSaves(t *testing.T) {
	env := newEnv(t, WithEmbedder(stubEmbedder{err: errors.New("quota")}))

	code, body := env.do(t, http.MethodPost, "/sentence-db/", map[string]any{"sentence": "hello"})
	require.Equal(t, http.StatusOK, code)

	s, err := env.store.Sentences.Get(context.Background(), idOf(t, body))
	require.NoError(t, err)
	assert.Empty(t, s.Embedding)
}

func TestPrompts(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/gpt-prompt/", map[string]any{"prompt": "Summarise this"})
	require.Equal(t, http.StatusOK, code)
	id := idOf(t, body)

	p, err := env.store.Prompts.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskCustom, p.TaskType)
	assert.Equal(t, entity.DefaultPromptModel, p.Model)

	code, body = env.do(t, http.MethodPost, "/gpt-prompt/", map[string]any{"task_type": "translate", "prompt": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "task_type")

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/gpt-prompt/%d/", id), map[string]any{"task_type": "summarization"})
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodGet, "/gpt-prompt/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["prompts"], 1)

	code, body = env.do(t, http.MethodDelete, fmt.Sprintf("/gpt-prompt/%d/", id), nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "deleted", body["result"])
}

func TestSyncPaths(t *testing.T) {
	env := newEnv(t)
	dir := t.TempDir()

	code, body := env.do(t, http.MethodPost, "/sync-path/", map[string]any{"name": "   ", "path": dir})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "name")

	code, body = env.do(t, http.MethodPost, "/sync-path/", map[string]any{"name": " backup ", "path": " " + dir + " "})
	require.Equal(t, http.StatusCreated, code)
	id := idOf(t, body)

	code, body = env.do(t, http.MethodGet, fmt.Sprintf("/sync-path/%d/", id), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "backup", body["name"])
	assert.Equal(t, dir, body["path"])

	code, body = env.do(t, http.MethodPut, fmt.Sprintf("/sync-path/%d/", id), map[string]any{"path": dir + "/missing"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "does not exist")

	code, body = env.do(t, http.MethodGet, "/sync-path/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["paths"], 1)

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/sync-path/%d/", id), nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestChatSessions(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/chat-session/", map[string]any{"session_id": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "session_id")

	code, body = env.do(t, http.MethodPost, "/chat-session/", map[string]any{"session_id": " s1 ", "title": "First"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "s1", body["session_id"])

	code, _ = env.do(t, http.MethodPost, "/chat-session/", map[string]any{"session_id": "s1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPut, "/chat-session/s1/", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "hi"}},
	})
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodGet, "/chat-session/s1/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "First", body["title"])
	assert.Len(t, body["messages"], 1)

	code, body = env.do(t, http.MethodPut, "/chat-session/s1/", map[string]any{
		"messages": []map[string]string{{"role": "bot", "content": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "role")

	code, _ = env.do(t, http.MethodDelete, "/chat-session/s1/", nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, _ = env.do(t, http.MethodGet, "/chat-session/s1/", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCategoryMemories(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/category-memory/", map[string]any{"configuration_item": " db.host ", "category": "network"})
	require.Equal(t, http.StatusCreated, code)
	id := idOf(t, body)

	code, _ = env.do(t, http.MethodPost, "/category-memory/", map[string]any{"configuration_item": "db.host", "category": "network"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/category-memory/", map[string]any{"configuration_item": "db.host"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/category-memory/%d/", id), map[string]any{"category": "storage"})
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodGet, "/category-memory/", nil)
	require.Equal(t, http.StatusOK, code)
	memories := body["memories"].([]any)
	require.Len(t, memories, 1)
	assert.Equal(t, "storage", memories[0].(map[string]any)["category"])
	assert.Equal(t, "db.host", memories[0].(map[string]any)["configuration_item"])

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/category-memory/%d/", id), nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestUploadedFiles(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/uploaded-file/", map[string]any{"filename": "report.xlsx", "file_size": 100})
	require.Equal(t, http.StatusCreated, code)
	id := idOf(t, body)
	assert.NotEmpty(t, body["stored_filename"])

	code, body = env.do(t, http.MethodGet, fmt.Sprintf("/uploaded-file/%d/", id), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, entity.DefaultUploadPath, body["file_path"])

	code, body = env.do(t, http.MethodPost, "/uploaded-file/", map[string]any{"filename": "report.csv"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], ".xlsx")

	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/uploaded-file/%d/", id), map[string]any{})
	assert.Equal(t, http.StatusMethodNotAllowed, code)

	code, body = env.do(t, http.MethodGet, "/uploaded-file/", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["files"], 1)

	code, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/uploaded-file/%d/", id), nil)
	assert.Equal(t, http.StatusNoContent, code)
}

func TestRegisterHTTPHandlers_Prefix(t *testing.T) {
	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	defer store.Close()

	mux := http.NewServeMux()
	New(store).RegisterHTTPHandlers("api", mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}

func TestWithMaxBodyBytes(t *testing.T) {
	env := newEnv(t, WithMaxBodyBytes(16))

	code, body := env.do(t, http.MethodPost, "/user/", map[string]any{"username": "a-very-long-username-indeed"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "exceeds 16 bytes")
}

func TestWeightConfigs_NameDefaultsEmpty(t *testing.T) {
	env := newEnv(t)

	code, body := env.do(t, http.MethodPost, "/weight-config/", map[string]any{})
	require.Equal(t, http.StatusOK, code)

	wc, err := env.store.Weights.Get(context.Background(), idOf(t, body))
	require.NoError(t, err)
	assert.Empty(t, wc.Name)
	assert.Equal(t, entity.DefaultScore, wc.ScoreA)
}

func TestDetailRoutes_MissingRowBeforeMethod(t *testing.T) {
	env := newEnv(t)

	for _, path := range []string{
		"/user/9/", "/order/9/", "/weight-config/9/", "/ticket/9/", "/field-priority/9/",
		"/sentence-db/9/", "/gpt-prompt/9/", "/sync-path/9/", "/chat-session/none/",
		"/category-memory/9/", "/uploaded-file/9/",
	} {
		t.Run(path, func(t *testing.T) {
			code, body := env.do(t, http.MethodPatch, path, nil)
			assert.Equal(t, http.StatusNotFound, code)
			assert.Equal(t, "Not found", body["error"])
		})
	}

	code, body := env.do(t, http.MethodPost, "/field-priority/", map[string]any{"name": "cols"})
	require.Equal(t, http.StatusOK, code)
	code, body = env.do(t, http.MethodPatch, fmt.Sprintf("/field-priority/%d/", idOf(t, body)), nil)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "Method not allowed", body["error"])

	code, body = env.do(t, http.MethodPost, "/uploaded-file/", map[string]any{"filename": "a.xlsx", "file_size": 10})
	require.Equal(t, http.StatusCreated, code)
	code, _ = env.do(t, http.MethodPut, fmt.Sprintf("/uploaded-file/%d/", idOf(t, body)), map[string]any{})
	assert.Equal(t, http.StatusMethodNotAllowed, code)
}
