package indexapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/entity"
	"github.com/c360studio/specgen/storage"
	"github.com/c360studio/specgen/vectorindex"
)

func setup(t *testing.T) (*http.ServeMux, *storage.Store, string) {
	t.Helper()
	store, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dir := filepath.Join(t.TempDir(), "faiss_data")
	mux := http.NewServeMux()
	New(vectorindex.NewManager(dir, store.Tickets), nil).RegisterHTTPHandlers("/", mux)
	return mux, store, dir
}

func serve(mux http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStatusRebuildSync(t *testing.T) {
	mux, store, dir := setup(t)

	rec := serve(mux, http.MethodGet, "/faiss-index/status/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"index_exists":false,"metadata_exists":false,"texts_exists":false,
		"dimension":384,"index_type":"IndexFlatL2 + IndexIDMap","record_count":0}`, rec.Body.String())

	rec = serve(mux, http.MethodPost, "/faiss-index/rebuild/")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"result":"rebuilt","dimension":384,"files_created":3}`, rec.Body.String())

	for _, name := range []string{vectorindex.IndexFile, vectorindex.MetadataFile, vectorindex.TextsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	rec = serve(mux, http.MethodGet, "/faiss-index/status/")
	assert.JSONEq(t, `{"index_exists":true,"metadata_exists":true,"texts_exists":true,
		"dimension":384,"index_type":"IndexFlatL2 + IndexIDMap","record_count":0}`, rec.Body.String())

	ctx := context.Background()
	require.NoError(t, store.Tickets.Create(ctx, &entity.Ticket{Title: "a"}))
	require.NoError(t, store.Tickets.Create(ctx, &entity.Ticket{Title: "b"}))

	rec = serve(mux, http.MethodPost, "/faiss-index/sync/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"synced","tickets_synced":2,"dimension":384}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _, _ := setup(t)

	tests := []struct{ method, path string }{
		{http.MethodPost, "/faiss-index/status/"},
		{http.MethodGet, "/faiss-index/rebuild/"},
		{http.MethodDelete, "/faiss-index/sync/"},
	}
	for _, tt := range tests {
		rec := serve(mux, tt.method, tt.path)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, tt.path)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
	}
}
