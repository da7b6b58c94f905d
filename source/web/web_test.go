package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/specgen/source/weburl"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Library Loans</title></head>
<body>
<nav class="navbar"><a href="/">Home</a> <a href="/about">About us</a></nav>
<main>
<h1>Library Loans</h1>
<p>Members borrow books for up to three weeks. Each member may hold five loans at once,
and an overdue loan blocks new loans until the book is returned.</p>
<p>Librarians can extend a loan once when no other member has reserved the book.</p>
</main>
<footer class="footer">Copyright footer text</footer>
</body></html>`

var testPolicy = weburl.Policy{AllowHTTP: true, AllowPrivate: true}

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer server.Close()

	f := NewFetcher(WithPolicy(testPolicy))
	page, err := f.Fetch(context.Background(), server.URL+"/loans#rules")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, "/loans", page.URL.Path)
	assert.Contains(t, string(page.Body), "three weeks")
}

func TestFetcher_StrictRejectsLocalServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	_, err := NewFetcher().Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, weburl.ErrScheme)

	_, err = NewFetcher(WithPolicy(weburl.Policy{AllowHTTP: true})).Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, weburl.ErrBlockedHost)
}

func TestFetcher_DialRejectsPrivateResolution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	f := NewFetcher(WithPolicy(weburl.Policy{AllowHTTP: true}))
	f.lookup = func(context.Context, string) ([]netip.Addr, error) {
		return []netip.Addr{netip.MustParseAddr("127.0.0.1")}, nil
	}

	_, err = f.Fetch(context.Background(), "http://specs.example.com:"+u.Port()+"/")
	require.Error(t, err)
	assert.ErrorIs(t, err, weburl.ErrBlockedHost)
}

func TestFetcher_Errors(t *testing.T) {
	var redirects atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/big":
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		case "/loop":
			redirects.Add(1)
			http.Redirect(w, r, "/loop", http.StatusFound)
		}
	}))
	defer server.Close()

	f := NewFetcher(WithPolicy(testPolicy), WithMaxBytes(32))

	_, err := f.Fetch(context.Background(), server.URL+"/missing")
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = f.Fetch(context.Background(), server.URL+"/big")
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = f.Fetch(context.Background(), server.URL+"/loop")
	assert.ErrorContains(t, err, "too many redirects")
	assert.Equal(t, int32(maxRedirects), redirects.Load())
}

func TestConverter_Convert(t *testing.T) {
	doc, err := NewConverter().Convert([]byte(articlePage), nil)
	require.NoError(t, err)
	assert.Equal(t, "Library Loans", doc.Title)
	assert.Contains(t, doc.Markdown, "three weeks")
	assert.Contains(t, doc.Markdown, "extend a loan once")
	assert.NotContains(t, doc.Markdown, "Copyright footer text")
}

func TestMainContent(t *testing.T) {
	page := `<html><body>
<nav>Site menu</nav>
<div class="sidebar">Related links</div>
<div><p>Loan rules live here.</p></div>
<footer>Footer</footer>
</body></html>`

	got := mainContent([]byte(page))
	assert.Contains(t, got, "Loan rules live here.")
	assert.NotContains(t, got, "Site menu")
	assert.NotContains(t, got, "Related links")
	assert.NotContains(t, got, "Footer")

	got = mainContent([]byte(`<html><body><p>x</p><div role="main"><p>only this</p></div></body></html>`))
	assert.Equal(t, `<div role="main"><p>only this</p></div>`, got)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "Title", htmlTitle([]byte("<html><head><title> Title </title></head></html>")))
	assert.Equal(t, "", htmlTitle([]byte("<p>no title</p>")))
	assert.Equal(t, "Heading", markdownTitle("intro\n# Heading\n## Sub"))
	assert.Equal(t, "a\n\n\nb", cleanMarkdown("  a  \n\n\n\n\n\nb\t"))
}

func TestLoader_Load(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/spec.md":
			w.Header().Set("Content-Type", "text/markdown")
			_, _ = w.Write([]byte("# Loans\n\nMembers borrow books.\n"))
		default:
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(articlePage))
		}
	}))
	defer server.Close()

	l := NewLoader(NewFetcher(WithPolicy(testPolicy)), nil)

	doc, err := l.Load(context.Background(), server.URL+"/spec.md")
	require.NoError(t, err)
	assert.Equal(t, &Document{Title: "Loans", Markdown: "# Loans\n\nMembers borrow books."}, doc)

	doc, err = l.Load(context.Background(), server.URL+"/loans")
	require.NoError(t, err)
	assert.Equal(t, "Library Loans", doc.Title)
	assert.Contains(t, doc.Markdown, "five loans")
}
