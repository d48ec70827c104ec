package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogrecon/internal/catalog"
)

const productPage = `<!doctype html><html><head>
<title>Loja - %[1]s</title>
<meta property="og:description" content="Descricao do produto %[1]s">
<meta name="description" content="fallback">
<meta property="og:image" content="https://cdn.test/%[1]s-1.jpg">
<meta property="og:image" content="https://cdn.test/%[1]s-2.jpg">
<meta property="og:image" content="https://cdn.test/%[1]s-1.jpg">
<meta property="product:price:amount" content="129,9">
</head><body></body></html>`

type shop struct {
	mu   sync.Mutex
	hits map[string]int
	hook func(ref string, w http.ResponseWriter, r *http.Request) bool
}

func (s *shop) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ref := strings.TrimPrefix(r.URL.Path, "/p/")
	s.mu.Lock()
	s.hits[ref]++
	s.mu.Unlock()
	if s.hook != nil && s.hook(ref, w, r) {
		return
	}
	switch ref {
	case "3":
		http.NotFound(w, r)
	case "4":
		fmt.Fprint(w, "<html><body>nothing here</body></html>")
	default:
		fmt.Fprintf(w, productPage, ref)
	}
}

func (s *shop) count(ref string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[ref]
}

func items(n int) []catalog.Product {
	out := make([]catalog.Product, n)
	for i := range out {
		out[i] = catalog.Product{ID: fmt.Sprintf("p-%d", i+1), ReferenceID: fmt.Sprint(i + 1), Name: fmt.Sprintf("Produto %d", i+1)}
	}
	return out
}

func newScraper(t *testing.T, srv *httptest.Server, progress string) *Scraper {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	s, err := New(Config{
		URLTemplate:  srv.URL + "/p/{referenceId}",
		Delay:        time.Millisecond,
		ProgressPath: progress,
	}, log)
	require.NoError(t, err)
	return s
}

func TestRun_RecordsResultsAndFailures(t *testing.T) {
	sh := &shop{hits: map[string]int{}}
	srv := httptest.NewServer(sh)
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "progress.json")

	prog, err := newScraper(t, srv, path).Run(context.Background(), items(5), 0)
	require.NoError(t, err)

	assert.Equal(t, 5, prog.Completed)
	require.Len(t, prog.Results, 3)
	require.Len(t, prog.Failed, 2)
	assert.Equal(t, "http_404", prog.Failed[0].Reason)
	assert.Equal(t, ReasonNoData, prog.Failed[1].Reason)
	assert.Equal(t, srv.URL+"/p/3", prog.Failed[0].URL)

	first := prog.Results[0]
	assert.Equal(t, "Descricao do produto 1", first.Description)
	assert.Equal(t, []string{"https://cdn.test/1-1.jpg", "https://cdn.test/1-2.jpg"}, first.Images)
	assert.Equal(t, "129,9", first.Price)

	saved, err := LoadProgress(path)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.Completed)
	assert.Len(t, saved.Results, 3)
	assert.NotEmpty(t, saved.UpdatedAt)
}

func TestRun_ResumesAfterCompletedItems(t *testing.T) {
	sh := &shop{hits: map[string]int{}}
	srv := httptest.NewServer(sh)
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, SaveProgress(path, Progress{Completed: 2, Results: []Result{{ID: "p-1"}, {ID: "p-2"}}}))

	prog, err := newScraper(t, srv, path).Run(context.Background(), items(5), 0)
	require.NoError(t, err)

	assert.Equal(t, 0, sh.count("1"))
	assert.Equal(t, 0, sh.count("2"))
	assert.Equal(t, 1, sh.count("5"))
	assert.Equal(t, 5, prog.Completed)
	assert.Len(t, prog.Results, 3)
}

func TestRun_LimitThenContinue(t *testing.T) {
	sh := &shop{hits: map[string]int{}}
	srv := httptest.NewServer(sh)
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "progress.json")
	list := items(5)

	prog, err := newScraper(t, srv, path).Run(context.Background(), list, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, prog.Completed)

	prog, err = newScraper(t, srv, path).Run(context.Background(), list, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, prog.Completed)
	for ref := 1; ref <= 5; ref++ {
		assert.Equal(t, 1, sh.count(fmt.Sprint(ref)), "item %d fetched exactly once", ref)
	}
}

func TestRun_InterruptedRunCheckpointsAndResumes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sh := &shop{hits: map[string]int{}}
	sh.hook = func(ref string, w http.ResponseWriter, r *http.Request) bool {
		if ref != "3" || sh.count("3") > 1 {
			return false
		}
		cancel()
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		return true
	}
	srv := httptest.NewServer(sh)
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "progress.json")
	list := items(5)

	_, err := newScraper(t, srv, path).Run(ctx, list, 0)
	require.Error(t, err)

	saved, err := LoadProgress(path)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Completed)

	prog, err := newScraper(t, srv, path).Run(context.Background(), list, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, prog.Completed)
	assert.Equal(t, 1, sh.count("1"))
	assert.Equal(t, 2, sh.count("3"))
}

func TestRun_DryRunFetchesNothing(t *testing.T) {
	sh := &shop{hits: map[string]int{}}
	srv := httptest.NewServer(sh)
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "progress.json")

	s := newScraper(t, srv, path)
	s.cfg.DryRun = true
	prog, err := s.Run(context.Background(), items(3), 0)
	require.NoError(t, err)
	assert.Equal(t, 3, prog.Completed)
	assert.Empty(t, sh.hits)
	assert.NoFileExists(t, path)
}

func TestRun_ProgressBeyondInput(t *testing.T) {
	sh := &shop{hits: map[string]int{}}
	srv := httptest.NewServer(sh)
	defer srv.Close()
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, SaveProgress(path, Progress{Completed: 9}))

	_, err := newScraper(t, srv, path).Run(context.Background(), items(3), 0)
	assert.ErrorContains(t, err, "only 3")
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	s := newScraper(t, srv, "")
	srv.Close()

	res, failure, err := s.Fetch(context.Background(), &catalog.Product{ID: "x", ReferenceID: "1"})
	require.NoError(t, err)
	assert.Nil(t, res)
	require.NotNil(t, failure)
	assert.Equal(t, ReasonNetwork, failure.Reason)
}

func TestParsePage_DescriptionFallback(t *testing.T) {
	page, err := ParsePage(strings.NewReader(`<html><head><meta name="Description" content=" Kit com perfume "><title>Kit</title></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Kit com perfume", page.Description)
	assert.Equal(t, "Kit", page.Title)
	assert.Empty(t, page.Images)
	assert.False(t, page.Empty())

	page, err = ParsePage(strings.NewReader(`<html><body><p>no meta</p></body></html>`))
	require.NoError(t, err)
	assert.True(t, page.Empty())
}

func TestBuildURLAndSlug(t *testing.T) {
	p := &catalog.Product{ID: "p 1", ReferenceID: "1001", Name: " Perfume Água & Cheiro 100ml "}
	assert.Equal(t, "perfume-agua-cheiro-100ml", Slug(p.Name))
	assert.Equal(t,
		"https://shop.test/busca?q=Perfume+%C3%81gua+%26+Cheiro+100ml&ref=1001&id=p%201&s=perfume-agua-cheiro-100ml",
		BuildURL("https://shop.test/busca?q={name}&ref={referenceId}&id={id}&s={slug}", p))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{URLTemplate: "https://shop.test/static"}, logrus.New())
	assert.ErrorContains(t, err, "no placeholder")

	_, err = New(Config{URLTemplate: "https://shop.test/{slug}", Delay: -time.Second}, logrus.New())
	assert.Error(t, err)
}

func TestLoadProgress(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadProgress(filepath.Join(dir, "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Completed)
	assert.NotNil(t, p.Results)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	_, err = LoadProgress(bad)
	assert.Error(t, err)
}

func TestResultProduct(t *testing.T) {
	p := Result{ID: "p-1", ReferenceID: "1", Name: "X", Description: "d", Images: []string{"a.jpg", "b.jpg"}, Price: "129,9"}.Product()
	assert.Equal(t, "a.jpg,b.jpg", p.Images)
	assert.Equal(t, "129.90", p.Price)
	assert.Equal(t, "d", p.Description)

	assert.Len(t, ToProducts([]Result{{Name: "a"}, {Name: "b", Price: "oops"}}), 2)
}

func TestNormalizePrice(t *testing.T) {
	for in, want := range map[string]string{"129,9": "129.90", " 1299.9 ": "1299.90", "-5": "", "": "", "1.299,90": ""} {
		got, ok := normalizePrice(in)
		assert.Equal(t, want != "", ok, in)
		assert.Equal(t, want, got, in)
	}
}
