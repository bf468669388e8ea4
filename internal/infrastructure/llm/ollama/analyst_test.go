package ollama

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nvoronin/libris/internal/core/domain"
	"github.com/nvoronin/libris/internal/infrastructure/resilience"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(serverURL string) *Client {
	return New(serverURL, "test-gen", "test-embed", Options{
		Permits:           4,
		RequestsPerSecond: 1000,
		Resilience:        resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1}),
	})
}

func generateServer(t *testing.T, response string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if gotBody != nil {
			_ = json.NewDecoder(r.Body).Decode(gotBody)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": response})
	}))
}

func TestParseTableOfContents(t *testing.T) {
	var gotBody map[string]any
	server := generateServer(t, `{"chapters":[
		{"chapter_title":"Introduction","chapter_number":1},
		{"chapter_title":"Sorting","chapter_number":"2"}
	]}`, &gotBody)
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	chapters, err := analyst.ParseTableOfContents(context.Background(), "1. Introduction\n2. Sorting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].Number != "1" {
		t.Errorf("integer chapter number must decode to string, got %q", chapters[0].Number)
	}
	if chapters[1].Title != "Sorting" || chapters[1].Number != "2" {
		t.Errorf("unexpected chapter %+v", chapters[1])
	}

	if gotBody["model"] != "test-gen" {
		t.Errorf("unexpected model %v", gotBody["model"])
	}
	if gotBody["format"] != "json" {
		t.Errorf("toc parse must request json format")
	}
	if gotBody["stream"] != false {
		t.Errorf("streaming must be off")
	}
}

func TestParseTableOfContentsUnparseableResponse(t *testing.T) {
	server := generateServer(t, "sorry, I cannot help with that", nil)
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	chapters, err := analyst.ParseTableOfContents(context.Background(), "toc")
	if err != nil {
		t.Fatalf("garbage output must not error: %v", err)
	}
	if chapters != nil {
		t.Fatalf("expected no chapters, got %+v", chapters)
	}
}

func TestParseTableOfContentsStripsSurroundingProse(t *testing.T) {
	server := generateServer(t, `Here is the JSON you asked for: {"chapters":[{"chapter_title":"Only","chapter_number":"1"}]} Hope that helps!`, nil)
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	chapters, err := analyst.ParseTableOfContents(context.Background(), "toc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chapters) != 1 || chapters[0].Title != "Only" {
		t.Fatalf("expected the embedded object to parse, got %+v", chapters)
	}
}

func TestExtractBookMetadata(t *testing.T) {
	server := generateServer(t, `{"title":"Algorithms","authors":["A. Author","B. Author"],"publication_year":1989}`, nil)
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	metadata, err := analyst.ExtractBookMetadata(context.Background(), "front matter text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if metadata.Title != "Algorithms" || len(metadata.Authors) != 2 || metadata.PublicationYear != 1989 {
		t.Errorf("unexpected metadata %+v", metadata)
	}
}

func TestSummarizeChapterNuggets(t *testing.T) {
	server := generateServer(t, `{"summaries":["first nugget","second nugget"]}`, nil)
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	nuggets, err := analyst.SummarizeChapter(context.Background(), domain.ChapterContent{
		Title: "Sorting", Content: "partition and recurse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nuggets) != 2 || nuggets[0] != "first nugget" {
		t.Errorf("unexpected nuggets %v", nuggets)
	}
}

func TestSummarizeChapterFullPlainText(t *testing.T) {
	var gotBody map[string]any
	server := generateServer(t, "  The chapter explains quicksort.  ", &gotBody)
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	summary, err := analyst.SummarizeChapterFull(context.Background(), domain.ChapterContent{
		Title: "Sorting", Content: "partition and recurse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "The chapter explains quicksort." {
		t.Errorf("unexpected summary %q", summary)
	}
	if _, ok := gotBody["format"]; ok {
		t.Errorf("full summary is plain text, not json format")
	}
}

func TestTransportFailureSurfacesAsTemporary(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	analyst := NewAnalyst(testClient(server.URL), testLogger())
	_, err := analyst.ParseTableOfContents(context.Background(), "toc")
	if err == nil {
		t.Fatalf("expected transport error")
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Errorf("retryable status must be marked temporary: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("executor configured for a single attempt, got %d calls", calls.Load())
	}
}
