package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nvoronin/libris/internal/core/domain"
)

// Analyst implements the LLM capability of the books pipeline. Unparseable
// model output is tolerated: it yields an empty result and a warning, not an
// error. Only transport failures propagate.
type Analyst struct {
	client *Client
	logger *slog.Logger
}

func NewAnalyst(client *Client, logger *slog.Logger) *Analyst {
	return &Analyst{client: client, logger: logger}
}

func (a *Analyst) ParseTableOfContents(ctx context.Context, tocText string) ([]domain.Chapter, error) {
	raw, err := a.client.generateJSON(ctx, "parse_toc", buildTOCPrompt(tocText))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Chapters []domain.Chapter `json:"chapters"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		a.logger.Warn("unparseable toc response", "error", err)
		return nil, nil
	}
	return parsed.Chapters, nil
}

func (a *Analyst) ExtractBookMetadata(ctx context.Context, snippet string) (domain.BookMetadata, error) {
	raw, err := a.client.generateJSON(ctx, "extract_metadata", buildMetadataPrompt(snippet))
	if err != nil {
		return domain.BookMetadata{}, err
	}

	var metadata domain.BookMetadata
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &metadata); err != nil {
		a.logger.Warn("unparseable metadata response", "error", err)
		return domain.BookMetadata{}, nil
	}
	return metadata, nil
}

func (a *Analyst) SummarizeChapter(ctx context.Context, chapter domain.ChapterContent) ([]string, error) {
	raw, err := a.client.generateJSON(ctx, "summarize_chapter", buildNuggetsPrompt(chapter))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Summaries []string `json:"summaries"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		a.logger.Warn("unparseable nugget response", "chapter", chapter.Title, "error", err)
		return nil, nil
	}
	return parsed.Summaries, nil
}

func (a *Analyst) SummarizeChapterFull(ctx context.Context, chapter domain.ChapterContent) (string, error) {
	return a.client.generateText(ctx, "summarize_chapter_full", buildFullSummaryPrompt(chapter))
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
