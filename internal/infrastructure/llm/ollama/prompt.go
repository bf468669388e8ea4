package ollama

import (
	"fmt"

	"github.com/nvoronin/libris/internal/core/domain"
)

func buildTOCPrompt(tocText string) string {
	return `You are a document analysis tool.
Parse the following table of contents markdown and return a strict JSON object:
{"chapters": [{"chapter_title": string, "chapter_number": integer or string}, ...]}
List every chapter, in source order. No markdown, no extra keys.

Table of contents:
` + tocText
}

func buildMetadataPrompt(snippet string) string {
	return `You are part of a document ingestion system.
Extract the title, authors and publication year from the markdown snippet of a book below.
Return a strict JSON object with keys: title (string), authors (array of strings), publication_year (integer).
Strip any escape characters or special signs from the values.
No markdown, no extra keys.

Snippet:
` + snippet
}

func buildNuggetsPrompt(chapter domain.ChapterContent) string {
	return `You are a subject-matter expert distilling the core knowledge of a book chapter
for a retrieval system that answers direct questions from engineers.
Do not describe what the chapter contains. Extract the key concepts and state each one
as a single declarative, factual sentence.
Return a strict JSON object: {"summaries": [string, ...]}.

Bad: "This section explains different caching strategies."
Good: "A Least Recently Used (LRU) cache evicts the items that have not been accessed for the longest time."

Chapter:
` + chapter.Content
}

func buildFullSummaryPrompt(chapter domain.ChapterContent) string {
	return fmt.Sprintf(`You are a text analyst.
Write a single concise paragraph summarizing the main topics and purpose of the book chapter below.
The paragraph will provide broader context in a retrieval system.

Chapter %s, %s:
%s`, chapter.ChapterNumber, chapter.Title, chapter.Content)
}
