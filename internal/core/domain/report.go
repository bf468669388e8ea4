package domain

import (
	"sort"
	"time"
)

// RunReport is the summary metadata block for one pipeline run: counts and a
// per-category breakdown, persisted for observability.
type RunReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time

	RawObjects      int
	ParsedDocuments int
	Sections        int
	EmbeddedChunks  int

	ChunksByCategory map[Category]*CategoryBreakdown

	ParentsLoaded bool
	ChunksLoaded  bool
}

type CategoryBreakdown struct {
	NumChunks int
	authors   map[string]struct{}
}

func NewRunReport(id string, startedAt time.Time) *RunReport {
	return &RunReport{
		ID:               id,
		StartedAt:        startedAt,
		ChunksByCategory: make(map[Category]*CategoryBreakdown),
	}
}

func (r *RunReport) CountChunk(category Category, authors []string) {
	breakdown, ok := r.ChunksByCategory[category]
	if !ok {
		breakdown = &CategoryBreakdown{authors: make(map[string]struct{})}
		r.ChunksByCategory[category] = breakdown
	}
	breakdown.NumChunks++
	for _, author := range authors {
		breakdown.authors[author] = struct{}{}
	}
}

// Authors returns the distinct author set in stable order.
func (b *CategoryBreakdown) Authors() []string {
	out := make([]string, 0, len(b.authors))
	for author := range b.authors {
		out = append(out, author)
	}
	sort.Strings(out)
	return out
}

func (r *RunReport) Succeeded() bool {
	return r.ParentsLoaded && r.ChunksLoaded
}
