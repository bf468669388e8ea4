package chunking

import (
	"regexp"
	"strings"

	"github.com/nvoronin/libris/internal/core/ports"
)

// Splitter splits section text in two passes: structurally by markdown
// headings, then by length with a separator preference order and a fixed
// overlap between consecutive chunks.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

// Separator preference: paragraph break, line break, sentence end, word
// boundary, then raw runes as the last resort.
var separators = []string{"\n\n", "\n", ". ", " ", ""}

var headingPattern = regexp.MustCompile(`(?m)^(#{1,4})\s+(.+)$`)

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// SplitByHeadings slices text at markdown headings of levels 1-4. Each block
// keeps its heading line as leading text; text before the first heading
// becomes a headerless block.
func (s *Splitter) SplitByHeadings(text string) []ports.HeadingBlock {
	matches := headingPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []ports.HeadingBlock{{Content: text}}
	}

	blocks := make([]ports.HeadingBlock, 0, len(matches)+1)
	if preamble := text[:matches[0][0]]; strings.TrimSpace(preamble) != "" {
		blocks = append(blocks, ports.HeadingBlock{Content: preamble})
	}
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		blocks = append(blocks, ports.HeadingBlock{
			Header:  text[m[4]:m[5]],
			Level:   m[3] - m[2],
			Content: text[m[0]:end],
		})
	}
	return blocks
}

// SplitByLength recursively splits text so no chunk exceeds ChunkSize runes
// except when no separator is available, keeping up to Overlap runes of
// context between consecutive chunks.
func (s *Splitter) SplitByLength(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := s.splitRecursive(text, separators)
	return s.merge(pieces)
}

func (s *Splitter) splitRecursive(text string, seps []string) []string {
	if len([]rune(text)) <= s.ChunkSize {
		return []string{text}
	}

	sep := ""
	rest := []string{}
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}
	if sep == "" {
		return s.splitFixed(text)
	}

	var out []string
	for _, part := range strings.Split(text, sep) {
		if part == "" {
			continue
		}
		if len([]rune(part)) > s.ChunkSize {
			out = append(out, s.splitRecursive(part, rest)...)
			continue
		}
		out = append(out, part)
	}
	return out
}

// splitFixed is the no-separator fallback: rune windows with overlap.
func (s *Splitter) splitFixed(text string) []string {
	runes := []rune(text)
	step := s.ChunkSize - s.Overlap
	if step <= 0 {
		step = s.ChunkSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// merge re-accumulates small pieces into chunks up to ChunkSize, carrying a
// tail of up to Overlap runes into the next chunk. The tail shrinks when the
// next piece would not fit beside it, and is never emitted on its own.
func (s *Splitter) merge(pieces []string) []string {
	var out []string
	var current []rune
	carried := 0 // runes at the head of current copied from the previous chunk

	flush := func() {
		if chunk := strings.TrimSpace(string(current)); chunk != "" {
			out = append(out, chunk)
		}
		if s.Overlap > 0 && len(current) > s.Overlap {
			current = append([]rune(nil), current[len(current)-s.Overlap:]...)
		} else {
			current = current[:0]
		}
		carried = len(current)
	}

	for _, piece := range pieces {
		runes := []rune(piece)
		if len(current) > carried && len(current)+1+len(runes) > s.ChunkSize {
			flush()
		}
		// current holds at most the carried tail now; trim it from the
		// front so the joined chunk stays within ChunkSize.
		if over := len(current) + 1 + len(runes) - s.ChunkSize; over > 0 {
			if over >= len(current) {
				current = current[:0]
			} else {
				current = append(current[:0], current[over:]...)
			}
			carried = len(current)
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, runes...)
		if len(current) >= s.ChunkSize {
			flush()
		}
	}
	if len(current) > carried {
		if chunk := strings.TrimSpace(string(current)); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}
