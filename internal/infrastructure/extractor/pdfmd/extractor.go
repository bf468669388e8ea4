package pdfmd

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Extractor converts PDF bytes into markdown-shaped text: body rows joined
// by line breaks, with rows set in a notably larger font promoted to
// markdown headings so the downstream structural chunking has boundaries to
// work with.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractMarkdown(_ context.Context, content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	bodySize := bodyFontSize(reader)

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", pageNum, err)
		}
		for _, row := range rows {
			line, size := renderRow(row)
			if line == "" {
				continue
			}
			if marker := headingMarker(size, bodySize); marker != "" {
				sb.WriteString("\n")
				sb.WriteString(marker)
				sb.WriteString(" ")
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return text, nil
}

func renderRow(row *pdf.Row) (string, float64) {
	var sb strings.Builder
	maxSize := 0.0
	for _, text := range row.Content {
		sb.WriteString(text.S)
		if text.FontSize > maxSize {
			maxSize = text.FontSize
		}
	}
	return strings.TrimSpace(sb.String()), maxSize
}

// bodyFontSize finds the most common font size in the document, which is
// taken to be the body text size.
func bodyFontSize(reader *pdf.Reader) float64 {
	counts := make(map[float64]int)
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			for _, text := range row.Content {
				counts[math.Round(text.FontSize)] += len(text.S)
			}
		}
	}

	body := 0.0
	best := 0
	for size, count := range counts {
		if count > best {
			best = count
			body = size
		}
	}
	if body == 0 {
		body = 10
	}
	return body
}

func headingMarker(size, bodySize float64) string {
	switch ratio := size / bodySize; {
	case ratio >= 1.8:
		return "#"
	case ratio >= 1.5:
		return "##"
	case ratio >= 1.25:
		return "###"
	default:
		return ""
	}
}
