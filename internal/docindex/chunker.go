package docindex

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Chunker splits extracted document text into overlapping windows sized for
// retrieval. Overlap must stay below Size; config validation enforces that.
type Chunker struct {
	Size    int
	Overlap int
}

var chunkSeparators = []string{"\n\n", "\n", " ", ""}

// ChunkPDF extracts the plain text of every page and splits it. Chunk IDs are
// stable across re-uploads of the same file so upserts overwrite in place.
func (c Chunker) ChunkPDF(path, source string) ([]Chunk, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer func() { _ = f.Close() }()

	var chunks []Chunk
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", pageNum, err)
		}
		for i, piece := range c.Split(text) {
			chunks = append(chunks, Chunk{
				ID:     fmt.Sprintf("%s-p%d-c%d", source, pageNum, i),
				Text:   piece,
				Source: source,
				Page:   pageNum,
			})
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %q contained no extractable text", source)
	}
	return chunks, nil
}

// Split cuts text into pieces of at most Size runes, preferring paragraph and
// line boundaries, with Overlap runes carried between adjacent pieces.
func (c Chunker) Split(text string) []string {
	size := c.Size
	if size <= 0 {
		size = 1000
	}
	overlap := c.Overlap
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= size {
		return []string{trimmed}
	}

	var pieces []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = splitPoint(runes, start, end)
		}
		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			pieces = append(pieces, piece)
		}
		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return pieces
}

// splitPoint walks back from the size limit looking for the best natural
// boundary, in separator preference order. Falls back to a hard cut.
func splitPoint(runes []rune, start, limit int) int {
	window := string(runes[start:limit])
	for _, sep := range chunkSeparators {
		if sep == "" {
			break
		}
		if idx := strings.LastIndex(window, sep); idx > 0 {
			return start + len([]rune(window[:idx+len(sep)]))
		}
	}
	return limit
}
