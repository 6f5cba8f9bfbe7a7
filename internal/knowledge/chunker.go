package knowledge

import (
	"strings"
	"unicode"
)

// ChunkConfig controls chunking of regulatory source texts.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1000,
		MinChars:  300,
		Overlap:   200,
		MaxChunks: 64,
	}
}

// chunkText splits source text into bounded, overlapping windows. Cuts
// prefer sentence boundaries, then any whitespace, so clauses are not split
// mid-sentence; the overlap keeps clause context across adjacent chunks.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			end = findCut(runes, minCut, end)
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// findCut scans backwards from end for the best cut point above minCut:
// a sentence terminator first, any whitespace second, hard cut last.
func findCut(runes []rune, minCut, end int) int {
	wsCut := 0
	for i := end; i > minCut; i-- {
		r := runes[i-1]
		if isSentenceEnd(r) && i < len(runes) && unicode.IsSpace(runes[i]) {
			return i
		}
		if wsCut == 0 && unicode.IsSpace(r) {
			wsCut = i
		}
	}
	if wsCut > 0 {
		return wsCut
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', ';':
		return true
	}
	return false
}
