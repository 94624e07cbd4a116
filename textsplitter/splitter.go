package textsplitter

import "strings"

// Splitter cuts raw text into overlapping chunks for ingestion.
type Splitter struct {
	ChunkSize    int
	ChunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Splitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap}
}

// Split cuts text into chunks of at most ChunkSize runes, overlapping
// by ChunkOverlap. Chunk boundaries prefer the last whitespace inside
// the window so words stay intact.
func (s *Splitter) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= s.ChunkSize {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(runes); {
		end := start + s.ChunkSize
		if end >= len(runes) {
			chunk := strings.TrimSpace(string(runes[start:]))
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}
		// Break at the last whitespace in the window when one exists
		// in the second half.
		cut := end
		for i := end - 1; i > start+s.ChunkSize/2; i-- {
			if runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t' {
				cut = i
				break
			}
		}
		chunk := strings.TrimSpace(string(runes[start:cut]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		// The next window resumes relative to the actual cut so no
		// runes between the cut and the window end are skipped.
		next := cut - s.ChunkOverlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}
