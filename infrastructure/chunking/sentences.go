// Package chunking splits transcript text into overlapping chunks along
// sentence boundaries for embedding.
package chunking

import "strings"

// Params controls chunk sizing.
type Params struct {
	// ChunkSize is a soft cap on chunk size in whitespace-delimited words.
	ChunkSize int
	// OverlapSentences is the number of trailing sentences carried into the
	// next chunk for context continuity.
	OverlapSentences int
}

// DefaultParams returns the standard chunking parameters.
func DefaultParams() Params {
	return Params{ChunkSize: 500, OverlapSentences: 3}
}

// SplitSentences splits text at sentence-terminal punctuation (runs of '.',
// '!', '?') followed by whitespace. The terminal punctuation stays attached
// to its sentence. Text without terminal punctuation comes back as a single
// sentence.
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	i := 0
	for i < len(text) {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			j := i
			for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
				j++
			}
			if j < len(text) && isSpace(text[j]) {
				sentences = append(sentences, text[start:j])
				for j < len(text) && isSpace(text[j]) {
					j++
				}
				start = j
				i = j
				continue
			}
			i = j
			continue
		}
		i++
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

// Chunk splits text into chunks of roughly ChunkSize words along sentence
// boundaries. Consecutive chunks share the last OverlapSentences sentences of
// the preceding chunk. A single sentence longer than ChunkSize becomes a
// chunk on its own rather than being split mid-sentence. Empty or
// whitespace-only text yields no chunks.
func Chunk(text string, params Params) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := SplitSentences(text)

	var chunks []string
	var current []string
	currentSize := 0

	for _, sentence := range sentences {
		words := len(strings.Fields(sentence))
		if currentSize+words > params.ChunkSize && currentSize > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			overlap := params.OverlapSentences
			if len(current) > overlap {
				current = current[len(current)-overlap:]
			}
			currentSize = 0
			for _, s := range current {
				currentSize += len(strings.Fields(s))
			}
		}
		current = append(current, sentence)
		currentSize += words
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
