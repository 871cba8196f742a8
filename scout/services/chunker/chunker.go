// Package chunker splits page text into pieces small enough for one summarizer call.
package chunker

import (
	"unicode/utf8"

	"scout/scout/utils/types"
)

// CharsPerToken is the conservative characters-per-token ratio used to turn a
// token budget into a chunk length.
const CharsPerToken = 3

// TokenCounter measures the token length of text.
type TokenCounter func(text string) int

// EstimateTokens is the default TokenCounter: roughly four characters per token.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 3) / 4
}

// ChunkLength is the chunk size in characters for a model context of maxTokens.
func ChunkLength(maxTokens int) int {
	return maxTokens / CharsPerToken
}

// Split cuts text at fixed character offsets of ChunkLength(maxTokens). Offsets
// advance while they are below the measured token count, so the chunks cover a
// prefix of text. Boundaries ignore words and sentences.
func Split(text string, maxTokens int, count TokenCounter) []types.Chunk {
	size := ChunkLength(maxTokens)
	if text == "" || size <= 0 {
		return nil
	}
	if count == nil {
		count = EstimateTokens
	}

	runes := []rune(text)
	tokens := count(text)

	var chunks []types.Chunk
	for off := 0; off < tokens && off < len(runes); off += size {
		end := off + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, types.Chunk{
			Index:  len(chunks),
			Offset: off,
			Text:   string(runes[off:end]),
		})
	}
	return chunks
}
