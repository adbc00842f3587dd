package utils

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Chunk is a single text segment produced by the splitter.
// StartChar/EndChar are rune offsets into the source text; consecutive
// chunks overlap by design so EndChar of one chunk may exceed StartChar
// of the next.
type Chunk struct {
	Content    string `json:"content"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	Index      int    `json:"chunk_index"`
	TokenCount int    `json:"token_count"`
}

// separators, in priority order. The splitter prefers to cut at a
// paragraph break, then a line break, then sentence/clause punctuation,
// then any space.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// TextSplitter splits long text into overlapping, token-counted chunks.
type TextSplitter struct {
	maxChars int
	overlap  int
	encoding *tiktoken.Tiktoken
}

// NewTextSplitter creates a splitter with the given window size and overlap
// (both in runes). Token counting uses the cl100k_base encoding; if the
// encoding cannot be loaded the splitter falls back to a rough estimate.
func NewTextSplitter(maxChars, overlap int) *TextSplitter {
	if maxChars <= 0 {
		maxChars = 1000
	}
	if overlap < 0 || overlap >= maxChars {
		overlap = 0 // fallback if overlap >= maxChars
	}

	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}

	return &TextSplitter{
		maxChars: maxChars,
		overlap:  overlap,
		encoding: enc,
	}
}

// Split walks the text in maxChars-sized windows. Before cutting, it searches
// backward from the window end, within the last 20% of the window, for the
// highest-priority separator and cuts there instead. The next window starts at
// max(prev_start+1, cut_end-overlap), which guarantees forward progress even
// when no separator is found.
func (s *TextSplitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	total := len(runes)

	var chunks []Chunk
	start := 0
	index := 0

	for start < total {
		end := start + s.maxChars
		if end > total {
			end = total
		}

		// Not at the end of the text: try to cut at a natural boundary
		// inside the last 20% of the window.
		if end < total {
			searchStart := end - s.maxChars/5
			if searchStart < start {
				searchStart = start
			}
			for _, sep := range separators {
				if pos := lastIndexRunes(runes, sep, searchStart, end); pos >= 0 {
					end = pos + len([]rune(sep))
					break
				}
			}
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, Chunk{
				Content:    content,
				StartChar:  start,
				EndChar:    end,
				Index:      index,
				TokenCount: s.CountTokens(content),
			})
			index++
		}

		// Overlap with the previous chunk but always move forward.
		next := end - s.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// CountTokens returns the subword token count of text. Independent of the
// character count: short words can be one token, long words several.
func (s *TextSplitter) CountTokens(text string) int {
	if s.encoding == nil {
		return len(text) / 4
	}
	return len(s.encoding.Encode(text, nil, nil))
}

// lastIndexRunes finds the rightmost occurrence of sep that lies fully inside
// runes[from:to], returning the rune offset of its first rune, or -1.
func lastIndexRunes(runes []rune, sep string, from, to int) int {
	sepRunes := []rune(sep)
	for i := to - len(sepRunes); i >= from; i-- {
		match := true
		for j, r := range sepRunes {
			if runes[i+j] != r {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}
