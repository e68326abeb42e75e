// Package chunker splits long conversational text into embedding-sized
// pieces along sentence boundaries, carrying a small overlap between
// consecutive chunks so context survives the cut.
package chunker

import (
	"strings"
	"unicode"
)

// TokenCounter estimates how many model tokens a string costs. The default
// estimate is intentionally rough; embeddings tolerate slack and the target
// sizes leave headroom below API limits.
type TokenCounter interface {
	Count(text string) int
}

// EstimateCounter approximates tokens as words plus a surcharge for long
// words, which tracks BPE output closely enough for sizing chunks.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	n := 0
	for _, w := range strings.Fields(text) {
		n += 1 + len(w)/7
	}
	return n
}

type Options struct {
	TargetTokens  int
	OverlapTokens int
	MinChars      int
	Counter       TokenCounter
}

func DefaultOptions() Options {
	return Options{
		TargetTokens:  500,
		OverlapTokens: 50,
		MinChars:      10,
		Counter:       EstimateCounter{},
	}
}

type Chunker struct {
	opts Options
}

func New(opts Options) *Chunker {
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = 500
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	if opts.OverlapTokens >= opts.TargetTokens {
		opts.OverlapTokens = opts.TargetTokens / 10
	}
	if opts.MinChars <= 0 {
		opts.MinChars = 10
	}
	if opts.Counter == nil {
		opts.Counter = EstimateCounter{}
	}
	return &Chunker{opts: opts}
}

// Split breaks text into chunks of at most TargetTokens tokens. Chunks end on
// sentence boundaries where possible; a single sentence longer than the
// target is split on word boundaries. Chunks below MinChars are dropped.
func (c *Chunker) Split(text string) []string {
	text = normalizeWhitespace(text)
	if text == "" {
		return nil
	}

	if c.opts.Counter.Count(text) <= c.opts.TargetTokens {
		if len(text) < c.opts.MinChars {
			return nil
		}
		return []string{text}
	}

	var pieces []string
	for _, sent := range splitSentences(text) {
		if c.opts.Counter.Count(sent) > c.opts.TargetTokens {
			pieces = append(pieces, c.splitByWords(sent)...)
		} else {
			pieces = append(pieces, sent)
		}
	}

	var chunks []string
	var current []string
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunk := strings.Join(current, " ")
		if len(chunk) >= c.opts.MinChars {
			chunks = append(chunks, chunk)
		}
		// Seed the next chunk with a tail of the one just emitted.
		current, currentTokens = c.overlapTail(current)
	}

	for _, piece := range pieces {
		tokens := c.opts.Counter.Count(piece)
		if currentTokens+tokens > c.opts.TargetTokens && len(current) > 0 {
			flush()
			// The seeded tail still counts against the budget. Shed tail
			// pieces until the incoming piece fits under the target.
			for len(current) > 0 && currentTokens+tokens > c.opts.TargetTokens {
				currentTokens -= c.opts.Counter.Count(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		currentTokens += tokens
	}
	if len(current) > 0 {
		chunk := strings.Join(current, " ")
		if len(chunk) >= c.opts.MinChars {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}

func (c *Chunker) overlapTail(pieces []string) ([]string, int) {
	if c.opts.OverlapTokens == 0 {
		return nil, 0
	}
	var tail []string
	tokens := 0
	for i := len(pieces) - 1; i >= 0; i-- {
		t := c.opts.Counter.Count(pieces[i])
		if tokens+t > c.opts.OverlapTokens {
			break
		}
		tail = append([]string{pieces[i]}, tail...)
		tokens += t
	}
	return tail, tokens
}

func (c *Chunker) splitByWords(sent string) []string {
	words := strings.Fields(sent)
	var out []string
	var current []string
	tokens := 0
	for _, w := range words {
		t := c.opts.Counter.Count(w)
		if tokens+t > c.opts.TargetTokens && len(current) > 0 {
			out = append(out, strings.Join(current, " "))
			current = nil
			tokens = 0
		}
		current = append(current, w)
		tokens += t
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// splitSentences cuts text after terminal punctuation followed by
// whitespace. Text without terminal punctuation comes back as one sentence.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		// Consume a run of terminal punctuation ("?!", "...").
		j := i
		for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
			j++
		}
		if j+1 < len(runes) && unicode.IsSpace(runes[j+1]) {
			sent := strings.TrimSpace(string(runes[start : j+1]))
			if sent != "" {
				sentences = append(sentences, sent)
			}
			start = j + 1
		}
		i = j
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
