package ingest

import (
	"sort"
	"strings"
)

// Keyword groups that raise the importance score of a chunk. Identity facts
// and standing preferences outrank passing conversation.
var importanceSignals = []struct {
	words  []string
	weight int
}{
	{words: []string{"my name is", "i am called", "call me"}, weight: 3},
	{words: []string{"always", "never", "important", "remember", "don't forget"}, weight: 2},
	{words: []string{"i live", "i work", "my job", "my wife", "my husband", "my partner", "my son", "my daughter", "my birthday", "allergic", "allergy"}, weight: 2},
	{words: []string{"i prefer", "i like", "i love", "i hate", "i dislike", "favorite", "favourite"}, weight: 1},
	{words: []string{"deadline", "appointment", "meeting on", "due on"}, weight: 1},
}

// ScoreImportance rates a chunk from 1 (conversational filler) to 4
// (identity-level fact). Manual entries can still claim 5 through the API;
// ingested chunks top out below that.
func ScoreImportance(text string) int {
	lower := strings.ToLower(text)
	score := 1
	for _, sig := range importanceSignals {
		for _, w := range sig.words {
			if strings.Contains(lower, w) {
				score += sig.weight
				break
			}
		}
	}
	if score > 4 {
		score = 4
	}
	return score
}

var tagKeywords = map[string][]string{
	"work":       {"work", "job", "office", "meeting", "project", "colleague", "boss", "career"},
	"family":     {"wife", "husband", "partner", "son", "daughter", "mother", "father", "family", "kids"},
	"health":     {"doctor", "health", "allergic", "allergy", "medication", "exercise", "diet", "sleep"},
	"travel":     {"travel", "trip", "flight", "vacation", "visit", "airport", "hotel"},
	"food":       {"food", "eat", "cook", "restaurant", "recipe", "coffee", "dinner", "lunch"},
	"preference": {"prefer", "like", "love", "hate", "dislike", "favorite", "favourite"},
	"location":   {"live in", "moved to", "address", "city", "neighborhood"},
	"finance":    {"money", "budget", "salary", "invest", "bank", "rent", "mortgage"},
}

const maxTags = 5

// GenerateTags derives topic tags from chunk text. Output is sorted so the
// same text always produces the same tag list.
func GenerateTags(text, role string) []string {
	lower := strings.ToLower(text)

	var tags []string
	for tag, words := range tagKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				tags = append(tags, tag)
				break
			}
		}
	}
	sort.Strings(tags)
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}

	if role == "assistant" {
		tags = append(tags, "assistant")
	}
	return tags
}

// ClassifyType picks a record type for an ingested chunk.
func ClassifyType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "i prefer", "i like", "i love", "i hate", "favorite", "favourite"):
		return "preference"
	case containsAny(lower, "i want to", "my goal", "i plan to", "i am planning", "i'm planning", "i hope to"):
		return "goal"
	default:
		return "fact"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
