package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
)

// Roles and content types that never carry memorable user knowledge.
var (
	skippedRoles = map[string]bool{
		"system": true,
	}
	skippedContentTypes = map[string]bool{
		"user_editable_context": true,
		"thoughts":              true,
		"reasoning_recap":       true,
	}
)

const minMessageChars = 10

type Message struct {
	Role       string
	Content    string
	CreateTime float64
}

type Conversation struct {
	ID         string
	Title      string
	CreateTime float64
	Messages   []Message
}

// Raw export structures. The mapping field is the node tree used by chat
// exports; flat exports carry a messages array instead.
type rawConversation struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversation_id"`
	Title          string             `json:"title"`
	CreateTime     float64            `json:"create_time"`
	Mapping        map[string]rawNode `json:"mapping"`
	Messages       []rawMessage       `json:"messages"`
}

type rawNode struct {
	ID      string      `json:"id"`
	Message *rawMessage `json:"message"`
}

type rawMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	Content struct {
		ContentType string `json:"content_type"`
		Parts       []any  `json:"parts"`
		Text        string `json:"text"`
	} `json:"content"`
	Role       string  `json:"role"`
	Text       string  `json:"text"`
	CreateTime float64 `json:"create_time"`
}

// ParseExport reads a conversation export and returns conversations with
// only the messages worth remembering: non-system roles, textual content
// types, at least minMessageChars of text. Messages come back in
// chronological order regardless of how the export stores them.
func ParseExport(r io.Reader) ([]Conversation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}

	var raws []rawConversation
	if err := json.Unmarshal(data, &raws); err != nil {
		// Some exports wrap the list in an object.
		var wrapper struct {
			Conversations []rawConversation `json:"conversations"`
		}
		if err2 := json.Unmarshal(data, &wrapper); err2 != nil || wrapper.Conversations == nil {
			return nil, fmt.Errorf("parsing export: %w", err)
		}
		raws = wrapper.Conversations
	}

	convs := make([]Conversation, 0, len(raws))
	for i, raw := range raws {
		conv := Conversation{
			ID:         raw.ID,
			Title:      raw.Title,
			CreateTime: raw.CreateTime,
		}
		if conv.ID == "" {
			conv.ID = raw.ConversationID
		}
		if conv.ID == "" {
			conv.ID = fmt.Sprintf("conversation-%d", i)
		}

		if len(raw.Mapping) > 0 {
			conv.Messages = messagesFromMapping(raw.Mapping)
		} else {
			for _, rm := range raw.Messages {
				if msg, ok := filterMessage(rm); ok {
					conv.Messages = append(conv.Messages, msg)
				}
			}
		}

		if len(conv.Messages) > 0 {
			convs = append(convs, conv)
		}
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].CreateTime < convs[j].CreateTime
	})
	return convs, nil
}

func messagesFromMapping(mapping map[string]rawNode) []Message {
	// Node ids keep map iteration deterministic; create_time decides order.
	ids := make([]string, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var msgs []Message
	for _, id := range ids {
		node := mapping[id]
		if node.Message == nil {
			continue
		}
		if msg, ok := filterMessage(*node.Message); ok {
			msgs = append(msgs, msg)
		}
	}

	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreateTime < msgs[j].CreateTime
	})
	return msgs
}

func filterMessage(rm rawMessage) (Message, bool) {
	role := rm.Author.Role
	if role == "" {
		role = rm.Role
	}
	if role == "" || skippedRoles[role] {
		return Message{}, false
	}

	if skippedContentTypes[rm.Content.ContentType] {
		return Message{}, false
	}

	content := extractText(rm)
	if len(content) < minMessageChars {
		return Message{}, false
	}

	return Message{
		Role:       role,
		Content:    content,
		CreateTime: rm.CreateTime,
	}, true
}

func extractText(rm rawMessage) string {
	var parts []string
	for _, p := range rm.Content.Parts {
		if s, ok := p.(string); ok && strings.TrimSpace(s) != "" {
			parts = append(parts, strings.TrimSpace(s))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "\n")
	}
	if rm.Content.Text != "" {
		return strings.TrimSpace(rm.Content.Text)
	}
	return strings.TrimSpace(rm.Text)
}

// DetectSource guesses a source label from filename patterns. Checked in
// order; filenames matching nothing fall back to "file".
func DetectSource(path string) string {
	name := filepath.Base(path)
	stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	switch {
	case containsAny(stem, "chat", "conversation", "messages"):
		return "chat"
	case containsAny(stem, "blog", "post", "article"):
		return "blog"
	case containsAny(stem, "email", "mail"):
		return "email"
	case containsAny(stem, "doc", "documentation", "readme"):
		return "documentation"
	case containsAny(stem, "log", "logs"):
		return "log"
	case containsAny(stem, "note", "notes"):
		return "notes"
	default:
		return "file"
	}
}
