package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads a source file into conversations ready for the pipeline. A
// conversation-export JSON yields one conversation per export entry; any
// other file, and JSON that is not an export, becomes a single conversation
// whose one message holds the whole document.
func Load(path string) ([]Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if convs, err := ParseExport(bytes.NewReader(data)); err == nil && len(convs) > 0 {
			return convs, nil
		}
		text, err = flattenJSON(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
		}
	} else {
		text = string(data)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return []Conversation{{
		ID:    filepath.Base(path),
		Title: filepath.Base(path),
		Messages: []Message{{
			Role:    "user",
			Content: text,
		}},
	}}, nil
}

// flattenJSON renders arbitrary JSON as readable text, one unit for the
// whole document.
func flattenJSON(data []byte) (string, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return "", err
	}
	switch val := v.(type) {
	case map[string]any:
		pretty, err := json.MarshalIndent(val, "", "  ")
		if err != nil {
			return "", err
		}
		return string(pretty), nil
	case []any:
		lines := make([]string, 0, len(val))
		for _, item := range val {
			lines = append(lines, fmt.Sprint(item))
		}
		return strings.Join(lines, "\n"), nil
	default:
		return fmt.Sprint(val), nil
	}
}
