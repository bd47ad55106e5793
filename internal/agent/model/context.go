package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Relevance buckets a document score.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Document is a retrieved passage. Score is a cosine distance: lower is closer.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Score     float64        `json:"score"`
	Relevance Relevance      `json:"relevance"`
}

// DocumentInput is a passage to index.
type DocumentInput struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ContextBundle is everything handed to the orchestrator for one request.
// It is built per request and never persisted.
type ContextBundle struct {
	Query               string         `json:"query"`
	ConversationHistory []Message      `json:"conversation_history"`
	RelevantDocuments   []Document     `json:"relevant_documents"`
	Metadata            map[string]any `json:"metadata"`
}

// Format renders the bundle as plain text for prompts. A nil bundle renders empty.
func (b *ContextBundle) Format() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	if len(b.ConversationHistory) > 0 {
		sb.WriteString("Conversation history:\n")
		for _, m := range b.ConversationHistory {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
		sb.WriteString("\n")
	}
	if len(b.RelevantDocuments) > 0 {
		sb.WriteString("Relevant documents:\n")
		for i, d := range b.RelevantDocuments {
			fmt.Fprintf(&sb, "[%d] (%s relevance) %s\n", i+1, d.Relevance, d.Content)
		}
		sb.WriteString("\n")
	}
	if len(b.Metadata) > 0 {
		keys := make([]string, 0, len(b.Metadata))
		for k := range b.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("Additional context:\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", k, stringify(b.Metadata[k]))
		}
	}
	return strings.TrimSpace(sb.String())
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
