package review

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadOptions controls how LoadConversationArchive reads an export file.
type LoadOptions struct {
	// ArrayField is the JSON field name that contains the conversation array,
	// when the top-level JSON value is an object.
	//
	// If empty, LoadConversationArchive will try to find the first
	// array-valued field and treat it as the conversations array.
	ArrayField string
}

// LoadConversationArchive reads an OpenAI conversations export and returns
// the simplified, linearized conversations.
//
// The input is expected to be either:
// - a top-level JSON array: [ { ...conversation... }, ... ]
// - a top-level JSON object containing an array field (e.g. { "conversations": [ ... ] })
//
// It uses a streaming decoder so the export is never held in memory twice.
// Conversations that cannot be linearized are skipped rather than failing the
// whole load; the pipeline only needs the threads it can read.
func LoadConversationArchive(ctx context.Context, inputPath string, opts LoadOptions) ([]Conversation, error) {
	if ctx == nil {
		return nil, errors.New("LoadConversationArchive: ctx is nil")
	}
	if inputPath == "" {
		return nil, errors.New("LoadConversationArchive: inputPath is empty")
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return nil, fmt.Errorf("LoadConversationArchive: open input: %w", err)
	}
	defer f.Close()

	// The export is typically one huge line; use a larger buffer than default.
	dec := json.NewDecoder(bufio.NewReaderSize(f, 1<<20))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("LoadConversationArchive: read first token: %w", err)
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("LoadConversationArchive: expected JSON array/object, got %T", tok)
	}

	switch delim {
	case '[':
		conversations, err := decodeConversationArray(ctx, dec)
		if err != nil {
			return nil, err
		}
		if tok, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("LoadConversationArchive: read closing array token: %w", err)
		} else if d, ok := tok.(json.Delim); !ok || d != ']' {
			return nil, fmt.Errorf("LoadConversationArchive: expected closing ']', got %v", tok)
		}
		return conversations, nil
	case '{':
		var conversations []Conversation
		foundArray := false
		for dec.More() {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("LoadConversationArchive: read object key: %w", err)
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("LoadConversationArchive: expected string key, got %T", keyTok)
			}

			valTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("LoadConversationArchive: read value token for key %q: %w", key, err)
			}

			isTarget := opts.ArrayField != "" && key == opts.ArrayField
			if !isTarget && opts.ArrayField == "" && !foundArray {
				if d, ok := valTok.(json.Delim); ok && d == '[' {
					isTarget = true
				}
			}

			if isTarget {
				d, ok := valTok.(json.Delim)
				if !ok || d != '[' {
					return nil, fmt.Errorf("LoadConversationArchive: key %q was chosen as array but value isn't an array", key)
				}
				foundArray = true
				conversations, err = decodeConversationArray(ctx, dec)
				if err != nil {
					return nil, err
				}
				if tok, err := dec.Token(); err != nil {
					return nil, fmt.Errorf("LoadConversationArchive: read closing array token: %w", err)
				} else if d, ok := tok.(json.Delim); !ok || d != ']' {
					return nil, fmt.Errorf("LoadConversationArchive: expected closing ']', got %v", tok)
				}
				continue
			}

			if err := skipValue(dec, valTok); err != nil {
				return nil, fmt.Errorf("LoadConversationArchive: skip key %q value: %w", key, err)
			}
		}

		if tok, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("LoadConversationArchive: read closing object token: %w", err)
		} else if d, ok := tok.(json.Delim); !ok || d != '}' {
			return nil, fmt.Errorf("LoadConversationArchive: expected closing '}', got %v", tok)
		}
		if !foundArray {
			return nil, errors.New("LoadConversationArchive: no conversations array found in top-level object")
		}
		return conversations, nil
	default:
		return nil, fmt.Errorf("LoadConversationArchive: unsupported top-level delimiter %q", delim)
	}
}

func decodeConversationArray(ctx context.Context, dec *json.Decoder) ([]Conversation, error) {
	var conversations []Conversation
	for dec.More() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("LoadConversationArchive: decode conversation element: %w", err)
		}

		conv, ok := simplifyConversation(raw)
		if !ok {
			continue
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

type rawConversation struct {
	ConversationID string                `json:"conversation_id"`
	ID             string                `json:"id"`
	Title          string                `json:"title"`
	CreateTime     *float64              `json:"create_time"`
	CurrentNode    string                `json:"current_node"`
	Mapping        map[string]rawMapNode `json:"mapping"`
}

type rawMapNode struct {
	ID       string      `json:"id"`
	Message  *rawMessage `json:"message"`
	Parent   *string     `json:"parent"`
	Children []string    `json:"children"`
}

type rawMessage struct {
	Author     rawAuthor       `json:"author"`
	CreateTime *float64        `json:"create_time"`
	Content    json.RawMessage `json:"content"`
	Metadata   map[string]any  `json:"metadata"`
}

type rawAuthor struct {
	Role string  `json:"role"`
	Name *string `json:"name"`
}

func simplifyConversation(raw json.RawMessage) (Conversation, bool) {
	var conv rawConversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return Conversation{}, false
	}

	id := conv.ConversationID
	if id == "" {
		id = conv.ID
	}

	msgs, err := linearizeMessages(conv.Mapping, conv.CurrentNode)
	if err != nil {
		return Conversation{}, false
	}

	return Conversation{
		ConversationID: id,
		Title:          conv.Title,
		CreateTime:     conv.CreateTime,
		Messages:       msgs,
	}, true
}

func linearizeMessages(mapping map[string]rawMapNode, currentNode string) ([]Message, error) {
	if len(mapping) == 0 {
		return nil, nil
	}

	start := currentNode
	if start == "" {
		start = pickBestLeaf(mapping)
	}
	if start == "" {
		return nil, errors.New("no current_node and no leaf node found")
	}

	visited := make(map[string]struct{}, len(mapping))
	var reversed []Message

	for i := 0; i < len(mapping)+5; i++ {
		n, ok := mapping[start]
		if !ok {
			return nil, fmt.Errorf("missing node %q in mapping", start)
		}
		if _, ok := visited[start]; ok {
			return nil, fmt.Errorf("cycle detected at node %q", start)
		}
		visited[start] = struct{}{}

		if n.Message != nil {
			m, ok := simplifyMessage(*n.Message)
			if ok {
				reversed = append(reversed, m)
			}
		}

		if n.Parent == nil || *n.Parent == "" {
			break
		}
		start = *n.Parent
	}

	// Reverse to chronological order.
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	return reversed, nil
}

func pickBestLeaf(mapping map[string]rawMapNode) string {
	var (
		bestID   string
		bestTime float64
		hasBest  bool
	)
	for id, n := range mapping {
		if len(n.Children) != 0 || n.Message == nil {
			continue
		}
		ct := 0.0
		if n.Message.CreateTime != nil {
			ct = *n.Message.CreateTime
		}
		if !hasBest || ct > bestTime {
			bestID = id
			bestTime = ct
			hasBest = true
		}
	}
	return bestID
}

func simplifyMessage(m rawMessage) (Message, bool) {
	role := strings.TrimSpace(m.Author.Role)
	if role == "" {
		role = "unknown"
	}
	name := ""
	if m.Author.Name != nil {
		name = strings.TrimSpace(*m.Author.Name)
	}

	contentType, text := extractContentText(m.Content)

	msg := Message{
		Role:        role,
		Name:        name,
		CreateTime:  m.CreateTime,
		ContentType: contentType,
		Text:        text,
		Hidden:      isHiddenFromConversation(m.Metadata),
	}

	// Drop entries with no usable content at all; they are graph plumbing.
	if strings.TrimSpace(msg.Text) == "" && msg.ContentType == "" {
		return Message{}, false
	}
	return msg, true
}

// extractContentText handles the common export content shape:
// { "content_type": "text", "parts": ["..."] }
// with a fallback for tool/browser shapes carrying a bare "text" field.
// Non-string parts (images, attachments) are ignored.
func extractContentText(raw json.RawMessage) (contentType string, text string) {
	if len(raw) == 0 {
		return "", ""
	}

	var probe struct {
		ContentType string `json:"content_type"`
		Parts       []any  `json:"parts"`
		Text        string `json:"text"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", ""
	}

	var parts []string
	for _, p := range probe.Parts {
		if s, ok := p.(string); ok {
			parts = append(parts, s)
		}
	}

	switch {
	case len(parts) > 0:
		text = strings.Join(parts, "\n")
	case probe.Text != "":
		text = probe.Text
	}

	return strings.TrimSpace(probe.ContentType), text
}

func isHiddenFromConversation(metadata map[string]any) bool {
	if len(metadata) == 0 {
		return false
	}
	v, ok := metadata["is_visually_hidden_from_conversation"]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func skipValue(dec *json.Decoder, open json.Token) error {
	d, ok := open.(json.Delim)
	if !ok {
		// Scalar value; already consumed.
		return nil
	}

	depth := 1
	var closer json.Delim
	switch d {
	case '[':
		closer = ']'
	case '{':
		closer = '}'
	default:
		return fmt.Errorf("unexpected delimiter %q", d)
	}

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case d:
				depth++
			case closer:
				depth--
			}
		}
	}
	return nil
}
