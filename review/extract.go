package review

import (
	"strings"
)

const (
	// minQuestionChars filters out one-word openers and accidental sends;
	// the trimmed text must be strictly longer than this.
	minQuestionChars = 10

	// embedInputMaxChars caps record text at the embedding provider's useful
	// input size. Longer questions carry no extra clustering signal.
	embedInputMaxChars = 1200

	// structural content injected by the product rather than typed by the
	// user; it must never seed a topic.
	contentTypeUserContext = "user_editable_context"
)

// ExtractOptions controls record extraction.
type ExtractOptions struct {
	// PeriodWeeks is the trend bucket width (defaults to DefaultPeriodWeeks).
	PeriodWeeks int
}

// ExtractRecords pulls the earliest qualifying user message out of every
// conversation. A message qualifies when it is user-authored, not hidden, not
// structural context, carries a positive timestamp, and its trimmed text is
// long enough to mean something. Conversations without a qualifying message
// are skipped silently; output order is the input order of the conversations
// that qualified.
func ExtractRecords(conversations []Conversation, opts ExtractOptions) []ConversationRecord {
	periodWeeks := opts.PeriodWeeks
	if periodWeeks <= 0 {
		periodWeeks = DefaultPeriodWeeks
	}

	records := make([]ConversationRecord, 0, len(conversations))
	for _, conv := range conversations {
		var (
			bestText string
			bestTime float64
			found    bool
		)
		for _, m := range conv.Messages {
			if m.Role != "user" || m.Hidden {
				continue
			}
			if m.ContentType == contentTypeUserContext {
				continue
			}
			text := strings.TrimSpace(m.Text)
			if len(text) <= minQuestionChars {
				continue
			}
			if m.CreateTime == nil || *m.CreateTime <= 0 {
				continue
			}
			if !found || *m.CreateTime < bestTime {
				bestText = text
				bestTime = *m.CreateTime
				found = true
			}
		}
		if !found {
			continue
		}

		records = append(records, ConversationRecord{
			ConversationID: conv.ConversationID,
			Title:          conv.Title,
			Text:           truncateRunes(bestText, embedInputMaxChars),
			Timestamp:      bestTime,
			PeriodKey:      periodKeyFromUnix(bestTime, periodWeeks),
		})
	}
	return records
}

// truncateRunes cuts at a rune boundary without adding an ellipsis; the
// result is provider input, not display text.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
