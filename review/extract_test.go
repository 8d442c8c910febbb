package review

import (
	"testing"
)

func ts(v float64) *float64 { return &v }

func TestExtractRecords_PicksEarliestQualifyingUserMessage(t *testing.T) {
	t.Parallel()

	conv := Conversation{
		ConversationID: "c1",
		Title:          "t1",
		Messages: []Message{
			{Role: "system", CreateTime: ts(50), Text: "system preamble text"},
			{Role: "user", CreateTime: ts(300), Text: "a later long enough question"},
			{Role: "user", CreateTime: ts(100), Text: "the earliest long enough question"},
			{Role: "assistant", CreateTime: ts(150), Text: "an answer"},
		},
	}

	records := ExtractRecords([]Conversation{conv}, ExtractOptions{})
	if len(records) != 1 {
		t.Fatalf("len(records)=%d, want 1", len(records))
	}
	if records[0].Text != "the earliest long enough question" {
		t.Fatalf("Text=%q", records[0].Text)
	}
	if records[0].Timestamp != 100 {
		t.Fatalf("Timestamp=%v, want 100", records[0].Timestamp)
	}
	if records[0].ConversationID != "c1" || records[0].Title != "t1" {
		t.Fatalf("identity fields: %+v", records[0])
	}
	if records[0].PeriodKey == "" {
		t.Fatalf("PeriodKey is empty")
	}
}

func TestExtractRecords_DisqualifiesNonQuestions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		msg  Message
	}{
		{name: "assistant role", msg: Message{Role: "assistant", CreateTime: ts(100), Text: "a long enough message body"}},
		{name: "hidden", msg: Message{Role: "user", CreateTime: ts(100), Text: "a long enough message body", Hidden: true}},
		{name: "structural context", msg: Message{Role: "user", CreateTime: ts(100), Text: "a long enough message body", ContentType: "user_editable_context"}},
		{name: "too short", msg: Message{Role: "user", CreateTime: ts(100), Text: "short"}},
		{name: "whitespace only", msg: Message{Role: "user", CreateTime: ts(100), Text: "                    "}},
		{name: "no timestamp", msg: Message{Role: "user", Text: "a long enough message body"}},
		{name: "zero timestamp", msg: Message{Role: "user", CreateTime: ts(0), Text: "a long enough message body"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			records := ExtractRecords([]Conversation{{ConversationID: "c", Messages: []Message{tc.msg}}}, ExtractOptions{})
			if len(records) != 0 {
				t.Fatalf("len(records)=%d, want 0 (conversation should be skipped)", len(records))
			}
		})
	}
}

func TestExtractRecords_SkipsConversationWithoutQualifyingMessage(t *testing.T) {
	t.Parallel()

	conversations := []Conversation{
		{ConversationID: "only-assistant", Messages: []Message{{Role: "assistant", CreateTime: ts(10), Text: "a long enough answer here"}}},
		{ConversationID: "ok", Messages: []Message{{Role: "user", CreateTime: ts(10), Text: "a perfectly good question"}}},
		{ConversationID: "empty"},
	}

	records := ExtractRecords(conversations, ExtractOptions{})
	if len(records) != 1 {
		t.Fatalf("len(records)=%d, want 1", len(records))
	}
	if records[0].ConversationID != "ok" {
		t.Fatalf("ConversationID=%q", records[0].ConversationID)
	}
}

func TestExtractRecords_PreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	// Later conversation carries an earlier timestamp; output order must
	// still be conversation order, not time order.
	conversations := []Conversation{
		{ConversationID: "a", Messages: []Message{{Role: "user", CreateTime: ts(2000), Text: "question from conversation a"}}},
		{ConversationID: "b", Messages: []Message{{Role: "user", CreateTime: ts(1000), Text: "question from conversation b"}}},
	}

	records := ExtractRecords(conversations, ExtractOptions{})
	if len(records) != 2 {
		t.Fatalf("len(records)=%d, want 2", len(records))
	}
	if records[0].ConversationID != "a" || records[1].ConversationID != "b" {
		t.Fatalf("order: %q, %q", records[0].ConversationID, records[1].ConversationID)
	}
}

func TestExtractRecords_TruncatesToEmbeddingInputCap(t *testing.T) {
	t.Parallel()

	long := make([]rune, 5000)
	for i := range long {
		long[i] = 'x'
	}
	conv := Conversation{ConversationID: "c", Messages: []Message{{Role: "user", CreateTime: ts(10), Text: string(long)}}}

	records := ExtractRecords([]Conversation{conv}, ExtractOptions{})
	if len(records) != 1 {
		t.Fatalf("len(records)=%d, want 1", len(records))
	}
	if got := len([]rune(records[0].Text)); got != embedInputMaxChars {
		t.Fatalf("len(Text)=%d, want %d", got, embedInputMaxChars)
	}
}
