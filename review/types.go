package review

// Conversation is an analysis-friendly representation of one exported thread.
// Only the fields the topic pipeline reads survive loading.
type Conversation struct {
	ConversationID string    `json:"conversation_id"`
	Title          string    `json:"title,omitempty"`
	CreateTime     *float64  `json:"create_time,omitempty"`
	Messages       []Message `json:"messages"`
}

// Message is one entry of a conversation, already linearized into
// chronological order.
type Message struct {
	Role        string   `json:"role"`
	Name        string   `json:"name,omitempty"`
	CreateTime  *float64 `json:"create_time,omitempty"`
	ContentType string   `json:"content_type,omitempty"`
	Text        string   `json:"text,omitempty"`

	// Hidden marks messages the export flags as not visible in the
	// conversation UI (context injections, memory updates, and similar).
	Hidden bool `json:"hidden,omitempty"`
}

// ConversationRecord is the unit the pipeline clusters: the earliest
// qualifying user question of one conversation. Immutable after extraction.
type ConversationRecord struct {
	ConversationID string
	Title          string

	// Text is the question, trimmed and capped to the embedding input limit.
	Text string

	// Timestamp is unix seconds of the qualifying message.
	Timestamp float64

	// PeriodKey identifies the fixed-width calendar bucket the record falls
	// into, e.g. "2025-P07". Lexicographic order equals chronological order.
	PeriodKey string
}

// ClusterSummary describes one catalog-resolution cluster for ranking,
// labeling, and the tarot digest. Recomputed per run, never persisted.
type ClusterSummary struct {
	ClusterID int
	Rank      int
	Size      int
	SharePct  float64

	// Representatives are distance-stratified member texts (near, mid, far),
	// at most twelve, already collapsed and truncated for display.
	Representatives []string
}

// TopicEntry is one row of the public topic list.
type TopicEntry struct {
	Rank int     `json:"rank"`
	Name string  `json:"name"`
	Pct  float64 `json:"pct"`
}

// Streamgraph is the chart payload: one count row per closed period, columns
// ordered by total volume and aligned with Keys.
type Streamgraph struct {
	Periods []string         `json:"periods"`
	Keys    []string         `json:"keys"`
	Values  []map[string]any `json:"values"`
}

// TarotReading is the generated card. Image is the artifact filename and is
// empty when image generation failed or was not configured; the textual
// fields are always populated.
type TarotReading struct {
	Image   string `json:"image,omitempty"`
	Card    string `json:"title"`
	Persona string `json:"subtitle"`
	Reading string `json:"-"`
}

// Result is the pipeline's merged output. Error is set only for the
// hard-failure cases (missing credentials, no records, embedding failure);
// soft failures degrade the individual fields instead.
type Result struct {
	Error       string       `json:"error,omitempty"`
	Topics      []TopicEntry `json:"topics"`
	Tarot       TarotReading `json:"tarot"`
	Streamgraph Streamgraph  `json:"streamgraph"`
}

// EmptyResult is the structured error marker returned when no analysis could
// run at all.
func EmptyResult(errMsg string) Result {
	return Result{
		Error:  errMsg,
		Topics: []TopicEntry{},
		Tarot:  TarotReading{Card: DefaultCard, Persona: DefaultPersona},
		Streamgraph: Streamgraph{
			Periods: []string{},
			Keys:    []string{},
			Values:  []map[string]any{},
		},
	}
}
