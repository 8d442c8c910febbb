package review

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LabelOracle generates cluster labels. GenerateLabelsBatch takes the full
// multi-line digest and returns free text in "N: label" line form;
// GenerateSingleLabel is the stricter per-cluster fallback.
type LabelOracle interface {
	GenerateLabelsBatch(ctx context.Context, digest string) (string, error)
	GenerateSingleLabel(ctx context.Context, examples []string) (string, error)
}

// PlaceholderLabel is the terminal fallback when both the batch call and the
// single-cluster retry fail to produce a valid label.
const PlaceholderLabel = "Diverse Queries"

const (
	// maxLabelChars caps a label for chart legibility.
	maxLabelChars = 25

	// maxDigestSamples bounds examples per digest line.
	maxDigestSamples = 10

	// singleLabelAttempts bounds the per-cluster fallback loop.
	singleLabelAttempts = 2
)

// genericLabelTerms disqualify labels that describe nothing.
var genericLabelTerms = []string{
	"topic",
	"cluster",
	"misc",
	"general",
	"various",
	"other",
}

// LabelDenylist lists named-entity substrings that disqualify a label;
// labels should describe the activity, not a place or vendor. The list is a
// deliberate scope limitation: it covers the entities the label models keep
// reaching for, not arbitrary corpora.
var LabelDenylist = []string{
	"new york",
	"san francisco",
	"london",
	"paris",
	"berlin",
	"tokyo",
	"seattle",
	"austin",
	"google",
	"openai",
	"microsoft",
	"amazon",
	"apple",
	"facebook",
	"netflix",
	"chatgpt",
}

// ValidLabel is the pure acceptance predicate of the labeling protocol: a
// label passes only if it is non-blank and, case-insensitively, contains no
// generic placeholder term and no denylisted named entity.
func ValidLabel(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	lower := strings.ToLower(label)
	for _, term := range genericLabelTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	for _, entity := range LabelDenylist {
		if strings.Contains(lower, entity) {
			return false
		}
	}
	return true
}

// BuildLabelDigest renders one "id: sample1; sample2; …" line per cluster,
// ordered by ascending cluster id.
func BuildLabelDigest(examples map[int][]string) string {
	ids := make([]int, 0, len(examples))
	for id := range examples {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		samples := examples[id]
		if len(samples) > maxDigestSamples {
			samples = samples[:maxDigestSamples]
		}
		lines = append(lines, fmt.Sprintf("%d: %s", id, strings.Join(samples, "; ")))
	}
	return strings.Join(lines, "\n")
}

// ParseLabelLines parses oracle output of the form "N: label", one per line.
// Lines without a colon or with a non-integer id are skipped, not fatal.
// Markdown/quote wrapping is stripped and labels are capped for display.
func ParseLabelLines(text string) map[int]string {
	labels := make(map[int]string)
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		idPart, labelPart, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(idPart))
		if err != nil {
			continue
		}
		labels[id] = cleanLabel(labelPart)
	}
	return labels
}

func cleanLabel(s string) string {
	s = strings.Trim(strings.TrimSpace(s), `*"'`)
	runes := []rune(s)
	if len(runes) > maxLabelChars {
		s = string(runes[:maxLabelChars])
	}
	return strings.TrimSpace(s)
}

// Labeler runs the label protocol for one resolution.
type Labeler struct {
	Oracle LabelOracle
	Audit  *AuditLog
}

// LabelClusters produces exactly one valid label per cluster id in examples.
//
// Protocol: one batch call over the digest; every cluster whose label is
// missing from the parsed result or fails validation goes through a bounded
// single-cluster retry; clusters still unlabeled get PlaceholderLabel. Oracle
// errors anywhere in here are soft — the method always returns a complete
// map and never an error.
func (l *Labeler) LabelClusters(ctx context.Context, stage string, examples map[int][]string) map[int]string {
	parsed := make(map[int]string)
	if l.Oracle != nil {
		digest := BuildLabelDigest(examples)
		raw, err := l.Oracle.GenerateLabelsBatch(ctx, digest)
		l.Audit.Record(stage+"/batch", digest, raw, err)
		if err == nil {
			parsed = ParseLabelLines(raw)
		}
	}

	labels := make(map[int]string, len(examples))
	for id, samples := range examples {
		if label, ok := parsed[id]; ok && ValidLabel(label) {
			labels[id] = label
			continue
		}
		labels[id] = l.regenerateLabel(ctx, stage, id, samples)
	}
	return labels
}

func (l *Labeler) regenerateLabel(ctx context.Context, stage string, clusterID int, samples []string) string {
	if l.Oracle == nil {
		return PlaceholderLabel
	}
	for attempt := 0; attempt < singleLabelAttempts; attempt++ {
		raw, err := l.Oracle.GenerateSingleLabel(ctx, samples)
		l.Audit.Record(fmt.Sprintf("%s/single/%d", stage, clusterID), strings.Join(samples, "; "), raw, err)
		if err != nil {
			continue
		}
		if label := cleanLabel(raw); ValidLabel(label) {
			return label
		}
	}
	return PlaceholderLabel
}
