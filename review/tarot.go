package review

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ReadingOracle generates the tarot reading markdown from the topic digest.
type ReadingOracle interface {
	GenerateReading(ctx context.Context, digest string) (string, error)
}

// ImageOracle renders a card illustration. A nil byte slice without an error
// means the provider produced no image payload.
type ImageOracle interface {
	GenerateImage(ctx context.Context, prompt string, aspectRatio string) ([]byte, error)
}

// Documented defaults substituted when the reading cannot be generated or
// parsed.
const (
	DefaultCard    = "The Magician"
	DefaultPersona = "Code Alchemist"
)

// TarotAspectRatio is the card's fixed portrait ratio.
const TarotAspectRatio = "9:16"

// TarotImageStyle is the fixed style preamble prepended to the reading text
// for image generation.
const TarotImageStyle = `tarot card 9:16 ratio intricately detailed, mix in all the details into one fluid scene instead of placing elements all around make it look like a 70s stock photo from the office promo materials photoshoot. Just create the photo, no text borders

`

var (
	cardPattern    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	personaPattern = regexp.MustCompile(`—\s*\*([^*]+)\*`)
)

// TarotComposer builds the reading from the ranked catalog clusters. It
// degrades instead of failing: a broken reading oracle yields the default
// card and persona, a broken image oracle yields a reading without an image.
// Compose never returns an error.
type TarotComposer struct {
	Reading ReadingOracle
	Image   ImageOracle
	Audit   *AuditLog
}

// Compose generates the reading and, independently, the card image. The
// returned bytes are the rendered illustration (nil when absent); writing
// them to the artifact path is the caller's job.
func (c *TarotComposer) Compose(ctx context.Context, summaries []ClusterSummary, labels map[int]string) (TarotReading, []byte) {
	reading := TarotReading{Card: DefaultCard, Persona: DefaultPersona}
	if c == nil {
		return reading, nil
	}

	digest := FormatClusterDigest(summaries, labels)

	text := ""
	if c.Reading != nil {
		raw, err := c.Reading.GenerateReading(ctx, digest)
		c.Audit.Record("tarot/reading", digest, raw, err)
		if err == nil {
			text = strings.TrimSpace(raw)
		}
	}
	if text == "" {
		return reading, nil
	}

	reading.Reading = text
	if m := cardPattern.FindStringSubmatch(text); m != nil {
		reading.Card = strings.TrimSpace(m[1])
	}
	if m := personaPattern.FindStringSubmatch(text); m != nil {
		reading.Persona = strings.TrimSpace(m[1])
	}

	var image []byte
	if c.Image != nil {
		prompt := TarotImageStyle + text
		img, err := c.Image.GenerateImage(ctx, prompt, TarotAspectRatio)
		c.Audit.Record("tarot/image", prompt, fmt.Sprintf("%d bytes", len(img)), err)
		if err == nil {
			image = img
		}
	}
	return reading, image
}

// FormatClusterDigest renders the ranked clusters as a single prompt line:
// "1) label (size) 2) label (size) …".
func FormatClusterDigest(summaries []ClusterSummary, labels map[int]string) string {
	parts := make([]string, 0, len(summaries))
	for _, cs := range summaries {
		label, ok := labels[cs.ClusterID]
		if !ok || label == "" {
			label = strings.ToLower(PlaceholderLabel)
		}
		parts = append(parts, fmt.Sprintf("%d) %s (%d)", cs.Rank, label, cs.Size))
	}
	return strings.Join(parts, " ")
}
