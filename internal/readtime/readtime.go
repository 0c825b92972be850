// Package readtime estimates how long a rendered post takes to read.
package readtime

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// WordsPerMinute is the reading speed used by every estimate.
const WordsPerMinute = 200

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Stats captures the intermediate values of an estimate so templates can show
// word counts next to the formatted label.
type Stats struct {
	Words   int
	Minutes int
	Label   string
}

// ExtractText replaces every markup tag with a single space and collapses runs
// of whitespace. The result is trimmed.
func ExtractText(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// CountWords returns the number of whitespace separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Minutes converts a word count into whole minutes, rounding up. Anything
// shorter than a minute, including an empty body, reads as one minute.
func Minutes(words int) int {
	if words <= 0 {
		return 1
	}
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Format renders a minute count as the label shown next to a post.
func Format(minutes int) string {
	if minutes <= 1 {
		return "1 min read"
	}
	return strconv.Itoa(minutes) + " min read"
}

// Estimate computes reading statistics for an HTML body.
func Estimate(html string) Stats {
	words := CountWords(ExtractText(html))
	minutes := Minutes(words)
	return Stats{
		Words:   words,
		Minutes: minutes,
		Label:   Format(minutes),
	}
}

// FromHTML returns the reading-time label for an HTML body.
func FromHTML(html string) string {
	return Estimate(html).Label
}

// FromText returns the reading-time label for plain text.
func FromText(text string) string {
	return Format(Minutes(CountWords(text)))
}
