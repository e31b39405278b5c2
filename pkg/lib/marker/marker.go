// Package marker recognises the client.txt lines that bracket a loading phase.
//
// Every recognised line has the same shape:
//
//	2024/01/15 10:30:00 1234 abcdef12 [INFO Client 5678] <tag>
//
// and only the trailing tag differs between markers. Matching is anchored to
// the whole line.
package marker

import (
	"regexp"
	"unicode/utf8"

	"github.com/EricSciullo/POE-Core-Manager/pkg/lib"
)

// DefaultMaxLineLength is the longest line, in characters, that is matched at all.
const DefaultMaxLineLength = 256

// Marker is the closed set of recognised line shapes.
type Marker int

const (
	Unmatched Marker = iota
	EngineInit
	ShaderDelayOff
	ShaderDelayOn
)

func (m Marker) String() string {
	switch m {
	case EngineInit:
		return "engine_init"
	case ShaderDelayOff:
		return "shader_delay_off"
	case ShaderDelayOn:
		return "shader_delay_on"
	default:
		return "unmatched"
	}
}

// Classification maps a marker to the driving signal it produces.
func (m Marker) Classification() lib.Classification {
	switch m {
	case EngineInit, ShaderDelayOff:
		return lib.ClassificationEnterLoading
	case ShaderDelayOn:
		return lib.ClassificationExitLoading
	default:
		return lib.ClassificationNone
	}
}

const linePrefix = `^\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2} \d+ [a-fA-F0-9]+ \[INFO Client \d+\] `

type matcher struct {
	marker  Marker
	pattern *regexp.Regexp
}

// Evaluated in order; the first match wins.
var matchers = []matcher{
	{marker: EngineInit, pattern: regexp.MustCompile(linePrefix + `\[ENGINE\] Init$`)},
	{marker: ShaderDelayOff, pattern: regexp.MustCompile(linePrefix + `\[SHADER\] Delay: OFF$`)},
	{marker: ShaderDelayOn, pattern: regexp.MustCompile(linePrefix + `\[SHADER\] Delay: ON$`)},
}

// Classifier matches lines no longer than MaxLength characters.
type Classifier struct {
	MaxLength int
}

// NewClassifier returns a classifier with the given guard; maxLength < 1 selects the default.
func NewClassifier(maxLength int) Classifier {
	if maxLength < 1 {
		maxLength = DefaultMaxLineLength
	}
	return Classifier{MaxLength: maxLength}
}

// Match returns the marker a line carries, or Unmatched.
func (c Classifier) Match(line string) Marker {
	limit := c.MaxLength
	if limit < 1 {
		limit = DefaultMaxLineLength
	}
	// byte length bounds rune count from above, so the cheap check goes first
	if len(line) > limit && utf8.RuneCountInString(line) > limit {
		return Unmatched
	}
	for _, m := range matchers {
		if m.pattern.MatchString(line) {
			return m.marker
		}
	}
	return Unmatched
}

// Classify is Match followed by Marker.Classification.
func (c Classifier) Classify(line string) lib.Classification {
	return c.Match(line).Classification()
}

// Classify uses the default length guard.
func Classify(line string) lib.Classification {
	return Classifier{MaxLength: DefaultMaxLineLength}.Classify(line)
}
