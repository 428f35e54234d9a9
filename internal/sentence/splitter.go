// Package sentence splits raw report text into candidate sentences and
// filters out degenerate fragments. The boundary and stop patterns are plain
// character classes, so the stdlib RE2 engine is enough here.
package sentence

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultBoundaryPattern separates sentences.
const DefaultBoundaryPattern = "[?？。；;\n\r]"

// DefaultStopPattern additionally breaks on clause-level separators; exposed
// for callers that split finer than sentences.
const DefaultStopPattern = "[?？。；;,，\n\r伴并]"

// punctuationChars is the fixed set a sentence may not consist solely of.
const punctuationChars = "。，、；：！？（）【】“”‘’『』〈〉《》「」[](){}.,:;!?\\-_=+*/\\|<>~`@#$%^&"

var (
	whitespaceRuns = regexp.MustCompile(`[\s\x{3000}\x{00A0}]+`)
	shortNumeric   = regexp.MustCompile(`^[\d\.,\-+]+$`)
)

// Splitter splits on a compiled boundary pattern and drops non-meaningful
// pieces. Immutable after construction.
type Splitter struct {
	boundary *regexp.Regexp
	stop     *regexp.Regexp
}

// New compiles the boundary and stop patterns; empty strings select the
// documented defaults.
func New(boundaryPattern, stopPattern string) (*Splitter, error) {
	if boundaryPattern == "" {
		boundaryPattern = DefaultBoundaryPattern
	}
	if stopPattern == "" {
		stopPattern = DefaultStopPattern
	}
	boundary, err := regexp.Compile(boundaryPattern)
	if err != nil {
		return nil, fmt.Errorf("compile boundary pattern: %w", err)
	}
	stop, err := regexp.Compile(stopPattern)
	if err != nil {
		return nil, fmt.Errorf("compile stop pattern: %w", err)
	}
	return &Splitter{boundary: boundary, stop: stop}, nil
}

// Boundary returns the compiled sentence-boundary pattern.
func (s *Splitter) Boundary() *regexp.Regexp { return s.boundary }

// Stop returns the compiled clause-stop pattern.
func (s *Splitter) Stop() *regexp.Regexp { return s.stop }

// Split cuts text on the boundary pattern, trims each piece, and keeps only
// meaningful ones.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}
	var out []string
	for _, piece := range s.boundary.Split(text, -1) {
		piece = strings.TrimSpace(piece)
		if IsMeaningful(piece) {
			out = append(out, piece)
		}
	}
	return out
}

// IsMeaningful reports whether a sentence carries content worth keeping:
// after stripping whitespace variants it must not be empty, punctuation-only,
// a short bare number, or control characters only.
func IsMeaningful(s string) bool {
	if s == "" {
		return false
	}
	cleaned := whitespaceRuns.ReplaceAllString(s, "")
	if cleaned == "" {
		return false
	}
	if allRunesIn(cleaned, punctuationChars) {
		return false
	}
	if utf8.RuneCountInString(cleaned) <= 2 && shortNumeric.MatchString(cleaned) {
		return false
	}
	if controlOnly(cleaned) {
		return false
	}
	return true
}

func allRunesIn(s, set string) bool {
	for _, r := range s {
		if !strings.ContainsRune(set, r) {
			return false
		}
	}
	return true
}

func controlOnly(s string) bool {
	for _, r := range s {
		if !(r <= 0x1f || (r >= 0x7f && r <= 0x9f)) {
			return false
		}
	}
	return true
}
