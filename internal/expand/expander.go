package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
)

// spineLimits holds the per-segment vertebra ceilings; lookup lower-cases
// the type token, unrecognized types fall back to 5.
var spineLimits = map[string]int{
	"颈": 7, "c": 7,
	"胸": 12, "t": 12,
	"腰": 5, "l": 5,
	"骶": 5, "s": 5,
	"尾": 3,
}

const defaultSpineLimit = 5

// maxDotIterations caps the vertebra-list fixpoint loop.
const maxDotIterations = 10

// Disk-boundary transitions between anatomical segments.
var diskTransitions = []struct {
	re          *regexp2.Regexp
	replacement string
}{
	{regexp2.MustCompile(`[颈|c|C]7/8`, regexp2.IgnoreCase), "颈7/胸1"},
	{regexp2.MustCompile(`[胸|t|T]12/13`, regexp2.IgnoreCase), "胸12/腰1"},
	{regexp2.MustCompile(`[腰|l|L]5/6`, regexp2.IgnoreCase), "腰5/骶1"},
}

// Expander rewrites abbreviated vertebral, disk and rib notations into fully
// qualified clauses. Each step catches its own failures, logs them, and
// returns its input unchanged; expansion never aborts the pipeline.
type Expander struct {
	reg *pattern.Registry
	log *zap.Logger
}

// New builds an expander over the shared pattern registry.
func New(reg *pattern.Registry, log *zap.Logger) *Expander {
	return &Expander{reg: reg, log: log}
}

// ExpandAll applies the four expansion steps in their fixed order.
func (e *Expander) ExpandAll(text string) string {
	if text == "" {
		return ""
	}
	text = e.ExpandSpineDot(text)
	text = e.ExpandSpineRange(text)
	text = e.ExpandDiskRange(text)
	return e.ExpandRibs(text)
}

// ExpandSpineDot rewrites enumeration-list vertebra notation, e.g.
// "L1、2椎体" into "L1椎体、L2椎体". The simple variants run once; the
// mutually cascading variants run in a bounded fixpoint loop because one
// rewrite can expose a position matchable by another variant.
func (e *Expander) ExpandSpineDot(text string) string {
	if text == "" {
		return ""
	}
	text = e.sub(text, pattern.SpineDot1, "$1$4$2、$4$3")
	text = e.sub(text, pattern.SpineDot3, "$1$6$2$3、$6$4$5")

	for i := 0; i < maxDotIterations; i++ {
		before := text
		text = e.sub(text, pattern.SpineDot2, "$1$3$2、$3$4")
		text = e.sub(text, pattern.SpineDot4, "$1$4$2$3、$4$5$6")
		text = e.sub(text, pattern.SpineDot5, "$1$2$3、$1$4")
		text = e.sub(text, pattern.SpineDot6, "$1$2、$3")
		text = e.sub(text, pattern.SpineDot7, "$1$3、$2$3")
		if text == before {
			break
		}
	}
	return text
}

// spineRangeMatch is one captured SPINE_RANGE occurrence.
type spineRangeMatch struct {
	type1, startNum, type2, endNum, suffix string
}

// ExpandSpineRange rewrites range vertebra notation, e.g. "L1-3椎体" into
// "L1椎体、L2椎体、L3椎体". A range crossing segment types enumerates the
// first segment up to its anatomical ceiling, then the second from 1.
// Malformed numerics leave the matched substring untouched.
func (e *Expander) ExpandSpineRange(text string) string {
	if text == "" {
		return ""
	}
	re := e.reg.MustGet(pattern.SpineRange)
	var matches []spineRangeMatch
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		matches = append(matches, spineRangeMatch{
			type1:    m.GroupByNumber(1).String(),
			startNum: m.GroupByNumber(2).String(),
			type2:    m.GroupByNumber(3).String(),
			endNum:   m.GroupByNumber(4).String(),
			suffix:   m.GroupByNumber(5).String(),
		})
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		e.warn("vertebra range scan failed", err)
		return text
	}

	for _, mm := range matches {
		start, err1 := strconv.Atoi(mm.startNum)
		end, err2 := strconv.Atoi(mm.endNum)
		if err1 != nil || err2 != nil {
			continue
		}

		var parts []string
		if mm.type1 == mm.type2 || mm.type2 == "" {
			for i := start; i <= end; i++ {
				parts = append(parts, fmt.Sprintf("%s%d椎体", mm.type1, i))
			}
		} else {
			for i := start; i <= spineLimit(mm.type1); i++ {
				parts = append(parts, fmt.Sprintf("%s%d椎体", mm.type1, i))
			}
			for i := 1; i <= end; i++ {
				parts = append(parts, fmt.Sprintf("%s%d椎体", mm.type2, i))
			}
		}
		if len(parts) == 0 {
			continue
		}

		old := mm.type1 + mm.startNum + "-" + mm.type2 + mm.endNum + mm.suffix
		text = strings.ReplaceAll(text, old, strings.Join(parts, "、"))
	}
	return text
}

// diskRangeMatch holds a DISK_RANGE occurrence: the matched text plus its
// eight captures.
type diskRangeMatch struct {
	full   string
	groups [8]string
}

// ExpandDiskRange rewrites intervertebral disk ranges, e.g. "L1/2-3/4" into
// "L1/2、L2/3、L3/4", then rewrites segment-boundary disks into their
// transition labels (颈7/8 becomes 颈7/胸1, and likewise at the
// thoracic/lumbar and lumbar/sacral boundaries).
func (e *Expander) ExpandDiskRange(text string) string {
	if text == "" {
		return ""
	}
	re := e.reg.MustGet(pattern.DiskRange)
	var matches []diskRangeMatch
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		dm := diskRangeMatch{full: m.String()}
		for i := 0; i < 8; i++ {
			dm.groups[i] = m.GroupByNumber(i + 1).String()
		}
		matches = append(matches, dm)
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		e.warn("disk range scan failed", err)
		return text
	}

	for _, dm := range matches {
		type1, startNum := dm.groups[0], dm.groups[1]
		type2, endNum := dm.groups[4], dm.groups[5]
		start, err1 := strconv.Atoi(startNum)
		end, err2 := strconv.Atoi(endNum)
		if err1 != nil || err2 != nil {
			continue
		}

		var parts []string
		if type1 == type2 || type2 == "" {
			for i := start; i <= end; i++ {
				parts = append(parts, fmt.Sprintf("%s%d/%d", type1, i, i+1))
			}
		} else {
			for i := start; i <= spineLimit(type1); i++ {
				parts = append(parts, fmt.Sprintf("%s%d/%d", type1, i, i+1))
			}
			for i := 1; i <= end; i++ {
				parts = append(parts, fmt.Sprintf("%s%d/%d", type2, i, i+1))
			}
		}
		if len(parts) == 0 {
			continue
		}

		text = strings.ReplaceAll(text, dm.full, strings.Join(parts, "、"))
	}

	return applyDiskTransitions(text)
}

func applyDiskTransitions(text string) string {
	for _, t := range diskTransitions {
		if out, err := t.re.Replace(text, t.replacement, -1, -1); err == nil {
			text = out
		}
	}
	return text
}

// ExpandRibs rewrites abbreviated rib lists and ranges, e.g. "右第5、6前肋骨折"
// into "右第5前肋骨折，右第6前肋骨折". Ranges expand only for 1..12; invalid
// numbers leave the matched text unchanged.
func (e *Expander) ExpandRibs(text string) string {
	if text == "" || !strings.Contains(text, "肋") {
		return text
	}
	re := e.reg.MustGet(pattern.RibAbbreviation)
	out, err := re.ReplaceFunc(text, expandRibMatch, -1, -1)
	if err != nil {
		e.warn("rib expansion failed", err)
		return text
	}
	return out
}

func expandRibMatch(m regexp2.Match) string {
	prefix := m.GroupByNumber(1).String()
	marker := m.GroupByNumber(2).String()
	numPart := m.GroupByNumber(3).String()
	rangeEnd := m.GroupByNumber(4).String()
	infix := m.GroupByNumber(5).String()
	ribWord := m.GroupByNumber(6).String()
	suffix := m.GroupByNumber(7).String()
	if ribWord == "" {
		ribWord = "肋骨"
	}

	var numbers []int
	if rangeEnd != "" {
		start, err1 := strconv.Atoi(numPart)
		end, err2 := strconv.Atoi(rangeEnd)
		if err1 != nil || err2 != nil || start < 1 || start > end || end > 12 {
			return m.String()
		}
		for n := start; n <= end; n++ {
			numbers = append(numbers, n)
		}
	} else {
		for _, tok := range strings.Split(strings.ReplaceAll(numPart, "，", "、"), "、") {
			n, err := strconv.Atoi(strings.TrimSpace(tok))
			if err != nil || n < 1 || n > 12 {
				continue
			}
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return m.String()
	}

	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = fmt.Sprintf("%s%s%d%s%s%s", prefix, marker, n, infix, ribWord, suffix)
	}
	return strings.Join(parts, "，")
}

// NormalizeSpineLabels rewrites bare Latin vertebra codes (C1..C8, T1..T12,
// S1..S5) into their Chinese segment-letter form. The pipeline invokes this
// conditionally on spine-related sentences; ExpandAll does not.
func (e *Expander) NormalizeSpineLabels(text string) string {
	if text == "" {
		return ""
	}
	text = e.sub(text, pattern.Cervical, "$1颈$2")
	text = e.sub(text, pattern.Thoracic, "$1胸$2")
	text = e.sub(text, pattern.ThoracicVertebra, "$1胸$2")
	text = e.sub(text, pattern.Sacral, "$1骶$2")
	return e.sub(text, pattern.ThoracicSpecific, "$1胸$2")
}

// sub applies one registry pattern; failures log and keep the input.
func (e *Expander) sub(text, name, replacement string) string {
	re, err := e.reg.Get(name)
	if err != nil {
		e.warn("pattern lookup failed", err)
		return text
	}
	out, err := re.Replace(text, replacement, -1, -1)
	if err != nil {
		e.warn("expansion substitution failed", err)
		return text
	}
	return out
}

func (e *Expander) warn(msg string, err error) {
	if e.log != nil {
		e.log.Warn(msg, zap.Error(err))
	}
}

func spineLimit(spineType string) int {
	if limit, ok := spineLimits[strings.ToLower(spineType)]; ok {
		return limit
	}
	return defaultSpineLimit
}

// Stats summarizes an expansion for debugging.
type Stats struct {
	OriginalLength int     `json:"original_length"`
	ExpandedLength int     `json:"expanded_length"`
	ExpansionRatio float64 `json:"expansion_ratio"`
	SpineMentions  int     `json:"spine_mentions"`
	RibMentions    int     `json:"rib_mentions"`
	DiskMentions   int     `json:"disk_mentions"`
}

var (
	spineMention = regexp2.MustCompile(`[颈胸腰骶尾]\d+`, regexp2.None)
	ribMention   = regexp2.MustCompile(`第\d+.*?肋`, regexp2.None)
	diskMention  = regexp2.MustCompile(`\d+/\d+`, regexp2.None)
)

// ExpansionStats reports lengths and mention counts for an expansion.
func ExpansionStats(original, expanded string) Stats {
	s := Stats{
		OriginalLength: len([]rune(original)),
		ExpandedLength: len([]rune(expanded)),
		SpineMentions:  countMatches(spineMention, expanded),
		RibMentions:    countMatches(ribMention, expanded),
		DiskMentions:   countMatches(diskMention, expanded),
	}
	if s.OriginalLength > 0 {
		s.ExpansionRatio = float64(s.ExpandedLength) / float64(s.OriginalLength)
	}
	return s
}

func countMatches(re *regexp2.Regexp, text string) int {
	count := 0
	m, err := re.FindStringMatch(text)
	for err == nil && m != nil {
		count++
		m, err = re.FindNextMatch(m)
	}
	return count
}
