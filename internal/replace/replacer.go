package replace

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
	"github.com/medtext/radprep/internal/rules"
)

// Phase-1 normalization patterns. The inline-ordinal pattern needs a
// negative lookahead to keep decimal numbers intact, so the whole set
// compiles with regexp2.
var (
	leadingOrdinal = regexp2.MustCompile(`^[\n\t\r]+\d[\.|、]`, regexp2.None)
	whitespaceRuns = regexp2.MustCompile(`[  　]`, regexp2.None)
	parenNewline   = regexp2.MustCompile(`(）|\)) `, regexp2.None)
	inlineOrdinal  = regexp2.MustCompile(`\b(\d+[.、])(?!\d)([一-鿿a-zA-Z][一-鿿a-zA-Z，。；]*)\b`, regexp2.IgnoreCase)
)

// spineKeywords guards the sentence-wise spine normalization pass.
var spineKeywords = []string{"椎", "横突", "棘", "脊", "黄韧带", "肋", "颈", "骶", "尾骨", "腰大肌"}

// spineLabelPatterns are applied in this order by applySpineRules.
var spineLabelPatterns = []struct {
	name        string
	replacement string
}{
	{pattern.Cervical, "$1颈$2"},
	{pattern.Thoracic, "$1胸$2"},
	{pattern.ThoracicVertebra, "$1胸$2"},
	{pattern.Sacral, "$1骶$2"},
	{pattern.ThoracicSpecific, "$1胸$2"},
}

// RuleInfo is the debug surface of a replacer.
type RuleInfo struct {
	Scope        rules.Scope `json:"scope"`
	TotalRules   int         `json:"total_rules"`
	LiteralRules int         `json:"literal_rules"`
	RegexRules   int         `json:"regex_rules"`
	SampleRules  []string    `json:"sample_rules,omitempty"`
}

// Replacer applies a compiled rule set to text in a fixed three-phase order:
// basic normalization, literal rules, regex rules.
type Replacer struct {
	rs  *rules.RuleSet
	reg *pattern.Registry
	log *zap.Logger
}

// New builds a replacer over a compiled rule set.
func New(rs *rules.RuleSet, reg *pattern.Registry, log *zap.Logger) *Replacer {
	return &Replacer{rs: rs, reg: reg, log: log}
}

// RuleSet returns the compiled rule set the replacer applies.
func (r *Replacer) RuleSet() *rules.RuleSet { return r.rs }

// Apply runs the full three-phase pass. Deterministic for a fixed rule
// order; empty in, empty out.
func (r *Replacer) Apply(text string) string {
	if text == "" {
		return ""
	}
	text = normalize(text)
	text = r.applyLiterals(text)
	return r.applyRegexes(text)
}

// ApplyRegexOnly runs phase 3 alone; the pipeline uses it as the late
// conditional pass on each sentence.
func (r *Replacer) ApplyRegexOnly(text string) string {
	if text == "" {
		return ""
	}
	return r.applyRegexes(text)
}

// normalize is the fixed, rule-independent phase 1.
func normalize(text string) string {
	text = mustReplace(leadingOrdinal, text, "")
	text = mustReplace(whitespaceRuns, text, "")
	text = mustReplace(parenNewline, text, "$1\n")
	return mustReplace(inlineOrdinal, text, "$2")
}

// mustReplace ignores substitution errors: the phase-1 patterns are fixed
// and a failed replace just keeps the input.
func mustReplace(re *regexp2.Regexp, text, replacement string) string {
	out, err := re.Replace(text, replacement, -1, -1)
	if err != nil {
		return text
	}
	return out
}

// applyLiterals replaces each literal rule's key case-insensitively,
// preserving the case of unmatched text.
func (r *Replacer) applyLiterals(text string) string {
	for _, rule := range r.rs.Literals() {
		text = foldReplaceAll(text, rule.Key, rule.Replacement)
	}
	return text
}

// foldReplaceAll replaces every case-insensitive occurrence of key in s.
// The key is already upper-cased. Case mapping can change a rune's byte
// length (ı upper-cases to the 1-byte I, ȿ to the 3-byte Ȿ), so offsets in
// the folded copy are mapped back to s through a per-byte offset table
// instead of being reused directly.
func foldReplaceAll(s, key, replacement string) string {
	if key == "" {
		return s
	}
	upper, offsets := foldOffsets(s)
	i := strings.Index(upper, key)
	if i < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	pos := 0
	prev := 0
	for i >= 0 {
		b.WriteString(s[prev:offsets[pos+i]])
		b.WriteString(replacement)
		pos += i + len(key)
		prev = offsets[pos]
		i = strings.Index(upper[pos:], key)
	}
	b.WriteString(s[prev:])
	return b.String()
}

// foldOffsets upper-cases s rune by rune and records, for every byte of the
// folded string plus one past the end, the byte offset of the originating
// rune in s. UTF-8 is self-synchronizing, so any match of a valid key in the
// folded string starts and ends on entries of this table.
func foldOffsets(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	offsets := make([]int, 0, len(s)+1)
	for i, r := range s {
		b.WriteRune(unicode.ToUpper(r))
		for len(offsets) < b.Len() {
			offsets = append(offsets, i)
		}
	}
	offsets = append(offsets, len(s))
	return b.String(), offsets
}

// applyRegexes applies the regex rules in load order; a failed substitution
// is logged and skipped, processing continues on the same text.
func (r *Replacer) applyRegexes(text string) string {
	for _, rule := range r.rs.Regexes() {
		out, err := rule.Pattern.Replace(text, rule.Replacement, -1, -1)
		if err != nil {
			if r.log != nil {
				r.log.Warn("regex rule substitution failed",
					zap.String("scope", r.rs.Scope().String()),
					zap.String("rule", rule.Key),
					zap.Error(err))
			}
			continue
		}
		text = out
	}
	return text
}

// ApplyBySentence splits on the boundary pattern by match positions, applies
// the sentence-wise spine and dot-separator normalization to each piece, and
// rejoins with newlines.
func (r *Replacer) ApplyBySentence(text string, boundary *regexp.Regexp) string {
	if text == "" {
		return ""
	}
	starts := []int{}
	for _, loc := range boundary.FindAllStringIndex(text, -1) {
		starts = append(starts, loc[0])
	}
	if len(starts) == 0 {
		starts = []int{len(text)}
	}
	if starts[0] != 0 {
		starts = append([]int{0}, starts...)
	}
	if starts[len(starts)-1] != len(text) {
		starts = append(starts, len(text))
	}

	var sentences []string
	for i := 0; i < len(starts)-1; i++ {
		s := text[starts[i]:starts[i+1]]
		if s == "" {
			continue
		}
		sentences = append(sentences, r.processSentence(s))
	}
	return strings.Join(sentences, "\n")
}

func (r *Replacer) processSentence(s string) string {
	if containsSpineKeyword(s) {
		s = r.applySpineRules(s)
	}
	return mustReplace(r.reg.MustGet(pattern.DotSeparator), s, "$1。$2")
}

func containsSpineKeyword(s string) bool {
	for _, kw := range spineKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func (r *Replacer) applySpineRules(s string) string {
	for _, p := range spineLabelPatterns {
		re, err := r.reg.Get(p.name)
		if err != nil {
			continue
		}
		s = mustReplace(re, s, p.replacement)
	}
	return s
}

// Info returns rule counts and the first few rule keys for debugging.
func (r *Replacer) Info() RuleInfo {
	info := RuleInfo{
		Scope:        r.rs.Scope(),
		TotalRules:   r.rs.Len(),
		LiteralRules: len(r.rs.Literals()),
		RegexRules:   len(r.rs.Regexes()),
	}
	for _, rule := range r.rs.Literals() {
		if len(info.SampleRules) >= 5 {
			break
		}
		info.SampleRules = append(info.SampleRules, rule.Key)
	}
	for _, rule := range r.rs.Regexes() {
		if len(info.SampleRules) >= 10 {
			break
		}
		info.SampleRules = append(info.SampleRules, rule.Key)
	}
	return info
}
