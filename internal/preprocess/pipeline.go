package preprocess

import (
	"strings"
	"sync/atomic"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/expand"
	"github.com/medtext/radprep/internal/replace"
	"github.com/medtext/radprep/internal/rules"
	"github.com/medtext/radprep/internal/sentence"
)

// Pair is one retained sentence with its transformed form.
type Pair struct {
	Original     string `json:"original"`
	Preprocessed string `json:"preprocessed"`
}

// spineFallbackKeywords guards the conditional spine normalization when no
// spine-words pattern is configured.
var spineFallbackKeywords = []string{"椎", "横突", "棘", "脊", "黄韧带", "肋", "颈", "骶", "尾骨", "腰大肌"}

// Pipeline transforms text for one (version, modality) scope. The current
// replacer sits behind an atomic pointer so a rule reload swaps in a new
// snapshot without readers ever observing a half-replaced rule set.
type Pipeline struct {
	scope      rules.Scope
	current    atomic.Pointer[replace.Replacer]
	punct      *replace.Replacer
	expander   *expand.Expander
	splitter   *sentence.Splitter
	spineWords *regexp2.Regexp
	log        *zap.Logger
}

// newPipeline wires a pipeline from already-built parts. punct and
// spineWords may be nil; a nil spineWords falls back to the keyword list.
func newPipeline(scope rules.Scope, rep *replace.Replacer, punct *replace.Replacer,
	expander *expand.Expander, splitter *sentence.Splitter,
	spineWords *regexp2.Regexp, log *zap.Logger) *Pipeline {

	p := &Pipeline{
		scope:      scope,
		punct:      punct,
		expander:   expander,
		splitter:   splitter,
		spineWords: spineWords,
		log:        log,
	}
	p.current.Store(rep)
	return p
}

// swap installs a freshly compiled replacer; in-flight Run calls keep their
// snapshot for the full apply but see the new rules in the late regex pass.
func (p *Pipeline) swap(rep *replace.Replacer) {
	p.current.Store(rep)
}

func (p *Pipeline) replacer() *replace.Replacer {
	return p.current.Load()
}

// Run executes the per-sentence transform: punctuation correction over the
// whole text, split, then per sentence the full replace pass, medical
// expansion, conditional spine-label normalization, a late regex-only pass
// on the current rule snapshot, and the meaningfulness filter. Sentence
// order is preserved; dropped sentences leave no placeholder.
func (p *Pipeline) Run(text string) []Pair {
	if text == "" {
		return nil
	}
	if p.punct != nil {
		text = p.punct.Apply(text)
	}

	sentences := p.splitter.Split(text)
	if len(sentences) == 0 {
		return nil
	}

	rep := p.replacer()
	out := make([]Pair, 0, len(sentences))
	for _, original := range sentences {
		s := rep.Apply(original)
		s = p.expander.ExpandAll(s)
		if p.hasSpineContent(s) {
			s = p.expander.NormalizeSpineLabels(s)
		}
		// Re-read the pointer so a reload between sentences is visible
		// to this pass even though the full apply above used the
		// snapshot taken when the batch started.
		s = p.replacer().ApplyRegexOnly(s)
		s = strings.TrimSpace(s)
		if sentence.IsMeaningful(s) {
			out = append(out, Pair{Original: original, Preprocessed: s})
		}
	}
	return out
}

func (p *Pipeline) hasSpineContent(s string) bool {
	if p.spineWords != nil {
		ok, err := p.spineWords.MatchString(s)
		if err == nil {
			return ok
		}
		p.log.Warn("spine words match failed", zap.Error(err))
	}
	for _, kw := range spineFallbackKeywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
