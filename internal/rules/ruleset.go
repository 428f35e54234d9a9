package rules

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
)

// LiteralRule is a substring-substitution rule; Key is the upper-cased
// original and matching is case-insensitive.
type LiteralRule struct {
	Key         string
	Replacement string
}

// RegexRule is a pattern-substitution rule, compiled once at load time.
type RegexRule struct {
	Key         string
	Pattern     *regexp2.Regexp
	Replacement string
}

// LoadError records a rule row dropped during compilation.
type LoadError struct {
	Original string
	Err      error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("rule %q: %v", e.Original, e.Err)
}

// RuleSet is the ordered, compiled rule collection for one scope. Immutable
// after construction and safe for unsynchronized concurrent reads.
type RuleSet struct {
	scope    Scope
	literals []LiteralRule
	regexes  []RegexRule
}

// Compile builds a RuleSet from ordered rows. Rows are deduplicated by
// Original keeping the last-seen value at the first-seen position, so a
// modality-specific row overrides an earlier general one without disturbing
// the application order. Rows with an empty Original or a pattern that fails
// to compile are dropped and reported; compilation never aborts on a bad row.
func Compile(scope Scope, rows []Rule, reg *pattern.Registry, log *zap.Logger) (*RuleSet, []LoadError) {
	deduped := make([]Rule, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, row := range rows {
		if i, seen := index[row.Original]; seen {
			deduped[i] = row
			continue
		}
		index[row.Original] = len(deduped)
		deduped = append(deduped, row)
	}

	rs := &RuleSet{scope: scope}
	var errs []LoadError
	for _, row := range deduped {
		if row.Original == "" {
			errs = append(errs, LoadError{Original: "", Err: fmt.Errorf("empty original")})
			continue
		}
		if !row.IsRegex {
			rs.literals = append(rs.literals, LiteralRule{
				Key:         strings.ToUpper(row.Original),
				Replacement: row.Replacement,
			})
			continue
		}
		re, err := reg.Compile(row.Original)
		if err != nil {
			errs = append(errs, LoadError{Original: row.Original, Err: err})
			if log != nil {
				log.Warn("dropping rule with malformed pattern",
					zap.String("scope", scope.String()),
					zap.String("original", row.Original),
					zap.Error(err))
			}
			continue
		}
		rs.regexes = append(rs.regexes, RegexRule{
			Key:         row.Original,
			Pattern:     re,
			Replacement: row.Replacement,
		})
	}

	if log != nil {
		log.Info("rule set compiled",
			zap.String("scope", scope.String()),
			zap.Int("literal_rules", len(rs.literals)),
			zap.Int("regex_rules", len(rs.regexes)),
			zap.Int("load_errors", len(errs)))
	}
	return rs, errs
}

// Scope returns the (version, modality) pair the set was compiled for.
func (rs *RuleSet) Scope() Scope { return rs.scope }

// Literals returns the literal rules in application order.
func (rs *RuleSet) Literals() []LiteralRule { return rs.literals }

// Regexes returns the regex rules in application order.
func (rs *RuleSet) Regexes() []RegexRule { return rs.regexes }

// Len is the total rule count.
func (rs *RuleSet) Len() int { return len(rs.literals) + len(rs.regexes) }
