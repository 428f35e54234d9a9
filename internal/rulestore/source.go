package rulestore

import (
	"context"
	"fmt"

	"github.com/medtext/radprep/internal/rules"
)

// StoreSource adapts the Postgres store to the engine's rule provider
// contract
type StoreSource struct {
	store *Store
}

var _ rules.Source = (*StoreSource)(nil)

// NewStoreSource wraps a store as a rule source
func NewStoreSource(store *Store) *StoreSource {
	return &StoreSource{store: store}
}

// Load returns the ordered rows for a scope, general rows first when
// includeGeneral is set
func (s *StoreSource) Load(ctx context.Context, version rules.Version, modality rules.Modality, includeGeneral bool) ([]rules.Rule, error) {
	if err := rules.Validate(version, modality); err != nil {
		return nil, err
	}

	var out []rules.Rule

	if includeGeneral {
		stored, err := s.store.LoadGeneral(ctx, string(version))
		if err != nil {
			return nil, fmt.Errorf("loading general rules: %w", err)
		}
		out = appendStored(out, stored, version, rules.ModalityGeneral)
	}

	if modality != rules.ModalityGeneral {
		stored, err := s.store.LoadRules(ctx, string(version), string(modality))
		if err != nil {
			return nil, fmt.Errorf("loading %s/%s rules: %w", version, modality, err)
		}
		out = appendStored(out, stored, version, modality)
	}

	return out, nil
}

func (s *StoreSource) Validate(version rules.Version, modality rules.Modality) error {
	return rules.Validate(version, modality)
}

func (s *StoreSource) Versions() []rules.Version { return rules.Versions() }

// Punctuation returns the scope-free punctuation-correction rows
func (s *StoreSource) Punctuation(ctx context.Context) ([]rules.Rule, error) {
	stored, err := s.store.LoadPunctuation(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading punctuation rules: %w", err)
	}

	out := make([]rules.Rule, 0, len(stored))
	for _, r := range stored {
		out = append(out, rules.Rule{
			Original:    r.Original,
			Replacement: r.Replacement,
			IsRegex:     r.IsRegex,
		})
	}
	return out, nil
}

func appendStored(dst []rules.Rule, stored []*StoredRule, version rules.Version, modality rules.Modality) []rules.Rule {
	for _, r := range stored {
		dst = append(dst, rules.Rule{
			Original:    r.Original,
			Replacement: r.Replacement,
			IsRegex:     r.IsRegex,
			Version:     version,
			Modality:    modality,
		})
	}
	return dst
}
