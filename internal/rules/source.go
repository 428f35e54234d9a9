package rules

import "context"

// Source is the external rule-table provider. Load returns the ordered rows
// for a scope, general rows first when includeGeneral is set; Punctuation
// returns the scope-free punctuation-correction rows (empty when the
// provider carries none).
type Source interface {
	Load(ctx context.Context, version Version, modality Modality, includeGeneral bool) ([]Rule, error)
	Validate(version Version, modality Modality) error
	Versions() []Version
	Punctuation(ctx context.Context) ([]Rule, error)
}

// StaticSource serves in-memory rows; used for tests and embedded defaults.
type StaticSource struct {
	Rows            []Rule
	PunctuationRows []Rule
}

var _ Source = (*StaticSource)(nil)

// Load returns the rows for the scope, general first, preserving row order.
func (s *StaticSource) Load(_ context.Context, version Version, modality Modality, includeGeneral bool) ([]Rule, error) {
	if err := Validate(version, modality); err != nil {
		return nil, err
	}
	var out []Rule
	if includeGeneral {
		for _, r := range s.Rows {
			if r.Version == version && r.Modality == ModalityGeneral {
				out = append(out, r)
			}
		}
	}
	if modality != ModalityGeneral {
		for _, r := range s.Rows {
			if r.Version == version && r.Modality == modality {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (s *StaticSource) Validate(version Version, modality Modality) error {
	return Validate(version, modality)
}

func (s *StaticSource) Versions() []Version { return Versions() }

func (s *StaticSource) Punctuation(_ context.Context) ([]Rule, error) {
	return s.PunctuationRows, nil
}
