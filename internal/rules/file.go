package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// defaultFileMapping is the compiled-in version→file mapping, overridable by
// a mapping.yaml in the rules directory.
var defaultFileMapping = map[Version]string{
	VersionReport:      "report.yaml",
	VersionHeading:     "heading.yaml",
	VersionRequisition: "requisition.yaml",
}

const punctuationFile = "punctuation.yaml"

// fileRow is one rule row as it appears in a YAML rule file.
type fileRow struct {
	Original    string `yaml:"original"`
	Replacement string `yaml:"replacement"`
	IsRegex     bool   `yaml:"is_regex"`
}

// FileSource loads rule tables from YAML files under a rules directory: one
// file per version, each a map of modality label to rule list, plus an
// optional punctuation file.
type FileSource struct {
	dir     string
	mapping map[Version]string
	log     *zap.Logger
}

var _ Source = (*FileSource)(nil)

// NewFileSource reads the optional mapping.yaml and returns a source rooted
// at dir. A missing mapping file falls back to the compiled-in default.
func NewFileSource(dir string, log *zap.Logger) (*FileSource, error) {
	if fi, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("rules directory: %w", err)
	} else if !fi.IsDir() {
		return nil, fmt.Errorf("rules path %s is not a directory", dir)
	}

	mapping := make(map[Version]string, len(defaultFileMapping))
	for v, f := range defaultFileMapping {
		mapping[v] = f
	}
	if raw, err := os.ReadFile(filepath.Join(dir, "mapping.yaml")); err == nil {
		var fromFile map[string]string
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return nil, fmt.Errorf("parse mapping.yaml: %w", err)
		}
		for name, file := range fromFile {
			v, err := ParseVersion(name)
			if err != nil {
				return nil, fmt.Errorf("mapping.yaml: %w", err)
			}
			mapping[v] = file
		}
	}

	return &FileSource{dir: dir, mapping: mapping, log: log}, nil
}

// Load reads the version's rule file and returns the rows for the scope,
// general rows first, preserving file order within each modality.
func (s *FileSource) Load(_ context.Context, version Version, modality Modality, includeGeneral bool) ([]Rule, error) {
	if err := Validate(version, modality); err != nil {
		return nil, err
	}

	file, ok := s.mapping[version]
	if !ok {
		return nil, fmt.Errorf("no rule file mapped for version %s", version)
	}
	path := filepath.Join(s.dir, file)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}

	var sheets map[string][]fileRow
	if err := yaml.Unmarshal(raw, &sheets); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}

	byModality := make(map[Modality][]Rule, len(sheets))
	for name, rows := range sheets {
		m, err := ParseModality(name)
		if err != nil {
			return nil, fmt.Errorf("rule file %s: %w", path, err)
		}
		for _, row := range rows {
			byModality[m] = append(byModality[m], Rule{
				Original:    row.Original,
				Replacement: row.Replacement,
				IsRegex:     row.IsRegex,
				Version:     version,
				Modality:    m,
			})
		}
	}

	var out []Rule
	if includeGeneral {
		out = append(out, byModality[ModalityGeneral]...)
	}
	if modality != ModalityGeneral {
		out = append(out, byModality[modality]...)
	}
	if s.log != nil {
		s.log.Debug("rule file loaded",
			zap.String("file", path),
			zap.String("scope", Scope{version, modality}.String()),
			zap.Int("rows", len(out)))
	}
	return out, nil
}

func (s *FileSource) Validate(version Version, modality Modality) error {
	return Validate(version, modality)
}

func (s *FileSource) Versions() []Version { return Versions() }

// Punctuation reads the optional punctuation-correction file. A missing file
// is not an error; the correction pass simply stays off.
func (s *FileSource) Punctuation(_ context.Context) ([]Rule, error) {
	path := filepath.Join(s.dir, punctuationFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read punctuation file %s: %w", path, err)
	}
	var rows []fileRow
	if err := yaml.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("parse punctuation file %s: %w", path, err)
	}
	out := make([]Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, Rule{
			Original:    row.Original,
			Replacement: row.Replacement,
			IsRegex:     row.IsRegex,
			Version:     VersionReport,
			Modality:    ModalityGeneral,
		})
	}
	return out, nil
}
