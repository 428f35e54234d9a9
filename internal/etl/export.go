package etl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/medtext/radprep/internal/rules"
)

// exportRow matches the YAML rule file row shape consumed by the file
// provider
type exportRow struct {
	Original    string `yaml:"original"`
	Replacement string `yaml:"replacement"`
	IsRegex     bool   `yaml:"is_regex,omitempty"`
}

var exportFiles = map[rules.Version]string{
	rules.VersionReport:      "report.yaml",
	rules.VersionHeading:     "heading.yaml",
	rules.VersionRequisition: "requisition.yaml",
}

// ExportYAML writes the stored rule tables as YAML rule files under dir,
// one file per version plus punctuation.yaml, in the layout the file
// provider reads back
func (p *Pipeline) ExportYAML(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	for _, version := range rules.Versions() {
		sheets := make(map[string][]exportRow)

		for _, modality := range rules.ModalitiesFor(version) {
			stored, err := p.store.LoadRules(ctx, string(version), string(modality))
			if err != nil {
				return fmt.Errorf("load %s/%s rules: %w", version, modality, err)
			}
			if len(stored) == 0 {
				continue
			}
			rows := make([]exportRow, 0, len(stored))
			for _, r := range stored {
				rows = append(rows, exportRow{
					Original:    r.Original,
					Replacement: r.Replacement,
					IsRegex:     r.IsRegex,
				})
			}
			sheets[string(modality)] = rows
		}

		if len(sheets) == 0 {
			continue
		}

		path := filepath.Join(dir, exportFiles[version])
		if err := writeYAML(path, sheets); err != nil {
			return err
		}

		p.logger.Info("Exported rule file",
			zap.String("file", path),
			zap.Int("modalities", len(sheets)))
	}

	// Punctuation rows live in their own flat file
	stored, err := p.store.LoadPunctuation(ctx)
	if err != nil {
		return fmt.Errorf("load punctuation rules: %w", err)
	}
	if len(stored) > 0 {
		rows := make([]exportRow, 0, len(stored))
		for _, r := range stored {
			rows = append(rows, exportRow{
				Original:    r.Original,
				Replacement: r.Replacement,
				IsRegex:     r.IsRegex,
			})
		}
		path := filepath.Join(dir, "punctuation.yaml")
		if err := writeYAML(path, rows); err != nil {
			return err
		}
		p.logger.Info("Exported punctuation file",
			zap.String("file", path),
			zap.Int("rows", len(rows)))
	}

	return nil
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
