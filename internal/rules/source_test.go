package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticSourceLoad(t *testing.T) {
	src := &StaticSource{
		Rows: []Rule{
			{Original: "a", Version: VersionReport, Modality: ModalityGeneral},
			{Original: "b", Version: VersionReport, Modality: ModalityCT},
			{Original: "c", Version: VersionReport, Modality: ModalityGeneral},
			{Original: "d", Version: VersionHeading, Modality: ModalityGeneral},
		},
		PunctuationRows: []Rule{{Original: "．", Replacement: "。"}},
	}
	ctx := context.Background()

	t.Run("general first then specific", func(t *testing.T) {
		rows, err := src.Load(ctx, VersionReport, ModalityCT, true)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "a", rows[0].Original)
		assert.Equal(t, "c", rows[1].Original)
		assert.Equal(t, "b", rows[2].Original)
	})

	t.Run("specific only", func(t *testing.T) {
		rows, err := src.Load(ctx, VersionReport, ModalityCT, false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "b", rows[0].Original)
	})

	t.Run("general scope ignores specific rows", func(t *testing.T) {
		rows, err := src.Load(ctx, VersionReport, ModalityGeneral, true)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("version isolation", func(t *testing.T) {
		rows, err := src.Load(ctx, VersionHeading, ModalityGeneral, true)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "d", rows[0].Original)
	})

	t.Run("invalid combination", func(t *testing.T) {
		_, err := src.Load(ctx, VersionHeading, ModalityPathology, true)
		require.Error(t, err)
	})

	t.Run("punctuation rows", func(t *testing.T) {
		rows, err := src.Punctuation(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

const reportYAML = `general:
  - original: ca
    replacement: 癌
  - original: '\d+岁'
    replacement: ''
    is_regex: true
CT:
  - original: 平扫
    replacement: CT平扫
`

const punctuationYAML = `- original: '，，'
  replacement: '，'
`

func writeRuleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestFileSource(t *testing.T) {
	ctx := context.Background()

	t.Run("load general and modality sheets", func(t *testing.T) {
		dir := writeRuleDir(t, map[string]string{"report.yaml": reportYAML})
		src, err := NewFileSource(dir, zap.NewNop())
		require.NoError(t, err)

		rows, err := src.Load(ctx, VersionReport, ModalityCT, true)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "ca", rows[0].Original)
		assert.Equal(t, "癌", rows[0].Replacement)
		assert.False(t, rows[0].IsRegex)
		assert.True(t, rows[1].IsRegex)
		assert.Equal(t, "平扫", rows[2].Original)
		assert.Equal(t, ModalityCT, rows[2].Modality)
	})

	t.Run("missing rules directory", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
		require.Error(t, err)
	})

	t.Run("missing version file", func(t *testing.T) {
		dir := writeRuleDir(t, map[string]string{"report.yaml": reportYAML})
		src, err := NewFileSource(dir, zap.NewNop())
		require.NoError(t, err)
		_, err = src.Load(ctx, VersionHeading, ModalityGeneral, true)
		require.Error(t, err)
	})

	t.Run("mapping override", func(t *testing.T) {
		dir := writeRuleDir(t, map[string]string{
			"custom.yaml":  reportYAML,
			"mapping.yaml": "report: custom.yaml\n",
		})
		src, err := NewFileSource(dir, zap.NewNop())
		require.NoError(t, err)
		rows, err := src.Load(ctx, VersionReport, ModalityGeneral, true)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("unknown modality sheet rejected", func(t *testing.T) {
		dir := writeRuleDir(t, map[string]string{
			"report.yaml": "xray:\n  - original: a\n",
		})
		src, err := NewFileSource(dir, zap.NewNop())
		require.NoError(t, err)
		_, err = src.Load(ctx, VersionReport, ModalityGeneral, true)
		require.Error(t, err)
	})

	t.Run("punctuation optional", func(t *testing.T) {
		dir := writeRuleDir(t, map[string]string{"report.yaml": reportYAML})
		src, err := NewFileSource(dir, zap.NewNop())
		require.NoError(t, err)

		rows, err := src.Punctuation(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("punctuation file loaded", func(t *testing.T) {
		dir := writeRuleDir(t, map[string]string{
			"report.yaml":      reportYAML,
			"punctuation.yaml": punctuationYAML,
		})
		src, err := NewFileSource(dir, zap.NewNop())
		require.NoError(t, err)

		rows, err := src.Punctuation(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "，，", rows[0].Original)
		assert.Equal(t, "，", rows[0].Replacement)
	})
}
