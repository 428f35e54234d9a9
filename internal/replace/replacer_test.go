package replace

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
	"github.com/medtext/radprep/internal/rules"
)

func compileSet(t *testing.T, rows []rules.Rule) *rules.RuleSet {
	t.Helper()
	rs, errs := rules.Compile(rules.DefaultScope, rows, pattern.NewRegistry(), zap.NewNop())
	require.Empty(t, errs)
	return rs
}

func newTestReplacer(t *testing.T, rows []rules.Rule) *Replacer {
	t.Helper()
	return New(compileSet(t, rows), pattern.NewRegistry(), zap.NewNop())
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"leading ordinal stripped", "\n1.肝脏形态正常", "肝脏形态正常"},
		{"whitespace removed", "肝 脏　大小正常", "肝脏大小正常"},
		{"space after paren removed", "（平扫） 肝脏正常", "（平扫）肝脏正常"},
		{"inline ordinal stripped", "2.肝脏增大", "肝脏增大"},
		{"decimal kept", "病灶大小约3.5cm", "病灶大小约3.5cm"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, normalize(tc.in))
		})
	}
}

func TestFoldReplaceAll(t *testing.T) {
	t.Run("case insensitive all occurrences", func(t *testing.T) {
		got := foldReplaceAll("Ca病灶与ca及CA", "CA", "癌")
		assert.Equal(t, "癌病灶与癌及癌", got)
	})

	t.Run("unmatched text case preserved", func(t *testing.T) {
		got := foldReplaceAll("MRI检查见ca病灶", "CA", "癌")
		assert.Equal(t, "MRI检查见癌病灶", got)
	})

	t.Run("no occurrence", func(t *testing.T) {
		s := "肝脏大小正常"
		assert.Equal(t, s, foldReplaceAll(s, "CA", "癌"))
	})

	t.Run("empty key", func(t *testing.T) {
		s := "肝脏大小正常"
		assert.Equal(t, s, foldReplaceAll(s, "", "x"))
	})

	t.Run("cjk key", func(t *testing.T) {
		got := foldReplaceAll("双肺未见异常，双肺纹理清晰", "双肺", "两肺")
		assert.Equal(t, "两肺未见异常，两肺纹理清晰", got)
	})

	// ȿ (2 bytes) upper-cases to Ȿ (3 bytes) and ı (2 bytes) to I (1 byte),
	// so folded offsets drift from the input's before the match site.
	t.Run("rune growing under fold before match", func(t *testing.T) {
		got := foldReplaceAll("ȿȿȿȿ abc", "ABC", "X")
		assert.Equal(t, "ȿȿȿȿ X", got)
	})

	t.Run("rune shrinking under fold before match", func(t *testing.T) {
		got := foldReplaceAll("ıı患者ca病灶", "CA", "癌")
		assert.Equal(t, "ıı患者癌病灶", got)
	})
}

func TestApply(t *testing.T) {
	rows := []rules.Rule{
		{Original: "ca", Replacement: "癌"},
		{Original: `[0-9]+岁`, Replacement: "", IsRegex: true},
	}
	rep := newTestReplacer(t, rows)

	t.Run("literal then regex", func(t *testing.T) {
		got := rep.Apply("患者65岁，CA病灶")
		assert.Equal(t, "患者，癌病灶", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", rep.Apply(""))
	})

	t.Run("regex only pass skips literals", func(t *testing.T) {
		got := rep.ApplyRegexOnly("患者65岁，CA病灶")
		assert.Equal(t, "患者，CA病灶", got)
	})

	t.Run("deterministic", func(t *testing.T) {
		in := "CA占位，ca复查"
		assert.Equal(t, rep.Apply(in), rep.Apply(in))
	})
}

func TestApplyRuleOrder(t *testing.T) {
	// Later literal rules see the output of earlier ones.
	rows := []rules.Rule{
		{Original: "甲", Replacement: "乙"},
		{Original: "乙", Replacement: "丙"},
	}
	rep := newTestReplacer(t, rows)
	assert.Equal(t, "丙丙", rep.Apply("甲乙"))
}

func TestApplyBySentence(t *testing.T) {
	rep := newTestReplacer(t, nil)
	boundary := regexp.MustCompile(`[。；]`)

	t.Run("spine sentence normalized", func(t *testing.T) {
		got := rep.ApplyBySentence("C3椎体骨折。肝脏正常", boundary)
		assert.Equal(t, "颈3椎体骨折\n。肝脏正常", got)
	})

	t.Run("non spine sentence untouched", func(t *testing.T) {
		got := rep.ApplyBySentence("C3病变待查", boundary)
		assert.Equal(t, "C3病变待查", got)
	})

	t.Run("dot separator fixed per sentence", func(t *testing.T) {
		got := rep.ApplyBySentence("边界清楚.形态规则", boundary)
		assert.Equal(t, "边界清楚。形态规则", got)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, "", rep.ApplyBySentence("", boundary))
	})
}

func TestInfo(t *testing.T) {
	rows := []rules.Rule{
		{Original: "a1", Replacement: "x"},
		{Original: "a2", Replacement: "x"},
		{Original: "a3", Replacement: "x"},
		{Original: "a4", Replacement: "x"},
		{Original: "a5", Replacement: "x"},
		{Original: "a6", Replacement: "x"},
		{Original: `r\d`, Replacement: "y", IsRegex: true},
	}
	rep := newTestReplacer(t, rows)

	info := rep.Info()
	assert.Equal(t, rules.DefaultScope, info.Scope)
	assert.Equal(t, 7, info.TotalRules)
	assert.Equal(t, 6, info.LiteralRules)
	assert.Equal(t, 1, info.RegexRules)
	require.Len(t, info.SampleRules, 6)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5", `r\d`}, info.SampleRules)
}
