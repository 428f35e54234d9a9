package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
)

func TestCompile(t *testing.T) {
	reg := pattern.NewRegistry()

	t.Run("literal and regex split", func(t *testing.T) {
		rows := []Rule{
			{Original: "ca", Replacement: "癌"},
			{Original: `\d+岁`, Replacement: "", IsRegex: true},
		}
		rs, errs := Compile(DefaultScope, rows, reg, zap.NewNop())
		require.Empty(t, errs)
		assert.Equal(t, 2, rs.Len())
		require.Len(t, rs.Literals(), 1)
		assert.Equal(t, "CA", rs.Literals()[0].Key)
		require.Len(t, rs.Regexes(), 1)
		assert.Equal(t, `\d+岁`, rs.Regexes()[0].Key)
		assert.NotNil(t, rs.Regexes()[0].Pattern)
	})

	t.Run("later duplicate overrides at first position", func(t *testing.T) {
		rows := []Rule{
			{Original: "甲", Replacement: "乙"},
			{Original: "丙", Replacement: "丁"},
			{Original: "甲", Replacement: "戊"},
		}
		rs, errs := Compile(DefaultScope, rows, reg, zap.NewNop())
		require.Empty(t, errs)
		require.Len(t, rs.Literals(), 2)
		assert.Equal(t, "甲", rs.Literals()[0].Key)
		assert.Equal(t, "戊", rs.Literals()[0].Replacement)
		assert.Equal(t, "丙", rs.Literals()[1].Key)
	})

	t.Run("malformed pattern dropped not fatal", func(t *testing.T) {
		rows := []Rule{
			{Original: "(bad", Replacement: "", IsRegex: true},
			{Original: "ok", Replacement: "好"},
		}
		rs, errs := Compile(DefaultScope, rows, reg, zap.NewNop())
		require.Len(t, errs, 1)
		assert.Equal(t, "(bad", errs[0].Original)
		assert.Equal(t, 1, rs.Len())
	})

	t.Run("empty original reported", func(t *testing.T) {
		rows := []Rule{{Original: "", Replacement: "x"}}
		rs, errs := Compile(DefaultScope, rows, reg, zap.NewNop())
		require.Len(t, errs, 1)
		assert.Equal(t, 0, rs.Len())
	})

	t.Run("scope retained", func(t *testing.T) {
		scope := Scope{VersionHeading, ModalityCT}
		rs, _ := Compile(scope, nil, reg, nil)
		assert.Equal(t, scope, rs.Scope())
	})
}
