package pattern

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGet(t *testing.T) {
	reg := NewRegistry()

	t.Run("all catalog names resolve", func(t *testing.T) {
		for _, name := range reg.Names() {
			re, err := reg.Get(name)
			require.NoError(t, err, "pattern %s", name)
			assert.NotNil(t, re, "pattern %s", name)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := reg.Get("NO_SUCH_PATTERN")
		require.Error(t, err)
		var unknownErr *UnknownPatternError
		require.True(t, errors.As(err, &unknownErr))
		assert.Equal(t, "NO_SUCH_PATTERN", unknownErr.Name)
	})

	t.Run("must get panics on unknown name", func(t *testing.T) {
		assert.Panics(t, func() { reg.MustGet("NO_SUCH_PATTERN") })
	})
}

func TestRegistryCompile(t *testing.T) {
	reg := NewRegistry()

	t.Run("valid expression", func(t *testing.T) {
		re, err := reg.Compile(`椎|肋|脊`)
		require.NoError(t, err)
		ok, err := re.MatchString("腰椎曲度变直")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("case insensitive", func(t *testing.T) {
		re, err := reg.Compile(`ca\d+`)
		require.NoError(t, err)
		ok, err := re.MatchString("CA125")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("malformed expression", func(t *testing.T) {
		_, err := reg.Compile(`(unclosed`)
		require.Error(t, err)
		var invalidErr *InvalidPatternError
		require.True(t, errors.As(err, &invalidErr))
		assert.Equal(t, `(unclosed`, invalidErr.Expr)
		assert.NotNil(t, errors.Unwrap(invalidErr))
	})
}

func TestCatalogBehavior(t *testing.T) {
	reg := NewRegistry()

	match := func(t *testing.T, name, text string) bool {
		t.Helper()
		ok, err := reg.MustGet(name).MatchString(text)
		require.NoError(t, err)
		return ok
	}

	t.Run("measurement", func(t *testing.T) {
		assert.True(t, match(t, Measurement, "病灶大小约3.5cm"))
		assert.True(t, match(t, Measurement, "直径约12mm"))
		assert.True(t, match(t, Measurement, "约5毫米"))
		assert.False(t, match(t, Measurement, "5cmH2O压力"))
	})

	t.Run("percentage", func(t *testing.T) {
		assert.True(t, match(t, Percentage, "射血分数60%"))
		assert.True(t, match(t, Percentage, "约55.5％"))
		assert.False(t, match(t, Percentage, "百分之六十"))
	})

	t.Run("volume", func(t *testing.T) {
		assert.True(t, match(t, Volume, "积液约20ml"))
		assert.True(t, match(t, Volume, "约15毫升"))
	})

	t.Run("cervical skips segment context", func(t *testing.T) {
		assert.True(t, match(t, Cervical, "C3椎体"))
		assert.False(t, match(t, Cervical, "C3段血管"))
		assert.False(t, match(t, Cervical, "ASC3"))
	})

	t.Run("thoracic skips signal context", func(t *testing.T) {
		assert.True(t, match(t, Thoracic, "T10椎体"))
		assert.False(t, match(t, Thoracic, "T1信号增高"))
	})

	t.Run("dot separator", func(t *testing.T) {
		assert.True(t, match(t, DotSeparator, "清楚.边缘光整"))
		assert.False(t, match(t, DotSeparator, "大小约3.5cm"))
	})

	t.Run("rib abbreviation", func(t *testing.T) {
		assert.True(t, match(t, RibAbbreviation, "右第5、6前肋骨折"))
		assert.True(t, match(t, RibAbbreviation, "左第3-5肋骨骨折"))
	})

	t.Run("names sorted", func(t *testing.T) {
		names := reg.Names()
		require.NotEmpty(t, names)
		assert.True(t, sort.StringsAreSorted(names))
		assert.Contains(t, names, SpineRange)
		assert.Contains(t, names, DiskRange)
	})
}
