package sentence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := New("", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultBoundaryPattern, s.Boundary().String())
		assert.Equal(t, DefaultStopPattern, s.Stop().String())
	})

	t.Run("custom boundary", func(t *testing.T) {
		s, err := New(`[!]`, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"甲状腺正常", "肝脏饱满"}, s.Split("甲状腺正常!肝脏饱满"))
	})

	t.Run("malformed boundary", func(t *testing.T) {
		_, err := New(`[`, "")
		require.Error(t, err)
	})

	t.Run("malformed stop", func(t *testing.T) {
		_, err := New("", `(`)
		require.Error(t, err)
	})
}

func TestSplit(t *testing.T) {
	s, err := New("", "")
	require.NoError(t, err)

	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"chinese period", "肝脏大小正常。脾脏不大。", []string{"肝脏大小正常", "脾脏不大"}},
		{"mixed separators", "肝脏大小正常；脾脏不大\n胰腺未见异常？", []string{"肝脏大小正常", "脾脏不大", "胰腺未见异常"}},
		{"empty input", "", nil},
		{"separator only", "。。。；；", nil},
		{"fragments dropped order kept", "甲。12。乙。", []string{"甲", "乙"}},
		{"whitespace trimmed", "  肝脏正常  。", []string{"肝脏正常"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Split(tc.in))
		})
	}
}

func TestIsMeaningful(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"normal text", "肝脏大小正常", true},
		{"empty", "", false},
		{"whitespace only", "  　 ", false},
		{"punctuation only", "，。、：", false},
		{"mixed ascii punctuation", ".,!?()", false},
		{"short bare number", "12", false},
		{"short decimal", "1.", false},
		{"number in context", "12肋", true},
		{"longer number", "1234", true},
		{"control characters", "\x01\x02", false},
		{"single cjk char", "肝", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsMeaningful(tc.in))
		})
	}
}
