package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/medtext/radprep/internal/pattern"
)

func newTestExpander() *Expander {
	return New(pattern.NewRegistry(), zap.NewNop())
}

func TestExpandSpineDot(t *testing.T) {
	e := newTestExpander()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"latin enumeration with suffix", "L1、2椎体", "L1椎体、L2椎体"},
		{"chinese enumeration", "腰1、2椎体", "腰1椎体、腰2椎体"},
		{"empty input", "", ""},
		{"no abbreviation", "肝脏大小形态正常", "肝脏大小形态正常"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.ExpandSpineDot(tc.in))
		})
	}
}

func TestExpandSpineRange(t *testing.T) {
	e := newTestExpander()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"single segment", "L1-3椎体", "L1椎体、L2椎体、L3椎体"},
		{"cross segment", "腰4-骶1椎体", "腰4椎体、腰5椎体、骶1椎体"},
		{"segment context preserved", "腰1-2段信号", "腰1-2段信号"},
		{"empty input", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.ExpandSpineRange(tc.in))
		})
	}
}

func TestExpandDiskRange(t *testing.T) {
	e := newTestExpander()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"single segment", "L1/2-3/4椎间盘", "L1/2、L2/3、L3/4椎间盘"},
		{"cross segment with transition", "颈6/7-胸1/2", "颈6/7、颈7/胸1、胸1/2"},
		{"standalone cervical boundary", "颈7/8椎间盘突出", "颈7/胸1椎间盘突出"},
		{"standalone thoracolumbar boundary", "胸12/13", "胸12/腰1"},
		{"standalone lumbosacral boundary", "腰5/6", "腰5/骶1"},
		{"empty input", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.ExpandDiskRange(tc.in))
		})
	}
}

func TestExpandRibs(t *testing.T) {
	e := newTestExpander()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"enumerated list", "右第5、6前肋骨折", "右第5前肋骨折，右第6前肋骨折"},
		{"range", "左第3-5肋骨骨折", "左第3肋骨骨折，左第4肋骨骨折，左第5肋骨骨折"},
		{"bilateral", "双侧第7肋骨骨折", "双侧第7肋骨骨折"},
		{"number above twelve kept", "右第13肋骨骨折", "右第13肋骨骨折"},
		{"range above twelve kept", "左第10-14肋骨骨折", "左第10-14肋骨骨折"},
		{"range below one kept", "右第0-3肋骨折", "右第0-3肋骨折"},
		{"no rib mention", "肝脏大小正常", "肝脏大小正常"},
		{"empty input", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.ExpandRibs(tc.in))
		})
	}
}

func TestNormalizeSpineLabels(t *testing.T) {
	e := newTestExpander()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"cervical", "C3椎体骨折", "颈3椎体骨折"},
		{"thoracic", "T10椎体", "胸10椎体"},
		{"sacral", "S1椎体", "骶1椎体"},
		{"segment context untouched", "C3段血管", "C3段血管"},
		{"signal context untouched", "T1信号增高", "T1信号增高"},
		{"empty input", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, e.NormalizeSpineLabels(tc.in))
		})
	}
}

func TestExpandAllIdempotent(t *testing.T) {
	e := newTestExpander()

	inputs := []string{
		"L1、2椎体",
		"L1-3椎体",
		"颈6/7-胸1/2",
		"右第5、6前肋骨折",
		"腰4-骶1椎体压缩性骨折，右第13肋骨骨折",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := e.ExpandAll(in)
			assert.Equal(t, once, e.ExpandAll(once))
		})
	}
}

func TestSpineLimit(t *testing.T) {
	assert.Equal(t, 7, spineLimit("颈"))
	assert.Equal(t, 7, spineLimit("C"))
	assert.Equal(t, 12, spineLimit("t"))
	assert.Equal(t, 5, spineLimit("L"))
	assert.Equal(t, 3, spineLimit("尾"))
	assert.Equal(t, defaultSpineLimit, spineLimit("x"))
}

func TestExpansionStats(t *testing.T) {
	e := newTestExpander()

	original := "腰1-3椎体及右第5、6肋骨骨折，L4/5椎间盘膨出"
	expanded := e.ExpandAll(original)

	s := ExpansionStats(original, expanded)
	assert.Equal(t, len([]rune(original)), s.OriginalLength)
	assert.Equal(t, len([]rune(expanded)), s.ExpandedLength)
	assert.Greater(t, s.ExpandedLength, s.OriginalLength)
	assert.Greater(t, s.ExpansionRatio, 1.0)
	assert.GreaterOrEqual(t, s.SpineMentions, 3)
	assert.GreaterOrEqual(t, s.RibMentions, 2)
	assert.GreaterOrEqual(t, s.DiskMentions, 1)
}
