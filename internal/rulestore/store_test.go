package rulestore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medtext/radprep/internal/rules"
)

func TestMaskDatabaseURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"password masked", "postgres://rules:secret@db:5432/radprep", "postgres://rules:***@db:5432/radprep"},
		{"no credentials", "postgres://db:5432/radprep", "postgres://db:5432/radprep"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, maskDatabaseURL(tc.in))
		})
	}
}

func TestStoreSourceValidate(t *testing.T) {
	src := NewStoreSource(nil)

	assert.NoError(t, src.Validate(rules.VersionReport, rules.ModalityMR))
	assert.Error(t, src.Validate(rules.VersionHeading, rules.ModalityUltrasound))
	assert.Equal(t, rules.Versions(), src.Versions())
}

func TestAppendStored(t *testing.T) {
	stored := []*StoredRule{
		{Original: "ca", Replacement: "癌"},
		{Original: `\d+岁`, IsRegex: true},
	}

	out := appendStored(nil, stored, rules.VersionReport, rules.ModalityCT)
	assert.Len(t, out, 2)
	assert.Equal(t, rules.VersionReport, out[0].Version)
	assert.Equal(t, rules.ModalityCT, out[0].Modality)
	assert.True(t, out[1].IsRegex)
}
