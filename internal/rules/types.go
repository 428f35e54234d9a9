package rules

import (
	"fmt"
	"strings"
)

// Version is the report section context a rule applies to.
type Version string

const (
	VersionReport      Version = "report"
	VersionHeading     Version = "heading"
	VersionRequisition Version = "requisition"
)

// Modality is the imaging/device context a rule applies to.
type Modality string

const (
	ModalityGeneral    Modality = "general"
	ModalityCT         Modality = "CT"
	ModalityMR         Modality = "MR"
	ModalityDR         Modality = "DR"
	ModalityPathology  Modality = "pathology"
	ModalityUltrasound Modality = "ultrasound"
)

// Rule tables and configs carry either the English token or the Chinese
// label; both parse, the English token is canonical.
var versionAliases = map[string]Version{
	"report":      VersionReport,
	"报告":          VersionReport,
	"heading":     VersionHeading,
	"标题":          VersionHeading,
	"requisition": VersionRequisition,
	"申请单":         VersionRequisition,
}

var modalityAliases = map[string]Modality{
	"general":    ModalityGeneral,
	"通用":         ModalityGeneral,
	"ct":         ModalityCT,
	"mr":         ModalityMR,
	"dr":         ModalityDR,
	"pathology":  ModalityPathology,
	"病理":         ModalityPathology,
	"ultrasound": ModalityUltrasound,
	"超声":         ModalityUltrasound,
}

// versionModalities lists the supported modalities per version.
var versionModalities = map[Version][]Modality{
	VersionReport:      {ModalityGeneral, ModalityCT, ModalityMR, ModalityDR, ModalityPathology, ModalityUltrasound},
	VersionHeading:     {ModalityGeneral, ModalityCT, ModalityMR, ModalityDR},
	VersionRequisition: {ModalityGeneral, ModalityCT, ModalityMR},
}

// ParseVersion resolves an English token or Chinese label to a Version.
func ParseVersion(s string) (Version, error) {
	if v, ok := versionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v, nil
	}
	return "", &ValidationError{
		Field: "version", Value: s,
		Valid: []string{string(VersionReport), string(VersionHeading), string(VersionRequisition)},
	}
}

// ParseModality resolves an English token or Chinese label to a Modality.
func ParseModality(s string) (Modality, error) {
	if m, ok := modalityAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", &ValidationError{
		Field: "modality", Value: s,
		Valid: []string{
			string(ModalityGeneral), string(ModalityCT), string(ModalityMR),
			string(ModalityDR), string(ModalityPathology), string(ModalityUltrasound),
		},
	}
}

// ValidationError reports an unknown or unsupported scope value.
type ValidationError struct {
	Field string
	Value string
	Valid []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q (valid: %s)", e.Field, e.Value, strings.Join(e.Valid, ", "))
}

// Validate rejects unknown versions/modalities and unsupported combinations.
func Validate(version Version, modality Modality) error {
	allowed, ok := versionModalities[version]
	if !ok {
		return &ValidationError{
			Field: "version", Value: string(version),
			Valid: []string{string(VersionReport), string(VersionHeading), string(VersionRequisition)},
		}
	}
	for _, m := range allowed {
		if m == modality {
			return nil
		}
	}
	valid := make([]string, len(allowed))
	for i, m := range allowed {
		valid[i] = string(m)
	}
	return &ValidationError{
		Field: "modality", Value: fmt.Sprintf("%s for version %s", modality, version),
		Valid: valid,
	}
}

// Versions returns the known versions in a fixed order.
func Versions() []Version {
	return []Version{VersionReport, VersionHeading, VersionRequisition}
}

// ModalitiesFor returns the modalities supported by a version, general first.
func ModalitiesFor(version Version) []Modality {
	allowed := versionModalities[version]
	out := make([]Modality, len(allowed))
	copy(out, allowed)
	return out
}

// Scope pairs a version with a modality.
type Scope struct {
	Version  Version
	Modality Modality
}

// DefaultScope is the scope used when a caller gives none.
var DefaultScope = Scope{Version: VersionReport, Modality: ModalityGeneral}

// ParseScope parses both halves of a scope, then validates the combination.
func ParseScope(version, modality string) (Scope, error) {
	if version == "" {
		version = string(VersionReport)
	}
	if modality == "" {
		modality = string(ModalityGeneral)
	}
	v, err := ParseVersion(version)
	if err != nil {
		return Scope{}, err
	}
	m, err := ParseModality(modality)
	if err != nil {
		return Scope{}, err
	}
	if err := Validate(v, m); err != nil {
		return Scope{}, err
	}
	return Scope{Version: v, Modality: m}, nil
}

func (s Scope) String() string {
	return fmt.Sprintf("%s/%s", s.Version, s.Modality)
}

// Rule is one replacement row from the rule table. Immutable once
// constructed; Original must be non-empty, Replacement defaults to "".
type Rule struct {
	Original    string   `json:"original" yaml:"original"`
	Replacement string   `json:"replacement" yaml:"replacement"`
	IsRegex     bool     `json:"is_regex" yaml:"is_regex"`
	Version     Version  `json:"version" yaml:"version"`
	Modality    Modality `json:"modality" yaml:"modality"`
}
