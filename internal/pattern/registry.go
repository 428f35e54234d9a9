package pattern

import (
	"fmt"
	"sort"

	"github.com/dlclark/regexp2"
)

// Catalog pattern names.
const (
	SpineDot1        = "SPINE_DOT_1"
	SpineDot2        = "SPINE_DOT_2"
	SpineDot3        = "SPINE_DOT_3"
	SpineDot4        = "SPINE_DOT_4"
	SpineDot5        = "SPINE_DOT_5"
	SpineDot6        = "SPINE_DOT_6"
	SpineDot7        = "SPINE_DOT_7"
	DiskRange        = "DISK_RANGE"
	SpineRange       = "SPINE_RANGE"
	Cervical         = "CERVICAL"
	Thoracic         = "THORACIC"
	ThoracicVertebra = "THORACIC_VERTEBRA"
	ThoracicSpecific = "THORACIC_SPECIFIC"
	Sacral           = "SACRAL"
	DotSeparator     = "DOT_SEPARATOR"
	Measurement      = "MEASUREMENT"
	Percentage       = "PERCENTAGE"
	Volume           = "VOLUME"
	RibAbbreviation  = "RIB_ABBREVIATION"
)

// catalogEntry describes one compiled-in pattern.
type catalogEntry struct {
	expr string
	opts regexp2.RegexOptions
}

// The fixed catalog. Several entries carry negative lookahead, which is why
// the registry compiles with regexp2 rather than the stdlib RE2 engine.
// Everything compiles case-insensitive except PERCENTAGE and RIB_ABBREVIATION.
var catalog = map[string]catalogEntry{
	SpineDot1: {`([^颈胸腰骶尾])(\d{1,2})[、|,|，|及|和](\d{1,2})([颈|胸|腰|骶|尾])(?!.*段)`, regexp2.IgnoreCase},
	SpineDot2: {`([^颈胸腰骶尾/])(\d{1,2})[、|,|，|及|和]([颈|胸|腰|骶|尾])(\d{1,2})(?!.*段)`, regexp2.IgnoreCase},
	SpineDot3: {`([^颈胸腰骶尾])(\d{1,2})(/\d{1,2})[、|,|，|及|和](\d{1,2})(/\d{1,2})([颈|胸|腰|骶|尾])`, regexp2.IgnoreCase},
	SpineDot4: {`([^颈胸腰骶尾])(\d{1,2})(/\d{1,2})[、|,|，|及|和]([颈|胸|腰|骶|尾])(\d{1,2})(/\d{1,2})`, regexp2.IgnoreCase},
	SpineDot5: {`([腰|胸|颈|骶|尾|c|l|t|s])(\d{1,2})(/\d{1,2})?[、|,|，|及|和](\d{1,2})`, regexp2.IgnoreCase},
	SpineDot6: {`([腰|胸|颈|骶|尾|c|l|t|s]\d{1,2})(/\d{1,2})?[,|，]([腰|胸|颈|骶|尾|c|l|t|s]\d{1,2})`, regexp2.IgnoreCase},
	SpineDot7: {`([腰|胸|颈|骶|尾|c|l|t|s]\d{1,2})[、|,|，]([腰|胸|颈|骶|尾|c|l|t|s]\d{1,2})(椎体)`, regexp2.IgnoreCase},

	DiskRange:  {`([胸|腰|颈|骶|c|t|l|s])(\d{1,2})/([胸|腰|颈|骶|c|t|l|s])?(\d{1,2})-([胸|腰|颈|骶|c|t|l|s])?(\d{1,2})/([胸|腰|颈|骶|c|t|l|s])?(\d{1,2})(?!.*段)`, regexp2.IgnoreCase},
	SpineRange: {`([胸|腰|颈|骶|c|t|l|s])(\d{1,2})-([胸|腰|颈|骶|c|t|l|s])?(\d{1,2})(椎体)?(?!.*段)`, regexp2.IgnoreCase},

	Cervical:         {`(^|[^a-zA-Z])C([1-8])(?!.*段)`, regexp2.IgnoreCase},
	Thoracic:         {`(^|[^a-zA-Z长短低高等脂水])T(\d{1,2})(?!.*[段_信号压黑为呈示a-zA-Z])`, regexp2.IgnoreCase},
	ThoracicVertebra: {`(^|[^a-zA-Z])T(\d{1,2})椎`, regexp2.IgnoreCase},
	ThoracicSpecific: {`(^|[^a-zA-Z])T([3-9]|10|11|12)(?!.*[MN])`, regexp2.IgnoreCase},
	Sacral:           {`(^|[^a-zA-Z])S([1-5])(?![段a-zA-Z0-9])`, regexp2.IgnoreCase},

	DotSeparator: {`([a-zA-Z一-龥])\.([a-zA-Z一-龥])`, regexp2.IgnoreCase},

	Measurement: {`(\d+(\.\d+)?(?:mm|cm|m|\*|×))(?![a-zA-Z])|(\d+(\.\d+)?(?:毫米|米))`, regexp2.IgnoreCase},
	Percentage:  {`[\d\.]{1,}(?:%|％)`, regexp2.None},
	Volume:      {`(\d+(\.\d+)?(?:ml|毫升))(?![a-zA-Z])`, regexp2.IgnoreCase},

	RibAbbreviation: {`(双侧|双|[左右]|)(第)([\d、，]+)(?:-(\d+))?([前后腋]?)(肋骨?)([^，。、\s]+)`, regexp2.None},
}

// UnknownPatternError is returned by Get for a name outside the catalog.
type UnknownPatternError struct {
	Name string
}

func (e *UnknownPatternError) Error() string {
	return fmt.Sprintf("unknown pattern: %q", e.Name)
}

// InvalidPatternError is returned by Compile for a malformed expression.
type InvalidPatternError struct {
	Expr string
	Err  error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %v", e.Expr, e.Err)
}

func (e *InvalidPatternError) Unwrap() error { return e.Err }

// Registry holds the named, precompiled expressions shared by every
// component. It is immutable after construction and safe for unsynchronized
// concurrent reads; reconfiguration means building a new instance.
type Registry struct {
	patterns map[string]*regexp2.Regexp
}

// NewRegistry compiles the fixed catalog.
func NewRegistry() *Registry {
	patterns := make(map[string]*regexp2.Regexp, len(catalog))
	for name, entry := range catalog {
		patterns[name] = regexp2.MustCompile(entry.expr, entry.opts)
	}
	return &Registry{patterns: patterns}
}

// Get returns the compiled pattern for a catalog name.
func (r *Registry) Get(name string) (*regexp2.Regexp, error) {
	re, ok := r.patterns[name]
	if !ok {
		return nil, &UnknownPatternError{Name: name}
	}
	return re, nil
}

// MustGet is Get for the fixed catalog; it panics on an unknown name and is
// meant for compiled-in references only.
func (r *Registry) MustGet(name string) *regexp2.Regexp {
	re, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return re
}

// Compile compiles a configuration-sourced expression case-insensitive.
func (r *Registry) Compile(expr string) (*regexp2.Regexp, error) {
	re, err := regexp2.Compile(expr, regexp2.IgnoreCase)
	if err != nil {
		return nil, &InvalidPatternError{Expr: expr, Err: err}
	}
	return re, nil
}

// Names returns the catalog pattern names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.patterns))
	for name := range r.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
