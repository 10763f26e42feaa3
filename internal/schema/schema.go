package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrViolation marks a frame that does not conform to the declared schema.
// Callers classify with errors.Is.
var ErrViolation = errors.New("schema violation")

// DType enumerates the value kinds a feature may declare.
type DType string

const (
	Float32 DType = "float32"
	Float64 DType = "float64"
	Int64   DType = "int64"
	Video   DType = "video"
)

// Feature describes one named field every frame must carry.
type Feature struct {
	DType DType    `json:"dtype" toml:"dtype"`
	Shape []int    `json:"shape" toml:"shape"`
	Names []string `json:"names,omitempty" toml:"names"`
}

// Numeric reports whether the feature carries a numeric vector payload.
func (f Feature) Numeric() bool {
	switch f.DType {
	case Float32, Float64, Int64:
		return true
	default:
		return false
	}
}

// FlatLen returns the number of scalar elements a conforming value must hold.
func (f Feature) FlatLen() int {
	n := 1
	for _, dim := range f.Shape {
		n *= dim
	}
	return n
}

// Schema maps feature names to their declared type and shape. It is fixed for
// the lifetime of a dataset.
type Schema map[string]Feature

// Validate checks that the schema itself is well formed.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.New("schema declares no features")
	}
	for name, feat := range s {
		if strings.TrimSpace(name) == "" {
			return errors.New("schema contains an unnamed feature")
		}
		switch feat.DType {
		case Float32, Float64, Int64, Video:
		default:
			return fmt.Errorf("feature %q: unsupported dtype %q", name, feat.DType)
		}
		if len(feat.Shape) == 0 {
			return fmt.Errorf("feature %q: shape is empty", name)
		}
		for _, dim := range feat.Shape {
			if dim <= 0 {
				return fmt.Errorf("feature %q: shape dimension %d is not positive", name, dim)
			}
		}
		if feat.DType == Video && len(feat.Shape) != 3 {
			return fmt.Errorf("feature %q: video features require a (H, W, C) shape", name)
		}
		if len(feat.Names) > 0 && feat.Numeric() && len(feat.Names) != feat.FlatLen() {
			return fmt.Errorf("feature %q: %d dimension names for %d elements", name, len(feat.Names), feat.FlatLen())
		}
	}
	return nil
}

// Equal reports deep equality: same feature set, and per feature the same
// dtype, shape, and dimension names.
func (s Schema) Equal(other Schema) bool {
	return s.Diff(other) == ""
}

// Diff returns a human-readable description of the first difference between
// two schemas, or the empty string when they match exactly.
func (s Schema) Diff(other Schema) string {
	for _, name := range s.SortedNames() {
		theirs, ok := other[name]
		if !ok {
			return fmt.Sprintf("feature %q missing", name)
		}
		ours := s[name]
		if ours.DType != theirs.DType {
			return fmt.Sprintf("feature %q: dtype %q != %q", name, ours.DType, theirs.DType)
		}
		if !equalInts(ours.Shape, theirs.Shape) {
			return fmt.Sprintf("feature %q: shape %v != %v", name, ours.Shape, theirs.Shape)
		}
		if !equalStrings(ours.Names, theirs.Names) {
			return fmt.Sprintf("feature %q: dimension names differ", name)
		}
	}
	for name := range other {
		if _, ok := s[name]; !ok {
			return fmt.Sprintf("unexpected feature %q", name)
		}
	}
	return ""
}

// SortedNames returns all feature names in lexical order.
func (s Schema) SortedNames() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// VideoNames returns the names of video features in lexical order.
func (s Schema) VideoNames() []string {
	var names []string
	for name, feat := range s {
		if feat.DType == Video {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// NumericNames returns the names of numeric features in lexical order.
func (s Schema) NumericNames() []string {
	var names []string
	for name, feat := range s {
		if feat.Numeric() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
