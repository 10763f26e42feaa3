package schema

import "fmt"

// Value holds one feature's payload for a single frame. Numeric features use
// Floats (flattened row-major); video features carry an encoded image in
// Image. Exactly one of the two is populated.
type Value struct {
	Floats []float64
	Image  []byte
}

// Clone returns a value whose payload shares no memory with the receiver.
func (v Value) Clone() Value {
	out := Value{}
	if v.Floats != nil {
		out.Floats = make([]float64, len(v.Floats))
		copy(out.Floats, v.Floats)
	}
	if v.Image != nil {
		out.Image = make([]byte, len(v.Image))
		copy(out.Image, v.Image)
	}
	return out
}

// ValidateFrame checks a frame's values against the schema. Every declared
// feature must be present with a conforming payload, and no undeclared
// feature may appear. Failures wrap ErrViolation.
func (s Schema) ValidateFrame(values map[string]Value) error {
	for name, feat := range s {
		value, ok := values[name]
		if !ok {
			return fmt.Errorf("%w: feature %q missing from frame", ErrViolation, name)
		}
		if feat.Numeric() {
			if value.Floats == nil {
				return fmt.Errorf("%w: feature %q expects a numeric payload", ErrViolation, name)
			}
			if got, want := len(value.Floats), feat.FlatLen(); got != want {
				return fmt.Errorf("%w: feature %q has %d elements, schema declares %d", ErrViolation, name, got, want)
			}
			continue
		}
		if len(value.Image) == 0 {
			return fmt.Errorf("%w: feature %q expects an encoded image payload", ErrViolation, name)
		}
	}
	for name := range values {
		if _, ok := s[name]; !ok {
			return fmt.Errorf("%w: frame carries undeclared feature %q", ErrViolation, name)
		}
	}
	return nil
}
