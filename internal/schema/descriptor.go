package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Descriptor is the on-disk feature/source configuration a recording
// invocation references. The source name selects a registered frame source;
// the features block declares the dataset schema.
type Descriptor struct {
	Source   string            `toml:"source"`
	Features map[string]Feature `toml:"features"`
}

// LoadDescriptor parses and validates a TOML feature descriptor.
func LoadDescriptor(path string) (*Descriptor, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feature descriptor: %w", err)
	}
	defer file.Close()

	var desc Descriptor
	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(&desc); err != nil {
		return nil, fmt.Errorf("parse feature descriptor: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

// Validate checks the descriptor's source name and schema.
func (d *Descriptor) Validate() error {
	if strings.TrimSpace(d.Source) == "" {
		return fmt.Errorf("feature descriptor: source is required")
	}
	if err := d.Schema().Validate(); err != nil {
		return fmt.Errorf("feature descriptor: %w", err)
	}
	return nil
}

// Schema returns the declared feature schema.
func (d *Descriptor) Schema() Schema {
	return Schema(d.Features)
}
