package converter

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Selection picks one detected rack for output. Rack is the 1-based index
// in detection order. A nil Channel or empty Port falls back to the
// converter defaults.
type Selection struct {
	Rack    int              `yaml:"rack" json:"rack"`
	Channel *int             `yaml:"channel,omitempty" json:"channel,omitempty"`
	Port    string           `yaml:"port,omitempty" json:"port,omitempty"`
	Parts   []PartAssignment `yaml:"parts,omitempty" json:"parts,omitempty"`
	Groups  [][]int          `yaml:"groups,omitempty" json:"groups,omitempty"`
}

// PartAssignment overrides the destination of one drum fragment. Unset
// fields inherit from the selection.
type PartAssignment struct {
	Part    int    `yaml:"part" json:"part"`
	Channel *int   `yaml:"channel,omitempty" json:"channel,omitempty"`
	Port    string `yaml:"port,omitempty" json:"port,omitempty"`
}

// SelectionFile is the YAML layout accepted by LoadSelections
type SelectionFile struct {
	Selections []Selection `yaml:"selections"`
}

// LoadSelections reads a YAML selection file
func LoadSelections(r io.Reader) ([]Selection, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f SelectionFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode selections: %w", err)
	}
	return f.Selections, nil
}

// WriteSelections writes selections in the format LoadSelections reads
func WriteSelections(w io.Writer, selections []Selection) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(SelectionFile{Selections: selections}); err != nil {
		return fmt.Errorf("encode selections: %w", err)
	}
	return enc.Close()
}

// Channel returns a pointer for use in Selection and PartAssignment literals
func Channel(n int) *int {
	return &n
}
