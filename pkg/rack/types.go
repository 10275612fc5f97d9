// Package rack models the racks extracted from a Live project and the
// numbering stages that prepare them for rendering.
package rack

import "fmt"

// MaxControls is the number of assignable controls (CCs or drum lanes) a
// single definition file can carry.
const MaxControls = 8

// MaxNameLength is the longest track name the Hapax displays
const MaxNameLength = 32

// Kind identifies the shape of a rack
type Kind int

const (
	KindUnknown Kind = iota
	KindInstrument
	KindDrum
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInstrument:
		return "instrument"
	case KindDrum:
		return "drum"
	default:
		return "unknown"
	}
}

// Control is one macro of an Instrument rack or one pad of a Drum rack
type Control struct {
	Label       string // Display name
	SourceIndex int    // 1-based macro position (Instrument only)
	Note        int    // MIDI note number 0-127 (Drum only)
	Number      int    // Assigned CC or lane number, 0 until mapped
}

// Definition is a rack normalized for output. Controls are kept in the
// order they were found in the project.
type Definition struct {
	Kind      Kind
	TrackName string
	Controls  []Control
}

// Clone returns a deep copy of the definition
func (d *Definition) Clone() *Definition {
	c := *d
	c.Controls = append([]Control(nil), d.Controls...)
	return &c
}

// ChannelAssignment is the MIDI destination for one rendered definition
type ChannelAssignment struct {
	Port    string
	Channel int
}

// Validate checks the channel range. Port validity depends on the target
// device and is checked by the caller.
func (a ChannelAssignment) Validate(track string) error {
	if a.Channel < 1 || a.Channel > 16 {
		return &ValidationError{
			Track:  track,
			Field:  "channel",
			Value:  fmt.Sprint(a.Channel),
			Reason: "must be between 1 and 16",
		}
	}
	if a.Port == "" {
		return &ValidationError{Track: track, Field: "port", Reason: "must not be empty"}
	}
	return nil
}

// RenderedDefinition is a finished definition file
type RenderedDefinition struct {
	FileStem string
	Body     string
}
