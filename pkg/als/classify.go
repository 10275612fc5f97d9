package als

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/james-see/als2hapax/pkg/rack"
)

// Shape is the result of classifying a node
type Shape int

const (
	ShapeUnrecognized Shape = iota
	ShapeInstrument
	ShapeDrum
)

// String returns the shape name
func (s Shape) String() string {
	switch s {
	case ShapeInstrument:
		return "instrument"
	case ShapeDrum:
		return "drum"
	default:
		return "unrecognized"
	}
}

// Kind converts the shape to a rack kind
func (s Shape) Kind() rack.Kind {
	switch s {
	case ShapeInstrument:
		return rack.KindInstrument
	case ShapeDrum:
		return rack.KindDrum
	default:
		return rack.KindUnknown
	}
}

const (
	macroControlsPrefix = "MacroControls."
	macroNamesPrefix    = "MacroDisplayNames."
	instrumentChain     = "MidiToAudioDeviceChain"
)

// Classify decides whether a node is a Drum rack, an Instrument rack or
// neither. A Drum rack has a Branches list in which every chain listens to
// exactly one note, or an empty Branches list next to return chains. An
// Instrument rack exposes a bank of macro controls and has at least one
// chain, every one of them turning MIDI into audio. Effect racks carry
// macros too but their chains run audio to audio or MIDI to MIDI.
// Drum racks also carry macros, so the drum shape is checked first.
func Classify(n *Node) Shape {
	if _, ok := padNotes(n); ok {
		return ShapeDrum
	}
	if hasMacros(n) && instrumentChains(n) {
		return ShapeInstrument
	}
	return ShapeUnrecognized
}

func hasMacros(n *Node) bool {
	for _, c := range n.Children {
		if strings.HasPrefix(c.Name, macroControlsPrefix) {
			return true
		}
	}
	return false
}

// instrumentChains reports whether n has chains and all of them are instrument chains
func instrumentChains(n *Node) bool {
	branches := n.Child("Branches")
	if branches == nil || len(branches.Children) == 0 {
		return false
	}
	for _, b := range branches.Children {
		if b.Path("DeviceChain", instrumentChain) == nil {
			return false
		}
	}
	return true
}

// wrappedDrums returns the Drum racks of an Instrument rack used only as a
// holder: every chain holds a single Drum rack and no macro was renamed.
// It returns nil for any other rack.
func wrappedDrums(n *Node) []*Node {
	for _, c := range instrumentMacros(n) {
		if c.Label != defaultMacroLabel(c.SourceIndex) {
			return nil
		}
	}
	var drums []*Node
	for _, b := range n.Child("Branches").Children {
		devices := b.Path("DeviceChain", instrumentChain, "Devices")
		if devices == nil || len(devices.Children) != 1 || Classify(devices.Children[0]) != ShapeDrum {
			return nil
		}
		drums = append(drums, devices.Children[0])
	}
	return drums
}

// Racks yields a definition for every rack-shaped node in depth-first
// document order. Racks nested inside other racks are yielded too.
func Racks(t *Tree) iter.Seq[*rack.Definition] {
	return func(yield func(*rack.Definition) bool) {
		w := &walker{yield: yield}
		for _, root := range t.Roots {
			if !w.walk(root, "") {
				return
			}
		}
	}
}

type walker struct {
	yield func(*rack.Definition) bool
	racks int
}

func (w *walker) walk(n *Node, track string) bool {
	if isTrack(n) {
		track = trackName(n)
	}

	shape := Classify(n)
	if shape == ShapeInstrument {
		// the wrapped kits take the track name, not the chain names
		if drums := wrappedDrums(n); drums != nil {
			for _, d := range drums {
				if !w.walk(d, track) {
					return false
				}
			}
			return true
		}
	}
	if shape != ShapeUnrecognized {
		w.racks++
		def := &rack.Definition{Kind: shape.Kind(), TrackName: w.name(n, track)}
		if shape == ShapeDrum {
			def.Controls = drumPads(n)
		} else {
			def.Controls = instrumentMacros(n)
		}
		if !w.yield(def) {
			return false
		}
	}

	for _, c := range n.Children {
		if !w.walk(c, track) {
			return false
		}
	}
	return true
}

func (w *walker) name(n *Node, track string) string {
	if track != "" {
		return track
	}
	if own := strings.TrimSpace(n.Path("UserName").Value()); own != "" {
		return own
	}
	return fmt.Sprintf("Track %d", w.racks)
}

// isTrack reports whether n looks like a track: a named node owning a device chain
func isTrack(n *Node) bool {
	return n.Path("Name", "EffectiveName") != nil && n.Child("DeviceChain") != nil
}

func trackName(n *Node) string {
	if name := strings.TrimSpace(n.Path("Name", "EffectiveName").Value()); name != "" {
		return name
	}
	return strings.TrimSpace(n.Path("Name", "UserName").Value())
}

func instrumentMacros(n *Node) []rack.Control {
	count := 0
	for _, c := range n.Children {
		if strings.HasPrefix(c.Name, macroControlsPrefix) {
			count++
		}
	}
	if v := n.Child("NumVisibleMacroControls"); v != nil {
		if visible, err := strconv.Atoi(v.Value()); err == nil && visible >= 0 {
			count = visible
		}
	}

	controls := make([]rack.Control, count)
	for i := range controls {
		label := defaultMacroLabel(i + 1)
		if dn := n.Child(macroNamesPrefix + strconv.Itoa(i)); dn != nil {
			if name := strings.TrimSpace(dn.Value()); name != "" {
				label = name
			}
		}
		controls[i] = rack.Control{Label: label, SourceIndex: i + 1}
	}
	return controls
}

func defaultMacroLabel(index int) string {
	return fmt.Sprintf("Macro %d", index)
}

func drumPads(n *Node) []rack.Control {
	notes, _ := padNotes(n)
	branches := n.Child("Branches").Children
	controls := make([]rack.Control, len(branches))
	for i, b := range branches {
		controls[i] = rack.Control{Label: padLabel(b, notes[i]), Note: notes[i]}
	}
	return controls
}

// padNotes returns the note of every chain under Branches, or false when the
// node does not have the one-note-per-chain shape.
func padNotes(n *Node) ([]int, bool) {
	branches := n.Child("Branches")
	if branches == nil {
		return nil, false
	}
	if len(branches.Children) == 0 {
		// only drum racks have return chains
		return nil, n.Child("ReturnBranches") != nil
	}
	notes := make([]int, len(branches.Children))
	for i, b := range branches.Children {
		found := collect(b, "ReceivingNote")
		if len(found) != 1 {
			return nil, false
		}
		note, ok := decodeNote(found[0].Value())
		if !ok {
			return nil, false
		}
		notes[i] = note
	}
	return notes, true
}

// decodeNote converts Live's stored receiving note (128 minus the MIDI
// note, so 92 is C1/36) to a MIDI note number.
func decodeNote(v string) (int, bool) {
	stored, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	note := 128 - stored
	if note < 0 || note > 127 {
		return 0, false
	}
	return note, true
}

// collect finds descendants named name without entering nested device chains
func collect(n *Node, name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == "DeviceChain" {
			continue
		}
		if c.Name == name {
			out = append(out, c)
		}
		out = append(out, collect(c, name)...)
	}
	return out
}

func padLabel(b *Node, note int) string {
	if name := strings.TrimSpace(b.Path("Name", "UserName").Value()); name != "" {
		return name
	}
	if name := strings.TrimSpace(b.Path("Name", "EffectiveName").Value()); name != "" {
		return name
	}
	if gm, ok := PercussionName(note); ok {
		return fmt.Sprintf("%d %s", note, gm)
	}
	return strconv.Itoa(note)
}
