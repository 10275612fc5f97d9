package rack

import (
	"fmt"
	"strings"
)

// Chunk splits items into consecutive groups of at most size elements. The
// last group holds the remainder, or a full group when len(items) is a
// multiple of size. An empty input yields no groups.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	n := (len(items) + size - 1) / size
	chunks := make([][]T, n)
	for i := range chunks {
		lo := i * size
		hi := min(lo+size, len(items))
		chunks[i] = items[lo:hi:hi]
	}
	return chunks
}

// PartName returns the track name of fragment part (1-based). The track
// name is shortened so the result fits in MaxNameLength characters.
func PartName(track string, part int) string {
	suffix := fmt.Sprintf("_part%d", part)
	if base := []rune(track); len(base)+len(suffix) > MaxNameLength {
		track = strings.TrimRight(string(base[:max(MaxNameLength-len(suffix), 0)]), " .")
	}
	return track + suffix
}

// Paginate splits a Drum rack into fragments of at most MaxControls pads.
// Pads keep their order across fragments and lanes restart at 1 in each
// fragment. Non-drum definitions are returned unchanged as a single element.
func Paginate(def *Definition) []*Definition {
	if def.Kind != KindDrum {
		return []*Definition{def.Clone()}
	}
	var parts []*Definition
	for i, pads := range Chunk(def.Controls, MaxControls) {
		parts = append(parts, fragment(def, i+1, pads))
	}
	return parts
}

// Regroup builds Drum fragments from caller-chosen pad indexes (0-based into
// def.Controls). Pads appear in the order listed. Indexes outside the pad
// list are ignored and groups left empty are dropped.
func Regroup(def *Definition, groups [][]int) ([]*Definition, error) {
	var parts []*Definition
	for _, idx := range groups {
		var pads []Control
		for _, i := range idx {
			if i >= 0 && i < len(def.Controls) {
				pads = append(pads, def.Controls[i])
			}
		}
		if len(pads) == 0 {
			continue
		}
		if len(pads) > MaxControls {
			return nil, &CapacityExceededError{
				Track: PartName(def.TrackName, len(parts)+1),
				Count: len(pads),
				Limit: MaxControls,
			}
		}
		parts = append(parts, fragment(def, len(parts)+1, pads))
	}
	return parts, nil
}

func fragment(def *Definition, part int, pads []Control) *Definition {
	frag := &Definition{
		Kind:      def.Kind,
		TrackName: PartName(def.TrackName, part),
		Controls:  make([]Control, len(pads)),
	}
	for lane, pad := range pads {
		pad.Number = lane + 1
		frag.Controls[lane] = pad
	}
	return frag
}
