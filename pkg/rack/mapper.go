package rack

// MapControls assigns CC numbers to an Instrument rack's macros in order,
// starting at 1. The input is not modified. Drum racks are returned as a
// copy unchanged; their lanes are numbered by Paginate.
func MapControls(def *Definition) (*Definition, error) {
	out := def.Clone()
	if def.Kind != KindInstrument {
		return out, nil
	}
	if len(out.Controls) > MaxControls {
		return nil, &CapacityExceededError{
			Track: def.TrackName,
			Count: len(out.Controls),
			Limit: MaxControls,
		}
	}
	for i := range out.Controls {
		out.Controls[i].Number = i + 1
	}
	return out, nil
}
