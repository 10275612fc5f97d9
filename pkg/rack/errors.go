package rack

import "fmt"

// CapacityExceededError reports a rack or pad group with more controls than
// a definition file can hold.
type CapacityExceededError struct {
	Track string
	Count int
	Limit int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("track %q: %d controls exceed the limit of %d", e.Track, e.Count, e.Limit)
}

// ValidationError reports caller-supplied configuration outside the allowed range
type ValidationError struct {
	Track  string
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("track %q: invalid %s: %s", e.Track, e.Field, e.Reason)
	}
	return fmt.Sprintf("track %q: invalid %s %s: %s", e.Track, e.Field, e.Value, e.Reason)
}

// RenderError means a definition reached the renderer without valid
// numbering. It always indicates a bug in an earlier stage.
type RenderError struct {
	Track  string
	Reason string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("track %q: cannot render: %s", e.Track, e.Reason)
}
