package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/james-see/als2hapax/pkg/als"
	"github.com/james-see/als2hapax/pkg/rack"
	"gitlab.com/gomidi/midi/v2"
)

// Format represents a file format
type Format string

const (
	FormatALS     Format = "als"
	FormatZip     Format = "zip"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".als":
		return FormatALS
	case ".zip":
		return FormatZip
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	switch {
	case data[0] == 0x1f && data[1] == 0x8b:
		return FormatALS
	case string(data[:4]) == "PK\x03\x04":
		return FormatZip
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("<?xml")):
		return FormatALS
	default:
		return FormatUnknown
	}
}

// ProjectName derives the project name from an input path
func ProjectName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ControlSummary describes one macro or pad of a detected rack
type ControlSummary struct {
	Label       string `json:"label"`
	SourceIndex int    `json:"source_index,omitempty"`
	Note        *int   `json:"note,omitempty"`
	NoteName    string `json:"note_name,omitempty"`
}

// RackSummary describes a detected rack
type RackSummary struct {
	Index     int              `json:"index"`
	Kind      string           `json:"kind"`
	TrackName string           `json:"track_name"`
	Controls  []ControlSummary `json:"controls"`
	Files     int              `json:"files"`
}

// Inspect lists the racks found in project data in detection order. The
// index of each summary is the value to use in Selection.Rack.
func (c *Converter) Inspect(data []byte) ([]RackSummary, error) {
	racks, err := c.detect(data)
	if err != nil {
		return nil, err
	}

	summaries := make([]RackSummary, 0, len(racks))
	for i, def := range racks {
		s := RackSummary{
			Index:     i + 1,
			Kind:      def.Kind.String(),
			TrackName: def.TrackName,
			Controls:  make([]ControlSummary, 0, len(def.Controls)),
		}
		for _, ctl := range def.Controls {
			cs := ControlSummary{Label: ctl.Label, SourceIndex: ctl.SourceIndex}
			if def.Kind == rack.KindDrum {
				note := ctl.Note
				cs.Note = &note
				cs.NoteName = midi.Note(uint8(note)).String()
			}
			s.Controls = append(s.Controls, cs)
		}
		switch {
		case len(def.Controls) == 0:
		case def.Kind == rack.KindDrum:
			s.Files = (len(def.Controls) + rack.MaxControls - 1) / rack.MaxControls
		default:
			s.Files = 1
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Convert runs the whole pipeline over project data. Selections are
// validated before anything is rendered; an empty list selects every
// detected rack with the default assignment. Racks without controls are
// skipped.
func (c *Converter) Convert(data []byte, project string, selections []Selection) (*Archive, error) {
	racks, err := c.detect(data)
	if err != nil {
		return nil, err
	}
	if len(selections) == 0 {
		for i := range racks {
			selections = append(selections, Selection{Rack: i + 1})
		}
	}

	jobs, err := c.plan(racks, selections)
	if err != nil {
		return nil, err
	}

	rendered := make([]rack.RenderedDefinition, 0, len(jobs))
	for _, j := range jobs {
		r, err := c.device.Render(j.def, j.assign)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", j.def.TrackName, err)
		}
		c.logger.Printf("rendered %s (%s, %d controls, %s ch %d)",
			r.FileStem, j.def.Kind, len(j.def.Controls), j.assign.Port, j.assign.Channel)
		rendered = append(rendered, r)
	}

	archive := Package(project, rendered)
	c.logger.Printf("packaged %d definitions into %s", len(archive.Members), archive.Name)
	return archive, nil
}

// ConvertFile converts the project at inputPath and writes the archive to
// outputPath. An empty outputPath writes next to the input using the
// archive name. It returns the path written.
func (c *Converter) ConvertFile(inputPath, outputPath string, selections []Selection) (string, error) {
	if f := DetectFormat(inputPath); f != FormatALS && f != FormatUnknown {
		return "", fmt.Errorf("unsupported input format: %s", f)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}

	archive, err := c.Convert(data, ProjectName(inputPath), selections)
	if err != nil {
		return "", fmt.Errorf("conversion failed: %w", err)
	}
	if len(archive.Members) == 0 {
		return "", errors.New("conversion produced no definitions")
	}

	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(inputPath), archive.Name)
	}
	out, err := archive.Bytes()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	return outputPath, nil
}

// detect loads the project and collects its racks with sanitized track names
func (c *Converter) detect(data []byte) ([]*rack.Definition, error) {
	tree, err := als.Load(data)
	if err != nil {
		return nil, err
	}

	var racks []*rack.Definition
	for def := range als.Racks(tree) {
		def.TrackName = SanitizeName(def.TrackName)
		racks = append(racks, def)
	}
	c.logger.Printf("detected %d racks", len(racks))
	return racks, nil
}

type job struct {
	def    *rack.Definition
	assign rack.ChannelAssignment
}

// plan validates every selection and numbers the selected racks. Nothing is
// rendered until the whole request has passed.
func (c *Converter) plan(racks []*rack.Definition, selections []Selection) ([]job, error) {
	var jobs []job
	for _, sel := range selections {
		if sel.Rack < 1 || sel.Rack > len(racks) {
			return nil, &rack.ValidationError{
				Track:  fmt.Sprintf("rack %d", sel.Rack),
				Field:  "rack",
				Value:  strconv.Itoa(sel.Rack),
				Reason: fmt.Sprintf("project has %d racks", len(racks)),
			}
		}
		def := racks[sel.Rack-1]

		assign, err := c.assignment(def.TrackName, sel.Channel, sel.Port, c.defaultAssignment())
		if err != nil {
			return nil, err
		}

		if len(def.Controls) == 0 {
			c.logger.Printf("skipping %s: no controls", def.TrackName)
			continue
		}

		switch def.Kind {
		case rack.KindInstrument:
			if len(sel.Parts) > 0 || len(sel.Groups) > 0 {
				return nil, &rack.ValidationError{
					Track:  def.TrackName,
					Field:  "parts",
					Reason: "only drum racks are split into parts",
				}
			}
			mapped, err := rack.MapControls(def)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, job{def: mapped, assign: assign})

		case rack.KindDrum:
			fragments := rack.Paginate(def)
			if len(sel.Groups) > 0 {
				if fragments, err = rack.Regroup(def, sel.Groups); err != nil {
					return nil, err
				}
			}
			partJobs, err := c.planParts(def.TrackName, fragments, sel.Parts, assign)
			if err != nil {
				return nil, err
			}
			jobs = append(jobs, partJobs...)
		}
	}
	return jobs, nil
}

func (c *Converter) planParts(track string, fragments []*rack.Definition, parts []PartAssignment, base rack.ChannelAssignment) ([]job, error) {
	overrides := make(map[int]PartAssignment, len(parts))
	for _, p := range parts {
		if p.Part < 1 || p.Part > len(fragments) {
			return nil, &rack.ValidationError{
				Track:  track,
				Field:  "part",
				Value:  strconv.Itoa(p.Part),
				Reason: fmt.Sprintf("rack has %d parts", len(fragments)),
			}
		}
		overrides[p.Part] = p
	}

	jobs := make([]job, 0, len(fragments))
	for i, frag := range fragments {
		assign := base
		if p, ok := overrides[i+1]; ok {
			var err error
			if assign, err = c.assignment(frag.TrackName, p.Channel, p.Port, base); err != nil {
				return nil, err
			}
		}
		jobs = append(jobs, job{def: frag, assign: assign})
	}
	return jobs, nil
}

// assignment resolves optional channel and port values against base and validates the result
func (c *Converter) assignment(track string, channel *int, port string, base rack.ChannelAssignment) (rack.ChannelAssignment, error) {
	assign := base
	if channel != nil {
		assign.Channel = *channel
	}
	if port != "" {
		assign.Port = port
	}
	if err := assign.Validate(track); err != nil {
		return rack.ChannelAssignment{}, err
	}
	if !c.device.ValidPort(assign.Port) {
		return rack.ChannelAssignment{}, &rack.ValidationError{
			Track:  track,
			Field:  "port",
			Value:  assign.Port,
			Reason: fmt.Sprintf("%s outputs are %s", c.device.Name(), strings.Join(c.device.Ports(), ", ")),
		}
	}
	return assign, nil
}
