// Package devices provides device-specific definition renderers
package devices

import (
	"bytes"
	"embed"
	"fmt"
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/james-see/als2hapax/pkg/rack"
)

// Hapax output ports
const (
	PortA    = "A"
	PortB    = "B"
	PortC    = "C"
	PortD    = "D"
	PortUSBD = "USBD" // USB device port
	PortUSBH = "USBH" // USB host port
)

var hapaxPorts = []string{PortA, PortB, PortC, PortD, PortUSBD, PortUSBH}

//go:embed templates/*.tmpl
var templateFS embed.FS

var hapaxTemplates = template.Must(
	template.New("hapax").Funcs(sprig.TxtFuncMap()).ParseFS(templateFS, "templates/*.tmpl"))

// labelNewlines keeps each control on its own line
var labelNewlines = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// Hapax renders Squarp Hapax instrument definition files
type Hapax struct{}

// NewHapax creates a new Hapax renderer
func NewHapax() *Hapax {
	return &Hapax{}
}

// Name returns the device name
func (h *Hapax) Name() string {
	return "Squarp Hapax"
}

// Ports returns the valid OUTPORT values
func (h *Hapax) Ports() []string {
	return slices.Clone(hapaxPorts)
}

// DefaultPort returns the port used when the caller does not pick one
func (h *Hapax) DefaultPort() string {
	return PortUSBD
}

type definitionView struct {
	TrackName string
	Port      string
	Channel   int
	Controls  []rack.Control
}

// Render formats a numbered definition. It does no numbering itself and
// rejects definitions whose numbers do not run 1..N.
func (h *Hapax) Render(def *rack.Definition, assign rack.ChannelAssignment) (rack.RenderedDefinition, error) {
	var name string
	switch def.Kind {
	case rack.KindInstrument:
		name = "poly.tmpl"
	case rack.KindDrum:
		name = "drum.tmpl"
	default:
		return rack.RenderedDefinition{}, &rack.RenderError{Track: def.TrackName, Reason: "unknown rack kind"}
	}
	if err := checkNumbering(def); err != nil {
		return rack.RenderedDefinition{}, err
	}

	view := definitionView{
		TrackName: def.TrackName,
		Port:      assign.Port,
		Channel:   assign.Channel,
		Controls:  make([]rack.Control, len(def.Controls)),
	}
	for i, c := range def.Controls {
		c.Label = labelNewlines.Replace(c.Label)
		view.Controls[i] = c
	}

	var buf bytes.Buffer
	if err := hapaxTemplates.ExecuteTemplate(&buf, name, view); err != nil {
		return rack.RenderedDefinition{}, fmt.Errorf("execute template %q: %w", name, err)
	}
	return rack.RenderedDefinition{FileStem: def.TrackName, Body: buf.String()}, nil
}

func checkNumbering(def *rack.Definition) error {
	if len(def.Controls) > rack.MaxControls {
		return &rack.RenderError{
			Track:  def.TrackName,
			Reason: fmt.Sprintf("%d controls exceed %d", len(def.Controls), rack.MaxControls),
		}
	}
	for i, c := range def.Controls {
		if c.Number != i+1 {
			return &rack.RenderError{
				Track:  def.TrackName,
				Reason: fmt.Sprintf("control %d is numbered %d, want %d", i+1, c.Number, i+1),
			}
		}
		if def.Kind == rack.KindDrum && (c.Note < 0 || c.Note > 127) {
			return &rack.RenderError{
				Track:  def.TrackName,
				Reason: fmt.Sprintf("lane %d has note %d outside 0-127", c.Number, c.Note),
			}
		}
	}
	return nil
}

// ValidPort reports whether port is a Hapax output
func (h *Hapax) ValidPort(port string) bool {
	return slices.Contains(hapaxPorts, port)
}
