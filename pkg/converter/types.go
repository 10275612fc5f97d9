// Package converter turns Live projects into Hapax instrument definitions
package converter

import (
	"io"
	"log"

	"github.com/james-see/als2hapax/pkg/rack"
)

// Device interface for device-specific definition rendering
type Device interface {
	Name() string
	Ports() []string
	DefaultPort() string
	ValidPort(port string) bool
	Render(def *rack.Definition, assign rack.ChannelAssignment) (rack.RenderedDefinition, error)
}

// Converter runs the conversion pipeline. It keeps no state between calls
// and can serve concurrent conversions as long as SetDevice is not called
// at the same time.
type Converter struct {
	device         Device
	defaultChannel int
	defaultPort    string
	logger         *log.Logger
}

// Option configures a Converter
type Option func(*Converter)

// WithDefaultChannel sets the channel used for selections that omit one
func WithDefaultChannel(channel int) Option {
	return func(c *Converter) {
		c.defaultChannel = channel
	}
}

// WithDefaultPort sets the port used for selections that omit one
func WithDefaultPort(port string) Option {
	return func(c *Converter) {
		c.defaultPort = port
	}
}

// WithLogger routes diagnostic output to l
func WithLogger(l *log.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a new Converter with the specified device
func New(device Device, opts ...Option) *Converter {
	c := &Converter{
		device:         device,
		defaultChannel: 1,
		logger:         log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetDevice returns the current device
func (c *Converter) GetDevice() Device {
	return c.device
}

// SetDevice sets the device for conversion
func (c *Converter) SetDevice(device Device) {
	c.device = device
}

// defaultAssignment returns the channel assignment for selections without overrides
func (c *Converter) defaultAssignment() rack.ChannelAssignment {
	port := c.defaultPort
	if port == "" {
		port = c.device.DefaultPort()
	}
	return rack.ChannelAssignment{Port: port, Channel: c.defaultChannel}
}
