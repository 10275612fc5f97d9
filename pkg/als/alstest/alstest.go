// Package alstest builds Live project documents for tests.
package alstest

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"html"
	"strings"
)

// Pad describes one drum chain. Note is the MIDI note, stored inverted as Live does.
type Pad struct {
	Name          string
	EffectiveName string
	Note          int
}

// Project wraps tracks in the Live document skeleton
func Project(tracks ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<Ableton MajorVersion="5" MinorVersion="11.0_433" Creator="Ableton Live 11.3">`)
	b.WriteString(`<LiveSet><Tracks>`)
	for _, t := range tracks {
		b.WriteString(t)
	}
	b.WriteString(`</Tracks></LiveSet></Ableton>`)
	return b.String()
}

// MidiTrack builds a MIDI track holding the given devices
func MidiTrack(name string, devices ...string) string {
	return fmt.Sprintf(`<MidiTrack Id="%d"><Name><EffectiveName Value="%s"/><UserName Value="%s"/></Name>`+
		`<DeviceChain><DeviceChain><Devices>%s</Devices></DeviceChain></DeviceChain></MidiTrack>`,
		len(name), attr(name), attr(name), strings.Join(devices, ""))
}

// AudioTrack builds a track with an EQ followed by the given devices
func AudioTrack(name string, devices ...string) string {
	return fmt.Sprintf(`<AudioTrack Id="0"><Name><EffectiveName Value="%s"/></Name>`+
		`<DeviceChain><DeviceChain><Devices><Eq8 Id="0"/>%s</Devices></DeviceChain></DeviceChain></AudioTrack>`,
		attr(name), strings.Join(devices, ""))
}

// InstrumentRack builds an Instrument rack with the given macro display
// names. An empty name keeps Live's default. When visible is positive it is
// written as NumVisibleMacroControls and 16 macro slots are emitted, as
// Live 11 does. Without chains the rack gets one empty chain.
func InstrumentRack(names []string, visible int, chains ...string) string {
	if len(chains) == 0 {
		chains = []string{""}
	}
	return groupDevice("InstrumentGroupDevice", "InstrumentBranch", "MidiToAudioDeviceChain", names, visible, chains)
}

// AudioEffectRack builds an Audio Effect rack with the given macro names
// and one chain per entry of chains.
func AudioEffectRack(names []string, chains ...string) string {
	return groupDevice("AudioEffectGroupDevice", "AudioEffectBranch", "AudioToAudioDeviceChain", names, 0, chains)
}

// MidiEffectRack builds a MIDI Effect rack with the given macro names
// and one chain per entry of chains.
func MidiEffectRack(names []string, chains ...string) string {
	return groupDevice("MidiEffectGroupDevice", "MidiEffectBranch", "MidiToMidiDeviceChain", names, 0, chains)
}

func groupDevice(device, branch, chain string, names []string, visible int, chains []string) string {
	slots := len(names)
	var b strings.Builder
	fmt.Fprintf(&b, `<%s Id="0"><UserName Value=""/>`, device)
	if visible > 0 {
		slots = 16
		fmt.Fprintf(&b, `<NumVisibleMacroControls Value="%d"/>`, visible)
	}
	for i := 0; i < slots; i++ {
		name := fmt.Sprintf("Macro %d", i+1)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		fmt.Fprintf(&b, `<MacroControls.%d><Manual Value="0"/></MacroControls.%d>`, i, i)
		fmt.Fprintf(&b, `<MacroDisplayNames.%d Value="%s"/>`, i, attr(name))
	}
	b.WriteString(`<Branches>`)
	for _, c := range chains {
		fmt.Fprintf(&b, `<%s Id="0"><Name><EffectiveName Value="Chain"/></Name>`, branch)
		fmt.Fprintf(&b, `<DeviceChain><%s><Devices>%s</Devices></%s></DeviceChain>`, chain, c, chain)
		b.WriteString(`<ZoneSettings><KeyRange><Min Value="0"/><Max Value="127"/></KeyRange></ZoneSettings>`)
		fmt.Fprintf(&b, `</%s>`, branch)
	}
	fmt.Fprintf(&b, `</Branches></%s>`, device)
	return b.String()
}

// DrumRack builds a Drum rack with one chain per pad
func DrumRack(pads ...Pad) string {
	var b strings.Builder
	b.WriteString(`<DrumGroupDevice Id="0"><UserName Value=""/>`)
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, `<MacroControls.%d><Manual Value="0"/></MacroControls.%d>`, i, i)
		fmt.Fprintf(&b, `<MacroDisplayNames.%d Value="Macro %d"/>`, i, i+1)
	}
	b.WriteString(`<Branches>`)
	for _, p := range pads {
		fmt.Fprintf(&b, `<DrumBranch Id="0"><Name><EffectiveName Value="%s"/><UserName Value="%s"/></Name>`,
			attr(p.EffectiveName), attr(p.Name))
		b.WriteString(`<DeviceChain><MidiToAudioDeviceChain><Devices><OriginalSimpler Id="0"/></Devices></MidiToAudioDeviceChain></DeviceChain>`)
		fmt.Fprintf(&b, `<BranchInfo><ReceivingNote Value="%d"/><SendingNote Value="60"/></BranchInfo>`, 128-p.Note)
		b.WriteString(`</DrumBranch>`)
	}
	b.WriteString(`</Branches><ReturnBranches/></DrumGroupDevice>`)
	return b.String()
}

// NumberedPads returns n named pads on consecutive notes starting at first
func NumberedPads(first, n int) []Pad {
	pads := make([]Pad, n)
	for i := range pads {
		pads[i] = Pad{Name: fmt.Sprintf("Pad %d", i+1), Note: first + i}
	}
	return pads
}

// Gzip compresses a document the way Live stores it
func Gzip(doc string) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte(doc))
	_ = zw.Close()
	return buf.Bytes()
}

func attr(s string) string {
	return html.EscapeString(s)
}
