package converter

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/james-see/als2hapax/pkg/als"
	"github.com/james-see/als2hapax/pkg/als/alstest"
	"github.com/james-see/als2hapax/pkg/converter/devices"
	"github.com/james-see/als2hapax/pkg/rack"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		expected Format
	}{
		{"song.als", FormatALS},
		{"SONG.ALS", FormatALS},
		{"song_hapax.zip", FormatZip},
		{"song.txt", FormatUnknown},
		{"song", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			result := DetectFormat(tt.filename)
			if result != tt.expected {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.filename, result, tt.expected)
			}
		})
	}
}

func TestDetectFormatFromContent(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"gzip project", alstest.Gzip(alstest.Project()), FormatALS},
		{"plain xml", []byte(`<?xml version="1.0"?><Ableton/>`), FormatALS},
		{"zip archive", []byte("PK\x03\x04rest"), FormatZip},
		{"short data", []byte{0x1f}, FormatUnknown},
		{"other", []byte("MThd\x00\x00\x00\x06"), FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectFormatFromContent(tt.data)
			if result != tt.expected {
				t.Errorf("DetectFormatFromContent() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestConverterNew(t *testing.T) {
	device := devices.NewHapax()
	conv := New(device)

	if conv == nil {
		t.Fatal("New() returned nil")
	}
	if conv.GetDevice() != device {
		t.Error("GetDevice() did not return the expected device")
	}
	if got := conv.defaultAssignment(); got != (rack.ChannelAssignment{Port: "USBD", Channel: 1}) {
		t.Errorf("defaultAssignment() = %+v", got)
	}
}

func TestConverterSetDevice(t *testing.T) {
	device1 := devices.NewHapax()
	device2 := devices.NewHapax()

	conv := New(device1)
	conv.SetDevice(device2)
	if conv.GetDevice() != device2 {
		t.Error("GetDevice() should return device2 after SetDevice")
	}
}

func project(tracks ...string) []byte {
	return alstest.Gzip(alstest.Project(tracks...))
}

func convert(t *testing.T, data []byte, selections []Selection, opts ...Option) *Archive {
	t.Helper()
	archive, err := New(devices.NewHapax(), opts...).Convert(data, "Live Set", selections)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	return archive
}

func memberNames(a *Archive) []string {
	var names []string
	for _, m := range a.Members {
		names = append(names, m.Name)
	}
	return names
}

func TestConvertInstrument(t *testing.T) {
	data := project(alstest.MidiTrack("Lead", alstest.InstrumentRack([]string{"Cutoff", "", "Drive"}, 0)))

	archive := convert(t, data, []Selection{{Rack: 1, Channel: Channel(4)}})

	if archive.Name != "Live Set_hapax.zip" {
		t.Errorf("archive name = %q", archive.Name)
	}
	if len(archive.Members) != 1 {
		t.Fatalf("got %d members, want 1", len(archive.Members))
	}
	want := "VERSION 1\nTRACKNAME Lead\nTYPE POLY\nOUTPORT USBD\nOUTCHAN 4\n\n" +
		"[CC]\n1 Cutoff\n2 Macro 2\n3 Drive\n[/CC]\n\n" +
		"[ASSIGN]\n1 CC:1\n2 CC:2\n3 CC:3\n[/ASSIGN]"
	if got := archive.Members[0]; got.Name != "Lead.txt" || got.Body != want {
		t.Errorf("member = %q:\n%s\nwant Lead.txt:\n%s", got.Name, got.Body, want)
	}
}

func TestConvertTwentyPads(t *testing.T) {
	data := project(alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 20)...)))

	archive := convert(t, data, []Selection{{Rack: 1, Channel: Channel(10)}})

	names := memberNames(archive)
	if strings.Join(names, ",") != "Kit_part1.txt,Kit_part2.txt,Kit_part3.txt" {
		t.Fatalf("members = %v", names)
	}

	firstNotes := []int{36, 44, 52}
	sizes := []int{8, 8, 4}
	for i, m := range archive.Members {
		lanes := between(m.Body, "[DRUMLANES]\n", "\n[/DRUMLANES]")
		if len(lanes) != sizes[i] {
			t.Fatalf("%s has %d lanes, want %d", m.Name, len(lanes), sizes[i])
		}
		for lane, line := range lanes {
			pad := firstNotes[i] - 36 + lane + 1
			want := fmt.Sprintf("%d:NULL:NULL:%d Pad %d", lane+1, firstNotes[i]+lane, pad)
			if line != want {
				t.Errorf("%s lane %d = %q, want %q", m.Name, lane+1, line, want)
			}
		}
		if !strings.Contains(m.Body, fmt.Sprintf("TRACKNAME Kit_part%d\n", i+1)) {
			t.Errorf("%s missing part track name", m.Name)
		}
		if !strings.Contains(m.Body, "TYPE DRUM\nOUTPORT USBD\nOUTCHAN 10\n") {
			t.Errorf("%s has wrong header:\n%s", m.Name, m.Body)
		}
	}
}

func TestConvertCapacityExceeded(t *testing.T) {
	data := project(
		alstest.MidiTrack("Small", alstest.InstrumentRack([]string{"A"}, 0)),
		alstest.MidiTrack("Wide", alstest.InstrumentRack(nil, 12)),
	)

	// one oversized rack rejects the whole request, valid racks included
	partial, err := New(devices.NewHapax()).Convert(data, "set", nil)
	var capErr *rack.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("Convert() error = %v, want CapacityExceededError", err)
	}
	if partial != nil {
		t.Errorf("Convert() archive = %+v, want nil", partial)
	}
	if capErr.Track != "Wide" || capErr.Count != 12 {
		t.Errorf("CapacityExceededError = %+v", capErr)
	}

	// the small rack still converts on its own
	archive := convert(t, data, []Selection{{Rack: 1}})
	if len(archive.Members) != 1 {
		t.Errorf("got %d members, want 1", len(archive.Members))
	}
}

func TestConvertChannelValidation(t *testing.T) {
	data := project(
		alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"A"}, 0)),
		alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 10)...)),
	)

	tests := []struct {
		name string
		sel  []Selection
	}{
		{"instrument channel 0", []Selection{{Rack: 1, Channel: Channel(0)}}},
		{"instrument channel 17", []Selection{{Rack: 1, Channel: Channel(17)}}},
		{"drum channel 0", []Selection{{Rack: 2, Channel: Channel(0)}}},
		{"drum channel 17", []Selection{{Rack: 2, Channel: Channel(17)}}},
		{"part channel 17", []Selection{{Rack: 2, Parts: []PartAssignment{{Part: 2, Channel: Channel(17)}}}}},
		{"late failure", []Selection{{Rack: 1}, {Rack: 2, Channel: Channel(17)}}},
		{"bad port", []Selection{{Rack: 1, Port: "MIDI 5"}}},
		{"unknown rack", []Selection{{Rack: 3}}},
		{"missing part", []Selection{{Rack: 2, Parts: []PartAssignment{{Part: 3}}}}},
		{"parts on instrument", []Selection{{Rack: 1, Parts: []PartAssignment{{Part: 1}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			archive, err := New(devices.NewHapax()).Convert(data, "set", tt.sel)
			if archive != nil {
				t.Error("Convert() returned an archive")
			}
			var vErr *rack.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("Convert() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestConvertDefaultChannelValidation(t *testing.T) {
	data := project(alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"A"}, 0)))

	_, err := New(devices.NewHapax(), WithDefaultChannel(0)).Convert(data, "set", nil)
	var vErr *rack.ValidationError
	if !errors.As(err, &vErr) || vErr.Track != "Keys" {
		t.Fatalf("Convert() error = %v, want ValidationError for Keys", err)
	}
}

func TestConvertPartOverrides(t *testing.T) {
	data := project(alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 12)...)))

	archive := convert(t, data, []Selection{{
		Rack:    1,
		Channel: Channel(10),
		Parts:   []PartAssignment{{Part: 2, Channel: Channel(11), Port: "A"}},
	}})

	if len(archive.Members) != 2 {
		t.Fatalf("got %d members, want 2", len(archive.Members))
	}
	if !strings.Contains(archive.Members[0].Body, "OUTPORT USBD\nOUTCHAN 10\n") {
		t.Errorf("part 1 header:\n%s", archive.Members[0].Body)
	}
	if !strings.Contains(archive.Members[1].Body, "OUTPORT A\nOUTCHAN 11\n") {
		t.Errorf("part 2 header:\n%s", archive.Members[1].Body)
	}
}

func TestConvertGroups(t *testing.T) {
	data := project(alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 12)...)))

	archive := convert(t, data, []Selection{{Rack: 1, Groups: [][]int{{11, 0}}}})

	if len(archive.Members) != 1 {
		t.Fatalf("got %d members, want 1", len(archive.Members))
	}
	lanes := between(archive.Members[0].Body, "[DRUMLANES]\n", "\n[/DRUMLANES]")
	want := []string{"1:NULL:NULL:47 Pad 12", "2:NULL:NULL:36 Pad 1"}
	if strings.Join(lanes, "|") != strings.Join(want, "|") {
		t.Errorf("lanes = %q, want %q", lanes, want)
	}
}

func TestConvertSkipsEmptyRacks(t *testing.T) {
	data := project(
		alstest.MidiTrack("Empty Kit", alstest.DrumRack()),
		alstest.MidiTrack("No Macros", `<InstrumentGroupDevice><NumVisibleMacroControls Value="0"/>`+
			`<MacroControls.0/><Branches><InstrumentBranch><DeviceChain><MidiToAudioDeviceChain/></DeviceChain>`+
			`</InstrumentBranch></Branches></InstrumentGroupDevice>`),
		alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"A"}, 0)),
	)

	archive := convert(t, data, nil)
	if names := memberNames(archive); len(names) != 1 || names[0] != "Keys.txt" {
		t.Errorf("members = %v, want [Keys.txt]", names)
	}
}

func TestConvertNoRacks(t *testing.T) {
	archive := convert(t, project(alstest.AudioTrack("Vox")), nil)
	if len(archive.Members) != 0 {
		t.Errorf("got %d members, want 0", len(archive.Members))
	}
}

func TestConvertIgnoresEffectRacks(t *testing.T) {
	data := project(
		alstest.AudioTrack("Vox", alstest.AudioEffectRack([]string{"", ""})),
		alstest.MidiTrack("Arp", alstest.MidiEffectRack([]string{"Rate"}, "")),
		alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"A"}, 0)),
	)

	archive := convert(t, data, nil)
	if names := memberNames(archive); len(names) != 1 || names[0] != "Keys.txt" {
		t.Errorf("members = %v, want [Keys.txt]", names)
	}
}

func TestConvertHolderRack(t *testing.T) {
	data := project(alstest.MidiTrack("Kit",
		alstest.InstrumentRack(nil, 8, alstest.DrumRack(alstest.NumberedPads(36, 10)...))))

	archive := convert(t, data, nil)
	want := []string{"Kit_part1.txt", "Kit_part2.txt"}
	if names := memberNames(archive); strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("members = %v, want %v", names, want)
	}
}

func TestConvertFormatError(t *testing.T) {
	_, err := New(devices.NewHapax()).Convert([]byte("not a project"), "set", nil)
	var fErr *als.FormatError
	if !errors.As(err, &fErr) {
		t.Fatalf("Convert() error = %v, want FormatError", err)
	}
}

func TestConvertDeterministic(t *testing.T) {
	data := project(
		alstest.MidiTrack("Lead", alstest.InstrumentRack([]string{"Cutoff"}, 0)),
		alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 20)...)),
		alstest.MidiTrack("Lead", alstest.InstrumentRack([]string{"Other"}, 0)),
	)

	first, err := convert(t, data, nil).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	second, err := convert(t, data, nil).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("archives differ between runs")
	}
}

func TestConvertSelectionOrder(t *testing.T) {
	data := project(
		alstest.MidiTrack("One", alstest.InstrumentRack([]string{"A"}, 0)),
		alstest.MidiTrack("Two", alstest.InstrumentRack([]string{"B"}, 0)),
	)

	archive := convert(t, data, []Selection{{Rack: 2}, {Rack: 1}})
	if names := strings.Join(memberNames(archive), ","); names != "Two.txt,One.txt" {
		t.Errorf("members = %s", names)
	}
}

func TestConvertSanitizesTrackNames(t *testing.T) {
	data := project(alstest.MidiTrack("Bass/Sub: Café?", alstest.InstrumentRack([]string{"A"}, 0)))

	archive := convert(t, data, nil)
	m := archive.Members[0]
	if m.Name != "Bass-Sub- Cafe-.txt" {
		t.Errorf("member name = %q", m.Name)
	}
	if !strings.Contains(m.Body, "TRACKNAME Bass-Sub- Cafe-\n") {
		t.Errorf("body:\n%s", m.Body)
	}
}

func TestInspect(t *testing.T) {
	data := project(
		alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"Cutoff"}, 2)),
		alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 9)...)),
	)

	racks, err := New(devices.NewHapax()).Inspect(data)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if len(racks) != 2 {
		t.Fatalf("Inspect() returned %d racks, want 2", len(racks))
	}

	keys := racks[0]
	if keys.Index != 1 || keys.Kind != "instrument" || keys.TrackName != "Keys" || keys.Files != 1 {
		t.Errorf("racks[0] = %+v", keys)
	}
	if len(keys.Controls) != 2 || keys.Controls[0].Label != "Cutoff" || keys.Controls[1].Label != "Macro 2" {
		t.Errorf("racks[0].Controls = %+v", keys.Controls)
	}

	kit := racks[1]
	if kit.Index != 2 || kit.Kind != "drum" || kit.Files != 2 || len(kit.Controls) != 9 {
		t.Errorf("racks[1] = %+v", kit)
	}
	if n := kit.Controls[0].Note; n == nil || *n != 36 || kit.Controls[0].NoteName == "" {
		t.Errorf("racks[1].Controls[0] = %+v", kit.Controls[0])
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "My Song.als")
	data := project(alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"A"}, 0)))
	if err := os.WriteFile(input, data, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := New(devices.NewHapax()).ConvertFile(input, "", nil)
	if err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}
	if want := filepath.Join(dir, "My Song_hapax.zip"); out != want {
		t.Errorf("ConvertFile() path = %q, want %q", out, want)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "Keys.txt" {
		t.Fatalf("archive files = %v", zr.File)
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	if !strings.HasPrefix(string(body), "VERSION 1\nTRACKNAME Keys\nTYPE POLY\n") {
		t.Errorf("Keys.txt =\n%s", body)
	}
}

func TestConvertFileNoDefinitions(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "empty.als")
	if err := os.WriteFile(input, project(alstest.AudioTrack("Vox")), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(devices.NewHapax()).ConvertFile(input, "", nil); err == nil {
		t.Error("ConvertFile() should fail when nothing is produced")
	}
}

func between(body, start, end string) []string {
	i := strings.Index(body, start)
	j := strings.Index(body, end)
	if i < 0 || j < 0 || j < i+len(start) {
		return nil
	}
	return strings.Split(body[i+len(start):j], "\n")
}
