package converter

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/james-see/als2hapax/pkg/rack"
)

// ArchiveSuffix is appended to the project name to form the archive name
const ArchiveSuffix = "_hapax.zip"

// zipEpoch is stamped on every member so identical input gives identical archives
var zipEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Member is one file in the output archive
type Member struct {
	Name string
	Body string
}

// Archive is the ordered set of rendered definitions for one conversion
type Archive struct {
	Name    string
	Members []Member
}

// Package names rendered definitions and collects them into an archive.
// Members keep the order given. A stem that is already taken, compared
// case-insensitively, gets a numeric suffix (_2, _3, ...) so no member is
// overwritten.
func Package(project string, defs []rack.RenderedDefinition) *Archive {
	a := &Archive{
		Name:    SanitizeName(project) + ArchiveSuffix,
		Members: make([]Member, 0, len(defs)),
	}
	taken := make(map[string]bool, len(defs))
	for _, d := range defs {
		stem := d.FileStem
		for n := 2; taken[strings.ToLower(stem)]; n++ {
			stem = fmt.Sprintf("%s_%d", d.FileStem, n)
		}
		taken[strings.ToLower(stem)] = true
		a.Members = append(a.Members, Member{Name: stem + ".txt", Body: d.Body})
	}
	return a
}

// WriteZip writes the archive as a zip file
func (a *Archive) WriteZip(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, m := range a.Members {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     m.Name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", m.Name, err)
		}
		if _, err := io.WriteString(f, m.Body); err != nil {
			return fmt.Errorf("failed to write %s: %w", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

// Bytes returns the zip encoding of the archive
func (a *Archive) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.WriteZip(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
