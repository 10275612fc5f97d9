package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/james-see/als2hapax/pkg/als/alstest"
	"github.com/james-see/als2hapax/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter() *gin.Engine {
	return NewRouter(config.Config{Channel: 1, OutPort: "USBD", MaxUploadMB: 1})
}

func upload(t *testing.T, path, filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(data)
	}
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, req)
	return w
}

func sampleProject() []byte {
	return alstest.Gzip(alstest.Project(
		alstest.MidiTrack("Keys", alstest.InstrumentRack([]string{"Cutoff", "Res"}, 0)),
		alstest.MidiTrack("Kit", alstest.DrumRack(alstest.NumberedPads(36, 10)...)),
	))
}

func TestHealthCheck(t *testing.T) {
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := httptest.NewRecorder()
		testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestListPorts(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ports", nil))

	var resp struct {
		Ports   []string `json:"ports"`
		Default string   `json:"default"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Default != "USBD" || len(resp.Ports) != 6 {
		t.Errorf("ports response = %+v", resp)
	}
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/convert", nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS = %d, want 204", w.Code)
	}
}

func TestInspect(t *testing.T) {
	w := upload(t, "/api/v1/inspect", "song.als", sampleProject(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var resp struct {
		Filename string `json:"filename"`
		Racks    []struct {
			Index     int    `json:"index"`
			Kind      string `json:"kind"`
			TrackName string `json:"track_name"`
			Files     int    `json:"files"`
		} `json:"racks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Filename != "song.als" || len(resp.Racks) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Racks[1].Kind != "drum" || resp.Racks[1].Files != 2 {
		t.Errorf("racks[1] = %+v", resp.Racks[1])
	}
}

func TestInspectRejectsUploads(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		want     int
	}{
		{"no file", "", nil, http.StatusBadRequest},
		{"wrong extension", "song.mid", sampleProject(), http.StatusBadRequest},
		{"not a project", "song.als", []byte("garbage"), http.StatusBadRequest},
		{"too large", "song.als", bytes.Repeat([]byte{'x'}, 2<<20), http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := upload(t, "/api/v1/inspect", tt.filename, tt.data, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	sel := `[{"rack":1,"channel":2},{"rack":2,"channel":10,"parts":[{"part":2,"channel":11}]}]`
	w := upload(t, "/api/v1/convert", "My Song.als", sampleProject(), map[string]string{"selections": sel})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="My Song_hapax.zip"` {
		t.Errorf("Content-Disposition = %q", got)
	}

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	want := []string{"Keys.txt", "Kit_part1.txt", "Kit_part2.txt"}
	if len(names) != len(want) {
		t.Fatalf("files = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestConvertErrors(t *testing.T) {
	wide := alstest.Gzip(alstest.Project(alstest.MidiTrack("Wide", alstest.InstrumentRack(nil, 10))))

	tests := []struct {
		name  string
		data  []byte
		sel   string
		want  int
		track string
	}{
		{"bad json", sampleProject(), `{`, http.StatusBadRequest, ""},
		{"channel 0", sampleProject(), `[{"rack":1,"channel":0}]`, http.StatusBadRequest, "Keys"},
		{"channel 17", sampleProject(), `[{"rack":2,"channel":17}]`, http.StatusBadRequest, "Kit"},
		{"too many macros", wide, ``, http.StatusUnprocessableEntity, "Wide"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := upload(t, "/api/v1/convert", "song.als", tt.data, map[string]string{"selections": tt.sel})
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body)
			}
			var resp map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &resp)
			if resp["track"] != tt.track {
				t.Errorf("track = %q, want %q", resp["track"], tt.track)
			}
		})
	}
}
