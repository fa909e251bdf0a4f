package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"github.com/inamate/canvas/internal/agent"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/store"
)

type fakeMetrics struct {
	open    int
	exports map[string]int
}

func (f *fakeMetrics) SetOpenDesigns(n int)      { f.open = n }
func (f *fakeMetrics) CountExport(format string) { f.exports[format]++ }

type testServer struct {
	router  *mux.Router
	ws      *design.Workspace
	metrics *fakeMetrics
}

func newTestServer(t *testing.T, st store.Store) *testServer {
	t.Helper()
	ws := design.NewWorkspace(st, document.DefaultDefaults(), design.Options{})
	t.Cleanup(func() { ws.Shutdown(context.Background()) })
	fm := &fakeMetrics{exports: make(map[string]int)}
	h := NewHandler(ws, Options{
		Store:   st,
		Router:  agent.NewRouter(ws.Active, nil),
		Metrics: fm,
	})
	r := mux.NewRouter()
	h.Routes(r)
	return &testServer{router: r, ws: ws, metrics: fm}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (s *testServer) create(t *testing.T, body string) designView {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/designs", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	return decode[designView](t, rec)
}

func TestCreateWithPreset(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	v := s.create(t, `{"name":"Poster","preset":"story"}`)
	if v.Bounds.Width != 1080 || v.Bounds.Height != 1920 {
		t.Fatalf("expected 1080x1920, got %vx%v", v.Bounds.Width, v.Bounds.Height)
	}
	if !v.Active || v.Name != "Poster" {
		t.Fatalf("expected active Poster, got %+v", v.Summary)
	}
	if s.metrics.open != 1 {
		t.Fatalf("expected gauge 1, got %d", s.metrics.open)
	}

	if rec := s.do(t, http.MethodPost, "/designs", `{"preset":"billboard"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown preset, got %d", rec.Code)
	}
	// An empty body gets the default size and name.
	v = s.create(t, "")
	if v.Bounds.Width != document.DefaultWidth || !strings.HasPrefix(v.Name, "Untitled") {
		t.Fatalf("unexpected default design %+v", v.Summary)
	}
}

func TestCommandsAndExport(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	v := s.create(t, `{"name":"Card","width":200,"height":100}`)
	base := "/designs/" + v.ID

	rec := s.do(t, http.MethodPost, base+"/commands", `{"name":"create_rectangle","arguments":{"x":10,"y":10,"width":40,"height":30}}`)
	res := decode[agent.Result](t, rec)
	if rec.Code != http.StatusOK || !res.Success {
		t.Fatalf("expected success, got %d %+v", rec.Code, res)
	}

	rec = s.do(t, http.MethodPost, base+"/commands", `{"name":"launch_rocket"}`)
	res = decode[agent.Result](t, rec)
	if res.Success || !strings.Contains(res.Message, "launch_rocket") {
		t.Fatalf("expected failure naming the tool, got %+v", res)
	}

	// The active design takes calls without an id.
	rec = s.do(t, http.MethodPost, "/commands", `{"name":"undo"}`)
	if res = decode[agent.Result](t, rec); !res.Success {
		t.Fatalf("expected undo to succeed, got %+v", res)
	}
	if got := decode[designView](t, s.do(t, http.MethodGet, base, "")); len(got.Objects) != 0 {
		t.Fatalf("expected undo to remove the rect, got %d objects", len(got.Objects))
	}

	rec = s.do(t, http.MethodGet, base+"/export?format=png", "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if cfg.Width != 200 || cfg.Height != 100 {
		t.Fatalf("expected 200x100, got %dx%d", cfg.Width, cfg.Height)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), `Card.png`) {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if s.metrics.exports["png"] != 1 {
		t.Fatalf("expected one png export counted, got %v", s.metrics.exports)
	}

	if rec := s.do(t, http.MethodGet, base+"/export?format=gif", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for gif, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, base+"/export?format=png&scale=-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad scale, got %d", rec.Code)
	}
}

func TestUpdateDesign(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	v := s.create(t, `{"width":300,"height":300}`)
	base := "/designs/" + v.ID

	rec := s.do(t, http.MethodPatch, base, `{"name":"Renamed","background":"#000000","width":400}`)
	got := decode[designView](t, rec)
	if rec.Code != http.StatusOK || got.Name != "Renamed" || got.Bounds.Width != 400 || got.Bounds.Height != 300 {
		t.Fatalf("unexpected update result %d %+v", rec.Code, got)
	}
	if rec := s.do(t, http.MethodPatch, base, `{"height":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero height, got %d", rec.Code)
	}
}

func TestMissingDesign(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/designs/design_nope"},
		{http.MethodDelete, "/designs/design_nope"},
		{http.MethodPost, "/designs/design_nope/close"},
		{http.MethodGet, "/designs/design_nope/export"},
	} {
		if rec := s.do(t, tc.method, tc.path, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestSaveCloseReopenDelete(t *testing.T) {
	st := store.NewMemory()
	s := newTestServer(t, st)
	v := s.create(t, `{"name":"Keep","width":100,"height":100}`)
	base := "/designs/" + v.ID
	s.do(t, http.MethodPost, base+"/commands", `{"name":"create_ellipse","arguments":{"x":10,"y":10}}`)

	if rec := s.do(t, http.MethodPost, base+"/save", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on save, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, base+"/close", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on close, got %d", rec.Code)
	}
	if _, open := s.ws.Get(v.ID); open {
		t.Fatalf("expected design to be closed")
	}

	list := decode[[]document.Summary](t, s.do(t, http.MethodGet, "/designs", ""))
	if len(list) != 1 || list[0].ID != v.ID {
		t.Fatalf("expected stored design in list, got %+v", list)
	}

	// Getting a closed design loads it from the store.
	got := decode[designView](t, s.do(t, http.MethodGet, base, ""))
	if len(got.Objects) != 1 {
		t.Fatalf("expected reopened design with 1 object, got %d", len(got.Objects))
	}

	if rec := s.do(t, http.MethodDelete, base, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, base, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestImportAndFile(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	file, err := document.NewSampleDesign("design_sample")
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	body, _ := json.Marshal(file)
	rec := s.do(t, http.MethodPost, "/designs/import", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodGet, "/designs/design_sample/file", "")
	got := decode[document.Design](t, rec)
	if got.ID != "design_sample" || len(got.Layers) != len(file.Layers) {
		t.Fatalf("expected round-tripped file, got id %s with %d layers", got.ID, len(got.Layers))
	}

	if rec := s.do(t, http.MethodPost, "/designs/import", `{"name":"no id"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid file, got %d", rec.Code)
	}
}

func TestAddImage(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	v := s.create(t, `{"width":100,"height":100}`)

	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10)))
	req := httptest.NewRequest(http.MethodPost, "/designs/"+v.ID+"/images?x=5&y=5&width=20&height=20", &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[designView](t, s.do(t, http.MethodGet, "/designs/"+v.ID, ""))
	if len(got.Objects) != 1 || got.Objects[0].Bounds.Width != 20 {
		t.Fatalf("expected one 20 wide image, got %+v", got.Objects)
	}

	if rec := s.do(t, http.MethodPost, "/designs/"+v.ID+"/images", "garbage"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage image, got %d", rec.Code)
	}
}

func TestVersions(t *testing.T) {
	mem := newTestServer(t, store.NewMemory())
	v := mem.create(t, "")
	if rec := mem.do(t, http.MethodGet, "/designs/"+v.ID+"/versions", ""); rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 for memory store, got %d", rec.Code)
	}

	lite, err := store.NewSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer lite.Close()
	s := newTestServer(t, lite)
	v = s.create(t, `{"name":"First","width":50,"height":50}`)
	base := "/designs/" + v.ID
	s.do(t, http.MethodPost, base+"/save", "")
	s.do(t, http.MethodPatch, base, `{"name":"Second"}`)
	s.do(t, http.MethodPost, base+"/save", "")

	list := decode[[]store.Version](t, s.do(t, http.MethodGet, base+"/versions", ""))
	if len(list) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(list))
	}
	first := decode[document.Design](t, s.do(t, http.MethodGet, base+"/versions/1", ""))
	if first.Name != "First" {
		t.Fatalf("expected version 1 named First, got %q", first.Name)
	}
	if rec := s.do(t, http.MethodGet, base+"/versions/7", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing version, got %d", rec.Code)
	}
}

func TestToolsDefaultsPresets(t *testing.T) {
	s := newTestServer(t, store.NewMemory())
	tools := decode[[]agent.Descriptor](t, s.do(t, http.MethodGet, "/tools", ""))
	if len(tools) != 27 {
		t.Fatalf("expected 27 tools, got %d", len(tools))
	}

	rec := s.do(t, http.MethodPut, "/defaults", `{"fill":"#ff0000"}`)
	d := decode[document.Defaults](t, rec)
	if d.Fill != "#ff0000" || d.FontFamily == "" {
		t.Fatalf("expected merged defaults, got %+v", d)
	}

	presets := decode[[]document.SizePreset](t, s.do(t, http.MethodGet, "/presets", ""))
	if len(presets) != len(document.DefaultPresets) {
		t.Fatalf("expected %d presets, got %d", len(document.DefaultPresets), len(presets))
	}
}
