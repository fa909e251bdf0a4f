package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/inamate/canvas/internal/camera"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/drawing"
	"github.com/inamate/canvas/internal/export"
	"github.com/inamate/canvas/internal/geom"
	"github.com/inamate/canvas/internal/history"
	"github.com/inamate/canvas/internal/imaging"
	"github.com/inamate/canvas/internal/store"
)

const maxFileSize = 32 << 20

type createRequest struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Preset string `json:"preset"`
}

type updateRequest struct {
	Name         *string  `json:"name"`
	Background   *string  `json:"background"`
	Width        *float64 `json:"width"`
	Height       *float64 `json:"height"`
	CameraLocked *bool    `json:"cameraLocked"`
}

type commandRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type designView struct {
	document.Summary
	Active    bool                `json:"active"`
	Bounds    geom.Rect           `json:"bounds"`
	Tool      drawing.Tool        `json:"tool"`
	Camera    camera.State        `json:"camera"`
	History   history.State       `json:"history"`
	Selection []string            `json:"selection"`
	Objects   []design.ObjectInfo `json:"objects"`
}

func (h *Handler) view(m *design.Manager) designView {
	bounds, _ := m.Bounds()
	active, _ := h.workspace.Active()
	return designView{
		Summary:   m.Summary(),
		Active:    active == m,
		Bounds:    bounds,
		Tool:      m.Tool(),
		Camera:    m.Camera(),
		History:   m.HistoryState(),
		Selection: m.Selection(),
		Objects:   m.Objects(),
	}
}

// design resolves the {designId} route variable, loading it if needed.
func (h *Handler) design(w http.ResponseWriter, r *http.Request) (*design.Manager, bool) {
	m, err := h.workspace.Open(r.Context(), mux.Vars(r)["designId"])
	if err != nil {
		h.handleServiceError(w, err)
		return nil, false
	}
	h.refreshGauge()
	return m, true
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.workspace.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.Preset != "" {
		found := false
		for _, p := range h.presets {
			if strings.EqualFold(p.Name, req.Preset) {
				req.Width, req.Height, found = p.Width, p.Height, true
				break
			}
		}
		if !found {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown preset %q", req.Preset)})
			return
		}
	}
	if req.Width < 0 || req.Height < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "width and height must be positive"})
		return
	}

	m, err := h.workspace.Create(req.Name, req.Width, req.Height)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.refreshGauge()
	writeJSON(w, http.StatusCreated, h.view(m))
}

// Import opens a design file posted as the request body.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var file document.Design
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFileSize)).Decode(&file); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid design file"})
		return
	}
	m, err := h.workspace.Adopt(&file)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.refreshGauge()
	writeJSON(w, http.StatusCreated, h.view(m))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(m))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	b, _ := m.Bounds()
	width, height := b.Width, b.Height
	if req.Width != nil {
		width = *req.Width
	}
	if req.Height != nil {
		height = *req.Height
	}
	if !document.ValidSize(width, height) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("width and height must be between 1 and %d", document.MaxDimension)})
		return
	}

	if req.Name != nil {
		m.Rename(*req.Name)
	}
	if req.Background != nil {
		m.SetBackground(*req.Background)
	}
	if req.Width != nil || req.Height != nil {
		m.Resize(width, height)
	}
	if req.CameraLocked != nil {
		m.SetCameraLocked(*req.CameraLocked)
	}
	writeJSON(w, http.StatusOK, h.view(m))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace.Delete(r.Context(), mux.Vars(r)["designId"]); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.refreshGauge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	h.workspace.SetActive(m.ID())
	writeJSON(w, http.StatusOK, h.view(m))
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.workspace.Close(r.Context(), mux.Vars(r)["designId"]); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.refreshGauge()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["designId"]
	if err := h.workspace.Save(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// File downloads the design in its persisted form.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	file, err := m.File()
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", attachment(file.Name, ".json"))
	writeJSON(w, http.StatusOK, file)
}

// Export renders the design. Query: format (png, jpeg, svg, json), scale,
// quality, background.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	name := q.Get("format")
	if name == "" {
		name = string(export.FormatPNG)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	opts := export.Options{Background: q.Get("background")}
	if s := q.Get("scale"); s != "" {
		if opts.Scale, err = strconv.ParseFloat(s, 64); err != nil || opts.Scale <= 0 || opts.Scale > 8 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "scale must be in (0, 8]"})
			return
		}
	}
	if s := q.Get("quality"); s != "" {
		if opts.Quality, err = strconv.Atoi(s); err != nil || opts.Quality < 1 || opts.Quality > 100 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quality must be 1-100"})
			return
		}
	}

	data, err := m.Export(format, opts)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.CountExport(string(format))
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", attachment(m.Name(), format.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	h.runCommand(w, r, func(req commandRequest) any {
		return h.router.CallOn(r.Context(), m, req.Name, req.Arguments)
	})
}

// ActiveCommand runs a tool call against the active design.
func (h *Handler) ActiveCommand(w http.ResponseWriter, r *http.Request) {
	h.runCommand(w, r, func(req commandRequest) any {
		return h.router.Call(r.Context(), req.Name, req.Arguments)
	})
}

// runCommand decodes the call. Tool failures are results, not HTTP errors.
func (h *Handler) runCommand(w http.ResponseWriter, r *http.Request, run func(commandRequest) any) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	writeJSON(w, http.StatusOK, run(req))
}

// AddImage imports the raw request body as an image layer. Optional x, y,
// width and height query values give the box to fill.
func (h *Handler) AddImage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, imaging.MaxBytes))
	if err != nil {
		h.handleServiceError(w, imaging.ErrTooLarge)
		return
	}
	var target geom.Rect
	q := r.URL.Query()
	for key, dst := range map[string]*float64{"x": &target.X, "y": &target.Y, "width": &target.Width, "height": &target.Height} {
		if s := q.Get(key); s != "" {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + key})
				return
			}
			*dst = v
		}
	}

	select {
	case res := <-m.AddImage(r.Context(), data, target):
		if res.Err != nil {
			h.handleServiceError(w, res.Err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"layerId": res.LayerID})
	case <-r.Context().Done():
		writeJSON(w, http.StatusRequestTimeout, map[string]string{"error": "request cancelled"})
	}
}

func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	vs, ok := h.store.(store.Versioned)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "store does not keep versions"})
		return
	}
	list, err := vs.Versions(r.Context(), mux.Vars(r)["designId"])
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if len(list) == 0 {
		h.handleServiceError(w, design.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Version returns one stored revision as a design file.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	vs, ok := h.store.(store.Versioned)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "store does not keep versions"})
		return
	}
	vars := mux.Vars(r)
	n, err := strconv.Atoi(vars["version"])
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid version"})
		return
	}
	file, err := vs.LoadVersion(r.Context(), vars["designId"], n)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// Live upgrades to the design's websocket room.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "live sync disabled"})
		return
	}
	m, ok := h.design(w, r)
	if !ok {
		return
	}
	userID, name := userOf(r)
	h.hub.Serve(w, r, m, userID, name, h.origins)
}

func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.router.Tools())
}

func (h *Handler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.workspace.Defaults())
}

func (h *Handler) SetDefaults(w http.ResponseWriter, r *http.Request) {
	var d document.Defaults
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.workspace.SetDefaults(d)
	writeJSON(w, http.StatusOK, h.workspace.Defaults())
}

func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets)
}

func attachment(name, ext string) string {
	name = strings.Map(func(r rune) rune {
		if r == '"' || r == '/' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "design"
	}
	return fmt.Sprintf(`attachment; filename="%s%s"`, name, ext)
}
