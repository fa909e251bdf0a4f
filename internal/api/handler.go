// Package api exposes the workspace over HTTP: design lifecycle, tool
// commands, export, version history and the live websocket.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/inamate/canvas/internal/agent"
	"github.com/inamate/canvas/internal/auth"
	"github.com/inamate/canvas/internal/collab"
	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/document"
	"github.com/inamate/canvas/internal/export"
	"github.com/inamate/canvas/internal/imaging"
	"github.com/inamate/canvas/internal/logging"
	"github.com/inamate/canvas/internal/store"
)

// Metrics is the subset of the metrics registry the handlers report to.
type Metrics interface {
	SetOpenDesigns(n int)
	CountExport(format string)
}

type Handler struct {
	workspace *design.Workspace
	store     store.Store
	router    *agent.Router
	hub       *collab.Hub
	metrics   Metrics
	presets   []document.SizePreset
	origins   []string
	log       *slog.Logger
}

type Options struct {
	Store   store.Store
	Router  *agent.Router
	Hub     *collab.Hub
	Metrics Metrics
	Presets []document.SizePreset
	// Origins are the websocket origin patterns.
	Origins []string
	Logger  *slog.Logger
}

func NewHandler(ws *design.Workspace, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Presets == nil {
		opts.Presets = document.DefaultPresets
	}
	return &Handler{
		workspace: ws,
		store:     opts.Store,
		router:    opts.Router,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		presets:   opts.Presets,
		origins:   opts.Origins,
		log:       logging.WithComponent(opts.Logger, "api"),
	}
}

// Routes registers the API on r. Authentication is applied by the caller.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/designs", h.List).Methods("GET")
	r.HandleFunc("/designs", h.Create).Methods("POST")
	r.HandleFunc("/designs/import", h.Import).Methods("POST")
	r.HandleFunc("/designs/{designId}", h.Get).Methods("GET")
	r.HandleFunc("/designs/{designId}", h.Update).Methods("PATCH")
	r.HandleFunc("/designs/{designId}", h.Delete).Methods("DELETE")
	r.HandleFunc("/designs/{designId}/activate", h.Activate).Methods("POST")
	r.HandleFunc("/designs/{designId}/close", h.Close).Methods("POST")
	r.HandleFunc("/designs/{designId}/save", h.Save).Methods("POST")
	r.HandleFunc("/designs/{designId}/file", h.File).Methods("GET")
	r.HandleFunc("/designs/{designId}/export", h.Export).Methods("GET")
	r.HandleFunc("/designs/{designId}/commands", h.Command).Methods("POST")
	r.HandleFunc("/designs/{designId}/images", h.AddImage).Methods("POST")
	r.HandleFunc("/designs/{designId}/versions", h.Versions).Methods("GET")
	r.HandleFunc("/designs/{designId}/versions/{version:[0-9]+}", h.Version).Methods("GET")
	r.HandleFunc("/designs/{designId}/ws", h.Live)

	r.HandleFunc("/commands", h.ActiveCommand).Methods("POST")
	r.HandleFunc("/tools", h.Tools).Methods("GET")
	r.HandleFunc("/defaults", h.GetDefaults).Methods("GET")
	r.HandleFunc("/defaults", h.SetDefaults).Methods("PUT")
	r.HandleFunc("/presets", h.Presets).Methods("GET")
}

func (h *Handler) refreshGauge() {
	if h.metrics != nil {
		h.metrics.SetOpenDesigns(len(h.workspace.Designs()))
	}
}

func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, design.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "design not found"})
	case errors.Is(err, design.ErrClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "design is closed"})
	case errors.Is(err, document.ErrInvalidDesign),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, export.ErrTooLarge),
		errors.Is(err, imaging.ErrUnsupported),
		errors.Is(err, imaging.ErrTooLarge):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		h.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func userOf(r *http.Request) (string, string) {
	u := auth.UserFromContext(r.Context())
	if u.ID == "" {
		return "anonymous", "Anonymous"
	}
	return u.ID, u.DisplayName
}
