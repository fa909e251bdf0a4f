// Package asset stores uploaded images as PNG files and can drop an upload
// straight into an open design.
package asset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/inamate/canvas/internal/design"
	"github.com/inamate/canvas/internal/imaging"
	"github.com/inamate/canvas/internal/logging"
	"github.com/inamate/canvas/internal/typeid"
)

const maxUploadSize = imaging.MaxBytes

// Importer adds image bytes to a design and returns the new layer id.
type Importer func(ctx context.Context, designID string, data []byte) (string, error)

// UploadResponse is returned from the upload endpoint.
type UploadResponse struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	LayerID string `json:"layerId,omitempty"`
}

// Handler serves asset upload and retrieval endpoints.
type Handler struct {
	dir      string
	importer Importer
	log      *slog.Logger
}

// NewHandler creates an asset handler that stores files in dir. importer
// may be nil, in which case designId is ignored.
func NewHandler(dir string, importer Importer, logger *slog.Logger) *Handler {
	logger = logging.WithComponent(logger, "asset")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("create asset dir", "error", err, "dir", dir)
	}
	return &Handler{dir: dir, importer: importer, log: logger}
}

// Upload handles POST /assets/upload: a multipart form with a "file" field
// and an optional "designId" to import the image into.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large (max 10MB)"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read file"})
		return
	}

	resp, err := h.store(data, header.Filename)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupported) || errors.Is(err, imaging.ErrTooLarge) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		h.log.Error("store asset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save file"})
		return
	}

	if designID := r.FormValue("designId"); designID != "" && h.importer != nil {
		layerID, err := h.importer(r.Context(), designID, data)
		switch {
		case errors.Is(err, design.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "design not found"})
			return
		case errors.Is(err, design.ErrClosed):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "design is closed"})
			return
		case err != nil:
			h.log.Error("import asset", "error", err, "design", designID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to import image"})
			return
		}
		resp.LayerID = layerID
	}

	writeJSON(w, http.StatusCreated, resp)
}

// store decodes data and writes it as <assetID>.png.
func (h *Handler) store(data []byte, name string) (*UploadResponse, error) {
	img, info, err := imaging.Decode(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	assetID := typeid.NewAssetID()
	filename := assetID + ".png"
	if err := writeFile(filepath.Join(h.dir, filename), buf.Bytes()); err != nil {
		return nil, err
	}
	return &UploadResponse{
		ID:     assetID,
		URL:    "/assets/" + filename,
		Width:  info.Width,
		Height: info.Height,
		Type:   "png",
		Name:   filepath.Base(name),
	}, nil
}

// Serve returns an http.Handler that serves stored asset files.
func (h *Handler) Serve() http.Handler {
	fs := http.FileServer(http.Dir(h.dir))
	return http.StripPrefix("/assets/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Asset ids are unique, so files never change.
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	}))
}

// Delete removes an asset file.
func (h *Handler) Delete(assetID string) error {
	if err := typeid.Validate(assetID, typeid.PrefixAsset); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(h.dir, assetID+".png")); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("asset not found: %s", assetID)
		}
		return fmt.Errorf("remove asset: %w", err)
	}
	return nil
}

// writeFile writes through a temp file so readers never see a partial PNG.
func writeFile(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("rename asset: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
