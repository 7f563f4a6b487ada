package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/pyhub-apps/pdfviewer-golang/internal/storage"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/session"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewer"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/viewstate"
)

// multipartMemory is the part of a multipart upload kept in memory
const multipartMemory = 32 << 20

type uploadResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Size      int             `json:"size"`
	PageCount int             `json:"page_count"`
	Summary   session.Summary `json:"summary"`
	Metadata  engine.Metadata `json:"metadata"`
	State     stateResponse   `json:"state"`
}

// UploadDocument handles POST /api/v1/document
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	tooLarge := fmt.Sprintf("Upload exceeds %d bytes", h.maxUpload)
	if r.ContentLength > h.maxUpload {
		respondError(w, tooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			respondError(w, tooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.internalError(w, r, "Failed to read file", err)
		return
	}

	s, err := h.viewer.Upload(r.Context(), session.File{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        data,
	})
	switch {
	case errors.Is(err, session.ErrInvalidInputType):
		respondError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	case errors.Is(err, viewer.ErrSuperseded):
		respondError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		respondError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	respondJSON(w, uploadResponse{
		ID:        s.ID,
		Name:      s.Name,
		Size:      s.Size,
		PageCount: s.PageCount,
		Summary:   s.Summary(),
		Metadata:  s.Metadata,
		State:     newStateResponse(h.viewer.State()),
	}, http.StatusCreated)
}

// GetMetadata handles GET /api/v1/document/metadata
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	respondJSON(w, map[string]any{
		"name":     s.Name,
		"rows":     session.MetadataRows(s.Metadata, s.PageCount),
		"metadata": s.Metadata,
	}, http.StatusOK)
}

type textResponse struct {
	Page      int               `json:"page,omitempty"`
	PageCount int               `json:"page_count"`
	Text      string            `json:"text"`
	Items     []engine.TextItem `json:"items,omitempty"`
}

// GetText handles GET /api/v1/document/text. Without ?page it returns the
// text of the whole document.
func (h *Handler) GetText(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	if r.URL.Query().Get("page") == "" {
		respondJSON(w, textResponse{PageCount: s.PageCount, Text: session.FullText(s)}, http.StatusOK)
		return
	}

	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		respondError(w, "Invalid page number", http.StatusBadRequest)
		return
	}
	page, err := s.Page(n)
	if err != nil {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	respondJSON(w, textResponse{
		Page:      page.Number,
		PageCount: s.PageCount,
		Text:      session.TextOf(page),
		Items:     page.TextItems,
	}, http.StatusOK)
}

// GetOutline handles GET /api/v1/document/outline
func (h *Handler) GetOutline(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	items, available := s.Outline(r.Context())
	respondJSON(w, map[string]any{
		"available": available,
		"items":     items,
		"count":     session.CountNodes(items),
	}, http.StatusOK)
}

// ListImages handles GET /api/v1/document/images
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	images, available := s.Images(r.Context())
	respondJSON(w, map[string]any{
		"available": available,
		"images":    images,
		"count":     len(images),
	}, http.StatusOK)
}

// RenderPage handles GET /api/v1/document/render. The page and scale
// default to the current view state.
func (h *Handler) RenderPage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}
	st := h.viewer.State()

	n := max(st.Page, 1)
	if v := r.URL.Query().Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, "Invalid page number", http.StatusBadRequest)
			return
		}
		n = parsed
	}

	scale := st.Scale
	if v := r.URL.Query().Get("scale"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(parsed) || parsed <= 0 || parsed > viewstate.MaxScale {
			respondError(w, fmt.Sprintf("Scale must be a number in (0, %v]", viewstate.MaxScale), http.StatusBadRequest)
			return
		}
		scale = parsed
	}

	img, err := s.RenderPageImage(r.Context(), n, scale)
	switch {
	case errors.Is(err, session.ErrPageOutOfRange):
		respondError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, session.ErrInvalidScale):
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.internalError(w, r, "Failed to render page", err)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		h.internalError(w, r, "Failed to encode page", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// DownloadFile handles GET /api/v1/document/file
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.currentSession(w)
	if !ok {
		return
	}

	rc, err := h.viewer.OpenOriginal(r.Context())
	switch {
	case errors.Is(err, viewer.ErrNoDocument), errors.Is(err, storage.ErrNotFound):
		respondError(w, "Original file not available", http.StatusNotFound)
		return
	case err != nil:
		h.internalError(w, r, "Failed to open original file", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", session.ContentTypePDF)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": s.Name}))
	if _, err := io.Copy(w, rc); err != nil {
		h.log.WithError(err).Warn("failed to send original file")
	}
}
