package server

import (
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/docpane/layoutstudio/annot"
	"github.com/docpane/layoutstudio/gateway"
	"github.com/docpane/layoutstudio/render"
)

// maxAnnotationBody caps PUT payloads; annotation files are small.
const maxAnnotationBody = 16 << 20

type api struct {
	gw     *gateway.Local
	cache  *render.Cache
	pdfDir string
	log    zerolog.Logger
}

func (s *api) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/files", s.listFiles)
	mux.HandleFunc("GET /api/types", s.listTypes)
	mux.HandleFunc("GET /api/annotations/{file}", s.loadAnnotations)
	mux.HandleFunc("PUT /api/annotations/{file}", s.saveAnnotations)
	mux.HandleFunc("POST /api/sync/{file}", s.syncFile)
	mux.HandleFunc("GET /api/pages/{pdf}/{num}", s.renderPage)
}

func (s *api) listFiles(w http.ResponseWriter, r *http.Request) {
	pdfs, jsons, err := s.gw.ListFiles(r.Context())
	if err != nil {
		s.fail(w, err, http.StatusInternalServerError)
		return
	}
	if pdfs == nil {
		pdfs = []string{}
	}
	if jsons == nil {
		jsons = []string{}
	}
	s.respond(w, map[string]any{"pdf_files": pdfs, "json_files": jsons})
}

func (s *api) listTypes(w http.ResponseWriter, r *http.Request) {
	s.respond(w, annot.Types())
}

func (s *api) loadAnnotations(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	raw, err := s.gw.LoadAnnotations(r.Context(), name)
	if err != nil {
		s.fail(w, err, statusFor(err))
		return
	}
	items, report, err := annot.DecodeList(raw)
	if err != nil {
		s.fail(w, err, http.StatusUnprocessableEntity)
		return
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = annot.NewID()
		}
	}
	if report.Rejected > 0 {
		s.log.Warn().Str("file", name).Int("rejected", report.Rejected).Msg("invalid annotations dropped on load")
	}
	s.respond(w, map[string]any{"annotations": items, "report": report})
}

func (s *api) saveAnnotations(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxAnnotationBody))
	if err != nil {
		s.fail(w, err, http.StatusBadRequest)
		return
	}
	items, report, err := annot.DecodeList(body)
	if err != nil {
		s.fail(w, err, http.StatusBadRequest)
		return
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = annot.NewID()
		}
	}
	if err := s.gw.SaveAnnotations(r.Context(), name, items); err != nil {
		s.fail(w, err, statusFor(err))
		return
	}
	s.respond(w, report)
}

func (s *api) syncFile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if err := s.gw.SyncFile(r.Context(), name); err != nil {
		s.fail(w, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *api) renderPage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("pdf")
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		http.Error(w, "invalid pdf name", http.StatusBadRequest)
		return
	}
	page, err := strconv.Atoi(r.PathValue("num"))
	if err != nil {
		http.Error(w, "invalid page number", http.StatusBadRequest)
		return
	}
	scale := 1.5
	if v := r.URL.Query().Get("scale"); v != "" {
		if scale, err = strconv.ParseFloat(v, 64); err != nil || scale <= 0 || scale > 8 {
			http.Error(w, "invalid scale", http.StatusBadRequest)
			return
		}
	}
	rotation := 0
	if v := r.URL.Query().Get("rotation"); v != "" {
		if rotation, err = strconv.Atoi(v); err != nil {
			http.Error(w, "invalid rotation", http.StatusBadRequest)
			return
		}
	}

	doc, err := s.cache.Open(filepath.Join(s.pdfDir, name))
	if err != nil {
		s.fail(w, err, http.StatusNotFound)
		return
	}
	pr, err := doc.RenderPage(page, scale, rotation)
	if err != nil {
		s.fail(w, err, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Pixel-Width", strconv.Itoa(pr.PixelWidth))
	w.Header().Set("X-Pixel-Height", strconv.Itoa(pr.PixelHeight))
	if err := png.Encode(w, pr.Image); err != nil {
		s.log.Error().Err(err).Str("pdf", name).Int("page", page).Msg("png encode failed")
	}
}

func (s *api) respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("response encode failed")
	}
}

func (s *api) fail(w http.ResponseWriter, err error, code int) {
	s.log.Error().Err(err).Int("status", code).Msg("request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, gateway.ErrBadFilename):
		return http.StatusBadRequest
	case errors.Is(err, gateway.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gateway.ErrNoRemote):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
