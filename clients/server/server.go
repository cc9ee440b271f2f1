// Package server provides the covercard HTTP API.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/xob0t/CoverCard/pkg/acquire"
	"github.com/xob0t/CoverCard/pkg/generator"
	"github.com/xob0t/CoverCard/pkg/render"
	"github.com/xob0t/CoverCard/pkg/template"
)

// Options configures a Server.
type Options struct {
	Addr        string
	MaxUploadMB int
	Compositor  *render.Compositor
	Loader      *acquire.Loader
	Templates   *template.Client // nil disables /api/templates/{id}/render
	Logger      *slog.Logger
}

// Server serves the card API.
type Server struct {
	opts   Options
	assets *assetManager
	log    *slog.Logger
}

// New creates a server. Compositor is required.
func New(opts Options) (*Server, error) {
	if opts.Compositor == nil {
		return nil, &template.ConfigError{Field: "compositor", Reason: "required"}
	}
	if opts.Loader == nil {
		opts.Loader = acquire.New()
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{opts: opts, assets: newAssetManager(), log: log}, nil
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("POST /api/export/png", s.handleExportPNG)
	mux.HandleFunc("POST /api/export/bundle", s.handleExportBundle)
	mux.HandleFunc("POST /api/upload/image", s.handleUploadImage)
	mux.HandleFunc("POST /api/fetch-image-dataurl", s.handleFetchDataURL)
	mux.HandleFunc("POST /api/templates/{id}/render", s.handleTemplateRender)
	mux.HandleFunc("GET /api/styles", s.handleStyles)
	mux.HandleFunc("GET /api/assets/{id}", s.handleGetAsset)
	mux.HandleFunc("DELETE /api/assets/{id}", s.handleDeleteAsset)
	mux.HandleFunc("GET /api/assets", s.handleListAssets)

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	hs := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("covercard API listening", "addr", s.opts.Addr)
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// ── Render (core) ──

type renderRequest struct {
	Template   template.ImageTemplate `json:"template"`
	Lines      []string               `json:"lines"`
	Background string                 `json:"background"`
}

// renderCard turns a request into pixels. A background that fails to load is
// logged and skipped; the card still renders.
func (s *Server) renderCard(ctx context.Context, t template.ImageTemplate, lines []string, bg string) (*image.NRGBA, error) {
	cfg, err := t.StyleConfig()
	if err != nil {
		return nil, &template.ConfigError{Field: "template_type", Reason: err.Error()}
	}

	if bg == "" {
		bg = t.BackgroundSource()
	}
	if bg != "" {
		img, err := s.background(ctx, bg)
		if err != nil {
			s.log.Warn("custom background unavailable, using fallback", "err", err)
		} else {
			cfg.CustomBackground = img
		}
	}

	for _, w := range template.Warnings(cfg, lines, render.Catalog{}) {
		s.log.Warn(w, "template", t.Name)
	}

	return s.opts.Compositor.RenderImage(cfg, lines)
}

// background resolves an uploaded asset id first, then a data URL or an
// http(s) URL. Server-side paths are refused.
func (s *Server) background(ctx context.Context, src string) (image.Image, error) {
	if a, ok := s.assets.get(src); ok {
		res, err := acquire.Decode(a.Data)
		if err != nil {
			return nil, &acquire.LoadError{Source: "asset " + src, Err: err}
		}
		return res.Image, nil
	}
	res, err := s.opts.Loader.LoadPortable(ctx, src)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

func (s *Server) decodeRender(w http.ResponseWriter, r *http.Request) (*image.NRGBA, bool) {
	var req renderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return nil, false
	}
	img, err := s.renderCard(r.Context(), req.Template, req.Lines, req.Background)
	if err != nil {
		s.renderError(w, err)
		return nil, false
	}
	return img, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeRender(w, r)
	if !ok {
		return
	}
	s.writeImage(w, img, "")
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeRender(w, r)
	if !ok {
		return
	}
	s.writeImage(w, generator.Preview(img, generator.PreviewWidth, generator.PreviewHeight), "")
}

func (s *Server) handleTemplateRender(w http.ResponseWriter, r *http.Request) {
	if s.opts.Templates == nil {
		http.Error(w, "no template service configured", http.StatusNotFound)
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template id", http.StatusBadRequest)
		return
	}

	var req struct {
		Lines      []string `json:"lines"`
		Background string   `json:"background"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return
	}

	t, err := s.opts.Templates.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, template.ErrTemplateNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	img, err := s.renderCard(r.Context(), *t, req.Lines, req.Background)
	if err != nil {
		s.renderError(w, err)
		return
	}
	s.writeImage(w, img, "")
}

// ── Export ──

func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	img, ok := s.decodeRender(w, r)
	if !ok {
		return
	}
	s.writeImage(w, img, "card.png")
}

func (s *Server) handleExportBundle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Template   template.ImageTemplate `json:"template"`
		Background string                 `json:"background"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "decode request: "+err.Error(), http.StatusBadRequest)
		return
	}

	src := req.Background
	if src == "" {
		src = req.Template.BackgroundSource()
	}

	var bg []byte
	ext := ""
	if src != "" {
		if a, ok := s.assets.get(src); ok {
			bg, ext = a.Data, extensionForMime(a.Mime)
		} else {
			data, err := s.opts.Loader.FetchPortable(r.Context(), src)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			res, err := acquire.Decode(data)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			bg, ext = data, "."+res.Format
		}
	}

	var buf bytes.Buffer
	if err := template.WriteBundle(&buf, req.Template, bg, ext); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="template`+template.BundleExt+`"`)
	w.Write(buf.Bytes())
}

// ── Upload and fetch ──

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		http.Error(w, "upload too large or malformed: "+err.Error(), http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := acquire.Decode(data)
	if err != nil {
		http.Error(w, "not an image: "+err.Error(), http.StatusBadRequest)
		return
	}

	id := s.assets.add(header.Filename, data, "image/"+res.Format)
	s.log.Info("image uploaded", "id", id, "name", header.Filename, "width", res.Width, "height", res.Height)

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"name":   header.Filename,
		"url":    "/api/assets/" + id,
		"width":  res.Width,
		"height": res.Height,
	})
}

func (s *Server) handleFetchDataURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "detail": "url is required"})
		return
	}

	dataURL, err := s.opts.Loader.FetchRemoteDataURL(r.Context(), req.URL)
	if err != nil {
		s.log.Warn("fetch image failed", "err", err)
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data_url": dataURL})
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.Styles())
}

// ── Asset serving ──

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	a, ok := s.assets.get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.Mime)
	w.Write(a.Data)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assets.listAll())
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.assets.remove(id) {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ── Helpers ──

func (s *Server) writeImage(w http.ResponseWriter, img image.Image, attachment string) {
	var buf bytes.Buffer
	if err := generator.Encode(&buf, ".png", img); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if attachment != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+attachment+`"`)
	}
	w.Write(buf.Bytes())
}

func (s *Server) renderError(w http.ResponseWriter, err error) {
	if errors.Is(err, template.ErrConfiguration) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Error("render failed", "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
