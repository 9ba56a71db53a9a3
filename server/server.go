// Package server exposes the knowledge core over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/vasdom/knowledge/internal/models"
	"github.com/vasdom/knowledge/internal/types"
)

// multipartMemoryLimit is how much of a parsed form stays in memory
// before spilling to temp files.
const multipartMemoryLimit = 32 << 20

type Config struct {
	Port            string
	MaxFileBytes    int64
	MaxTotalBytes   int64
	ShutdownTimeout time.Duration
}

type Server struct {
	config Config
	svc    types.KnowledgeService
}

func New(config Config, svc types.KnowledgeService) *Server {
	if config.Port == "" {
		config.Port = "8080"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	return &Server{config: config, svc: svc}
}

// Router wires the HTTP surface.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/save", s.handleSave).Methods(http.MethodPost)
	router.HandleFunc("/documents", s.handleDocuments).Methods(http.MethodGet)
	router.HandleFunc("/search", s.handleSearch).Methods(http.MethodPost)
	router.HandleFunc("/document/{id}", s.handleDeleteDocument).Methods(http.MethodDelete)
	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        ":" + s.config.Port,
		Handler:     s.Router(),
		ReadTimeout: 5 * time.Minute,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server listening on port %s", s.config.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	// Leave headroom over the aggregate ceiling for multipart framing;
	// the service enforces the exact limits.
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxTotalBytes+s.config.MaxFileBytes)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, models.ErrPayloadTooLarge)
			return
		}
		s.writeError(w, models.ErrInvalidRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, models.ErrInvalidRequest)
		return
	}

	files := make([]models.IncomingFile, 0, len(headers))
	for _, header := range headers {
		if header.Size > s.config.MaxFileBytes {
			s.writeError(w, models.ErrPayloadTooLarge)
			return
		}

		f, err := header.Open()
		if err != nil {
			s.writeError(w, models.ErrInvalidRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, models.ErrInvalidRequest)
			return
		}
		files = append(files, models.IncomingFile{Name: header.Filename, Data: data})
	}

	chunkTokens, ok := formInt(r, "chunk_tokens", 0)
	if !ok {
		s.writeError(w, models.ErrInvalidRequest)
		return
	}
	// An absent overlap must stay distinguishable from an explicit 0,
	// which is a valid value; the service applies the default below 0.
	overlap, ok := formInt(r, "overlap", -1)
	if !ok {
		s.writeError(w, models.ErrInvalidRequest)
		return
	}

	result, err := s.svc.Upload(r.Context(), files, chunkTokens, overlap)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, models.ErrInvalidRequest)
		return
	}

	uploadID := r.FormValue("upload_id")
	filename := r.FormValue("filename")

	docID, err := s.svc.Commit(r.Context(), uploadID, filename)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"document_id": docID})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.ListDocuments(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, models.ErrInvalidRequest)
		return
	}

	results, err := s.svc.Search(r.Context(), req.Query, req.TopK)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.svc.DeleteDocument(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// formInt reads an optional integer form value, returning absent when
// the field is missing or empty.
func formInt(r *http.Request, key string, absent int) (int, bool) {
	raw := r.FormValue(key)
	if raw == "" {
		return absent, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	}

	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
