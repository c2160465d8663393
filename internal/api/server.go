// Package api exposes the ingestion and search operations over HTTP. It is
// a thin harness: decoding, routing, and status codes live here, everything
// else in the service layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	tclient "go.temporal.io/sdk/client"

	"docquery/internal/config"
	"docquery/internal/embed"
	"docquery/internal/models"
	"docquery/internal/providers"
	"docquery/internal/rag"
	"docquery/internal/service"
	"docquery/internal/storage"
	"docquery/internal/util"
	"docquery/internal/vector"
)

type Server struct {
	cfg         config.Config
	db          *storage.DB
	projectRepo *storage.ProjectRepo
	docRepo     *storage.DocumentRepo
	chunkRepo   *storage.ChunkRepo
	jobRepo     *storage.JobRepo
	ingestion   *service.IngestionService
	query       *service.QueryService
}

func NewServer(cfg config.Config) *Server {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		panic(err)
	}
	if err := db.EnsureSchema(ctx, cfg.EmbedDim); err != nil {
		panic(err)
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		panic(err)
	}
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}

	projectRepo := storage.NewProjectRepo(db)
	docRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)
	jobRepo := storage.NewJobRepo(db)
	gate := providers.NewGate(cfg.ProviderPermits, cfg.ProviderRatePerSec)
	retriever := rag.NewRetriever(pm, gate, embed.Options{
		Dimension:   cfg.EmbedDim,
		BatchSize:   cfg.EmbedBatchSize,
		MaxRetries:  cfg.EmbedMaxRetries,
		CallTimeout: time.Duration(cfg.EmbedTimeoutSecs) * time.Second,
	}, vector.NewSearcher(db), cfg.RetrievalTopK)
	reranker := rag.NewReranker(pm, gate, cfg.RerankBatchSize, time.Duration(cfg.RerankTimeoutSecs)*time.Second)

	return &Server{
		cfg:         cfg,
		db:          db,
		projectRepo: projectRepo,
		docRepo:     docRepo,
		chunkRepo:   chunkRepo,
		jobRepo:     jobRepo,
		ingestion:   service.NewIngestionService(cfg, projectRepo, docRepo, chunkRepo, jobRepo, tc),
		query:       service.NewQueryService(cfg, projectRepo, retriever, reranker, rag.Assemble),
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/projects", s.handleProjects)
	mux.HandleFunc("/projects/", s.handleProjectsScoped)
	mux.HandleFunc("/jobs/", s.handleJobsScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}
	p := models.Project{ProjectID: uuid.NewString(), Name: req.Name}
	if err := s.projectRepo.Create(r.Context(), &p); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"project_id": p.ProjectID, "name": p.Name})
}

func (s *Server) handleProjectsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/projects/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	projectID := parts[0]

	if len(parts) == 2 && parts[1] == "ingest" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleIngest(w, r, projectID)
		return
	}
	if len(parts) == 2 && parts[1] == "jobs" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		jobs, err := s.ingestion.ListJobs(r.Context(), projectID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
		return
	}
	if len(parts) == 2 && parts[1] == "documents" {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		docs, err := s.ingestion.ListDocuments(r.Context(), projectID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
		return
	}
	if len(parts) == 3 && parts[1] == "documents" {
		if r.Method != http.MethodDelete {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if err := s.ingestion.DeleteDocument(r.Context(), projectID, parts[2]); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document_id": parts[2], "deleted": true})
		return
	}
	if len(parts) == 2 && parts[1] == "search" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleSearch(w, r, projectID)
		return
	}
	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request, projectID string) {
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	uploads := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("open upload %s: %w", fh.Filename, err))
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("read upload %s: %w", fh.Filename, err))
			return
		}
		uploads = append(uploads, service.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     content,
		})
	}

	userID := r.Header.Get("X-User-ID")
	job, err := s.ingestion.CreateIngestionJob(r.Context(), projectID, userID, uploads)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.JobID,
		"status":      job.Status,
		"total_files": job.TotalFiles,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, projectID string) {
	var req struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k,omitempty"`
		TopM  int    `json:"top_m,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("query is required"))
		return
	}
	results, err := s.query.Search(r.Context(), projectID, req.Query, req.TopK, req.TopM)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleJobsScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	jobID := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		job, err := s.ingestion.GetJobStatus(r.Context(), jobID)
		if err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"job":      job,
			"progress": job.Progress(),
		})
		return
	}
	if len(parts) == 2 && parts[1] == "cancel" {
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		if err := s.ingestion.CancelJob(r.Context(), jobID); err != nil {
			writeErr(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": jobID, "cancelling": true})
		return
	}
	writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrProjectNotFound), errors.Is(err, util.ErrJobNotFound),
		errors.Is(err, util.ErrDocumentNotFound):
		return http.StatusNotFound
	case strings.Contains(strings.ToLower(err.Error()), "required"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	msg := "request failed"
	if err != nil && code < 500 {
		msg = err.Error()
	}
	if code >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"status":  code,
			"message": msg,
		},
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-User-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
