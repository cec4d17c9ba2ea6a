package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/api/shared"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/platform/logger"
	"github.com/simongrossi/maptoposter-web/internal/service"
	"github.com/simongrossi/maptoposter-web/internal/storage"
	"github.com/simongrossi/maptoposter-web/internal/theme"
)

// PosterAPI is the part of service.PosterService the handlers call.
type PosterAPI interface {
	Submit(ctx context.Context, req domain.PosterRequest) (uuid.UUID, error)
	GetTask(ctx context.Context, id uuid.UUID) (*service.TaskView, error)
	Themes() ([]theme.Summary, error)
}

// PosterFiles reads finished posters.
type PosterFiles interface {
	Open(ctx context.Context, name string) (io.ReadCloser, storage.Info, error)
}

// HealthCheck checks one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

// PosterHandler serves the poster endpoints.
type PosterHandler struct {
	posters PosterAPI
	files   PosterFiles
	checks  map[string]HealthCheck
	logger  *slog.Logger
}

// NewPosterHandler creates a PosterHandler. checks may be nil.
func NewPosterHandler(
	posters PosterAPI,
	files PosterFiles,
	checks map[string]HealthCheck,
	logger *slog.Logger,
) *PosterHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PosterHandler{
		posters: posters,
		files:   files,
		checks:  checks,
		logger:  logger.With(slog.String("component", "poster_handler")),
	}
}

// Routes registers the poster endpoints on r. protect wraps POST /generate
// and may be a pass-through.
func (h *PosterHandler) Routes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.With(protect).Post("/generate", h.Generate)
	r.Get("/tasks/{id}", h.GetTask)
	r.Get("/themes", h.ListThemes)
	r.Get("/posters/{filename}", h.DownloadPoster)
	r.Get("/health", h.Health)
}

// Generate handles POST /generate.
func (h *PosterHandler) Generate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req domain.PosterRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			shared.RespondWithErrorAndLog(w, r, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	req.ApplyDefaults()
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	taskID, err := h.posters.Submit(r.Context(), req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	log.Info("poster generation accepted",
		slog.String("task_id", taskID.String()),
		slog.String("city", req.City),
		slog.String("country", req.Country),
		slog.String("theme", req.Style))

	w.Header().Set("Location", "/tasks/"+taskID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerateResponse{TaskID: taskID})
}

// GetTask handles GET /tasks/{id}.
func (h *PosterHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	view, err := h.posters.GetTask(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// ListThemes handles GET /themes.
func (h *PosterHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.posters.Themes()
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list themes")
		return
	}
	if themes == nil {
		themes = []theme.Summary{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, ThemesResponse{Themes: themes})
}

// DownloadPoster handles GET /posters/{filename}.
func (h *PosterHandler) DownloadPoster(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	name, err := storage.SanitizeFilename(chi.URLParam(r, "filename"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	body, info, err := h.files.Open(r.Context(), name)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer func() { _ = body.Close() }()

	contentType := info.ContentType
	if contentType == "" {
		contentType = storage.ContentType(name)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, body); err != nil {
		log.Warn("poster download interrupted",
			slog.String("filename", name),
			slog.String("error", err.Error()))
	}
}

// Health handles GET /health. Any failing check turns the reply into a 503
// with status "degraded".
func (h *PosterHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: HealthOK}
	status := http.StatusOK

	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
		for name, check := range h.checks {
			if err := check(r.Context()); err != nil {
				logger.FromContextOrDefault(r.Context(), h.logger).Warn("health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()))
				resp.Checks[name] = "unavailable"
				resp.Status = HealthDegraded
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = HealthOK
		}
	}
	shared.RespondWithJSON(w, r, status, resp)
}
