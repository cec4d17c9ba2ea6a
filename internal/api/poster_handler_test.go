package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/api/shared"
	"github.com/simongrossi/maptoposter-web/internal/domain"
	"github.com/simongrossi/maptoposter-web/internal/service"
	"github.com/simongrossi/maptoposter-web/internal/storage"
	"github.com/simongrossi/maptoposter-web/internal/task"
	"github.com/simongrossi/maptoposter-web/internal/theme"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePosterAPI records submissions and serves canned task views.
type fakePosterAPI struct {
	submitted []domain.PosterRequest
	submitID  uuid.UUID
	submitErr error
	views     map[uuid.UUID]*service.TaskView
	themes    []theme.Summary
	themesErr error
}

func (f *fakePosterAPI) Submit(_ context.Context, req domain.PosterRequest) (uuid.UUID, error) {
	if f.submitErr != nil {
		return uuid.Nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return f.submitID, nil
}

func (f *fakePosterAPI) GetTask(_ context.Context, id uuid.UUID) (*service.TaskView, error) {
	view, ok := f.views[id]
	if !ok {
		return nil, service.ErrTaskNotFound
	}
	return view, nil
}

func (f *fakePosterAPI) Themes() ([]theme.Summary, error) {
	return f.themes, f.themesErr
}

type handlerFixture struct {
	api    *fakePosterAPI
	dir    string
	router chi.Router
}

func newHandlerFixture(t *testing.T, checks map[string]HealthCheck) *handlerFixture {
	t.Helper()
	dir := t.TempDir()
	urls, err := storage.NewURLBuilder("")
	require.NoError(t, err)
	files, err := storage.NewLocalStore(dir, urls, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	api := &fakePosterAPI{
		submitID: uuid.New(),
		views:    make(map[uuid.UUID]*service.TaskView),
	}
	h := NewPosterHandler(api, files, checks, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	h.Routes(r, func(next http.Handler) http.Handler { return next })
	return &handlerFixture{api: api, dir: dir, router: r}
}

func (f *handlerFixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPosterHandler_Generate(t *testing.T) {
	t.Run("accepted with defaults applied", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodPost, "/generate", `{"city":" Paris ","country":"France"}`)

		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"task_id":%q}`, f.api.submitID), rec.Body.String())
		assert.Equal(t, "/tasks/"+f.api.submitID.String(), rec.Header().Get("Location"))

		require.Len(t, f.api.submitted, 1)
		got := f.api.submitted[0]
		assert.Equal(t, "Paris", got.City)
		assert.Equal(t, domain.DefaultStyle, got.Style)
		assert.Equal(t, domain.DefaultDistance, got.Distance)
		assert.Equal(t, domain.DefaultFormat, got.Format)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodPost, "/generate", `{"city":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request format", decodeError(t, rec).Error)
		assert.Empty(t, f.api.submitted)
	})

	t.Run("empty body", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodPost, "/generate", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("validation errors list fields", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodPost, "/generate",
			`{"city":"Paris","country":"France","distance":100,"format":"gif","custom_layers":[{"label":"x","color":"red"}]}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "Validation error", body.Error)

		fields := make(map[string]string, len(body.Fields))
		for _, fe := range body.Fields {
			fields[fe.Field] = fe.Message
		}
		assert.Equal(t, "must be at least 500", fields["distance"])
		assert.Equal(t, "must be one of: png, svg, pdf", fields["format"])
		assert.Equal(t, "must be a hex color such as #1A2B3C", fields["custom_layers[0].color"])
		assert.Empty(t, f.api.submitted)
	})

	t.Run("missing city", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodPost, "/generate", `{"country":"France"}`)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		body := decodeError(t, rec)
		require.Len(t, body.Fields, 1)
		assert.Equal(t, shared.FieldError{Field: "city", Message: "is required"}, body.Fields[0])
	})

	t.Run("queue full", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.api.submitErr = fmt.Errorf("%w: queue capacity 10 reached", task.ErrQueueFull)

		rec := f.do(http.MethodPost, "/generate", `{"city":"Paris","country":"France"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Poster queue is full, try again later", decodeError(t, rec).Error)
	})

	t.Run("internal error hides details", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.api.submitErr = errors.New("dial tcp 10.0.0.5:5432: connection refused")

		rec := f.do(http.MethodPost, "/generate", `{"city":"Paris","country":"France"}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "5432")
	})
}

func TestPosterHandler_GetTask(t *testing.T) {
	f := newHandlerFixture(t, nil)
	id := uuid.New()
	f.api.views[id] = &service.TaskView{
		TaskID:   id,
		Status:   service.JobSuccess,
		Progress: domain.NewProgress(100, domain.ProgressCompleted),
		Result: &domain.PosterResult{
			Success:  true,
			FileURL:  "/posters/paris_noir_abc.png",
			FilePath: "paris_noir_abc.png",
			Filename: "paris_noir_abc.png",
		},
	}

	t.Run("found", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/tasks/"+id.String(), "")

		require.Equal(t, http.StatusOK, rec.Code)
		var view map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
		assert.Equal(t, id.String(), view["task_id"])
		assert.Equal(t, "SUCCESS", view["status"])
		assert.Equal(t, map[string]any{"current": 100.0, "total": 100.0, "status": domain.ProgressCompleted}, view["progress"])
		result, ok := view["result"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "/posters/paris_noir_abc.png", result["file_url"])
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/tasks/"+uuid.NewString(), "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Task not found", decodeError(t, rec).Error)
	})

	t.Run("bad uuid", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/tasks/not-a-uuid", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid ID format", decodeError(t, rec).Error)
	})
}

func TestPosterHandler_ListThemes(t *testing.T) {
	t.Run("lists themes", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.api.themes = []theme.Summary{{ID: "noir", Name: "Noir"}}

		rec := f.do(http.MethodGet, "/themes", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"themes":[{"id":"noir","name":"Noir","colors":{}}]}`, rec.Body.String())
	})

	t.Run("empty list is an array", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodGet, "/themes", "")

		assert.JSONEq(t, `{"themes":[]}`, rec.Body.String())
	})

	t.Run("catalog failure", func(t *testing.T) {
		f := newHandlerFixture(t, nil)
		f.api.themesErr = errors.New("read themes dir: permission denied")

		rec := f.do(http.MethodGet, "/themes", "")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to list themes", decodeError(t, rec).Error)
	})
}

func TestPosterHandler_DownloadPoster(t *testing.T) {
	f := newHandlerFixture(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "paris_noir_abc.svg"), []byte("<svg/>"), 0o644))

	t.Run("streams file", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/posters/paris_noir_abc.svg", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="paris_noir_abc.svg"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "6", rec.Header().Get("Content-Length"))
		assert.Equal(t, "<svg/>", rec.Body.String())
	})

	t.Run("missing file", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/posters/lyon_noir_abc.png", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "File not found", decodeError(t, rec).Error)
	})

	t.Run("unsafe characters are stripped", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/posters/paris_noir_abc%20.svg", "")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("dot-only name rejected", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/posters/..", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPosterHandler_Health(t *testing.T) {
	t.Run("no checks", func(t *testing.T) {
		f := newHandlerFixture(t, nil)

		rec := f.do(http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("failing check", func(t *testing.T) {
		f := newHandlerFixture(t, map[string]HealthCheck{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})

		rec := f.do(http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.JSONEq(t, `{"status":"degraded","checks":{"database":"ok","redis":"unavailable"}}`, rec.Body.String())
	})
}
