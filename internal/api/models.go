package api

import (
	"github.com/google/uuid"
	"github.com/simongrossi/maptoposter-web/internal/theme"
)

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	TaskID uuid.UUID `json:"task_id"`
}

// ThemesResponse is returned by GET /themes.
type ThemesResponse struct {
	Themes []theme.Summary `json:"themes"`
}

// HealthResponse is returned by GET /health. Checks is only present when
// dependency checks are configured.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health statuses
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)
