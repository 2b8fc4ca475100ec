// Package handlers implements the HTTP surface of the ad generation service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/infra"
	"github.com/khshakilahamed/ads-generator/internal/pipeline"
)

// App bundles the dependencies shared by all handlers.
type App struct {
	Config *infra.Config
	Logger zerolog.Logger
	Orch   *pipeline.Orchestrator
	Repo   domain.AdRepository
	Feed   domain.AdFeed

	upgrader websocket.Upgrader
}

// NewApp creates the handler set.
func NewApp(cfg *infra.Config, logger zerolog.Logger, orch *pipeline.Orchestrator, repo domain.AdRepository, feed domain.AdFeed) *App {
	return &App{
		Config: cfg,
		Logger: logger,
		Orch:   orch,
		Repo:   repo,
		Feed:   feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}

// domainError maps pipeline and store errors onto HTTP responses.
func (a *App) domainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUnauthorized):
		// foreign records look identical to missing ones
		a.error(w, http.StatusNotFound, "not_found", "ad not found")
	case errors.Is(err, domain.ErrAlreadyInProgress):
		a.error(w, http.StatusConflict, "already_in_progress", "animation already in progress")
	case errors.Is(err, domain.ErrUploadFailed),
		errors.Is(err, domain.ErrPromptSynthesis),
		errors.Is(err, domain.ErrImageSynthesis),
		errors.Is(err, domain.ErrVideoSynthesis):
		a.error(w, http.StatusBadGateway, "generation_failed", err.Error())
	default:
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

type adResponse struct {
	ID             string            `json:"id"`
	Status         domain.AdStatus   `json:"status"`
	VideoStatus    string            `json:"video_status,omitempty"`
	Description    string            `json:"description,omitempty"`
	Size           string            `json:"size,omitempty"`
	SourceImageURL string            `json:"source_image_url,omitempty"`
	ResultImageURL string            `json:"result_image_url,omitempty"`
	VideoURL       string            `json:"video_url,omitempty"`
	PromptPlan     *domain.PromptPlan `json:"prompt_plan,omitempty"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func toAdResponse(ad *domain.Ad) adResponse {
	resp := adResponse{
		ID:             ad.ID,
		Status:         ad.Status,
		Description:    ad.Description,
		Size:           ad.Size,
		SourceImageURL: ad.SourceImageURL,
		ResultImageURL: ad.ResultImageURL,
		VideoURL:       ad.VideoURL,
		FailureReason:  string(ad.FailureReason),
		CreatedAt:      ad.CreatedAt,
		UpdatedAt:      ad.UpdatedAt,
	}
	if ad.VideoStatus != domain.VideoStatusAbsent {
		resp.VideoStatus = string(ad.VideoStatus)
	}
	if !ad.PromptPlan.IsZero() {
		plan := ad.PromptPlan
		resp.PromptPlan = &plan
	}
	return resp
}
