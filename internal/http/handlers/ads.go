package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/khshakilahamed/ads-generator/internal/domain"
	"github.com/khshakilahamed/ads-generator/internal/middleware"
	"github.com/khshakilahamed/ads-generator/internal/pipeline"
)

// CreateAd accepts a multipart submission with the product image and runs the
// generation flow. The response carries the final record; clients that want
// progress as it happens use the watch stream instead of polling.
func (a *App) CreateAd(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	if owner == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing owner context")
		return
	}

	// a little slack over the image cap for the other form fields
	r.Body = http.MaxBytesReader(w, r.Body, a.Config.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(a.Config.MaxUploadBytes); err != nil {
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "request body exceeds the upload limit")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read image file")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		a.error(w, http.StatusBadRequest, "bad_request", "uploaded file is not an image")
		return
	}

	ad, err := a.Orch.CreateAd(r.Context(), pipeline.CreateAdInput{
		OwnerEmail:  owner,
		ImageData:   data,
		ContentType: contentType,
		Description: r.FormValue("description"),
		Size:        r.FormValue("size"),
		AvatarURL:   r.FormValue("avatar_url"),
	})
	if err != nil {
		if ad != nil {
			// the failed record exists; surface its id alongside the error
			a.json(w, http.StatusBadGateway, map[string]any{
				"error":   "generation_failed",
				"message": err.Error(),
				"ad":      toAdResponse(ad),
			})
			return
		}
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusCreated, toAdResponse(ad))
}

type animateRequest struct {
	MotionPrompt string `json:"motion_prompt"`
}

// AnimateAd starts the video flow for a completed ad.
func (a *App) AnimateAd(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	adID := chi.URLParam(r, "ad_id")
	if adID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "ad_id required")
		return
	}

	var req animateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}

	ad, err := a.Orch.AnimateAd(r.Context(), pipeline.AnimateAdInput{
		AdID:         adID,
		OwnerEmail:   owner,
		MotionPrompt: req.MotionPrompt,
	})
	if err != nil {
		if ad != nil && (errors.Is(err, domain.ErrVideoSynthesis) || errors.Is(err, domain.ErrUploadFailed)) {
			a.json(w, http.StatusBadGateway, map[string]any{
				"error":   "animation_failed",
				"message": err.Error(),
				"ad":      toAdResponse(ad),
			})
			return
		}
		a.domainError(w, err)
		return
	}
	a.json(w, http.StatusOK, toAdResponse(ad))
}

// GetAd returns a single record, scoped to the acting owner.
func (a *App) GetAd(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())
	adID := chi.URLParam(r, "ad_id")

	ad, err := a.Repo.GetByID(r.Context(), adID)
	if err != nil {
		a.domainError(w, err)
		return
	}
	if ad.OwnerEmail != owner {
		a.error(w, http.StatusNotFound, "not_found", "ad not found")
		return
	}
	a.json(w, http.StatusOK, toAdResponse(ad))
}

// ListAds returns the owner's records, newest first.
func (a *App) ListAds(w http.ResponseWriter, r *http.Request) {
	owner := middleware.OwnerFromContext(r.Context())

	ads, err := a.Repo.ListByOwner(r.Context(), owner)
	if err != nil {
		a.domainError(w, err)
		return
	}
	out := make([]adResponse, 0, len(ads))
	for i := range ads {
		out = append(out, toAdResponse(&ads[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"ads": out})
}
